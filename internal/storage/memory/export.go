package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/intersim/intersim/internal/util"
	v1 "github.com/intersim/intersim/internal/storage/memory/export/v1"
	"github.com/intersim/intersim/pkg/core"
)

// GetExportedFilePath returns the file written by the last EndRun.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last exported run for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.run == nil {
		return core.UploadMetadata{}
	}
	return core.UploadMetadata{
		RunName:       b.run.Name,
		Seed:          b.run.Seed,
		DurationTicks: b.run.EndTick,
		Vehicles:      len(b.vehicles),
	}
}

// exportJSON writes the run data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := v1.Build(&v1.RunData{
		Run:        b.run,
		Vehicles:   b.vehicles,
		Lights:     b.lights,
		LaneCounts: b.counts,
		Project:    b.project,
	})

	name := util.SanitizeFileName(b.run.Name)
	timestamp := b.run.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", name, timestamp)
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeExport(path string, data v1.Export, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	if !compress {
		return json.NewEncoder(f).Encode(data)
	}

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gz.Close()
}
