// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition. The only SQLite-specific concerns are
// creating the in-memory DB and the periodic disk dump.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/internal/database"
	"github.com/intersim/intersim/internal/model"
	gormstorage "github.com/intersim/intersim/internal/storage/gorm"
	"github.com/intersim/intersim/internal/util"
	"github.com/intersim/intersim/pkg/core"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg config.SQLiteConfig
	log *slog.Logger

	mu       sync.Mutex
	dumpPath string
	run      core.Run
	vehicles int

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend. deps.DB is replaced by a fresh
// in-memory database unless one is injected.
func New(cfg config.SQLiteConfig, deps gormstorage.Dependencies) (*Backend, error) {
	if deps.DB == nil {
		db, err := database.OpenSQLite("")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
		}
		deps.DB = db
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Backend{
		Backend: gormstorage.New(deps),
		cfg:     cfg,
		log:     log.With("component", "sqlite-storage"),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	if b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}
	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Backend.Close()
}

// StartRun records the run and names the dump file after it.
func (b *Backend) StartRun(run *core.Run) error {
	if err := b.Backend.StartRun(run); err != nil {
		return err
	}

	b.mu.Lock()
	b.run = *run
	b.dumpPath = filepath.Join(b.cfg.OutputDir, database.DumpFileName(util.SanitizeFileName(run.Name), run.StartTime))
	b.mu.Unlock()
	return nil
}

// EndRun flushes, stamps the run and writes the final dump.
func (b *Backend) EndRun(endTick uint64) error {
	if err := b.Backend.EndRun(endTick); err != nil {
		return err
	}

	var n int64
	if err := b.DB().Model(&model.Vehicle{}).Where("run_id = ?", b.run.ID).Count(&n).Error; err != nil {
		b.log.Warn("Could not count vehicles", "error", err)
	}

	b.mu.Lock()
	b.run.EndTick = endTick
	b.vehicles = int(n)
	b.mu.Unlock()
	return b.Dump()
}

// Dump writes the current database to the run's dump file.
func (b *Backend) Dump() error {
	path := b.GetExportedFilePath()
	if path == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpToDisk(b.DB(), path); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", path, "duration", time.Since(start))
	return nil
}

// GetExportedFilePath returns the path of the run's dump file.
func (b *Backend) GetExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

// GetExportMetadata describes the dump for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	return core.UploadMetadata{
		RunName:       b.run.Name,
		Seed:          b.run.Seed,
		DurationTicks: b.run.EndTick,
		Vehicles:      b.vehicles,
	}
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Flush()
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
