// Package feed turns lane files into vehicle arrivals. Each approach has a
// text file of vehicle IDs, one per line: lanea.txt is north, laneb.txt
// south, lanec.txt east and laned.txt west. Generators append to the files
// and the Source consumes them.
package feed

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/intersim/intersim/internal/sim"
	"github.com/intersim/intersim/internal/util"
)

// takeSuffix marks a lane file that is being consumed.
const takeSuffix = ".take"

// LanePath returns the lane file of origin under dir.
func LanePath(dir string, o sim.Origin) string {
	return filepath.Join(dir, "lane"+util.LaneLetter(int(o))+".txt")
}

// Batch is the set of IDs read from one lane file.
type Batch struct {
	Origin sim.Origin
	IDs    []uint64
}

// Source reads and consumes lane files.
type Source struct {
	dir string
	log *slog.Logger

	mu sync.Mutex
}

// NewSource creates a Source over dir. The directory is created if missing.
func NewSource(dir string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create feed dir: %w", err)
	}
	return &Source{dir: dir, log: logger.With("component", "feed")}, nil
}

func (s *Source) Dir() string {
	return s.dir
}

// Load consumes every lane file and returns one batch per non-empty lane.
// A file is renamed before it is read, so lines appended meanwhile land in
// a fresh file and are picked up by the next Load.
func (s *Source) Load() ([]Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batches []Batch
	var errs []error
	for _, o := range sim.Origins {
		ids, err := s.take(LanePath(s.dir, o))
		if err != nil {
			errs = append(errs, fmt.Errorf("lane %s: %w", o, err))
		}
		if len(ids) > 0 {
			batches = append(batches, Batch{Origin: o, IDs: ids})
		}
	}
	return batches, errors.Join(errs...)
}

func (s *Source) take(path string) ([]uint64, error) {
	taken := path + takeSuffix

	// a leftover from an interrupted Load is consumed first
	if _, err := os.Stat(taken); errors.Is(err, fs.ErrNotExist) {
		if err := os.Rename(path, taken); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
	}

	ids, err := s.readIDs(taken)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(taken); err != nil {
		return ids, err
	}
	return ids, nil
}

func (s *Source) readIDs(path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []uint64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			s.log.Debug("Skipping malformed lane entry", "file", filepath.Base(path), "line", line)
			continue
		}
		ids = append(ids, id)
	}
	return ids, sc.Err()
}

// Waiting counts the lines currently in each lane file without consuming
// them.
func (s *Source) Waiting() ([len(sim.Origins)]int, error) {
	var counts [len(sim.Origins)]int
	for _, o := range sim.Origins {
		n, err := countLines(LanePath(s.dir, o))
		if err != nil {
			return counts, err
		}
		counts[o] = n
	}
	return counts, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}
