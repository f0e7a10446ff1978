// Package monitor reports intersection occupancy: every lane count sample
// is logged, recorded through the dispatcher, written to InfluxDB and
// mirrored to a status file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/intersim/intersim/internal/channel"
	"github.com/intersim/intersim/internal/dispatcher"
	"github.com/intersim/intersim/internal/influx"
	"github.com/intersim/intersim/internal/run"
	"github.com/intersim/intersim/internal/worker"
	"github.com/intersim/intersim/pkg/core"
)

// Sample is one occupancy report with the lights shown at that tick.
type Sample struct {
	Counts core.LaneCounts
	NS     string
	EW     string
}

// PointWriter receives time series points.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger        *slog.Logger
	Dispatcher    *dispatcher.Dispatcher
	RunContext    *run.Context
	WorkerManager *worker.Manager
	// Influx is optional.
	Influx PointWriter
	// StatusPath is rewritten with the latest status; empty disables it.
	StatusPath string
}

// Status is the latest report, as written to the status file.
type Status struct {
	Time                time.Time       `json:"time"`
	Run                 string          `json:"run"`
	Counts              core.LaneCounts `json:"counts"`
	Waiting             int             `json:"waiting"`
	NS                  string          `json:"ns"`
	EW                  string          `json:"ew"`
	LastWriteDurationMs float64         `json:"lastWriteDurationMs"`
}

// Service manages status monitoring
type Service struct {
	deps Dependencies
	log  *slog.Logger

	mu        sync.RWMutex
	isRunning bool
	last      Status
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.RunContext == nil {
		deps.RunContext = run.NewContext()
	}
	return &Service{
		deps: deps,
		log:  log.With("component", "monitor"),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent status.
func (s *Service) Last() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Report handles one sample. Failures of individual sinks are logged and do
// not stop the others.
func (s *Service) Report(sample Sample) Status {
	c := sample.Counts
	if c.Time.IsZero() {
		c.Time = time.Now()
	}
	runID := s.deps.RunContext.RunID()

	st := Status{
		Time:    c.Time,
		Run:     runID,
		Counts:  c,
		Waiting: c.Waiting(),
		NS:      sample.NS,
		EW:      sample.EW,
	}
	if s.deps.WorkerManager != nil {
		st.LastWriteDurationMs = float64(s.deps.WorkerManager.GetLastDBWriteDuration().Microseconds()) / 1000
	}

	s.log.Info("Lane counts",
		"tick", c.Tick,
		"north", c.North,
		"south", c.South,
		"east", c.East,
		"west", c.West,
		"active", c.Active,
		"braking", c.Braking,
		"ns", sample.NS,
		"ew", sample.EW,
	)

	if s.deps.Dispatcher != nil {
		if _, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{
			Command:   worker.CmdLaneCounts,
			Tick:      c.Tick,
			Payload:   c,
			Timestamp: c.Time,
		}); err != nil {
			s.log.Warn("Error recording lane counts", "error", err)
		}
	}

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.LaneCountsPoint(runID, c, sample.NS, sample.EW)); err != nil {
			s.log.Warn("Error writing lane counts point", "error", err)
		}
	}

	if s.deps.StatusPath != "" {
		if err := writeStatus(s.deps.StatusPath, st); err != nil {
			s.log.Warn("Error writing status file", "path", s.deps.StatusPath, "error", err)
		}
	}

	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
	return st
}

func writeStatus(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Start consumes samples from in until Stop is called or in is closed.
func (s *Service) Start(in channel.Receiver[Sample]) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		s.log.Debug("Starting status monitor goroutine")
		for {
			select {
			case <-stop:
				return
			case sample, ok := <-in.Receive():
				if !ok {
					return
				}
				s.Report(sample)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
