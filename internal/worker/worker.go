// Package worker turns dispatched simulation events into recording calls on
// a storage backend.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/intersim/intersim/internal/cache"
	"github.com/intersim/intersim/internal/run"
	"github.com/intersim/intersim/internal/storage"
	"github.com/intersim/intersim/pkg/core"
)

// ErrUnknownVehicle is returned when a state or exit arrives for a vehicle
// whose spawn was never recorded.
var ErrUnknownVehicle = errors.New("unknown vehicle")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Cache      *cache.VehicleCache
	RunContext *run.Context
	Logger     *slog.Logger
}

// Manager records engine events into a storage backend.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	log     *slog.Logger
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Cache == nil {
		deps.Cache = cache.NewVehicleCache()
	}
	if deps.RunContext == nil {
		deps.RunContext = run.NewContext()
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		log:     log.With("component", "worker"),
	}
}

// Run returns the run being recorded, or nil.
func (m *Manager) Run() *core.Run {
	return m.deps.RunContext.Run()
}

// RunID returns the current run ID as a string, empty outside a run.
func (m *Manager) RunID() string {
	return m.deps.RunContext.RunID()
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

func payloadError(cmd string, got any) error {
	return fmt.Errorf("%s: unexpected payload %T", cmd, got)
}
