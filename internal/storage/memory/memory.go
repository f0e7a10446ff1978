package memory

import (
	"sync"

	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/internal/storage"
	v1 "github.com/intersim/intersim/internal/storage/memory/export/v1"
	"github.com/intersim/intersim/pkg/core"
)

// Option configures the memory backend.
type Option func(*Backend)

// WithProjection adds lon/lat paths to the export.
func WithProjection(p v1.Projection) Option {
	return func(b *Backend) {
		b.project = p
	}
}

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	project v1.Projection

	run      *core.Run
	vehicles map[uint64]*v1.VehicleRecord
	lights   []core.LightState
	counts   []core.LaneCounts

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, opts ...Option) *Backend {
	b := &Backend{
		cfg:      cfg,
		vehicles: make(map[uint64]*v1.VehicleRecord),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run and drops anything recorded before.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.vehicles = make(map[uint64]*v1.VehicleRecord)
	b.lights = nil
	b.counts = nil
	b.lastExportPath = ""

	return nil
}

// EndRun finalizes and exports the run data
func (b *Backend) EndRun(endTick uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return storage.ErrNoRun
	}
	b.run.EndTick = endTick
	return b.exportJSON()
}

// AddVehicle registers a new vehicle
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return storage.ErrNoRun
	}
	b.vehicles[v.ID] = &v1.VehicleRecord{
		Vehicle: *v,
		States:  make([]core.VehicleState, 0),
	}
	return nil
}

// GetVehicle looks up a vehicle by id
func (b *Backend) GetVehicle(id uint64) (*core.Vehicle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.vehicles[id]; ok {
		return &record.Vehicle, true
	}
	return nil, false
}

// RecordVehicleState records a vehicle state update
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.vehicles[s.VehicleID]; ok {
		record.States = append(record.States, *s)
	}
	return nil // silently ignore if vehicle not found
}

// RecordVehicleExit closes a vehicle record
func (b *Backend) RecordVehicleExit(e *core.VehicleExit) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.vehicles[e.VehicleID]; ok {
		exit := *e
		record.Exit = &exit
	}
	return nil
}

// RecordLightState records a signal change
func (b *Backend) RecordLightState(l *core.LightState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lights = append(b.lights, *l)
	return nil
}

// RecordLaneCounts records an occupancy report
func (b *Backend) RecordLaneCounts(c *core.LaneCounts) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts = append(b.counts, *c)
	return nil
}
