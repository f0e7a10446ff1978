package storage

import (
	"errors"

	"github.com/intersim/intersim/pkg/core"
)

// ErrNoRun is returned when recording outside StartRun/EndRun.
var ErrNoRun = errors.New("no run in progress")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun(endTick uint64) error

	// Vehicle lifecycle
	AddVehicle(v *core.Vehicle) error
	RecordVehicleState(s *core.VehicleState) error
	RecordVehicleExit(e *core.VehicleExit) error

	// Intersection state
	RecordLightState(l *core.LightState) error
	RecordLaneCounts(c *core.LaneCounts) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the replay server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
