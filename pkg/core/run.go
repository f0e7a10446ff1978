// Package core holds the recording records shared by the storage backends
// and the streaming protocol.
package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run describes one simulation session.
type Run struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Seed      int64           `json:"seed"`
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime,omitzero"`
	EndTick   uint64          `json:"endTick"`
	TickRate  time.Duration   `json:"tickRate"`
	Params    json.RawMessage `json:"params"`
	Anchor    Anchor          `json:"anchor"`
}

// Anchor places the intersection center on the globe.
type Anchor struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	MetersPerUnit float64 `json:"metersPerUnit"`
}

// Position is a point in simulation units, y pointing down.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UploadMetadata describes an exported recording for the upload API.
type UploadMetadata struct {
	RunName       string
	Seed          int64
	DurationTicks uint64
	Vehicles      int
	Tag           string
}
