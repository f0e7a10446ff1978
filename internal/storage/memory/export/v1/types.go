// Package v1 contains the v1 JSON export format for recorded runs.
package v1

import (
	"encoding/json"

	"github.com/intersim/intersim/pkg/core"
)

// Version is written into every export.
const Version = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version    int             `json:"version"`
	RunID      string          `json:"runId"`
	Name       string          `json:"name"`
	Seed       int64           `json:"seed"`
	StartTime  string          `json:"startTime"`
	EndTick    uint64          `json:"endTick"`
	Params     json.RawMessage `json:"params,omitempty"`
	Anchor     *core.Anchor    `json:"anchor,omitempty"`
	Vehicles   []Vehicle       `json:"vehicles"`
	Lights     [][]any         `json:"lights"`
	LaneCounts [][]any         `json:"laneCounts"`
}

// Vehicle is one vehicle's lifetime.
// Positions rows are [tick, [x, y], heading, state].
type Vehicle struct {
	ID          uint64       `json:"id"`
	Origin      string       `json:"origin"`
	Lane        int          `json:"lane"`
	Intent      string       `json:"intent"`
	SpawnTick   uint64       `json:"spawnTick"`
	ExitTick    *uint64      `json:"exitTick,omitempty"`
	TravelTicks uint64       `json:"travelTicks,omitempty"`
	Positions   [][]any      `json:"positions"`
	Path        [][2]float64 `json:"path,omitempty"`
}
