package core

import "time"

// LightState records a signal change.
type LightState struct {
	Tick  uint64    `json:"tick"`
	Time  time.Time `json:"time"`
	Phase string    `json:"phase"`
	NS    string    `json:"ns"`
	EW    string    `json:"ew"`
}

// LaneCounts is a periodic occupancy report of the junction.
type LaneCounts struct {
	Tick    uint64    `json:"tick"`
	Time    time.Time `json:"time"`
	North   int       `json:"north"`
	South   int       `json:"south"`
	East    int       `json:"east"`
	West    int       `json:"west"`
	Active  int       `json:"active"`
	Braking int       `json:"braking"`
}

// Waiting sums the queued arrivals over all approaches.
func (c LaneCounts) Waiting() int {
	return c.North + c.South + c.East + c.West
}
