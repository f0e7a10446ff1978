package cache

import (
	"sync"

	"github.com/intersim/intersim/pkg/core"
)

// MaxTrackPoints bounds the track kept per vehicle. A full track is halved
// by dropping every other point, so long waits at a red light keep their
// shape at a coarser resolution.
const MaxTrackPoints = 1024

// Entry is a live vehicle's spawn record and its sampled track.
type Entry struct {
	Vehicle core.Vehicle
	Track   []core.Position
}

// VehicleCache holds every live vehicle between its spawn and exit records so
// handlers can validate states and build exit tracks without a storage read.
type VehicleCache struct {
	m        sync.Mutex
	vehicles map[uint64]*Entry
}

func NewVehicleCache() *VehicleCache {
	return &VehicleCache{
		vehicles: make(map[uint64]*Entry),
	}
}

func (c *VehicleCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.vehicles = make(map[uint64]*Entry)
}

// Add registers a vehicle. Its spawn position starts the track.
func (c *VehicleCache) Add(v core.Vehicle) {
	c.m.Lock()
	defer c.m.Unlock()
	c.vehicles[v.ID] = &Entry{
		Vehicle: v,
		Track:   []core.Position{v.Position},
	}
}

func (c *VehicleCache) Get(id uint64) (core.Vehicle, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if e, ok := c.vehicles[id]; ok {
		return e.Vehicle, true
	}
	return core.Vehicle{}, false
}

// Sample appends p to the vehicle's track. It reports false for unknown
// vehicles.
func (c *VehicleCache) Sample(id uint64, p core.Position) bool {
	c.m.Lock()
	defer c.m.Unlock()
	e, ok := c.vehicles[id]
	if !ok {
		return false
	}
	if len(e.Track) >= MaxTrackPoints {
		e.Track = decimate(e.Track)
	}
	e.Track = append(e.Track, p)
	return true
}

// Remove deletes a vehicle and returns its entry.
func (c *VehicleCache) Remove(id uint64) (Entry, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	e, ok := c.vehicles[id]
	if !ok {
		return Entry{}, false
	}
	delete(c.vehicles, id)
	return *e, true
}

func (c *VehicleCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.vehicles)
}

// decimate keeps even-indexed points and always the last one.
func decimate(track []core.Position) []core.Position {
	last := track[len(track)-1]
	out := track[:0]
	for i := 0; i < len(track); i += 2 {
		out = append(out, track[i])
	}
	if out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}
