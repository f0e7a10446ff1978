package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestSim builds a simulation with automatic spawning disabled so tests
// place every vehicle themselves.
func newTestSim(t *testing.T, mutate func(*Params), opts ...Option) *Simulation {
	t.Helper()
	p := DefaultParams()
	p.SpawnInterval = 0
	if mutate != nil {
		mutate(&p)
	}
	s, err := New(p, rand.New(rand.NewSource(1)), opts...)
	require.NoError(t, err)
	return s
}

// spawnAt spawns a vehicle and returns a pointer to its live slot.
func spawnAt(t *testing.T, s *Simulation, origin Origin, lane int) *Vehicle {
	t.Helper()
	require.True(t, s.SpawnFrom(origin, lane), "spawn %s lane %d", origin, lane)
	slot := s.pool.dense[len(s.pool.dense)-1]
	return &s.pool.slots[slot]
}

// setClock jumps the simulation to tick and refreshes the displayed lights.
func setClock(s *Simulation, tick uint64) {
	s.clock = tick
	s.ns, s.ew = s.lights.Lights(tick)
}

// greenStart returns the first tick at which axis shows green.
func greenStart(p Params, axis Axis) uint64 {
	if axis == AxisNS {
		return 0
	}
	return p.GreenTicks + p.YellowTicks
}
