package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaper_FreesSlotImmediately(t *testing.T) {
	s := newTestSim(t, nil)
	p := s.Params()

	v := spawnAt(t, s, North, 1)
	slot := v.Slot
	v.state = StateExit
	v.Position.Y = p.Height + p.ReapMargin - 1

	s.Tick()

	assert.Equal(t, 0, s.Active())
	assert.Equal(t, Capacity, s.FreeSlots())
	_, ok := s.Vehicle(slot)
	assert.False(t, ok)

	again := spawnAt(t, s, East, 0)
	assert.Equal(t, slot, again.Slot)
	assert.Equal(t, uint64(2), again.ID, "ids are never reused")
}

func TestReaper_KeepsVehiclesInsideMargin(t *testing.T) {
	s := newTestSim(t, nil)
	v := spawnAt(t, s, West, 1)
	s.Tick()
	assert.Equal(t, 1, s.Active())
	assert.Less(t, v.Position.X, 0.0, "still in the spawn margin")
}

func TestSimulation_ActiveNeverExceedsCapacity(t *testing.T) {
	p := DefaultParams()
	p.SpawnInterval = 1
	s := MustNew(p, rand.New(rand.NewSource(7)))

	for i := 0; i < 3000; i++ {
		s.Tick()
		require.LessOrEqual(t, s.Active(), Capacity)
		require.Equal(t, Capacity, s.Active()+s.FreeSlots())
	}
	assert.Greater(t, s.Active(), 0)
}

func TestSimulation_VehiclesEventuallyLeave(t *testing.T) {
	s := newTestSim(t, nil)
	for _, o := range Origins {
		for lane := 0; lane < LaneCount; lane++ {
			spawnAt(t, s, o, lane)
		}
	}
	require.Equal(t, 12, s.Active())

	// two full light cycles let every approach get a green
	limit := 2 * s.lights.Cycle()
	for i := uint64(0); i < limit && s.Active() > 0; i++ {
		s.Tick()
	}
	assert.Equal(t, 0, s.Active())
}

func TestSimulation_Deterministic(t *testing.T) {
	p := DefaultParams()
	p.SpawnInterval = 10
	a := MustNew(p, rand.New(rand.NewSource(99)))
	b := MustNew(p, rand.New(rand.NewSource(99)))

	for i := 0; i < 1500; i++ {
		a.Tick()
		b.Tick()
	}
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestSnapshot(t *testing.T) {
	s := newTestSim(t, nil)
	spawnAt(t, s, North, 2)
	spawnAt(t, s, West, 0)
	s.Tick()

	f := s.Snapshot()
	assert.Equal(t, uint64(1), f.Tick)
	assert.Equal(t, Green, f.NS)
	assert.Equal(t, Red, f.EW)
	require.Len(t, f.Vehicles, 2)

	byID := map[uint64]VehicleView{}
	for _, v := range f.Vehicles {
		byID[v.ID] = v
	}
	assert.Equal(t, North, byID[1].Origin)
	assert.Equal(t, Right, byID[1].Intent)
	assert.Equal(t, West, byID[2].Origin)
	assert.Equal(t, Left, byID[2].Intent)

	// snapshots are copies
	f.Vehicles[0].Position = Vec2{-1, -1}
	assert.NotEqual(t, Vec2{-1, -1}, s.Snapshot().Vehicles[0].Position)
}

func TestLights_AgreeAcrossPhaseChange(t *testing.T) {
	s := newTestSim(t, nil)
	g := s.Params().GreenTicks

	want := map[uint64]struct {
		phase Phase
		ns    Light
	}{
		g - 1: {PhaseNSGreen, Green},
		g:     {PhaseNSYellow, Yellow},
		g + 1: {PhaseNSYellow, Yellow},
	}

	for s.Clock() <= g+1 {
		if w, ok := want[s.Clock()]; ok {
			f := s.Snapshot()
			assert.Equal(t, s.Clock(), f.Tick)
			assert.Equal(t, w.phase, s.Phase(), "tick %d", f.Tick)
			assert.Equal(t, w.ns, s.LightFor(AxisNS), "tick %d", f.Tick)
			assert.Equal(t, Red, s.LightFor(AxisEW), "tick %d", f.Tick)
			assert.Equal(t, s.LightFor(AxisNS), f.NS)
			assert.Equal(t, s.LightFor(AxisEW), f.EW)
			assert.Equal(t, s.lights.LightFor(AxisNS, f.Tick), f.NS)
			assert.Equal(t, s.lights.Phase(f.Tick), s.Phase())
		}
		s.Tick()
	}
}

func TestObserver_LightEventMatchesReadAPI(t *testing.T) {
	var got []Event
	s := newTestSim(t, nil, WithObserver(func(e Event) {
		if e.Kind == EventLightsChanged {
			got = append(got, e)
		}
	}))

	for s.Clock() < s.Params().GreenTicks {
		s.Tick()
	}
	require.Len(t, got, 1)
	e := got[0]
	assert.Equal(t, s.Clock(), e.Tick)
	assert.Equal(t, s.Phase(), e.Phase)
	ns, ew := s.Lights()
	assert.Equal(t, ns, e.NS)
	assert.Equal(t, ew, e.EW)
}

func TestObserver_ReceivesLifecycle(t *testing.T) {
	var events []Event
	s := newTestSim(t, nil, WithObserver(func(e Event) {
		events = append(events, e)
	}))

	v := spawnAt(t, s, North, 1)
	for i := 0; i < 800 && s.Active() > 0; i++ {
		s.Tick()
	}
	require.Equal(t, 0, s.Active())

	kinds := map[EventKind]int{}
	for _, e := range events {
		kinds[e.Kind]++
		if e.Kind != EventLightsChanged {
			assert.Equal(t, v.ID, e.Vehicle.ID)
		}
	}
	assert.Equal(t, 1, kinds[EventSpawned])
	assert.Equal(t, 1, kinds[EventReaped])
	assert.GreaterOrEqual(t, kinds[EventStateChanged], 1)

	assert.Equal(t, EventSpawned, events[0].Kind)
	assert.Equal(t, StateDrive, events[0].To)
	assert.Equal(t, uint64(0), events[0].Tick)
}

func TestObserver_LightChanges(t *testing.T) {
	var changes []Event
	s := newTestSim(t, nil, WithObserver(func(e Event) {
		if e.Kind == EventLightsChanged {
			changes = append(changes, e)
		}
	}))

	cycle := s.lights.Cycle()
	for i := uint64(0); i < cycle+1; i++ {
		s.Tick()
	}

	require.Len(t, changes, 4)
	assert.Equal(t, s.Params().GreenTicks, changes[0].Tick)
	assert.Equal(t, Yellow, changes[0].NS)
	assert.Equal(t, PhaseNSYellow, changes[0].Phase)
	assert.Equal(t, Green, changes[1].EW)
	assert.Equal(t, Yellow, changes[2].EW)
	assert.Equal(t, Green, changes[3].NS)
	assert.Equal(t, cycle, changes[3].Tick)
}

func TestCountByState(t *testing.T) {
	s := newTestSim(t, nil)
	spawnAt(t, s, North, 1)
	b := spawnAt(t, s, South, 1)
	b.state = StateBrake

	counts := s.CountByState()
	assert.Equal(t, 1, counts[StateDrive])
	assert.Equal(t, 1, counts[StateBrake])
}
