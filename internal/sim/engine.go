// Package sim is the intersection engine: a fixed pool of vehicles driven
// through a four-way junction under a two-group light cycle. It performs no
// I/O; callers drive it with Tick and read it with Snapshot.
package sim

import "fmt"

// EventKind classifies engine notifications.
type EventKind uint8

const (
	EventSpawned EventKind = iota
	EventStateChanged
	EventReaped
	EventLightsChanged
)

func (k EventKind) String() string {
	switch k {
	case EventSpawned:
		return "spawned"
	case EventStateChanged:
		return "state_changed"
	case EventReaped:
		return "reaped"
	case EventLightsChanged:
		return "lights_changed"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event describes something that happened during a tick. Vehicle is unset
// for EventLightsChanged; Phase, NS and EW are set only for it.
type Event struct {
	Kind    EventKind
	Tick    uint64
	Vehicle VehicleView
	From    State
	To      State
	Phase   Phase
	NS      Light
	EW      Light
}

// Observer receives events synchronously from inside Tick. It must not call
// back into the simulation.
type Observer func(Event)

// Frame is a consistent copy of the world at the start of Tick: vehicle
// poses after the previous step and the lights shown for Tick.
type Frame struct {
	Tick     uint64        `json:"tick"`
	Vehicles []VehicleView `json:"vehicles"`
	NS       Light         `json:"ns"`
	EW       Light         `json:"ew"`
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithObserver registers fn to receive engine events.
func WithObserver(fn Observer) Option {
	return func(s *Simulation) {
		s.observer = fn
	}
}

// Simulation owns the pool, the light cycle and the clock. It is not safe
// for concurrent use; a single driver goroutine calls Tick.
type Simulation struct {
	params   Params
	lights   LightController
	pool     *pool
	rng      Rand
	observer Observer

	clock  uint64
	nextID uint64
	ns, ew Light

	reaped []int
}

// New validates p and builds an empty simulation at tick zero.
func New(p Params, rng Rand, opts ...Option) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation parameters: %w", err)
	}
	if rng == nil {
		return nil, fmt.Errorf("invalid simulation parameters: nil random source")
	}

	s := &Simulation{
		params: p,
		lights: NewLightController(p.GreenTicks, p.YellowTicks),
		pool:   newPool(),
		rng:    rng,
		reaped: make([]int, 0, Capacity),
	}
	s.ns, s.ew = s.lights.Lights(0)

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustNew is New for fixed configurations known to be valid.
func MustNew(p Params, rng Rand, opts ...Option) *Simulation {
	s, err := New(p, rng, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Tick advances the world by one step: spawn, then every live vehicle is
// evaluated against the lights of this tick, moved and reaped if it left the
// area. The clock then advances and the lights switch to the new tick.
func (s *Simulation) Tick() {
	if s.params.SpawnInterval > 0 && s.clock%s.params.SpawnInterval == 0 {
		s.Spawn()
	}

	for _, slot := range s.pool.dense {
		v := &s.pool.slots[slot]
		s.evaluate(v)
		s.step(v)
		if s.outOfBounds(v.Position) {
			s.reaped = append(s.reaped, slot)
		}
	}

	for _, slot := range s.reaped {
		v := &s.pool.slots[slot]
		s.emit(Event{Kind: EventReaped, Vehicle: v.View(), From: v.state, To: v.state})
		s.pool.release(slot)
	}
	s.reaped = s.reaped[:0]

	s.clock++
	s.refreshLights()
}

// refreshLights shows the colours of the current clock, announcing a change.
// Lights, Phase and Snapshot always describe the same tick.
func (s *Simulation) refreshLights() {
	ns, ew := s.lights.Lights(s.clock)
	if ns == s.ns && ew == s.ew {
		return
	}
	s.ns, s.ew = ns, ew
	s.emit(Event{Kind: EventLightsChanged, Phase: s.lights.Phase(s.clock), NS: ns, EW: ew})
}

// Clock returns the number of ticks processed so far, which is also the
// tick the next call to Tick runs.
func (s *Simulation) Clock() uint64 {
	return s.clock
}

// Params returns the configuration the simulation was built with.
func (s *Simulation) Params() Params {
	return s.params
}

// LightFor returns the colour currently shown to axis.
func (s *Simulation) LightFor(axis Axis) Light {
	if axis == AxisNS {
		return s.ns
	}
	return s.ew
}

// Lights returns the current colours of both groups.
func (s *Simulation) Lights() (ns, ew Light) {
	return s.ns, s.ew
}

// Phase returns the light cycle window of the current tick.
func (s *Simulation) Phase() Phase {
	return s.lights.Phase(s.clock)
}

// Active returns the number of live vehicles.
func (s *Simulation) Active() int {
	return s.pool.len()
}

// FreeSlots returns how many vehicles can still be spawned.
func (s *Simulation) FreeSlots() int {
	return s.pool.available()
}

// Vehicle returns a copy of the vehicle in slot.
func (s *Simulation) Vehicle(slot int) (VehicleView, bool) {
	v, ok := s.pool.get(slot)
	if !ok {
		return VehicleView{}, false
	}
	return v.View(), true
}

// CountByState tallies live vehicles per state.
func (s *Simulation) CountByState() map[State]int {
	counts := make(map[State]int, 4)
	for _, slot := range s.pool.dense {
		counts[s.pool.slots[slot].state]++
	}
	return counts
}

// Snapshot copies every live vehicle and both lights.
func (s *Simulation) Snapshot() Frame {
	f := Frame{
		Tick:     s.clock,
		Vehicles: make([]VehicleView, 0, s.pool.len()),
		NS:       s.ns,
		EW:       s.ew,
	}
	for _, slot := range s.pool.dense {
		f.Vehicles = append(f.Vehicles, s.pool.slots[slot].View())
	}
	return f
}

func (s *Simulation) setState(v *Vehicle, to State) {
	from := v.state
	if from == to {
		return
	}
	v.state = to
	s.emit(Event{Kind: EventStateChanged, Vehicle: v.View(), From: from, To: to})
}

func (s *Simulation) emit(e Event) {
	if s.observer == nil {
		return
	}
	e.Tick = s.clock
	s.observer(e)
}
