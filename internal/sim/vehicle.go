package sim

import "math"

// Arc is the circular path of a turning vehicle.
type Arc struct {
	Pivot  Vec2
	Radius float64
	// Angle is the current polar angle of the vehicle around Pivot. It is
	// not wrapped, so Angle-Start is the signed sweep so far.
	Angle float64
	Start float64
	// Dir is +1 for counter-clockwise (left) and -1 for clockwise (right)
	// in angle terms.
	Dir float64
}

// Point returns the position on the arc at the current angle.
func (a Arc) Point() Vec2 {
	return a.Pivot.Add(unit(a.Angle).Scale(a.Radius))
}

// Swept returns how far the vehicle has travelled around the arc.
func (a Arc) Swept() float64 {
	return math.Abs(a.Angle - a.Start)
}

// Vehicle is one pool slot. Origin, Lane and Intent are fixed at spawn.
type Vehicle struct {
	ID        uint64
	Slot      int
	Origin    Origin
	Lane      int
	Intent    Intent
	SpawnTick uint64

	Position Vec2
	Heading  float64

	state State
	// resume is the state a braking vehicle returns to once clear.
	resume State
	arc    Arc
	hasArc bool
}

// State returns the current lifecycle stage.
func (v *Vehicle) State() State {
	return v.state
}

// Arc returns the turning arc. ok is false unless the vehicle is on an arc,
// either turning or braked mid-turn.
func (v *Vehicle) Arc() (arc Arc, ok bool) {
	return v.arc, v.hasArc
}

// Forward is the unit vector of the heading.
func (v *Vehicle) Forward() Vec2 {
	return unit(v.Heading)
}

// committed reports whether the vehicle is already inside the junction and
// no longer obeys the light.
func (v *Vehicle) committed() bool {
	s := v.state
	if s == StateBrake {
		s = v.resume
	}
	return s == StateTurn || s == StateExit
}

// VehicleView is an immutable copy of a vehicle for readers outside the
// engine.
type VehicleView struct {
	ID       uint64  `json:"id"`
	Slot     int     `json:"slot"`
	Origin   Origin  `json:"origin"`
	Lane     int     `json:"lane"`
	Intent   Intent  `json:"intent"`
	State    State   `json:"state"`
	Position Vec2    `json:"position"`
	Heading  float64 `json:"heading"`

	SpawnTick uint64 `json:"spawnTick"`
}

// View copies the observable fields of v.
func (v *Vehicle) View() VehicleView {
	return VehicleView{
		ID:       v.ID,
		Slot:     v.Slot,
		Origin:   v.Origin,
		Lane:     v.Lane,
		Intent:   v.Intent,
		State:    v.state,
		Position: v.Position,
		Heading:  v.Heading,

		SpawnTick: v.SpawnTick,
	}
}
