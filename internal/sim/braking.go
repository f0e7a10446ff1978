package sim

import "math"

// approachDistance is the signed distance to the junction center along the
// direction of travel. It is positive while approaching.
func (s *Simulation) approachDistance(v *Vehicle) float64 {
	return -v.Position.Sub(s.params.Center()).Dot(v.Forward())
}

// inCone reports whether target lies within the follow distance of from and
// inside the forward cone around heading. A coincident target counts.
func (s *Simulation) inCone(from Vec2, heading float64, target Vec2) bool {
	d := target.Sub(from)
	dist := d.Len()
	if dist >= s.params.FollowDistance {
		return false
	}
	if dist == 0 {
		return true
	}
	return math.Abs(AngDiff(heading, d.Angle())) < s.params.FrontCone
}

// blocked reports whether another vehicle sits in front of v within the
// follow distance. When two vehicles see each other the older one keeps
// right of way. The scan is quadratic over live vehicles.
func (s *Simulation) blocked(v *Vehicle) bool {
	for _, slot := range s.pool.dense {
		o := &s.pool.slots[slot]
		if o == v || !s.inCone(v.Position, v.Heading, o.Position) {
			continue
		}
		if v.ID < o.ID && s.inCone(o.Position, o.Heading, v.Position) {
			continue
		}
		return true
	}
	return false
}

// approachingLight reports whether v is closing on the stop line while its
// light is not green.
func (s *Simulation) approachingLight(v *Vehicle) bool {
	if v.committed() {
		return false
	}
	d := s.approachDistance(v)
	if d <= 0 || d > s.params.StopBoundary()+s.params.StopDistance {
		return false
	}
	return s.LightFor(v.Origin.Axis()) != Green
}

// evaluate applies the braking rules to v before it moves.
func (s *Simulation) evaluate(v *Vehicle) {
	checkBlocked := true
	if v.state == StateTurn && s.params.TurnPolicy == TurnsUninterruptible {
		checkBlocked = false
	}

	if (checkBlocked && s.blocked(v)) || s.approachingLight(v) {
		if v.state != StateBrake {
			v.resume = v.state
			s.setState(v, StateBrake)
		}
		return
	}

	if v.state == StateBrake {
		s.setState(v, v.resume)
	}
}
