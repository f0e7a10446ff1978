package sim

// integrate advances v along its heading by one tick of travel.
func (s *Simulation) integrate(v *Vehicle) {
	v.Position = v.Position.Add(v.Forward().Scale(s.params.Speed))
}

// outOfBounds reports whether pos has left the visible area by more than
// the reap margin on any side.
func (s *Simulation) outOfBounds(pos Vec2) bool {
	m := s.params.ReapMargin
	return pos.X < -m || pos.X > s.params.Width+m ||
		pos.Y < -m || pos.Y > s.params.Height+m
}

// step runs the per-state behaviour of v for the current tick. It is the
// only place that dispatches on vehicle state.
func (s *Simulation) step(v *Vehicle) {
	switch v.state {
	case StateDrive:
		if s.atStopBoundary(v) {
			s.enterJunction(v)
			return
		}
		s.integrate(v)
	case StateBrake:
		// held in place
	case StateTurn:
		s.advanceTurn(v)
	case StateExit:
		s.integrate(v)
	}
}
