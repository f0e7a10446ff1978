package sim

import "math"

// corner locates a turn pivot relative to the junction center in units of
// the road half-width, together with the polar angle at which the arc
// starts.
type corner struct {
	sx, sy float64
	start  float64
}

const (
	turnLeft = iota
	turnRight
)

// pivotTable is indexed by origin and turn direction. Right turns pivot on
// the near corner on the vehicle's own side, left turns on the far corner
// across the centerline.
var pivotTable = [4][2]corner{
	North: {
		turnLeft:  {sx: -1, sy: -1, start: 0},
		turnRight: {sx: +1, sy: -1, start: math.Pi},
	},
	South: {
		turnLeft:  {sx: +1, sy: +1, start: math.Pi},
		turnRight: {sx: -1, sy: +1, start: 0},
	},
	East: {
		turnLeft:  {sx: +1, sy: -1, start: math.Pi / 2},
		turnRight: {sx: +1, sy: +1, start: 3 * math.Pi / 2},
	},
	West: {
		turnLeft:  {sx: -1, sy: +1, start: 3 * math.Pi / 2},
		turnRight: {sx: -1, sy: -1, start: math.Pi / 2},
	},
}

// turnArc builds the arc for a vehicle of the given origin, lane and
// intent. Straight intents have no arc.
func turnArc(p Params, origin Origin, lane int, intent Intent) (Arc, bool) {
	var (
		idx int
		dir float64
		r   float64
	)
	off := p.LaneOffset(lane)
	switch intent {
	case Left:
		idx, dir, r = turnLeft, +1, p.RoadHalfWidth+off
	case Right:
		idx, dir, r = turnRight, -1, p.RoadHalfWidth-off
	default:
		return Arc{}, false
	}

	c := pivotTable[origin][idx]
	center := p.Center()
	return Arc{
		Pivot:  Vec2{center.X + c.sx*p.RoadHalfWidth, center.Y + c.sy*p.RoadHalfWidth},
		Radius: r,
		Angle:  c.start,
		Start:  c.start,
		Dir:    dir,
	}, true
}

// atStopBoundary reports whether v is inside the trigger band around the
// junction edge.
func (s *Simulation) atStopBoundary(v *Vehicle) bool {
	return math.Abs(s.approachDistance(v)-s.params.StopBoundary()) <= s.params.TurnBand
}

// enterJunction commits a driving vehicle at the stop boundary: straight
// vehicles exit, turning ones are placed on their arc.
func (s *Simulation) enterJunction(v *Vehicle) {
	arc, ok := turnArc(s.params, v.Origin, v.Lane, v.Intent)
	if !ok {
		s.setState(v, StateExit)
		s.integrate(v)
		return
	}

	v.arc = arc
	v.hasArc = true
	v.Position = arc.Point()
	s.setState(v, StateTurn)
}

// advanceTurn moves v one angular step along its arc and finishes the turn
// once the heading reaches the next axis.
func (s *Simulation) advanceTurn(v *Vehicle) {
	step := s.params.TurnStep * v.arc.Dir
	v.arc.Angle += step
	v.Heading = NormalizeAngle(v.Heading + step)
	v.Position = v.arc.Point()

	if v.arc.Swept() < s.params.MinTurnSweep || !nearCardinal(v.Heading, s.params.CardinalTolerance) {
		return
	}

	snapped := snapToCardinal(v.Heading)
	v.arc.Angle += AngDiff(v.Heading, snapped)
	v.Heading = snapped
	v.Position = v.arc.Point()
	v.hasArc = false
	s.setState(v, StateExit)
}
