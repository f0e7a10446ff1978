package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const radiusEpsilon = 1e-9

// TestPivotTable_MatchesRotation checks every table entry against the
// general construction: right turns pivot at center + n*H - f*H starting at
// angle(-n), left turns at center - n*H - f*H starting at angle(n), where f
// is the heading and n the lane-side normal.
func TestPivotTable_MatchesRotation(t *testing.T) {
	p := DefaultParams()
	c := p.Center()
	h := p.RoadHalfWidth

	for _, origin := range Origins {
		for _, intent := range []Intent{Left, Right} {
			heading := origin.Heading()
			f := unit(heading)
			n := Vec2{math.Sin(heading), -math.Cos(heading)}

			var wantPivot Vec2
			var wantStart float64
			if intent == Right {
				wantPivot = c.Add(n.Scale(h)).Sub(f.Scale(h))
				wantStart = n.Scale(-1).Angle()
			} else {
				wantPivot = c.Sub(n.Scale(h)).Sub(f.Scale(h))
				wantStart = n.Angle()
			}

			lane := 0
			if intent == Right {
				lane = 2
			}
			arc, ok := turnArc(p, origin, lane, intent)
			require.True(t, ok)

			assert.InDelta(t, wantPivot.X, arc.Pivot.X, 1e-9, "%s %s pivot x", origin, intent)
			assert.InDelta(t, wantPivot.Y, arc.Pivot.Y, 1e-9, "%s %s pivot y", origin, intent)
			assert.InDelta(t, 0, AngDiff(wantStart, arc.Start), 1e-9, "%s %s start angle", origin, intent)

			// the arc begins where the lane line crosses the stop boundary
			wantEntry := c.Add(n.Scale(p.LaneOffset(lane))).Sub(f.Scale(p.StopBoundary()))
			assert.InDelta(t, 0, arc.Point().Dist(wantEntry), 1e-9, "%s %s entry point", origin, intent)
		}
	}
}

func TestTurnArc_Radius(t *testing.T) {
	p := DefaultParams()

	right, ok := turnArc(p, North, 2, Right)
	require.True(t, ok)
	assert.Equal(t, p.RoadHalfWidth-p.LaneOffset(2), right.Radius)
	assert.Equal(t, -1.0, right.Dir)

	left, ok := turnArc(p, North, 0, Left)
	require.True(t, ok)
	assert.Equal(t, p.RoadHalfWidth+p.LaneOffset(0), left.Radius)
	assert.Equal(t, 1.0, left.Dir)

	_, ok = turnArc(p, North, 1, Straight)
	assert.False(t, ok)
}

func TestTurn_NorthCurbLaneTurnsRightToEast(t *testing.T) {
	s := newTestSim(t, nil)
	v := spawnAt(t, s, North, 2)
	require.Equal(t, Right, v.Intent)

	var states []State
	for i := 0; i < 400; i++ {
		s.Tick()
		require.Equal(t, Green, s.LightFor(AxisNS))
		if len(states) == 0 || states[len(states)-1] != v.State() {
			states = append(states, v.State())
		}
		if v.State() == StateExit {
			break
		}
	}

	assert.Equal(t, []State{StateDrive, StateTurn, StateExit}, states)
	assert.InDelta(t, 0, v.Heading, 1e-9)
}

func TestTurn_StaysOnCircle(t *testing.T) {
	for _, lane := range []int{0, 2} {
		s := newTestSim(t, nil)
		v := spawnAt(t, s, North, lane)

		turning := 0
		for i := 0; i < 400 && v.State() != StateExit; i++ {
			s.Tick()
			if v.State() != StateTurn {
				continue
			}
			turning++
			arc, ok := v.Arc()
			require.True(t, ok)
			assert.InDelta(t, arc.Radius, v.Position.Dist(arc.Pivot), radiusEpsilon, "lane %d tick %d", lane, s.Clock())
		}
		assert.Greater(t, turning, 10, "lane %d never turned", lane)
		assert.Equal(t, StateExit, v.State())
	}
}

func TestTurn_RotationAndExitLaneForEveryApproach(t *testing.T) {
	for _, origin := range Origins {
		for _, lane := range []int{0, 2} {
			s := newTestSim(t, nil)
			setClock(s, greenStart(s.Params(), origin.Axis()))

			v := spawnAt(t, s, origin, lane)
			entry := v.Heading

			var pivot Vec2
			var radius float64
			for i := 0; i < 600 && v.State() != StateExit; i++ {
				s.Tick()
				if arc, ok := v.Arc(); ok {
					pivot, radius = arc.Pivot, arc.Radius
				}
			}
			require.Equal(t, StateExit, v.State(), "%s lane %d", origin, lane)

			assert.InDelta(t, v.Intent.Rotation(), AngDiff(entry, v.Heading), 1e-9, "%s lane %d rotation", origin, lane)
			assert.InDelta(t, radius, v.Position.Dist(pivot), radiusEpsilon, "%s lane %d ends on arc", origin, lane)

			// the vehicle leaves on the same lane index of the new road
			n := Vec2{math.Sin(v.Heading), -math.Cos(v.Heading)}
			assert.InDelta(t, s.Params().LaneOffset(lane), v.Position.Sub(s.Params().Center()).Dot(n), 1e-6, "%s lane %d exit lane", origin, lane)
		}
	}
}

func TestTurn_StraightGoesToExitAtBoundary(t *testing.T) {
	s := newTestSim(t, nil)
	v := spawnAt(t, s, North, 1)

	for i := 0; i < 400 && v.State() == StateDrive; i++ {
		s.Tick()
	}
	assert.Equal(t, StateExit, v.State())
	assert.InDelta(t, math.Pi/2, v.Heading, 1e-12)
	assert.InDelta(t, s.Params().StopBoundary(), s.approachDistance(v), s.Params().TurnBand+s.Params().Speed)
	_, ok := v.Arc()
	assert.False(t, ok)
}

// turnWithObstacle drives a north left-turner onto its arc, then parks
// another vehicle right in front of it, travelling the same way, and runs
// one tick.
func turnWithObstacle(t *testing.T, policy TurnPolicy) (s *Simulation, turner, obstacle *Vehicle) {
	t.Helper()
	s = newTestSim(t, func(p *Params) { p.TurnPolicy = policy })
	turner = spawnAt(t, s, North, 0)
	for i := 0; i < 400 && turner.State() != StateTurn; i++ {
		s.Tick()
	}
	require.Equal(t, StateTurn, turner.State())
	s.Tick()

	obstacle = spawnAt(t, s, South, 1)
	obstacle.Position = turner.Position.Add(turner.Forward().Scale(10))
	obstacle.Heading = turner.Heading
	s.Tick()
	return s, turner, obstacle
}

func TestTurnPolicy_UninterruptibleIgnoresBlocking(t *testing.T) {
	_, turner, _ := turnWithObstacle(t, TurnsUninterruptible)
	assert.Equal(t, StateTurn, turner.State())
}

func TestTurnPolicy_YieldBrakesAndResumesArc(t *testing.T) {
	s, turner, obstacle := turnWithObstacle(t, TurnsYield)

	require.Equal(t, StateBrake, turner.State())
	arc, ok := turner.Arc()
	require.True(t, ok, "braked turner keeps its arc")
	held := turner.Position

	s.pool.release(obstacle.Slot)
	s.Tick()

	assert.Equal(t, StateTurn, turner.State())
	resumed, ok := turner.Arc()
	require.True(t, ok)
	assert.Equal(t, arc.Pivot, resumed.Pivot)
	assert.NotEqual(t, held, turner.Position)
	assert.InDelta(t, resumed.Radius, turner.Position.Dist(resumed.Pivot), radiusEpsilon)
}
