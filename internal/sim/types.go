package sim

import (
	"fmt"
	"math"
)

const (
	// Capacity is the maximum number of vehicles alive at once.
	Capacity = 200
	// LaneCount is the number of lanes per approach.
	LaneCount = 3
)

// Origin is the approach a vehicle enters from.
type Origin uint8

const (
	North Origin = iota
	South
	East
	West
)

// Origins lists every approach in table order.
var Origins = [...]Origin{North, South, East, West}

func (o Origin) String() string {
	switch o {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	default:
		return fmt.Sprintf("origin(%d)", uint8(o))
	}
}

// Heading returns the direction of travel for vehicles entering from o.
func (o Origin) Heading() float64 {
	switch o {
	case North:
		return math.Pi / 2
	case South:
		return -math.Pi / 2
	case East:
		return math.Pi
	default:
		return 0
	}
}

// Axis returns the light group controlling o.
func (o Origin) Axis() Axis {
	if o == North || o == South {
		return AxisNS
	}
	return AxisEW
}

// Axis is one of the two light groups.
type Axis uint8

const (
	AxisNS Axis = iota
	AxisEW
)

func (a Axis) String() string {
	if a == AxisNS {
		return "ns"
	}
	return "ew"
}

// Intent is the manoeuvre a vehicle performs at the junction.
type Intent uint8

const (
	Left Intent = iota
	Straight
	Right
)

// IntentForLane maps a lane to its manoeuvre: the lane nearest the
// centerline turns left, the middle lane goes straight, the curb lane
// turns right.
func IntentForLane(lane int) Intent {
	switch lane {
	case 0:
		return Left
	case 1:
		return Straight
	default:
		return Right
	}
}

func (i Intent) String() string {
	switch i {
	case Left:
		return "left"
	case Straight:
		return "straight"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("intent(%d)", uint8(i))
	}
}

// Rotation is the total heading change of the manoeuvre.
func (i Intent) Rotation() float64 {
	switch i {
	case Left:
		return math.Pi / 2
	case Right:
		return -math.Pi / 2
	default:
		return 0
	}
}

// Light is the colour shown to one axis.
type Light uint8

const (
	Red Light = iota
	Green
	Yellow
)

func (l Light) String() string {
	switch l {
	case Red:
		return "red"
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	default:
		return fmt.Sprintf("light(%d)", uint8(l))
	}
}

// State is the lifecycle stage of a vehicle.
type State uint8

const (
	StateSpawn State = iota
	StateDrive
	StateBrake
	StateTurn
	StateExit
)

func (s State) String() string {
	switch s {
	case StateSpawn:
		return "spawn"
	case StateDrive:
		return "drive"
	case StateBrake:
		return "brake"
	case StateTurn:
		return "turn"
	case StateExit:
		return "exit"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}
