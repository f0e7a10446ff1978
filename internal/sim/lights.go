package sim

import "fmt"

// Phase is one window of the light cycle.
type Phase uint8

const (
	PhaseNSGreen Phase = iota
	PhaseNSYellow
	PhaseEWGreen
	PhaseEWYellow
)

func (p Phase) String() string {
	switch p {
	case PhaseNSGreen:
		return "ns-green"
	case PhaseNSYellow:
		return "ns-yellow"
	case PhaseEWGreen:
		return "ew-green"
	case PhaseEWYellow:
		return "ew-yellow"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// LightController derives both light groups from the tick counter. It holds
// no mutable state, so any tick can be queried.
type LightController struct {
	green  uint64
	yellow uint64
}

// NewLightController builds a cycle of green, yellow, green, yellow windows,
// NS first.
func NewLightController(green, yellow uint64) LightController {
	return LightController{green: green, yellow: yellow}
}

// Cycle is the length of a full rotation in ticks.
func (c LightController) Cycle() uint64 {
	return 2 * (c.green + c.yellow)
}

// Phase returns the window that tick falls into.
func (c LightController) Phase(tick uint64) Phase {
	t := tick % c.Cycle()
	switch {
	case t < c.green:
		return PhaseNSGreen
	case t < c.green+c.yellow:
		return PhaseNSYellow
	case t < 2*c.green+c.yellow:
		return PhaseEWGreen
	default:
		return PhaseEWYellow
	}
}

// Lights returns the colours of both groups at tick.
func (c LightController) Lights(tick uint64) (ns, ew Light) {
	switch c.Phase(tick) {
	case PhaseNSGreen:
		return Green, Red
	case PhaseNSYellow:
		return Yellow, Red
	case PhaseEWGreen:
		return Red, Green
	default:
		return Red, Yellow
	}
}

// LightFor returns the colour shown to axis at tick.
func (c LightController) LightFor(axis Axis, tick uint64) Light {
	ns, ew := c.Lights(tick)
	if axis == AxisNS {
		return ns
	}
	return ew
}
