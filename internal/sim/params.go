package sim

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// TurnPolicy decides whether a vehicle already on its turning arc reacts to
// a blocking vehicle.
type TurnPolicy uint8

const (
	// TurnsUninterruptible lets a turning vehicle finish its arc regardless
	// of traffic ahead.
	TurnsUninterruptible TurnPolicy = iota
	// TurnsYield brakes a blocked turning vehicle in place; it resumes the
	// same arc once clear.
	TurnsYield
)

func (p TurnPolicy) String() string {
	if p == TurnsYield {
		return "yield"
	}
	return "uninterruptible"
}

// ParseTurnPolicy accepts "uninterruptible" or "yield".
func ParseTurnPolicy(s string) (TurnPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uninterruptible":
		return TurnsUninterruptible, nil
	case "yield":
		return TurnsYield, nil
	default:
		return 0, fmt.Errorf("unknown turn policy %q", s)
	}
}

// MarshalText encodes the policy by name.
func (p TurnPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a policy name.
func (p *TurnPolicy) UnmarshalText(b []byte) error {
	v, err := ParseTurnPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Params holds the geometry, kinematics and timing of a simulation.
// Distances are world units, durations are ticks, angles are radians.
type Params struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	LaneWidth     float64 `json:"laneWidth"`
	RoadHalfWidth float64 `json:"roadHalfWidth"`

	Speed          float64 `json:"speed"`
	FollowDistance float64 `json:"followDistance"`
	FrontCone      float64 `json:"frontCone"`
	StopDistance   float64 `json:"stopDistance"`

	TurnBand          float64 `json:"turnBand"`
	TurnStep          float64 `json:"turnStep"`
	CardinalTolerance float64 `json:"cardinalTolerance"`
	MinTurnSweep      float64 `json:"minTurnSweep"`

	SpawnMargin   float64 `json:"spawnMargin"`
	ReapMargin    float64 `json:"reapMargin"`
	SpawnInterval uint64  `json:"spawnInterval"`

	GreenTicks  uint64 `json:"greenTicks"`
	YellowTicks uint64 `json:"yellowTicks"`

	TurnPolicy TurnPolicy `json:"turnPolicy"`
}

// DefaultParams returns an 800x600 junction with three 30-unit lanes per
// approach.
func DefaultParams() Params {
	return Params{
		Width:             800,
		Height:            600,
		LaneWidth:         30,
		RoadHalfWidth:     90,
		Speed:             2,
		FollowDistance:    40,
		FrontCone:         0.8,
		StopDistance:      20,
		TurnBand:          5,
		TurnStep:          0.05,
		CardinalTolerance: 0.05,
		MinTurnSweep:      math.Pi / 4,
		SpawnMargin:       20,
		ReapMargin:        60,
		SpawnInterval:     30,
		GreenTicks:        300,
		YellowTicks:       60,
		TurnPolicy:        TurnsUninterruptible,
	}
}

// Center returns the middle of the junction.
func (p Params) Center() Vec2 {
	return Vec2{p.Width / 2, p.Height / 2}
}

// StopBoundary is the distance from the center at which the junction box
// begins on every approach.
func (p Params) StopBoundary() float64 {
	return p.RoadHalfWidth
}

// LaneOffset is the lateral distance of a lane's centerline from the road
// centerline.
func (p Params) LaneOffset(lane int) float64 {
	return float64(lane)*p.LaneWidth + p.LaneWidth/2
}

// Validate reports every inconsistent parameter at once.
func (p Params) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}

	positive("width", p.Width)
	positive("height", p.Height)
	positive("laneWidth", p.LaneWidth)
	positive("roadHalfWidth", p.RoadHalfWidth)
	positive("speed", p.Speed)
	positive("followDistance", p.FollowDistance)
	positive("frontCone", p.FrontCone)
	positive("turnBand", p.TurnBand)
	positive("turnStep", p.TurnStep)
	positive("cardinalTolerance", p.CardinalTolerance)
	positive("minTurnSweep", p.MinTurnSweep)
	positive("reapMargin", p.ReapMargin)

	if p.StopDistance < 0 {
		errs = append(errs, fmt.Errorf("stopDistance must not be negative, got %v", p.StopDistance))
	}
	if p.SpawnMargin < 0 {
		errs = append(errs, fmt.Errorf("spawnMargin must not be negative, got %v", p.SpawnMargin))
	}
	if p.GreenTicks == 0 {
		errs = append(errs, errors.New("greenTicks must be positive"))
	}
	if p.YellowTicks == 0 {
		errs = append(errs, errors.New("yellowTicks must be positive"))
	}
	if p.RoadHalfWidth < LaneCount*p.LaneWidth {
		errs = append(errs, fmt.Errorf("roadHalfWidth %v cannot hold %d lanes of width %v", p.RoadHalfWidth, LaneCount, p.LaneWidth))
	}
	if p.SpawnMargin >= p.ReapMargin {
		errs = append(errs, fmt.Errorf("spawnMargin %v must be smaller than reapMargin %v", p.SpawnMargin, p.ReapMargin))
	}
	// the turn trigger band must not be jumped in a single step
	if p.Speed >= 2*p.TurnBand {
		errs = append(errs, fmt.Errorf("speed %v must be below twice the turn band %v", p.Speed, p.TurnBand))
	}
	if p.CardinalTolerance > 0 && p.CardinalTolerance < 1 && p.TurnStep > math.Asin(p.CardinalTolerance) {
		errs = append(errs, fmt.Errorf("turnStep %v can step over the cardinal tolerance %v", p.TurnStep, p.CardinalTolerance))
	}
	if p.MinTurnSweep > math.Pi/2-p.TurnStep {
		errs = append(errs, fmt.Errorf("minTurnSweep %v leaves no room to finish a quarter turn", p.MinTurnSweep))
	}
	if 2*(p.RoadHalfWidth+p.StopDistance) >= math.Min(p.Width, p.Height) {
		errs = append(errs, errors.New("junction and stop zone do not fit in the visible area"))
	}

	return errors.Join(errs...)
}
