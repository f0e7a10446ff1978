package sim

import "math"

// Vec2 is a position or displacement in world units. The world uses screen
// coordinates: x grows to the east, y grows to the south.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the euclidean distance between two points.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Len()
}

// Angle returns the direction of v in radians.
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// unit returns the unit vector pointing at angle theta.
func unit(theta float64) Vec2 {
	return Vec2{math.Cos(theta), math.Sin(theta)}
}

// NormalizeAngle wraps a into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// AngDiff returns the signed shortest rotation taking a onto b.
func AngDiff(a, b float64) float64 {
	return NormalizeAngle(b - a)
}

// snapToCardinal rounds h to the nearest multiple of π/2.
func snapToCardinal(h float64) float64 {
	return NormalizeAngle(math.Round(h/(math.Pi/2)) * (math.Pi / 2))
}

// nearCardinal reports whether h lies within tol of an axis direction,
// measured on the sine or cosine of the heading.
func nearCardinal(h, tol float64) bool {
	return math.Abs(math.Sin(h)) < tol || math.Abs(math.Cos(h)) < tol
}
