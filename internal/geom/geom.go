// Package geom provides the planar geometry shared by the follower, the
// command and the chassis: translations, rotations and poses.
//
// All types are small values. A Pose read from a chassis is a snapshot and
// is never mutated in place.
package geom

import (
	"fmt"
	"math"
)

type Translation struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (t Translation) Add(other Translation) Translation {
	return Translation{X: t.X + other.X, Y: t.Y + other.Y}
}

func (t Translation) Sub(other Translation) Translation {
	return Translation{X: t.X - other.X, Y: t.Y - other.Y}
}

func (t Translation) Scale(factor float64) Translation {
	return Translation{X: t.X * factor, Y: t.Y * factor}
}

func (t Translation) Norm() float64 {
	return math.Hypot(t.X, t.Y)
}

func (t Translation) Dot(other Translation) float64 {
	return t.X*other.X + t.Y*other.Y
}

// Distance is the Euclidean distance between two points.
func (t Translation) Distance(other Translation) float64 {
	return t.Sub(other).Norm()
}

// IsValid reports whether both coordinates are finite.
func (t Translation) IsValid() bool {
	return !math.IsNaN(t.X) && !math.IsInf(t.X, 0) && !math.IsNaN(t.Y) && !math.IsInf(t.Y, 0)
}

// Rotate rotates the vector counter-clockwise about the origin.
func (t Translation) Rotate(r Rotation) Translation {
	c, s := math.Cos(float64(r)), math.Sin(float64(r))
	return Translation{X: t.X*c - t.Y*s, Y: t.X*s + t.Y*c}
}

func (t Translation) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", t.X, t.Y)
}

// Rotation is a heading in radians, counter-clockwise positive.
type Rotation float64

func FromDegrees(deg float64) Rotation {
	return Rotation(deg * math.Pi / 180.0)
}

func (r Rotation) Radians() float64 { return float64(r) }

func (r Rotation) Degrees() float64 { return float64(r) * 180.0 / math.Pi }

// Plus returns the normalized sum of two rotations.
func (r Rotation) Plus(other Rotation) Rotation {
	return Rotation(NormalizeAngle(float64(r) + float64(other)))
}

type Pose struct {
	Translation Translation `json:"translation" yaml:"translation"`
	Rotation    Rotation    `json:"rotation" yaml:"rotation"`
}

func NewPose(x, y float64, heading Rotation) Pose {
	return Pose{Translation: Translation{X: x, Y: y}, Rotation: heading}
}

// ToLocal expresses a field point in the pose's frame (x forward, y left).
func (p Pose) ToLocal(pt Translation) Translation {
	return pt.Sub(p.Translation).Rotate(-p.Rotation)
}

func (p Pose) String() string {
	return fmt.Sprintf("Pose(%.2f, %.2f, %.1f deg)", p.Translation.X, p.Translation.Y, p.Rotation.Degrees())
}

// EpsilonEquals is an axis-wise tolerance check: each axis of a and b must
// differ by no more than the matching axis of eps.
func EpsilonEquals(a, b, eps Translation) bool {
	return math.Abs(a.X-b.X) <= eps.X && math.Abs(a.Y-b.Y) <= eps.Y
}

// NormalizeAngle wraps rad into (-pi, pi].
func NormalizeAngle(rad float64) float64 {
	rad = math.Mod(rad, 2*math.Pi)
	if rad <= -math.Pi {
		rad += 2 * math.Pi
	} else if rad > math.Pi {
		rad -= 2 * math.Pi
	}
	return rad
}

// Clamp keeps value inside [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
