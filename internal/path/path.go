// Package path holds the immutable waypoint sequences followed by the
// pursuit algorithm. Generating or smoothing paths is left to callers.
package path

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pathloop/internal/geom"
)

var (
	// ErrEmptyPath indicates a path with no waypoints.
	ErrEmptyPath = errors.New("path: no waypoints")

	// ErrInvalidWaypoint indicates a waypoint with a NaN or Inf coordinate.
	ErrInvalidWaypoint = errors.New("path: waypoint has non-finite coordinate")
)

// Waypoint is a point on a path. Heading and Curvature are optional hints
// left by a path generator; the follower does not require them.
type Waypoint struct {
	X         float64  `yaml:"x" json:"x"`
	Y         float64  `yaml:"y" json:"y"`
	Heading   *float64 `yaml:"heading,omitempty" json:"heading,omitempty"`
	Curvature *float64 `yaml:"curvature,omitempty" json:"curvature,omitempty"`
}

func (w Waypoint) Translation() geom.Translation {
	return geom.Translation{X: w.X, Y: w.Y}
}

// Path is an ordered sequence of waypoints. The zero value is not usable;
// construct one with New.
type Path struct {
	points []Waypoint
	length float64
}

// New copies points into a Path.
func New(points ...Waypoint) (Path, error) {
	if len(points) == 0 {
		return Path{}, ErrEmptyPath
	}
	cp := make([]Waypoint, len(points))
	copy(cp, points)

	length := 0.0
	for i, w := range cp {
		if !w.Translation().IsValid() {
			return Path{}, fmt.Errorf("waypoint %d: %w", i, ErrInvalidWaypoint)
		}
		if i > 0 {
			length += cp[i-1].Translation().Distance(w.Translation())
		}
	}
	return Path{points: cp, length: length}, nil
}

// FromTranslations is a convenience for paths with no hints.
func FromTranslations(pts ...geom.Translation) (Path, error) {
	wps := make([]Waypoint, len(pts))
	for i, p := range pts {
		wps[i] = Waypoint{X: p.X, Y: p.Y}
	}
	return New(wps...)
}

func (p Path) Len() int { return len(p.points) }

func (p Path) At(i int) Waypoint { return p.points[i] }

func (p Path) First() Waypoint { return p.points[0] }

// Final is the last waypoint, the pose a following task must reach.
func (p Path) Final() Waypoint { return p.points[len(p.points)-1] }

// Length is the summed length of all segments.
func (p Path) Length() float64 { return p.length }

// Segments is the number of straight segments, zero for a single waypoint.
func (p Path) Segments() int {
	if len(p.points) == 0 {
		return 0
	}
	return len(p.points) - 1
}

// Segment returns the endpoints of segment i.
func (p Path) Segment(i int) (geom.Translation, geom.Translation) {
	return p.points[i].Translation(), p.points[i+1].Translation()
}

// PointAt interpolates the point at fraction t in [0, 1] along segment i.
func (p Path) PointAt(i int, t float64) geom.Translation {
	if i >= p.Segments() {
		return p.Final().Translation()
	}
	a, b := p.Segment(i)
	return a.Add(b.Sub(a).Scale(t))
}

// Waypoints returns a copy of the waypoints.
func (p Path) Waypoints() []Waypoint {
	cp := make([]Waypoint, len(p.points))
	copy(cp, p.points)
	return cp
}

type document struct {
	Waypoints []Waypoint `yaml:"waypoints"`
}

// Load reads a YAML path document of the form
//
//	waypoints:
//	  - {x: 0, y: 0}
//	  - {x: 1, y: 0, heading: 0}
func Load(file string) (Path, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Path{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (Path, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Path{}, fmt.Errorf("path: decode: %w", err)
	}
	return New(doc.Waypoints...)
}

// Save writes p as a YAML path document.
func Save(file string, p Path) error {
	data, err := yaml.Marshal(document{Waypoints: p.points})
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0644)
}

// Bounds returns the axis-aligned bounding box of the path.
func (p Path) Bounds() (minPt, maxPt geom.Translation) {
	minPt = geom.Translation{X: math.Inf(1), Y: math.Inf(1)}
	maxPt = geom.Translation{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, w := range p.points {
		minPt.X = math.Min(minPt.X, w.X)
		minPt.Y = math.Min(minPt.Y, w.Y)
		maxPt.X = math.Max(maxPt.X, w.X)
		maxPt.Y = math.Max(maxPt.Y, w.Y)
	}
	return minPt, maxPt
}

// DistanceTo returns the distance from pt to the nearest point of the
// polyline.
func (p Path) DistanceTo(pt geom.Translation) float64 {
	if p.Segments() == 0 {
		return pt.Distance(p.First().Translation())
	}
	best := math.Inf(1)
	for i := 0; i < p.Segments(); i++ {
		a, b := p.Segment(i)
		d := b.Sub(a)
		t := 0.0
		if l2 := d.Dot(d); l2 > 0 {
			t = geom.Clamp(pt.Sub(a).Dot(d)/l2, 0, 1)
		}
		best = math.Min(best, pt.Distance(a.Add(d.Scale(t))))
	}
	return best
}
