// Package pursuit implements lookahead (pure pursuit) goal selection along a
// path.
//
// A Follower keeps the progress made along its path and only ever searches
// forward from it, so a lookahead circle that crosses the path more than
// once can never pull the goal backwards.
//
// # Usage
//
//	f := pursuit.New(p, 0.2, 0.1, trackWidth)
//	f.Reset()
//	goal := f.NextPoint(chassis.Pose())
//
// A Follower is owned by exactly one following task and is not safe for
// concurrent use.
package pursuit

import (
	"math"

	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/path"
)

const (
	DefaultLookahead = 0.2
	DefaultTolerance = 0.1
)

// Progress is a position along the path: a segment index plus the fraction
// travelled along that segment. Progress values are ordered.
type Progress struct {
	Segment  int
	Fraction float64
}

// Value flattens the progress into a single monotonic number.
func (p Progress) Value() float64 {
	return float64(p.Segment) + p.Fraction
}

// Less reports whether p is strictly behind other.
func (p Progress) Less(other Progress) bool {
	if p.Segment != other.Segment {
		return p.Segment < other.Segment
	}
	return p.Fraction < other.Fraction
}

type Follower struct {
	path       path.Path
	lookahead  float64
	tolerance  float64
	trackWidth float64

	progress Progress
	done     bool
}

// New creates a follower for p. lookahead is the radius searched for the
// next goal, tolerance is how close the robot must be to the final waypoint,
// once on the last segment, for the path to be treated as consumed, and trackWidth is the chassis
// wheel base used for turning-radius calculations.
func New(p path.Path, lookahead, tolerance, trackWidth float64) *Follower {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	return &Follower{
		path:       p,
		lookahead:  lookahead,
		tolerance:  tolerance,
		trackWidth: trackWidth,
	}
}

// Reset moves progress back to the start of the path.
func (f *Follower) Reset() {
	f.progress = Progress{}
	f.done = false
}

// SetLookaheadDistance changes the search radius. Larger values take more
// shortcuts through corners. The new value applies on the next NextPoint.
func (f *Follower) SetLookaheadDistance(d float64) {
	if d > 0 {
		f.lookahead = d
	}
}

func (f *Follower) LookaheadDistance() float64 { return f.lookahead }

func (f *Follower) TrackWidth() float64 { return f.trackWidth }

func (f *Follower) Path() path.Path { return f.path }

// Progress returns the last matched position along the path.
func (f *Follower) Progress() Progress { return f.progress }

// Done reports whether the follower has fallen back to the terminal point.
func (f *Follower) Done() bool { return f.done }

// FinalPose returns the last waypoint of the path. It has no side effects.
func (f *Follower) FinalPose() geom.Translation {
	return f.path.Final().Translation()
}

// NextPoint returns the goal point for the robot at pose.
//
// The goal is the first intersection of the lookahead circle with the path
// found searching forward from the last progress, taking the crossing where
// the path leaves the circle. Without a forward intersection the goal is the
// terminal point, and it stays there until Reset.
func (f *Follower) NextPoint(pose geom.Pose) geom.Translation {
	final := f.FinalPose()
	if f.done || f.path.Segments() == 0 {
		f.finish()
		return final
	}

	// On a closed path the start lies near the end, so arriving only
	// counts once the last segment is reached.
	pos := pose.Translation
	if f.progress.Segment == f.path.Segments()-1 && pos.Distance(final) <= f.tolerance {
		f.finish()
		return final
	}

	if pr, ok := f.intersect(pos); ok {
		f.advance(pr)
		return f.path.PointAt(pr.Segment, pr.Fraction)
	}

	f.finish()
	return final
}

func (f *Follower) finish() {
	f.done = true
	f.progress = Progress{Segment: f.path.Segments(), Fraction: 0}
}

// advance moves progress to pr. pr is never behind the current progress
// because every search starts from it.
func (f *Follower) advance(pr Progress) {
	if pr.Fraction >= 1 && pr.Segment < f.path.Segments()-1 {
		pr = Progress{Segment: pr.Segment + 1, Fraction: 0}
	}
	if f.progress.Less(pr) {
		f.progress = pr
	}
}

func (f *Follower) intersect(center geom.Translation) (Progress, bool) {
	for i := f.progress.Segment; i < f.path.Segments(); i++ {
		lo := 0.0
		if i == f.progress.Segment {
			lo = f.progress.Fraction
		}
		a, b := f.path.Segment(i)
		if t, ok := circleSegment(center, f.lookahead, a, b, lo); ok {
			return Progress{Segment: i, Fraction: t}, true
		}
	}
	return Progress{}, false
}

// circleSegment returns the parameter t in [lo, 1] at which the segment
// a->b leaves the circle. The entry crossing lies behind the robot and is
// never a goal.
func circleSegment(center geom.Translation, r float64, a, b geom.Translation, lo float64) (float64, bool) {
	d := b.Sub(a)
	fv := a.Sub(center)

	qa := d.Dot(d)
	if qa == 0 {
		return 0, false
	}
	qb := 2 * fv.Dot(d)
	qc := fv.Dot(fv) - r*r

	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return 0, false
	}
	t := (-qb + math.Sqrt(disc)) / (2 * qa)
	if t >= lo && t <= 1 {
		return t, true
	}
	return 0, false
}

// Curvature returns the signed curvature of the arc that joins pose to goal
// while tangent to the pose heading. Positive curves left.
func Curvature(pose geom.Pose, goal geom.Translation) float64 {
	local := pose.ToLocal(goal)
	l2 := local.Dot(local)
	if l2 == 0 {
		return 0
	}
	return 2 * local.Y / l2
}

// WheelSpeeds splits a forward speed into left and right wheel speeds that
// drive the pursuit arc toward goal.
func (f *Follower) WheelSpeeds(pose geom.Pose, goal geom.Translation, speed float64) (left, right float64) {
	k := Curvature(pose, goal)
	return speed * (1 - k*f.trackWidth/2), speed * (1 + k*f.trackWidth/2)
}
