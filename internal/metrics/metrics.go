// Package metrics scores a path-following run from the samples its command
// emits.
package metrics

import (
	"math"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/path"
)

type Metric interface {
	Name() string
	Observe(s command.Sample)
	Value() float64
	Reset()
}

// Set fans samples out to several metrics. It implements command.Observer.
type Set []Metric

func (s Set) OnTick(sample command.Sample) {
	for _, m := range s {
		m.Observe(sample)
	}
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

// Default returns every metric for a run along p.
func Default(p path.Path) Set {
	return Set{
		NewTrackingError(),
		NewCrossTrack(p),
		NewControlEffort(),
		NewPathTime(),
	}
}

// TrackingError is the mean distance from the robot to its lookahead goal.
type TrackingError struct {
	sum     float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (e *TrackingError) Name() string { return "tracking_error" }

func (e *TrackingError) Observe(s command.Sample) {
	e.sum += s.Pose.Translation.Distance(s.Goal)
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *TrackingError) Reset() {
	e.sum = 0
	e.samples = 0
}

// CrossTrack is the RMS distance from the robot to the path polyline.
type CrossTrack struct {
	path    path.Path
	sumSq   float64
	max     float64
	samples int
}

func NewCrossTrack(p path.Path) *CrossTrack { return &CrossTrack{path: p} }

func (c *CrossTrack) Name() string { return "cross_track_rms" }

func (c *CrossTrack) Observe(s command.Sample) {
	d := c.path.DistanceTo(s.Pose.Translation)
	c.sumSq += d * d
	c.max = math.Max(c.max, d)
	c.samples++
}

func (c *CrossTrack) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return math.Sqrt(c.sumSq / float64(c.samples))
}

// Max is the worst cross-track distance seen.
func (c *CrossTrack) Max() float64 { return c.max }

func (c *CrossTrack) Reset() {
	c.sumSq = 0
	c.max = 0
	c.samples = 0
}

// ControlEffort is the mean of |left| + |right| wheel speed.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s command.Sample) {
	c.sum += math.Abs(s.Left) + math.Abs(s.Right)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// PathTime is the elapsed time of the last sample, in seconds.
type PathTime struct {
	elapsed float64
}

func NewPathTime() *PathTime { return &PathTime{} }

func (p *PathTime) Name() string { return "path_time" }

func (p *PathTime) Observe(s command.Sample) { p.elapsed = s.Elapsed }

func (p *PathTime) Value() float64 { return p.elapsed }

func (p *PathTime) Reset() { p.elapsed = 0 }
