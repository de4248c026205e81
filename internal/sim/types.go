package sim

import (
	"time"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/geom"
)

// Result is everything a finished run produced.
type Result struct {
	Samples   []command.Sample
	State     command.State
	Ticks     int
	Elapsed   time.Duration
	FinalPose geom.Pose
	Metrics   map[string]float64
	LogPath   string
	// TimedOut is set when the run was interrupted by the config timeout.
	TimedOut bool
	Faults   int
}

// Completed reports whether the follower reached the end of the path.
func (r *Result) Completed() bool { return r.State == command.Completed }

type recorder struct {
	samples []command.Sample
}

func (r *recorder) OnTick(s command.Sample) { r.samples = append(r.samples, s) }
