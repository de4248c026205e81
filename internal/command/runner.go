package command

import (
	"time"

	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/pursuit"
	"github.com/san-kum/pathloop/internal/telemetry"
)

// Sample is what a command saw and decided on one tick.
type Sample struct {
	Tick     int
	Elapsed  float64
	Pose     geom.Pose
	Goal     geom.Translation
	Final    geom.Translation
	Progress pursuit.Progress
	// Left and Right are the wheel speeds commanded on the previous tick,
	// zero if the chassis does not report them.
	Left  float64
	Right float64
}

type Observer interface {
	OnTick(s Sample)
}

type ObserverFunc func(s Sample)

func (f ObserverFunc) OnTick(s Sample) { f(s) }

// Runner adapts a Command to the looper. Register it after the chassis so
// the command sees the pose sampled in the same tick.
type Runner struct {
	cmd *Command
}

func NewRunner(cmd *Command) *Runner {
	return &Runner{cmd: cmd}
}

func (r *Runner) Name() string { return "PathFollowCommand" }

// PeriodicInput initializes the command on its first tick, then executes it
// and ends it once it reports finished.
func (r *Runner) PeriodicInput(now time.Time) error {
	switch r.cmd.State() {
	case Completed, Interrupted:
		return nil
	case Idle:
		if err := r.cmd.Initialize(); err != nil {
			return err
		}
	}
	if err := r.cmd.Execute(); err != nil {
		return err
	}
	if r.cmd.IsFinished() {
		return r.cmd.End(false)
	}
	return nil
}

// PeriodicOutput does nothing: the chassis applies the goal in its own
// output phase.
func (r *Runner) PeriodicOutput(now time.Time) error { return nil }

func (r *Runner) OutputTelemetry(sink telemetry.Sink) {
	f := r.cmd.Follower()
	sink.PutString("PathFollowCommand/State", r.cmd.State().String())
	sink.PutNumber("PathFollowCommand/Progress", f.Progress().Value())
	sink.PutNumber("PathFollowCommand/Goal X", r.cmd.Goal().X)
	sink.PutNumber("PathFollowCommand/Goal Y", r.cmd.Goal().Y)
	sink.PutNumber("PathFollowCommand/Elapsed", r.cmd.Elapsed().Seconds())
	pose := r.cmd.chassis.Pose()
	sink.PutNumber("PathFollowCommand/Final Distance", pose.Translation.Distance(f.FinalPose()))
	if r.cmd.State() == Running {
		sink.PutNumber("PathFollowCommand/Curvature", pursuit.Curvature(pose, r.cmd.Goal()))
	}
}

// Cancel interrupts the command synchronously. It is a no-op once the
// command has ended, and an error if it never started.
func (r *Runner) Cancel() error {
	return r.cmd.End(true)
}

// Done reports whether the command reached a terminal state.
func (r *Runner) Done() bool { return r.cmd.State().Terminal() }

func (r *Runner) Command() *Command { return r.cmd }
