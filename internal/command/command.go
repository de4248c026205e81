// Package command drives a chassis along a path and owns the lifecycle of
// one following task.
//
// A Command moves Idle -> Initializing -> Running -> Completed|Interrupted.
// Configuration is only accepted while Idle. Completion is decided against
// the final waypoint of the path, never against the intermediate lookahead
// target. The per-task CSV log is advisory: failing to open or write it
// only produces a warning.
//
// # Usage
//
//	cmd, err := command.New(chassis, p, 0.05, logger, command.DefaultOptions())
//	runner := command.NewRunner(cmd)
//	loop.Register(chassis)
//	loop.Register(runner)
package command

import (
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/pathloop/internal/drivetrain"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/path"
	"github.com/san-kum/pathloop/internal/pursuit"
	"github.com/san-kum/pathloop/internal/telemetry"
)

const (
	LogHeader = "Timestamp (seconds), Robot X, Robot Y, Robot Theta, Goal X, Goal Y"
	logRow    = "%.2f, %.2f, %.2f, %.2f, %.2f, %.2f"
)

// goalEpsilon is handed to the chassis with every goal. It is deliberately
// tight so the chassis never settles on an intermediate goal; completion is
// decided by IsFinished.
var goalEpsilon = geom.Translation{X: 0.01, Y: 0.01}

// Chassis is the drivetrain a command steers. At most one active command
// may drive a chassis at a time.
type Chassis interface {
	Pose() geom.Pose
	SetGoalPose(goal geom.Translation, eps geom.Translation)
	SetFrontSide(side drivetrain.Side)
	SetMaxSpeedPercent(p float64)
	Stop()
	WidthMeters() float64
}

// wheelReporter is implemented by chassis that expose their last commanded
// wheel speeds.
type wheelReporter interface {
	WheelSpeeds() (left, right float64)
}

type Options struct {
	FrontSide drivetrain.Side
	// Lookahead is the radius searched for the next goal, in meters.
	Lookahead float64
	// Tolerance is the finish radius around the final waypoint. Once the
	// follower is on the last segment and within it, the goal pins to the end.
	Tolerance float64
	// MaxSpeed caps chassis output, in (0, 1].
	MaxSpeed   float64
	LogDir     string
	LogEnabled bool
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

func DefaultOptions() Options {
	return Options{
		FrontSide:  drivetrain.Front,
		Lookahead:  pursuit.DefaultLookahead,
		Tolerance:  pursuit.DefaultTolerance,
		MaxSpeed:   1.0,
		LogDir:     ".",
		LogEnabled: true,
	}
}

func (o Options) validate() error {
	switch {
	case !(o.Lookahead > 0) || math.IsInf(o.Lookahead, 0):
		return fmt.Errorf("%w: lookahead %v must be positive", ErrInvalidOptions, o.Lookahead)
	case !(o.Tolerance >= 0) || math.IsInf(o.Tolerance, 0):
		return fmt.Errorf("%w: tolerance %v must not be negative", ErrInvalidOptions, o.Tolerance)
	case !(o.MaxSpeed > 0) || o.MaxSpeed > 1:
		return fmt.Errorf("%w: max speed %v must be in (0, 1]", ErrInvalidOptions, o.MaxSpeed)
	case o.FrontSide != drivetrain.Front && o.FrontSide != drivetrain.Rear:
		return fmt.Errorf("%w: front side %v", ErrInvalidOptions, o.FrontSide)
	}
	return nil
}

// Command follows one path with one chassis. It is driven from a single
// goroutine, normally through a Runner registered with the looper.
type Command struct {
	logger  *zap.Logger
	chassis Chassis
	path    path.Path
	epsilon geom.Translation

	opts     Options
	clock    clock.Clock
	follower *pursuit.Follower

	state     State
	start     time.Time
	end       time.Time
	log       *telemetry.CSVLog
	logPath   string
	goal      geom.Translation
	ticks     int
	observers []Observer
}

// New binds a command to chassis and p. epsilon is the half-width of the
// axis-aligned box around the final waypoint that counts as arrived.
func New(chassis Chassis, p path.Path, epsilon float64, logger *zap.Logger, opts Options) (*Command, error) {
	if chassis == nil {
		return nil, fmt.Errorf("%w: nil chassis", ErrInvalidOptions)
	}
	if p.Len() == 0 {
		return nil, path.ErrEmptyPath
	}
	if !(epsilon >= 0) || math.IsInf(epsilon, 0) {
		return nil, fmt.Errorf("%w: epsilon %v must not be negative", ErrInvalidOptions, epsilon)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Command{
		logger:  logger.Named("path_follow"),
		chassis: chassis,
		path:    p,
		epsilon: geom.Translation{X: epsilon, Y: epsilon},
	}
	if err := c.apply(opts); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure replaces the options. It fails with ErrConfigLocked once the
// command has left Idle.
func (c *Command) Configure(opts Options) error {
	if c.state != Idle {
		return fmt.Errorf("%w (state %s)", ErrConfigLocked, c.state)
	}
	return c.apply(opts)
}

func (c *Command) apply(opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	c.opts = opts
	c.clock = opts.Clock
	c.follower = pursuit.New(c.path, opts.Lookahead, opts.Tolerance, c.chassis.WidthMeters())
	return nil
}

func (c *Command) Options() Options { return c.opts }

func (c *Command) State() State { return c.state }

// Observe adds o to the observers notified after every Execute.
func (c *Command) Observe(o Observer) {
	c.observers = append(c.observers, o)
}

func (c *Command) transition(next State) error {
	if !c.state.canMoveTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, next)
	}
	c.logger.Debug("state change", zap.Stringer("from", c.state), zap.Stringer("to", next))
	c.state = next
	return nil
}

// Initialize resets the follower, opens the CSV log if enabled, records the
// start time and configures the chassis, leaving the command Running.
func (c *Command) Initialize() error {
	if err := c.transition(Initializing); err != nil {
		return err
	}

	c.follower.Reset()
	c.logger.Info("reset path follower",
		zap.Int("waypoints", c.path.Len()),
		zap.Float64("length", c.path.Length()),
		zap.Float64("lookahead", c.follower.LookaheadDistance()))

	now := c.clock.Now()
	if c.opts.LogEnabled {
		c.openLog(now)
	}
	c.start = now
	c.ticks = 0

	c.chassis.SetFrontSide(c.opts.FrontSide)
	c.chassis.SetMaxSpeedPercent(c.opts.MaxSpeed)

	return c.transition(Running)
}

func (c *Command) openLog(now time.Time) {
	name := fmt.Sprintf("PathFollowCommand_%.2f.csv", float64(now.UnixNano())/1e9)
	log, err := telemetry.OpenCSV(c.opts.LogDir, name, LogHeader)
	if err != nil {
		c.logger.Warn("failed to open CSV logfile, not going to log data", zap.Error(err))
		return
	}
	c.logger.Info("opened CSV logfile to save path progress to", zap.String("file", log.Path()))
	c.log = log
	c.logPath = log.Path()
}

// Execute runs one step: it reads the pose, picks the next goal and hands it
// to the chassis. Only valid while Running.
func (c *Command) Execute() error {
	if c.state != Running {
		return fmt.Errorf("%w: execute while %s", ErrInvalidTransition, c.state)
	}

	pose := c.chassis.Pose()
	c.goal = c.follower.NextPoint(pose)
	c.chassis.SetGoalPose(c.goal, goalEpsilon)
	c.ticks++

	elapsed := c.clock.Since(c.start).Seconds()
	if c.log != nil {
		err := c.log.WriteRow(logRow, elapsed,
			pose.Translation.X, pose.Translation.Y, pose.Rotation.Degrees(),
			c.goal.X, c.goal.Y)
		if err != nil {
			c.logger.Warn("failed to write line to logfile, logging disabled", zap.Error(err))
			c.closeLog()
		}
	}

	if len(c.observers) > 0 {
		s := Sample{
			Tick:     c.ticks,
			Elapsed:  elapsed,
			Pose:     pose,
			Goal:     c.goal,
			Final:    c.follower.FinalPose(),
			Progress: c.follower.Progress(),
		}
		if w, ok := c.chassis.(wheelReporter); ok {
			s.Left, s.Right = w.WheelSpeeds()
		}
		for _, o := range c.observers {
			o.OnTick(s)
		}
	}
	return nil
}

// IsFinished reports whether the chassis is within epsilon of the final
// waypoint on both axes, whatever the current lookahead goal is.
func (c *Command) IsFinished() bool {
	return geom.EpsilonEquals(c.chassis.Pose().Translation, c.follower.FinalPose(), c.epsilon)
}

// End stops the chassis and closes the log, moving to Interrupted or
// Completed. Calling End on a finished command does nothing.
func (c *Command) End(interrupted bool) error {
	if c.state.Terminal() {
		return nil
	}
	next := Completed
	if interrupted {
		next = Interrupted
	}
	if err := c.transition(next); err != nil {
		return err
	}
	c.end = c.clock.Now()

	if interrupted {
		c.logger.Warn("path following was interrupted",
			zap.Stringer("pose", c.chassis.Pose()),
			zap.Float64("progress", c.follower.Progress().Value()))
	} else {
		c.logger.Info("robot successfully reached goal pose",
			zap.Stringer("goal", c.follower.FinalPose()),
			zap.Float64("elapsed", c.Elapsed().Seconds()))
	}

	c.chassis.Stop()
	c.closeLog()
	return nil
}

func (c *Command) closeLog() {
	if c.log == nil {
		return
	}
	c.logger.Info("saving CSV logfile", zap.String("file", c.log.Path()), zap.Int("rows", c.log.Rows()))
	if err := c.log.Close(); err != nil {
		c.logger.Warn("failed to close logfile", zap.Error(err))
	}
	c.log = nil
}

// Goal is the goal handed to the chassis by the last Execute.
func (c *Command) Goal() geom.Translation { return c.goal }

func (c *Command) Follower() *pursuit.Follower { return c.follower }

func (c *Command) Path() path.Path { return c.path }

// Elapsed is the time since Initialize, frozen once the command ends.
func (c *Command) Elapsed() time.Duration {
	switch {
	case c.start.IsZero():
		return 0
	case !c.end.IsZero():
		return c.end.Sub(c.start)
	default:
		return c.clock.Since(c.start)
	}
}

// Ticks is the number of Execute calls since Initialize.
func (c *Command) Ticks() int { return c.ticks }

// LogPath is the CSV file opened by Initialize, empty if none was opened.
func (c *Command) LogPath() string { return c.logPath }

// Logging reports whether rows are still being written.
func (c *Command) Logging() bool { return c.log != nil }
