package drivetrain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/pathloop/internal/control"
	"github.com/san-kum/pathloop/internal/dynamo"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/integrators"
	"github.com/san-kum/pathloop/internal/telemetry"
)

type Gains struct {
	Kp float64 `yaml:"kp" json:"kp"`
	Ki float64 `yaml:"ki" json:"ki"`
	Kd float64 `yaml:"kd" json:"kd"`
}

type Config struct {
	TrackWidth  float64       // meters between wheel contact patches
	MaxVelocity float64       // wheel speed at full output, m/s
	Period      time.Duration // fallback dt for the first output
	Distance    Gains         // output per meter of distance error
	Rotation    Gains         // output per degree of heading error
	Integrator  string
}

func DefaultConfig() Config {
	return Config{
		TrackWidth:  26 * 0.0254,
		MaxVelocity: 2.5,
		Period:      20 * time.Millisecond,
		Distance:    Gains{Kp: 0.478, Ki: 0, Kd: 0.008},
		Rotation:    Gains{Kp: 0.0088, Ki: 0.01, Kd: 0},
		Integrator:  "rk4",
	}
}

// Sim is a simulated differential drive. The input phase samples the pose
// from the integrated state; the output phase drives toward the current goal
// and integrates one step. It is not safe for concurrent use.
type Sim struct {
	logger *zap.Logger
	cfg    Config
	model  *TankModel
	integ  dynamo.Integrator

	distance *control.PID
	rotation *control.PID

	state dynamo.State
	pose  geom.Pose
	t     float64
	steps int

	lastOutput time.Time
	goal       *geom.Translation
	goalEps    geom.Translation
	front      Side
	maxSpeed   float64
	left       float64
	right      float64
	atGoal     bool
}

func NewSim(logger *zap.Logger, cfg Config, start geom.Pose) (*Sim, error) {
	if cfg.TrackWidth <= 0 || cfg.MaxVelocity <= 0 || cfg.Period <= 0 {
		return nil, fmt.Errorf("%w: track width %.3f, max velocity %.3f, period %s",
			dynamo.ErrParameterBounds, cfg.TrackWidth, cfg.MaxVelocity, cfg.Period)
	}
	integ, ok := integrators.New(cfg.Integrator)
	if !ok {
		return nil, fmt.Errorf("drivetrain: unknown integrator %q", cfg.Integrator)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sim{
		logger:   logger.Named("drivetrain"),
		cfg:      cfg,
		model:    NewTankModel(cfg.TrackWidth),
		integ:    integ,
		distance: control.NewPID(cfg.Distance.Kp, cfg.Distance.Ki, cfg.Distance.Kd, 0),
		rotation: control.NewPID(cfg.Rotation.Kp, cfg.Rotation.Ki, cfg.Rotation.Kd, 0),
		maxSpeed: 1,
	}
	s.ResetPose(start)
	return s, nil
}

func (s *Sim) Name() string { return "DriveTrain" }

func (s *Sim) PeriodicInput(now time.Time) error {
	s.pose = poseFromState(s.state)
	return nil
}

func (s *Sim) PeriodicOutput(now time.Time) error {
	dt := s.cfg.Period.Seconds()
	if !s.lastOutput.IsZero() {
		if d := now.Sub(s.lastOutput).Seconds(); d > 0 {
			dt = d
		}
	}
	s.lastOutput = now

	s.left, s.right = s.wheelCommand(dt)
	u := dynamo.Control{s.left, s.right}
	if err := dynamo.CheckDims(s.model, s.state, u); err != nil {
		s.left, s.right = 0, 0
		return &dynamo.StepError{Step: s.steps, Time: s.t, State: s.state.Clone(), Wrapped: err}
	}
	next := s.integ.Step(s.model, s.state, u, s.t, dt)
	if !next.IsValid() {
		s.left, s.right = 0, 0
		return &dynamo.StepError{Step: s.steps, Time: s.t, State: s.state.Clone(), Wrapped: dynamo.ErrInvalidState}
	}
	next[2] = geom.NormalizeAngle(next[2])
	s.state = next
	s.t += dt
	s.steps++
	return nil
}

// wheelCommand returns left and right wheel speeds in m/s.
func (s *Sim) wheelCommand(dt float64) (float64, float64) {
	if s.goal == nil {
		return 0, 0
	}
	if geom.EpsilonEquals(s.pose.Translation, *s.goal, s.goalEps) {
		s.atGoal = true
		return 0, 0
	}
	s.atGoal = false

	local := s.pose.ToLocal(*s.goal)
	dist := local.Norm()
	heading := math.Atan2(local.Y, local.X)
	if s.front == Rear {
		heading = geom.NormalizeAngle(heading - math.Pi)
		dist = -dist
	}

	turn := s.rotation.Calculate(-heading*180/math.Pi, 0, dt)
	throttle := s.distance.Calculate(-dist, 0, dt) * math.Max(0, math.Cos(heading))

	throttle = geom.Clamp(throttle, -1, 1)
	turn = geom.Clamp(turn, -1, 1)

	left, right := throttle-turn, throttle+turn
	if m := math.Max(math.Abs(left), math.Abs(right)); m > 1 {
		left, right = left/m, right/m
	}
	scale := s.maxSpeed * s.cfg.MaxVelocity
	return left * scale, right * scale
}

func (s *Sim) OutputTelemetry(sink telemetry.Sink) {
	sink.PutNumber("DriveTrain/X", s.pose.Translation.X)
	sink.PutNumber("DriveTrain/Y", s.pose.Translation.Y)
	sink.PutNumber("DriveTrain/Theta", s.pose.Rotation.Degrees())
	sink.PutNumber("DriveTrain/Left", s.left)
	sink.PutNumber("DriveTrain/Right", s.right)
	sink.PutString("DriveTrain/Front", s.front.String())
	if s.goal != nil {
		sink.PutNumber("DriveTrain/Goal X", s.goal.X)
		sink.PutNumber("DriveTrain/Goal Y", s.goal.Y)
	}
	sink.PutString("DriveTrain/AtGoal", fmt.Sprint(s.atGoal))
}

// Pose is the pose sampled in the last input phase.
func (s *Sim) Pose() geom.Pose { return s.pose }

// SetGoalPose makes the output phase drive toward goal until the position
// is within eps on both axes.
func (s *Sim) SetGoalPose(goal geom.Translation, eps geom.Translation) {
	s.goal = &goal
	s.goalEps = eps
}

func (s *Sim) SetFrontSide(side Side) {
	if side != s.front {
		s.logger.Debug("front side changed", zap.Stringer("side", side))
	}
	s.front = side
}

// SetMaxSpeedPercent caps throttle and turn outputs; p is clamped to [0, 1].
func (s *Sim) SetMaxSpeedPercent(p float64) {
	s.maxSpeed = geom.Clamp(p, 0, 1)
}

// Stop drops the goal and zeroes the outputs.
func (s *Sim) Stop() {
	s.goal = nil
	s.left, s.right = 0, 0
	s.atGoal = false
	s.distance.Reset()
	s.rotation.Reset()
	s.logger.Debug("stopped", zap.Stringer("pose", s.pose))
}

func (s *Sim) WidthMeters() float64 { return s.cfg.TrackWidth }

// ResetPose teleports the chassis.
func (s *Sim) ResetPose(p geom.Pose) {
	s.state = stateFromPose(p)
	s.pose = p
}

// WheelSpeeds returns the last commanded wheel speeds in m/s.
func (s *Sim) WheelSpeeds() (left, right float64) { return s.left, s.right }

func (s *Sim) AtGoal() bool { return s.atGoal }

func (s *Sim) Goal() (geom.Translation, bool) {
	if s.goal == nil {
		return geom.Translation{}, false
	}
	return *s.goal, true
}

// Elapsed is the simulated time integrated so far.
func (s *Sim) Elapsed() float64 { return s.t }

// GetParams exposes the PID gains as "distance.Kp", "rotation.Ki" and so on.
func (s *Sim) GetParams() map[string]float64 {
	out := make(map[string]float64)
	for prefix, pid := range map[string]*control.PID{"distance": s.distance, "rotation": s.rotation} {
		for k, v := range pid.GetParams() {
			out[prefix+"."+k] = v
		}
	}
	return out
}

func (s *Sim) SetParam(name string, value float64) error {
	prefix, param, ok := strings.Cut(name, ".")
	if !ok {
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParam, name)
	}
	switch prefix {
	case "distance":
		return s.distance.SetParam(param, value)
	case "rotation":
		return s.rotation.SetParam(param, value)
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParam, name)
	}
}
