// Package config loads the YAML description of a robot, its control loop and
// the path it should follow.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/drivetrain"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/path"
	"github.com/san-kum/pathloop/internal/pursuit"
	"github.com/san-kum/pathloop/internal/statespace"
)

const (
	inch = 0.0254

	DefaultPeriod    = 0.02
	DefaultEpsilon   = 0.05
	DefaultTimeout   = 30.0
	DefaultDataDir   = ".pathloop"
	DefaultMaxSpeed  = 1.0
	DefaultMotor     = "cim"
	DefaultGearRatio = 10.71
)

type Config struct {
	Name      string          `yaml:"name"`
	Robot     RobotConfig     `yaml:"robot"`
	Loop      LoopConfig      `yaml:"loop"`
	Follower  FollowerConfig  `yaml:"follower"`
	Start     StartConfig     `yaml:"start"`
	Waypoints []path.Waypoint `yaml:"waypoints"`
	Timeout   float64         `yaml:"timeout"`
	DataDir   string          `yaml:"data_dir"`
}

type RobotConfig struct {
	TrackWidth    float64          `yaml:"track_width"`
	WheelDiameter float64          `yaml:"wheel_diameter"`
	Mass          float64          `yaml:"mass"`
	Radius        float64          `yaml:"radius"`
	Motor         string           `yaml:"motor"`
	MotorCount    int              `yaml:"motor_count"`
	GearRatio     float64          `yaml:"gear_ratio"`
	MaxVelocity   float64          `yaml:"max_velocity"`
	Integrator    string           `yaml:"integrator"`
	DistancePID   drivetrain.Gains `yaml:"distance_pid"`
	RotationPID   drivetrain.Gains `yaml:"rotation_pid"`
}

type LoopConfig struct {
	Period         float64 `yaml:"period"`
	TelemetryEvery int     `yaml:"telemetry_every"`
}

type FollowerConfig struct {
	Lookahead float64         `yaml:"lookahead"`
	Tolerance float64         `yaml:"tolerance"`
	Epsilon   float64         `yaml:"epsilon"`
	MaxSpeed  float64         `yaml:"max_speed"`
	FrontSide drivetrain.Side `yaml:"front_side"`
	LogCSV    bool            `yaml:"log_csv"`
	LogDir    string          `yaml:"log_dir"`
}

type StartConfig struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "custom",
		Robot: RobotConfig{
			TrackWidth:    26 * inch,
			WheelDiameter: 6 * inch,
			Mass:          54,
			Radius:        0.45,
			Motor:         DefaultMotor,
			MotorCount:    2,
			GearRatio:     DefaultGearRatio,
			MaxVelocity:   2.5,
			Integrator:    "rk4",
			DistancePID:   drivetrain.Gains{Kp: 0.478, Ki: 0, Kd: 0.008},
			RotationPID:   drivetrain.Gains{Kp: 0.0088, Ki: 0.01, Kd: 0},
		},
		Loop: LoopConfig{
			Period:         DefaultPeriod,
			TelemetryEvery: 5,
		},
		Follower: FollowerConfig{
			Lookahead: pursuit.DefaultLookahead,
			Tolerance: pursuit.DefaultTolerance,
			Epsilon:   DefaultEpsilon,
			MaxSpeed:  DefaultMaxSpeed,
			FrontSide: drivetrain.Front,
		},
		Waypoints: []path.Waypoint{{X: 0, Y: 0}, {X: 2, Y: 0}},
		Timeout:   DefaultTimeout,
		DataDir:   DefaultDataDir,
	}
}

func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", file, err)
	}
	return cfg, nil
}

func Save(file string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0644)
}

// Validate reports every problem with the config at once.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}
	check(c.Robot.TrackWidth > 0, "robot.track_width must be positive, got %v", c.Robot.TrackWidth)
	check(c.Robot.MaxVelocity > 0, "robot.max_velocity must be positive, got %v", c.Robot.MaxVelocity)
	check(c.Loop.Period > 0, "loop.period must be positive, got %v", c.Loop.Period)
	check(c.Follower.Lookahead > 0, "follower.lookahead must be positive, got %v", c.Follower.Lookahead)
	check(c.Follower.Tolerance >= 0, "follower.tolerance must not be negative, got %v", c.Follower.Tolerance)
	check(c.Follower.Epsilon >= 0, "follower.epsilon must not be negative, got %v", c.Follower.Epsilon)
	check(c.Follower.MaxSpeed > 0 && c.Follower.MaxSpeed <= 1, "follower.max_speed must be in (0, 1], got %v", c.Follower.MaxSpeed)
	check(c.Timeout > 0, "timeout must be positive, got %v", c.Timeout)
	if _, perr := path.New(c.Waypoints...); perr != nil {
		err = multierr.Append(err, fmt.Errorf("waypoints: %w", perr))
	}
	return err
}

func (c *Config) Path() (path.Path, error) {
	return path.New(c.Waypoints...)
}

func (c *Config) Period() time.Duration {
	return time.Duration(c.Loop.Period * float64(time.Second))
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout * float64(time.Second))
}

func (c *Config) StartPose() geom.Pose {
	return geom.NewPose(c.Start.X, c.Start.Y, geom.FromDegrees(c.Start.Heading))
}

func (c *Config) Drivetrain() drivetrain.Config {
	return drivetrain.Config{
		TrackWidth:  c.Robot.TrackWidth,
		MaxVelocity: c.Robot.MaxVelocity,
		Period:      c.Period(),
		Distance:    c.Robot.DistancePID,
		Rotation:    c.Robot.RotationPID,
		Integrator:  c.Robot.Integrator,
	}
}

// CommandOptions builds the follower options; clk may be nil for the wall
// clock.
func (c *Config) CommandOptions(clk clock.Clock) command.Options {
	logDir := c.Follower.LogDir
	if logDir == "" {
		logDir = "."
	}
	return command.Options{
		FrontSide:  c.Follower.FrontSide,
		Lookahead:  c.Follower.Lookahead,
		Tolerance:  c.Follower.Tolerance,
		MaxSpeed:   c.Follower.MaxSpeed,
		LogDir:     logDir,
		LogEnabled: c.Follower.LogCSV,
		Clock:      clk,
	}
}

// Controller builds the state-space velocity controller of the robot.
func (c *Config) Controller() (*statespace.TankDriveController, error) {
	motor, err := statespace.MotorByName(c.Robot.Motor, c.Robot.MotorCount)
	if err != nil {
		return nil, err
	}
	opts := statespace.DefaultOptions()
	opts.WheelRadius = c.Robot.WheelDiameter / 2
	opts.Period = c.Period()
	return statespace.NewTankDriveController(motor, c.Robot.Mass, c.Robot.Radius, c.Robot.TrackWidth, c.Robot.GearRatio, opts)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Waypoints = make([]path.Waypoint, len(c.Waypoints))
	copy(cp.Waypoints, c.Waypoints)
	return &cp
}
