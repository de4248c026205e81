// Package sim drives a simulated chassis and a path-follow command through
// the looper on a mock clock, so a run takes as long as the CPU needs rather
// than real time.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/config"
	"github.com/san-kum/pathloop/internal/drivetrain"
	"github.com/san-kum/pathloop/internal/looper"
	"github.com/san-kum/pathloop/internal/metrics"
	"github.com/san-kum/pathloop/internal/telemetry"
)

// Session is one run, advanced a tick at a time.
type Session struct {
	logger  *zap.Logger
	cfg     *config.Config
	mock    *clock.Mock
	loop    *looper.Looper
	chassis *drivetrain.Sim
	runner  *command.Runner
	table   *telemetry.Table
	metrics metrics.Set
	rec     *recorder

	timedOut bool
}

// NewSession validates cfg and wires chassis, command and looper together.
// Observers see every sample after the built-in metrics do.
func NewSession(logger *zap.Logger, cfg *config.Config, observers ...command.Observer) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	p, err := cfg.Path()
	if err != nil {
		return nil, err
	}

	// Simulated time starts at the wall clock so CSV log names differ
	// between runs.
	mock := clock.NewMock()
	mock.Set(time.Now())

	chassis, err := drivetrain.NewSim(logger, cfg.Drivetrain(), cfg.StartPose())
	if err != nil {
		return nil, err
	}
	cmd, err := command.New(chassis, p, cfg.Follower.Epsilon, logger, cfg.CommandOptions(mock))
	if err != nil {
		return nil, err
	}

	s := &Session{
		logger:  logger.Named("sim"),
		cfg:     cfg,
		mock:    mock,
		chassis: chassis,
		runner:  command.NewRunner(cmd),
		table:   telemetry.NewTable(),
		metrics: metrics.Default(p),
		rec:     &recorder{},
	}
	cmd.Observe(s.rec)
	cmd.Observe(s.metrics)
	for _, o := range observers {
		cmd.Observe(o)
	}

	s.loop, err = looper.New(logger, cfg.Period(), looper.WithClock(mock), looper.WithSink(s.table))
	if err != nil {
		return nil, err
	}
	s.loop.Register(chassis)
	s.loop.Register(s.runner)
	return s, nil
}

// Step advances the mock clock by one period and runs one tick. It returns
// false once the command has ended.
func (s *Session) Step() bool {
	if s.Done() {
		return false
	}
	s.mock.Add(s.cfg.Period())
	s.loop.Tick()

	if every := s.cfg.Loop.TelemetryEvery; every > 0 && s.loop.Stats().Ticks%every == 0 {
		s.loop.OutputTelemetry()
	}
	if !s.Done() && s.Elapsed() >= s.cfg.TimeoutDuration() {
		s.logger.Warn("run timed out", zap.Duration("timeout", s.cfg.TimeoutDuration()))
		s.timedOut = true
		_ = s.Cancel()
	}
	return !s.Done()
}

// Cancel interrupts the command. It is safe to call before the first tick.
func (s *Session) Cancel() error {
	if s.Command().State() == command.Idle {
		return nil
	}
	return s.runner.Cancel()
}

func (s *Session) Done() bool { return s.runner.Done() }

// Elapsed is simulated time since the session was created.
func (s *Session) Elapsed() time.Duration {
	return time.Duration(s.loop.Stats().Ticks) * s.cfg.Period()
}

func (s *Session) Command() *command.Command { return s.runner.Command() }

func (s *Session) Chassis() *drivetrain.Sim { return s.chassis }

func (s *Session) Telemetry() *telemetry.Table { return s.table }

func (s *Session) Config() *config.Config { return s.cfg }

func (s *Session) Samples() []command.Sample { return s.rec.samples }

// Result snapshots the session. It may be called before the run is done.
func (s *Session) Result() *Result {
	cmd := s.Command()
	return &Result{
		Samples:   s.rec.samples,
		State:     cmd.State(),
		Ticks:     s.loop.Stats().Ticks,
		Elapsed:   cmd.Elapsed(),
		FinalPose: s.chassis.Pose(),
		Metrics:   s.metrics.Values(),
		LogPath:   cmd.LogPath(),
		TimedOut:  s.timedOut,
		Faults:    s.loop.Stats().Faults,
	}
}

// Run steps a new session until the command ends, the timeout passes or
// ctx is done. On cancellation the partial result is returned with
// ctx.Err().
func Run(ctx context.Context, logger *zap.Logger, cfg *config.Config, observers ...command.Observer) (*Result, error) {
	s, err := NewSession(logger, cfg, observers...)
	if err != nil {
		return nil, err
	}
	for s.Step() {
		select {
		case <-ctx.Done():
			_ = s.Cancel()
			return s.Result(), ctx.Err()
		default:
		}
	}
	return s.Result(), nil
}
