// Package looper runs registered subsystems at a fixed period.
//
// Every tick is split into two passes over the registration list: the input
// pass samples sensors for all subsystems, then the output pass applies
// actuator outputs for all subsystems. A subsystem that fails or panics in
// one phase is logged and skipped for that phase only; it gets another
// chance on the next tick.
//
// # Usage
//
//	l, _ := looper.New(logger, 20*time.Millisecond)
//	l.Register(chassis)
//	l.Register(runner)
//	go l.Run(ctx)
//
// A Looper is not safe for concurrent use. Tick, OutputTelemetry and Run
// must be driven from one goroutine.
package looper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/pathloop/internal/telemetry"
)

// DTKey is the telemetry key for the last tick's execution time in seconds.
const DTKey = "SubsystemLooper DT"

// ErrInvalidPeriod indicates a non-positive loop period.
var ErrInvalidPeriod = errors.New("looper: period must be positive")

// Subsystem is a unit of periodic work.
type Subsystem interface {
	Name() string
	// PeriodicInput samples inputs. now is the start time of the call.
	PeriodicInput(now time.Time) error
	// PeriodicOutput applies outputs computed from the inputs.
	PeriodicOutput(now time.Time) error
	// OutputTelemetry publishes diagnostic state.
	OutputTelemetry(sink telemetry.Sink)
}

type Phase int

const (
	PhaseInput Phase = iota + 1
	PhaseOutput
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseOutput:
		return "output"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Stats counts what happened since the looper was created.
type Stats struct {
	Ticks          int
	Faults         int
	BudgetWarnings int
}

type Looper struct {
	logger     *zap.Logger
	clock      clock.Clock
	sink       telemetry.Sink
	period     time.Duration
	subsystems []Subsystem

	telemetryEvery int
	dt             time.Duration
	stats          Stats
}

type Option func(*Looper)

// WithClock replaces the wall clock, mainly for tests and simulation.
func WithClock(c clock.Clock) Option {
	return func(l *Looper) { l.clock = c }
}

// WithSink sets where OutputTelemetry publishes.
func WithSink(s telemetry.Sink) Option {
	return func(l *Looper) { l.sink = s }
}

// WithTelemetryEvery makes Run publish telemetry every n ticks.
func WithTelemetryEvery(n int) Option {
	return func(l *Looper) { l.telemetryEvery = n }
}

func New(logger *zap.Logger, period time.Duration, opts ...Option) (*Looper, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Looper{
		logger: logger.Named("looper"),
		clock:  clock.New(),
		sink:   telemetry.Nop{},
		period: period,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger.Debug("constructing", zap.Duration("period", period))
	return l, nil
}

// Register appends s to the execution order. Registering the same
// subsystem twice runs it twice; callers must not do that.
func (l *Looper) Register(s Subsystem) {
	l.subsystems = append(l.subsystems, s)
	l.logger.Info("registered subsystem", zap.String("subsystem", s.Name()))
}

// Tick runs the input phase of every subsystem, then the output phase of
// every subsystem. It never returns an error: failures are logged and
// isolated to the failing subsystem.
func (l *Looper) Tick() {
	inputTime := l.pass(PhaseInput)
	if inputTime > l.period/2 {
		l.stats.BudgetWarnings++
		l.logger.Warn("subsystem inputs are using more than half of the allotted looper time",
			zap.Duration("elapsed", inputTime), zap.Duration("period", l.period))
	}

	outputTime := l.pass(PhaseOutput)
	if outputTime > l.period/2 {
		l.stats.BudgetWarnings++
		l.logger.Warn("subsystem outputs are using more than half of the allotted looper time",
			zap.Duration("elapsed", outputTime), zap.Duration("period", l.period))
	}

	l.dt = inputTime + outputTime
	l.stats.Ticks++
}

func (l *Looper) pass(phase Phase) time.Duration {
	var total time.Duration
	for _, s := range l.subsystems {
		start := l.clock.Now()
		if err := l.call(s, phase, start); err != nil {
			l.stats.Faults++
			l.logger.Error("a registered subsystem failed to execute",
				zap.String("subsystem", s.Name()),
				zap.Stringer("phase", phase),
				zap.Error(err))
		}
		total += l.clock.Since(start)
	}
	return total
}

func (l *Looper) call(s Subsystem, phase Phase, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if phase == PhaseInput {
		return s.PeriodicInput(now)
	}
	return s.PeriodicOutput(now)
}

// OutputTelemetry publishes the last tick's dt and asks every subsystem to
// publish its own state. It does not affect phase timing.
func (l *Looper) OutputTelemetry() {
	l.sink.PutNumber(DTKey, l.dt.Seconds())
	for _, s := range l.subsystems {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Warn("telemetry output failed", zap.String("subsystem", s.Name()), zap.Any("panic", r))
				}
			}()
			s.OutputTelemetry(l.sink)
		}()
	}
}

// Run ticks at the configured period until ctx is done.
func (l *Looper) Run(ctx context.Context) error {
	l.logger.Info("running loop", zap.Duration("period", l.period), zap.Int("subsystems", len(l.subsystems)))
	ticker := l.clock.Ticker(l.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("closing loop")
			return ctx.Err()
		case <-ticker.C:
			l.Tick()
			if l.telemetryEvery > 0 && l.stats.Ticks%l.telemetryEvery == 0 {
				l.OutputTelemetry()
			}
		}
	}
}

// DT is the summed input and output time of the last tick.
func (l *Looper) DT() time.Duration { return l.dt }

func (l *Looper) Period() time.Duration { return l.period }

func (l *Looper) Stats() Stats { return l.stats }

func (l *Looper) Subsystems() []Subsystem {
	out := make([]Subsystem, len(l.subsystems))
	copy(out, l.subsystems)
	return out
}
