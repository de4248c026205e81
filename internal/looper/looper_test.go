package looper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/pathloop/internal/logging"
	"github.com/san-kum/pathloop/internal/telemetry"
)

type fakeSubsystem struct {
	name   string
	events *[]string
	mock   *clock.Mock

	inputErr    error
	outputPanic bool
	inputCost   time.Duration
	outputCost  time.Duration
}

func (f *fakeSubsystem) Name() string { return f.name }

func (f *fakeSubsystem) PeriodicInput(now time.Time) error {
	*f.events = append(*f.events, f.name+":in")
	if f.inputCost > 0 {
		f.mock.Add(f.inputCost)
	}
	return f.inputErr
}

func (f *fakeSubsystem) PeriodicOutput(now time.Time) error {
	*f.events = append(*f.events, f.name+":out")
	if f.outputCost > 0 {
		f.mock.Add(f.outputCost)
	}
	if f.outputPanic {
		panic("motor controller unplugged")
	}
	return nil
}

func (f *fakeSubsystem) OutputTelemetry(sink telemetry.Sink) {
	sink.PutString(f.name+"/status", "ok")
}

func newFakes(mock *clock.Mock, events *[]string, names ...string) []*fakeSubsystem {
	out := make([]*fakeSubsystem, len(names))
	for i, n := range names {
		out[i] = &fakeSubsystem{name: n, events: events, mock: mock}
	}
	return out
}

func TestNewInvalidPeriod(t *testing.T) {
	_, err := New(nil, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = New(nil, -time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestTickPhaseOrdering(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(logging.NewTestLogger(t), 20*time.Millisecond, WithClock(mock))
	require.NoError(t, err)

	var events []string
	for _, f := range newFakes(mock, &events, "drive", "arm", "vision") {
		l.Register(f)
	}

	l.Tick()
	assert.Equal(t, []string{
		"drive:in", "arm:in", "vision:in",
		"drive:out", "arm:out", "vision:out",
	}, events)
	assert.Equal(t, 1, l.Stats().Ticks)
}

func TestTickIsolatesErrors(t *testing.T) {
	mock := clock.NewMock()
	logger, logs := logging.NewObservedTestLogger(t)
	l, err := New(logger, 20*time.Millisecond, WithClock(mock))
	require.NoError(t, err)

	var events []string
	fakes := newFakes(mock, &events, "a", "b", "c")
	fakes[1].inputErr = errors.New("encoder timeout")
	for _, f := range fakes {
		l.Register(f)
	}

	l.Tick()
	assert.Equal(t, []string{"a:in", "b:in", "c:in", "a:out", "b:out", "c:out"}, events)
	assert.Equal(t, 1, l.Stats().Faults)

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "b", errs[0].ContextMap()["subsystem"])
	assert.Equal(t, "input", errs[0].ContextMap()["phase"])

	// the failing subsystem runs again on the next tick
	events = events[:0]
	l.Tick()
	assert.Contains(t, events, "b:in")
	assert.Equal(t, 2, l.Stats().Faults)
}

func TestTickRecoversPanics(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(logging.NewTestLogger(t), 20*time.Millisecond, WithClock(mock))
	require.NoError(t, err)

	var events []string
	fakes := newFakes(mock, &events, "a", "b", "c")
	fakes[0].outputPanic = true
	for _, f := range fakes {
		l.Register(f)
	}

	assert.NotPanics(t, l.Tick)
	assert.Equal(t, []string{"a:in", "b:in", "c:in", "a:out", "b:out", "c:out"}, events)
	assert.Equal(t, 1, l.Stats().Faults)
}

func TestBudgetWarningOncePerPass(t *testing.T) {
	mock := clock.NewMock()
	logger, logs := logging.NewObservedTestLogger(t)
	l, err := New(logger, 100*time.Millisecond, WithClock(mock))
	require.NoError(t, err)

	var events []string
	for _, f := range newFakes(mock, &events, "a", "b", "c") {
		// each one is under budget on its own, together they are not
		f.inputCost = 20 * time.Millisecond
		f.outputCost = 5 * time.Millisecond
		l.Register(f)
	}

	l.Tick()
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "inputs")
	assert.Equal(t, 1, l.Stats().BudgetWarnings)
	assert.Equal(t, 75*time.Millisecond, l.DT())
}

func TestNoBudgetWarningWithinPeriod(t *testing.T) {
	mock := clock.NewMock()
	logger, logs := logging.NewObservedTestLogger(t)
	l, err := New(logger, 100*time.Millisecond, WithClock(mock))
	require.NoError(t, err)

	var events []string
	for _, f := range newFakes(mock, &events, "a", "b") {
		f.inputCost = 10 * time.Millisecond
		f.outputCost = 10 * time.Millisecond
		l.Register(f)
	}

	l.Tick()
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 40*time.Millisecond, l.DT())
}

func TestOutputTelemetry(t *testing.T) {
	mock := clock.NewMock()
	sink := telemetry.NewTable()
	l, err := New(logging.NewTestLogger(t), 20*time.Millisecond, WithClock(mock), WithSink(sink))
	require.NoError(t, err)

	var events []string
	fakes := newFakes(mock, &events, "drive")
	fakes[0].inputCost = 3 * time.Millisecond
	l.Register(fakes[0])

	l.Tick()
	l.OutputTelemetry()

	dt, ok := sink.Number(DTKey)
	require.True(t, ok)
	assert.InDelta(t, 0.003, dt, 1e-9)

	status, ok := sink.Text("drive/status")
	require.True(t, ok)
	assert.Equal(t, "ok", status)
}

type countingSubsystem struct {
	ticks atomic.Int64
}

func (c *countingSubsystem) Name() string { return "counter" }

func (c *countingSubsystem) PeriodicInput(time.Time) error {
	c.ticks.Add(1)
	return nil
}

func (c *countingSubsystem) PeriodicOutput(time.Time) error { return nil }

func (c *countingSubsystem) OutputTelemetry(telemetry.Sink) {}

func TestRunTicksUntilCanceled(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(logging.NewTestLogger(t), 20*time.Millisecond, WithClock(mock), WithTelemetryEvery(1))
	require.NoError(t, err)

	counter := &countingSubsystem{}
	l.Register(counter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool {
		mock.Add(20 * time.Millisecond)
		return counter.ticks.Load() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
