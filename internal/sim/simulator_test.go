package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/config"
	"github.com/san-kum/pathloop/internal/logging"
)

func TestRunLineCompletes(t *testing.T) {
	cfg := config.GetPreset("line")
	res, err := Run(context.Background(), logging.NewTestLogger(t), cfg)
	require.NoError(t, err)

	assert.True(t, res.Completed())
	assert.False(t, res.TimedOut)
	assert.Zero(t, res.Faults)
	assert.InDelta(t, 3.0, res.FinalPose.Translation.X, 0.1)
	assert.InDelta(t, 0.0, res.FinalPose.Translation.Y, 0.1)

	require.NotEmpty(t, res.Samples)
	for i := 1; i < len(res.Samples); i++ {
		assert.False(t, res.Samples[i].Progress.Less(res.Samples[i-1].Progress))
	}
	assert.Contains(t, res.Metrics, "cross_track_rms")
	assert.Less(t, res.Metrics["cross_track_rms"], 0.05)
	assert.InDelta(t, res.Elapsed.Seconds(), res.Metrics["path_time"], 0.05)
}

func TestRunWritesCSVLog(t *testing.T) {
	cfg := config.GetPreset("line")
	cfg.Follower.LogCSV = true
	cfg.Follower.LogDir = t.TempDir()

	res, err := Run(context.Background(), logging.NewTestLogger(t), cfg)
	require.NoError(t, err)
	assert.FileExists(t, res.LogPath)
}

func TestRepeatedRunsKeepSeparateLogs(t *testing.T) {
	cfg := config.GetPreset("line")
	cfg.Follower.LogCSV = true
	cfg.Follower.LogDir = t.TempDir()

	first, err := Run(context.Background(), logging.NewTestLogger(t), cfg)
	require.NoError(t, err)
	second, err := Run(context.Background(), logging.NewTestLogger(t), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first.LogPath, second.LogPath)
	assert.FileExists(t, first.LogPath)
	assert.FileExists(t, second.LogPath)
}

func TestRunTimesOut(t *testing.T) {
	cfg := config.GetPreset("line")
	cfg.Timeout = 0.5

	res, err := Run(context.Background(), logging.NewTestLogger(t), cfg)
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.Equal(t, command.Interrupted, res.State)
	assert.Equal(t, 25, res.Ticks)
	assert.Less(t, res.FinalPose.Translation.X, 3.0)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, logging.NewTestLogger(t), config.GetPreset("line"))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, command.Interrupted, res.State)
}

func TestNewSessionRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Loop.Period = 0
	_, err := NewSession(nil, cfg)
	assert.Error(t, err)
}

func TestSessionStepping(t *testing.T) {
	var seen int
	s, err := NewSession(logging.NewTestLogger(t), config.GetPreset("s_curve"),
		command.ObserverFunc(func(command.Sample) { seen++ }))
	require.NoError(t, err)
	assert.Equal(t, command.Idle, s.Command().State())

	for i := 0; i < 50 && s.Step(); i++ {
	}
	assert.Equal(t, command.Running, s.Command().State())
	assert.Equal(t, time.Second, s.Elapsed())
	assert.Equal(t, 50, seen)
	assert.Len(t, s.Samples(), 50)

	_, ok := s.Telemetry().Number("DriveTrain/X")
	assert.True(t, ok, "telemetry published every few ticks")

	require.NoError(t, s.Cancel())
	assert.True(t, s.Done())
	assert.False(t, s.Step())
	assert.Equal(t, command.Interrupted, s.Result().State)
}

func TestSweepLookahead(t *testing.T) {
	results, err := SweepLookahead(context.Background(), nil, config.GetPreset("line"), []float64{0.2, 0.5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		require.NotNil(t, res)
		assert.True(t, res.Completed())
		assert.Empty(t, res.LogPath)
	}
}
