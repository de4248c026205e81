package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/path"
	"github.com/san-kum/pathloop/internal/pursuit"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Init())

	p, err := path.FromTranslations(geom.Translation{}, geom.Translation{X: 1})
	require.NoError(t, err)
	samples := []command.Sample{
		{Tick: 1, Elapsed: 0.02, Pose: geom.NewPose(0, 0, 0), Goal: geom.Translation{X: 0.2}, Left: 0.5, Right: 0.5},
		{Tick: 2, Elapsed: 0.04, Pose: geom.NewPose(0.01, 0.002, 0.1), Goal: geom.Translation{X: 0.21},
			Progress: pursuit.Progress{Segment: 0, Fraction: 0.21}},
	}

	id, err := store.Save(RunMetadata{Name: "line", Lookahead: 0.2, State: "completed", Ticks: 2,
		Metrics: map[string]float64{"path_time": 0.04}}, p, samples)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "line_"))
	assert.Len(t, id, len("line_")+8)

	meta, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "completed", meta.State)
	assert.Equal(t, 0.04, meta.Metrics["path_time"])
	assert.False(t, meta.Timestamp.IsZero())

	got, err := store.LoadSamples(id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, samples[0].Goal, got[0].Goal)
	assert.InDelta(t, 0.1, got[1].Pose.Rotation.Radians(), 1e-6)
	assert.Equal(t, samples[1].Progress, got[1].Progress)
	assert.Equal(t, 2, got[1].Tick)

	loaded, err := store.LoadPath(id)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}

func TestListNewestFirst(t *testing.T) {
	store := New(t.TempDir())
	p, _ := path.FromTranslations(geom.Translation{})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.Save(RunMetadata{Name: "old", Timestamp: base}, p, nil)
	require.NoError(t, err)
	_, err = store.Save(RunMetadata{Name: "new", Timestamp: base.Add(time.Hour)}, p, nil)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(store.baseDir, "junk"), 0755))

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].Name)
	assert.Equal(t, "old", runs[1].Name)
}

func TestListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoadUnknownRun(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Load("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, store.Delete("missing"), ErrRunNotFound)
}

func TestDelete(t *testing.T) {
	store := New(t.TempDir())
	p, _ := path.FromTranslations(geom.Translation{})
	id, err := store.Save(RunMetadata{Name: "tmp"}, p, nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	_, err = store.Load(id)
	assert.ErrorIs(t, err, ErrRunNotFound)
}
