package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/path"
	"github.com/san-kum/pathloop/internal/pursuit"
	"github.com/san-kum/pathloop/internal/storage"
)

func fixture(t *testing.T) (path.Path, []command.Sample) {
	t.Helper()
	p, err := path.FromTranslations(geom.Translation{}, geom.Translation{X: 2}, geom.Translation{X: 2, Y: 1})
	require.NoError(t, err)
	samples := []command.Sample{
		{Tick: 1, Elapsed: 0.02, Pose: geom.NewPose(0, 0, 0), Goal: geom.Translation{X: 0.2}},
		{Tick: 2, Elapsed: 0.04, Pose: geom.NewPose(1, 0.1, geom.FromDegrees(90)), Goal: geom.Translation{X: 1.2},
			Progress: pursuit.Progress{Segment: 1, Fraction: 0.5}, Left: 0.4, Right: 0.6},
	}
	return p, samples
}

func TestSVG(t *testing.T) {
	p, samples := fixture(t)
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, p, samples, 400, 300))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
	assert.Equal(t, 2, strings.Count(out, "<path "), "one path and one trajectory")
	assert.Equal(t, 3, strings.Count(out, `r="3"`), "one marker per waypoint")
	assert.Contains(t, out, `width="400" height="300"`)
}

func TestSVGWithoutSamples(t *testing.T) {
	p, _ := fixture(t)
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, p, nil, 100, 100))
	assert.Equal(t, 1, strings.Count(buf.String(), "<path "))
}

func TestFitKeepsPointsInside(t *testing.T) {
	project := fit([]geom.Translation{{X: -3, Y: 1}, {X: 5, Y: 2}}, 200, 100)
	for _, p := range []geom.Translation{{X: -3, Y: 1}, {X: 5, Y: 2}} {
		x, y := project(p)
		assert.True(t, x > 0 && x < 200, "x=%v", x)
		assert.True(t, y > 0 && y < 100, "y=%v", y)
	}
	_, lowY := project(geom.Translation{X: 0, Y: 1})
	_, highY := project(geom.Translation{X: 0, Y: 2})
	assert.Greater(t, lowY, highY, "+Y is up")
}

func TestJSON(t *testing.T) {
	p, samples := fixture(t)
	var buf bytes.Buffer
	meta := storage.RunMetadata{ID: "square_1234abcd", Name: "square", State: "completed"}
	require.NoError(t, JSON(&buf, meta, p, samples))

	var got Data
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "square_1234abcd", got.Run.ID)
	assert.Len(t, got.Waypoints, 3)
	require.Len(t, got.Samples, 2)
	assert.InDelta(t, 90, got.Samples[1].Theta, 1e-9)
	assert.Equal(t, 1, got.Samples[1].Segment)
	assert.Equal(t, 0.6, got.Samples[1].Right)
}
