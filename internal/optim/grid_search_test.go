package optim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pathloop/internal/config"
)

func TestNewGridSearchValidates(t *testing.T) {
	_, err := NewGridSearch([]string{"lookahead"}, nil)
	assert.Error(t, err)

	_, err = NewGridSearch([]string{"wheelbase"}, [][]float64{{1}})
	assert.Error(t, err)
}

func TestSearchPrefersFasterRun(t *testing.T) {
	g, err := NewGridSearch([]string{"max_speed"}, [][]float64{{0.5, 1.0}})
	require.NoError(t, err)

	base := config.GetPreset("line")
	base.Timeout = 60
	best, err := g.Search(context.Background(), nil, base, "path_time")
	require.NoError(t, err)

	assert.Equal(t, 2, best.Runs)
	assert.Equal(t, map[string]float64{"max_speed": 1.0}, best.Params)
	require.NotNil(t, best.Result)
	assert.True(t, best.Result.Completed())
}

func TestSearchUnknownMetric(t *testing.T) {
	g, err := NewGridSearch([]string{"lookahead"}, [][]float64{{0.2}})
	require.NoError(t, err)
	_, err = g.Search(context.Background(), nil, config.GetPreset("line"), "overshoot")
	assert.Error(t, err)
}

func TestSearchNothingCompletes(t *testing.T) {
	base := config.GetPreset("line")
	base.Timeout = 0.2

	g, err := NewGridSearch([]string{"lookahead"}, [][]float64{{0.2, 0.4}})
	require.NoError(t, err)
	best, err := g.Search(context.Background(), nil, base, "path_time")
	assert.Error(t, err)
	assert.Equal(t, 2, best.Runs)
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := NewGridSearch([]string{"lookahead"}, [][]float64{{0.2}})
	require.NoError(t, err)
	_, err = g.Search(ctx, nil, config.GetPreset("line"), "path_time")
	assert.ErrorIs(t, err, context.Canceled)
}
