// Package optim tunes follower parameters by simulating every combination
// on a grid.
package optim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/pathloop/internal/config"
	"github.com/san-kum/pathloop/internal/sim"
)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(params), len(ranges))
	}
	probe := config.DefaultConfig()
	for _, p := range params {
		if err := probe.SetParam(p, 0); err != nil {
			return nil, fmt.Errorf("optim: %w", err)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Best is the winning point of a search.
type Best struct {
	Params map[string]float64
	Value  float64
	Result *sim.Result
	Runs   int
}

// Search runs base once per grid point and returns the point with the lowest
// metric. Runs that do not complete the path are never chosen.
func (g *GridSearch) Search(ctx context.Context, logger *zap.Logger, base *config.Config, metricName string) (*Best, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	best := &Best{Value: math.Inf(1)}
	err := g.searchRecursive(ctx, logger, 0, map[string]float64{}, base, metricName, best)
	if err != nil {
		return nil, err
	}
	if best.Params == nil {
		return best, fmt.Errorf("optim: no run completed the path in %d tries", best.Runs)
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	logger *zap.Logger,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	best *Best,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		cfg := base.Clone()
		cfg.Follower.LogCSV = false
		if err := cfg.SetParams(current); err != nil {
			return err
		}

		best.Runs++
		result, err := sim.Run(ctx, zap.NewNop(), cfg)
		if err != nil {
			logger.Debug("grid point failed", zap.Any("params", current), zap.Error(err))
			return nil
		}
		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("optim: unknown metric %q", metricName)
		}
		logger.Debug("grid point", zap.Any("params", current), zap.Float64(metricName, val), zap.Stringer("state", result.State))
		if result.Completed() && val < best.Value {
			best.Value = val
			best.Result = result
			best.Params = make(map[string]float64, len(current))
			for k, v := range current {
				best.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, logger, depth+1, newParams, base, metricName, best); err != nil {
			return err
		}
	}
	return nil
}
