package sim

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/pathloop/internal/config"
)

// SweepLookahead runs one copy of base per lookahead distance in parallel.
// Results are in the order of lookaheads; failed runs leave a nil entry and
// contribute to the returned error.
func SweepLookahead(ctx context.Context, logger *zap.Logger, base *config.Config, lookaheads []float64) ([]*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]*Result, len(lookaheads))
	errs := make([]error, len(lookaheads))

	var wg sync.WaitGroup
	for i, la := range lookaheads {
		wg.Add(1)
		go func(idx int, lookahead float64) {
			defer wg.Done()

			cfg := base.Clone()
			cfg.Follower.Lookahead = lookahead
			// concurrent runs would race on the CSV file name
			cfg.Follower.LogCSV = false

			res, err := Run(ctx, logger.With(zap.Float64("lookahead", lookahead)), cfg)
			if err != nil {
				errs[idx] = fmt.Errorf("lookahead %.3f: %w", lookahead, err)
				return
			}
			results[idx] = res
		}(i, la)
	}
	wg.Wait()

	return results, multierr.Combine(errs...)
}
