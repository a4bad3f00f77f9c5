package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/san-kum/impulse/internal/world"
)

// Builder creates a fresh world for one run.
type Builder func(seed int64) (*world.World, error)

// Ensemble runs the same scene over consecutive seeds in parallel.
type Ensemble struct {
	metrics   func() []Metric
	numRuns   int
	seedStart int64
}

// NewEnsemble takes a metrics factory, since metrics carry per-run state.
func NewEnsemble(metrics func() []Metric, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{metrics: metrics, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, build Builder, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			w, err := build(cfgCopy.Seed)
			if err != nil {
				errs[idx] = err
				return
			}
			sim := New()
			if e.metrics != nil {
				for _, m := range e.metrics() {
					sim.AddMetric(m)
				}
			}
			results[idx], errs[idx] = sim.Run(ctx, w, cfgCopy)
		}(i)
	}

	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
