package sim

import (
	"context"
	"math"

	"github.com/san-kum/impulse/internal/world"
)

type Simulator struct {
	metrics   []Metric
	observers []Observer
}

func New() *Simulator {
	return &Simulator{
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run steps w for cfg.Duration, recording a sample every cfg.RecordEvery
// steps. A run stopped by an invalid body state returns a result with the
// error recorded and a nil error.
func (s *Simulator) Run(ctx context.Context, w *world.World, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	every := max(cfg.RecordEvery, 1)
	result := &Result{
		Samples: make([]Sample, 0, steps/every+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	first := Measure(w)
	result.Samples = append(result.Samples, first)
	last := first

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := w.Step(cfg.Dt); err != nil {
			return result, &SimError{Time: w.Time(), Step: i, Message: "world step failed", Err: err}
		}
		result.StepsTaken++

		last = Measure(w)
		for _, m := range s.metrics {
			m.Observe(w, last)
		}
		for _, obs := range s.observers {
			obs.OnStep(w, last)
		}

		if cfg.ValidateState && !stateValid(w) {
			result.Errors = append(result.Errors, &SimError{Time: w.Time(), Step: i, Message: "invalid body state (NaN/Inf)"})
			break
		}

		if (i+1)%every == 0 {
			result.Samples = append(result.Samples, last)
		}
	}

	if e0 := first.Energy(); e0 != 0 {
		result.EnergyDrift = math.Abs(last.Energy()-e0) / math.Abs(e0)
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Final = w.LastStats()
	return result, nil
}

// RunWithCallback steps w until the duration elapses or callback returns
// false. The snapshot passed to callback is only valid during the call.
func (s *Simulator) RunWithCallback(ctx context.Context, w *world.World, cfg Config, callback func(Sample, *Snapshot) bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	pool := NewSnapshotPool(len(w.Bodies()))
	steps := cfg.Steps()
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := w.Step(cfg.Dt); err != nil {
			return &SimError{Time: w.Time(), Step: i, Message: "world step failed", Err: err}
		}
		if cfg.ValidateState && !stateValid(w) {
			return &SimError{Time: w.Time(), Step: i, Message: "invalid body state (NaN/Inf)"}
		}

		sample := Measure(w)
		for _, obs := range s.observers {
			obs.OnStep(w, sample)
		}
		snap := pool.Capture(w)
		keep := callback(sample, snap)
		pool.Put(snap)
		if !keep {
			return nil
		}
	}
	return nil
}
