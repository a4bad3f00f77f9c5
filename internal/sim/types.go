package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/world"
)

var ErrInvalidRun = errors.New("sim: invalid run configuration")

// Sample is one recorded frame of a run.
type Sample struct {
	Time            float64
	Step            int
	KineticEnergy   float64
	PotentialEnergy float64
	// MaxSpeed is the fastest linear speed of any awake dynamic body.
	MaxSpeed       float64
	MaxDepth       float64
	Contacts       int
	Points         int
	NormalImpulse  float64
	AwakeBodies    int
	SleepingBodies int
	Pairs          int
	Islands        int
}

func (s Sample) Energy() float64 { return s.KineticEnergy + s.PotentialEnergy }

// Metric folds samples into one number.
type Metric interface {
	Name() string
	Observe(w *world.World, s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w *world.World, s Sample)
}

type Config struct {
	Dt            float64
	Duration      float64
	RecordEvery   int
	ValidateState bool
	Seed          int64
}

func DefaultConfig() Config {
	return FromConfig(config.DefaultConfig())
}

func FromConfig(c *config.Config) Config {
	return Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		RecordEvery:   c.RecordEvery,
		ValidateState: c.ValidateState,
		Seed:          c.Seed,
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 || math.IsNaN(c.Dt) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidRun, c.Dt)
	}
	if c.Duration <= 0 || math.IsNaN(c.Duration) {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidRun, c.Duration)
	}
	if c.RecordEvery < 0 {
		return fmt.Errorf("%w: record_every must not be negative, got %d", ErrInvalidRun, c.RecordEvery)
	}
	return nil
}

// Steps is the number of whole steps that fit in the duration.
func (c Config) Steps() int {
	return int(math.Round(c.Duration / c.Dt))
}

type Result struct {
	Samples     []Sample
	Metrics     map[string]float64
	StepsTaken  int
	EnergyDrift float64
	Errors      []error
	Final       world.StepStats
}

// Series extracts one column of the recorded samples.
func (r *Result) Series(f func(Sample) float64) []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = f(s)
	}
	return out
}

type SimError struct {
	Time    float64
	Step    int
	Message string
	Err     error
}

func (e *SimError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %d (t=%.4f): %s: %v", e.Step, e.Time, e.Message, e.Err)
	}
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e *SimError) Unwrap() error { return e.Err }
