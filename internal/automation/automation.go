package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/experiment"
	"github.com/san-kum/impulse/internal/sim"
	"github.com/san-kum/impulse/internal/storage"
	"github.com/san-kum/impulse/internal/world"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario defines a scripted batch of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run in a scenario. Set holds dotted config paths,
// e.g. physics.solver.velocity_iterations.
type ScenarioStep struct {
	Scene    string         `yaml:"scene"`
	Preset   string         `yaml:"preset"`
	Duration float64        `yaml:"duration"`
	Dt       float64        `yaml:"dt"`
	Seed     int64          `yaml:"seed"`
	Set      map[string]any `yaml:"set"`
	SaveAs   string         `yaml:"save_as"`
}

// Progress is told about each finished unit of work.
type Progress func(done, total int, label string)

type Options struct {
	// Store, when set, receives every step that names save_as.
	Store    *storage.Store
	Progress Progress
}

func (o Options) report(done, total int, label string) {
	if o.Progress != nil {
		o.Progress(done, total, label)
	}
}

type scenarioFile struct {
	Scenarios []*Scenario `yaml:"scenarios"`
}

// LoadScenarios reads a file holding either one scenario or a list under
// "scenarios".
func LoadScenarios(path string) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Scenarios) == 0 {
		var single Scenario
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		file.Scenarios = []*Scenario{&single}
	}
	for _, s := range file.Scenarios {
		if len(s.Steps) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrEmptyScenario, s.Name)
		}
	}
	return file.Scenarios, nil
}

// StepConfig resolves a step into a full run config.
func (step ScenarioStep) StepConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if step.Preset != "" {
		cfg = config.GetPreset(step.Scene, step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q for scene %q", step.Preset, step.Scene)
		}
	}
	cfg.Scene = step.Scene
	if step.Duration > 0 {
		cfg.Duration = step.Duration
	}
	if step.Dt > 0 {
		cfg.Dt = step.Dt
	}
	cfg.Seed = step.Seed

	keys := make([]string, 0, len(step.Set))
	for k := range step.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := cfg.Set(k, step.Set[k]); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

type StepResult struct {
	Step   int
	Config *config.Config
	Result *sim.Result
	RunID  string
}

// RunScenario executes all steps in a scenario
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, opts Options) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.StepConfig()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg)
		if err := exp.Setup(registry); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Step: i + 1, Config: cfg, Result: result}
		if opts.Store != nil && step.SaveAs != "" {
			meta := Metadata(cfg, step.Preset, len(exp.World().Bodies()))
			meta.ID = step.SaveAs
			if sr.RunID, err = opts.Store.Save(meta, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
		opts.report(i+1, len(scenario.Steps), cfg.Scene)
	}

	return results, nil
}

// Metadata describes a run of cfg for the run store.
func Metadata(cfg *config.Config, preset string, bodies int) storage.RunMetadata {
	return storage.RunMetadata{
		Scene:              cfg.Scene,
		Preset:             preset,
		Seed:               cfg.Seed,
		Dt:                 cfg.Dt,
		Duration:           cfg.Duration,
		RecordEvery:        cfg.RecordEvery,
		PositionCorrection: string(cfg.Physics.Solver.PositionCorrection),
		VelocityIterations: cfg.Physics.Solver.VelocityIterations,
		PositionIterations: cfg.Physics.Solver.PositionIterations,
		Workers:            cfg.Physics.Workers,
		Bodies:             bodies,
	}
}

// ParameterSweep varies one dotted config path over Values, or over NumSteps
// evenly spaced values from ParamMin to ParamMax.
type ParameterSweep struct {
	Scene     string    `yaml:"scene"`
	Preset    string    `yaml:"preset"`
	ParamName string    `yaml:"param"`
	ParamMin  float64   `yaml:"min"`
	ParamMax  float64   `yaml:"max"`
	NumSteps  int       `yaml:"steps"`
	Values    []float64 `yaml:"values"`
	Seeds     int       `yaml:"seeds"`
	Duration  float64   `yaml:"duration"`
	Dt        float64   `yaml:"dt"`
}

func LoadSweep(path string) (*ParameterSweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sweep ParameterSweep
	if err := yaml.Unmarshal(data, &sweep); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &sweep, nil
}

// ParamValues lists the values the sweep visits.
func (s *ParameterSweep) ParamValues() []float64 {
	if len(s.Values) > 0 {
		return s.Values
	}
	if s.NumSteps <= 1 {
		return []float64{s.ParamMin}
	}
	step := (s.ParamMax - s.ParamMin) / float64(s.NumSteps-1)
	out := make([]float64, s.NumSteps)
	for i := range out {
		out[i] = s.ParamMin + float64(i)*step
	}
	return out
}

// SweepResult holds the metrics of one parameter value, averaged over seeds
type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	PerSeed    []map[string]float64
}

// RunSweep executes a parameter sweep, running every value over Seeds
// consecutive seeds in parallel.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, opts Options) ([]SweepResult, error) {
	s, err := registry.GetScene(sweep.Scene)
	if err != nil {
		return nil, err
	}
	seeds := max(sweep.Seeds, 1)
	values := sweep.ParamValues()
	results := make([]SweepResult, 0, len(values))

	for i, v := range values {
		step := ScenarioStep{
			Scene:    sweep.Scene,
			Preset:   sweep.Preset,
			Duration: sweep.Duration,
			Dt:       sweep.Dt,
			Set:      map[string]any{sweep.ParamName: v},
		}
		cfg, err := step.StepConfig()
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, v, err)
		}

		build := func(seed int64) (*world.World, error) {
			c := *cfg
			c.Seed = seed
			return s.New(&c)
		}
		runs, err := sim.NewEnsemble(registry.MetricsFactory(sweep.Scene), seeds, 0).Run(ctx, build, sim.FromConfig(cfg))
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, v, err)
		}

		sr := SweepResult{ParamValue: v, Metrics: make(map[string]float64)}
		for _, r := range runs {
			sr.PerSeed = append(sr.PerSeed, r.Metrics)
			for k, m := range r.Metrics {
				sr.Metrics[k] += m / float64(len(runs))
			}
		}
		results = append(results, sr)
		opts.report(i+1, len(values), fmt.Sprintf("%s=%g", sweep.ParamName, v))
	}

	return results, nil
}

// MonteCarloConfig defines Monte Carlo simulation parameters
type MonteCarloConfig struct {
	Scene string
	// Perturbation is the largest random velocity kick per axis.
	Perturbation float64
	NumTrials    int
	Duration     float64
	Dt           float64
	Seed         int64
	// MaxSpeed marks a trial unstable when any body ends faster than it.
	MaxSpeed float64
}

// MonteCarloResult holds statistics from Monte Carlo runs
type MonteCarloResult struct {
	TrialID    int
	FinalSpeed float64
	Stable     bool
}

// RunMonteCarlo kicks every dynamic body of the scene with a random
// velocity and checks that the run stays bounded.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry, opts Options) ([]MonteCarloResult, error) {
	s, err := registry.GetScene(cfg.Scene)
	if err != nil {
		return nil, err
	}
	limit := cfg.MaxSpeed
	if limit <= 0 {
		limit = 1e3
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	for trial := 0; trial < cfg.NumTrials; trial++ {
		runCfg := config.DefaultConfig()
		runCfg.Scene = cfg.Scene
		runCfg.Seed = cfg.Seed + int64(trial)
		if cfg.Duration > 0 {
			runCfg.Duration = cfg.Duration
		}
		if cfg.Dt > 0 {
			runCfg.Dt = cfg.Dt
		}
		runCfg.ValidateState = true

		w, err := s.New(runCfg)
		if err != nil {
			return results, err
		}
		for _, b := range w.Bodies() {
			if !b.IsDynamic() {
				continue
			}
			kick := mgl64.Vec3{
				(rng.Float64() - 0.5) * 2 * cfg.Perturbation,
				(rng.Float64() - 0.5) * 2 * cfg.Perturbation,
				(rng.Float64() - 0.5) * 2 * cfg.Perturbation,
			}
			b.SetLinearVelocity(b.LinearVelocity().Add(kick))
		}

		result, err := sim.New().Run(ctx, w, sim.FromConfig(runCfg))
		if err != nil {
			return results, err
		}

		final := result.Samples[len(result.Samples)-1].MaxSpeed
		results = append(results, MonteCarloResult{
			TrialID:    trial,
			FinalSpeed: final,
			Stable:     len(result.Errors) == 0 && final < limit && !math.IsNaN(final),
		})
		opts.report(trial+1, cfg.NumTrials, cfg.Scene)
	}

	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
