package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/experiment"
	"github.com/san-kum/impulse/internal/storage"
)

func TestLoadScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/batch.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(scenarios))
	}
	if len(scenarios[0].Steps) != 3 || scenarios[0].Steps[0].SaveAs != "stack-split" {
		t.Errorf("unexpected first scenario: %+v", scenarios[0])
	}
}

func TestLoadSingleScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.yaml")
	if err := os.WriteFile(path, []byte("name: one\nsteps:\n  - scene: rest\n"), 0644); err != nil {
		t.Fatal(err)
	}
	scenarios, err := LoadScenarios(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(scenarios) != 1 || scenarios[0].Name != "one" {
		t.Errorf("unexpected scenarios: %+v", scenarios)
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("name: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenarios(empty); !errors.Is(err, ErrEmptyScenario) {
		t.Errorf("expected ErrEmptyScenario, got %v", err)
	}
}

func TestStepConfig(t *testing.T) {
	tests := []struct {
		name    string
		step    ScenarioStep
		check   func(*config.Config) bool
		wantErr bool
	}{
		{
			name:  "preset",
			step:  ScenarioStep{Scene: "stack", Preset: "ngs"},
			check: func(c *config.Config) bool { return c.Physics.Solver.PositionCorrection == config.CorrectionNGS },
		},
		{
			name:  "override beats preset",
			step:  ScenarioStep{Scene: "stack", Preset: "ngs", Set: map[string]any{"physics.solver.position_correction": "baumgarte"}},
			check: func(c *config.Config) bool { return c.Physics.Solver.PositionCorrection == config.CorrectionBaumgarte },
		},
		{
			name:  "timing",
			step:  ScenarioStep{Scene: "rest", Duration: 2, Dt: 0.01, Seed: 9},
			check: func(c *config.Config) bool { return c.Duration == 2 && c.Dt == 0.01 && c.Seed == 9 },
		},
		{name: "unknown preset", step: ScenarioStep{Scene: "stack", Preset: "nope"}, wantErr: true},
		{name: "bad override", step: ScenarioStep{Scene: "stack", Set: map[string]any{"physics.bogus": 1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.step.StepConfig()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(cfg) {
				t.Errorf("unexpected config %+v", cfg)
			}
		})
	}
}

func TestRunScenario(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/batch.yaml")
	if err != nil {
		t.Fatal(err)
	}
	store := storage.New(t.TempDir())

	var progress []int
	opts := Options{Store: store, Progress: func(done, total int, label string) { progress = append(progress, done) }}
	results, err := RunScenario(context.Background(), scenarios[0], experiment.NewRegistry(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 3 || len(progress) != 3 {
		t.Fatalf("expected 3 results and 3 progress calls, got %d and %d", len(results), len(progress))
	}
	if results[0].RunID != "stack-split" || results[1].RunID != "" {
		t.Errorf("only the step with save_as should be stored: %q %q", results[0].RunID, results[1].RunID)
	}
	for i, r := range results {
		if r.Result.StepsTaken != 30 {
			t.Errorf("step %d: expected 30 steps, got %d", i+1, r.Result.StepsTaken)
		}
	}

	meta, err := store.Load("stack-split")
	if err != nil {
		t.Fatalf("stored run missing: %v", err)
	}
	if meta.PositionCorrection != "split_impulse" || meta.Bodies != 6 {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestRunScenarioStopsOnError(t *testing.T) {
	s := &Scenario{Name: "bad", Steps: []ScenarioStep{{Scene: "rest", Duration: 0.1}, {Scene: "nope"}}}
	results, err := RunScenario(context.Background(), s, experiment.NewRegistry(), Options{})
	if err == nil {
		t.Fatal("expected error for unknown scene")
	}
	if len(results) != 1 {
		t.Errorf("expected the first step to complete, got %d results", len(results))
	}
}

func TestParamValues(t *testing.T) {
	tests := []struct {
		name  string
		sweep ParameterSweep
		want  []float64
	}{
		{"range", ParameterSweep{ParamMin: 2, ParamMax: 10, NumSteps: 3}, []float64{2, 6, 10}},
		{"explicit", ParameterSweep{Values: []float64{1, 4}, NumSteps: 9}, []float64{1, 4}},
		{"single", ParameterSweep{ParamMin: 3, NumSteps: 1}, []float64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sweep.ParamValues()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRunSweep(t *testing.T) {
	sweep, err := LoadSweep("testdata/sweep.yaml")
	if err != nil {
		t.Fatal(err)
	}
	results, err := RunSweep(context.Background(), sweep, experiment.NewRegistry(), Options{})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 sweep points, got %d", len(results))
	}
	for _, r := range results {
		if len(r.PerSeed) != 2 {
			t.Errorf("%v: expected 2 seeds, got %d", r.ParamValue, len(r.PerSeed))
		}
		if _, ok := r.Metrics["max_penetration"]; !ok {
			t.Errorf("%v: missing max_penetration", r.ParamValue)
		}
	}
}

func TestRunMonteCarlo(t *testing.T) {
	cfg := &MonteCarloConfig{Scene: "rest", Perturbation: 1, NumTrials: 4, Duration: 0.5, Seed: 3}
	results, err := RunMonteCarlo(context.Background(), cfg, experiment.NewRegistry(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	stable, unstable := MonteCarloStats(results)
	if stable+unstable != 4 {
		t.Fatalf("expected 4 trials, got %d", stable+unstable)
	}
	if unstable != 0 {
		t.Errorf("small kicks should not blow up the rest scene: %+v", results)
	}
}
