package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/joint"
	"github.com/san-kum/impulse/internal/world"
)

func run(t *testing.T, w *world.World, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		if err := w.Step(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuiltinScenes(t *testing.T) {
	tests := []struct {
		name   string
		bodies int
		joints int
	}{
		{"rest", 3, 0},
		{"stack", 6, 0},
		{"pyramid", 22, 0},
		{"rain", 61, 0},
		{"pendulum", 6, 5},
		{"motor", 4, 2},
		{"sleepers", 27, 0},
		{"servo", 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Scene = tt.name
			w, err := Build(cfg)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if got := len(w.Bodies()); got != tt.bodies {
				t.Errorf("expected %d bodies, got %d", tt.bodies, got)
			}
			if got := len(w.Joints()); got != tt.joints {
				t.Errorf("expected %d joints, got %d", tt.joints, got)
			}
			run(t, w, 30)
			if err := w.BroadPhase().Tree().Validate(); err != nil {
				t.Errorf("tree invalid after stepping: %v", err)
			}
		})
	}
}

func TestEveryRegisteredSceneHasMetrics(t *testing.T) {
	for _, name := range Names() {
		s, err := Get(name)
		if err != nil {
			t.Fatal(err)
		}
		if len(s.Metrics) == 0 || s.Description == "" {
			t.Errorf("%s: missing metrics or description", name)
		}
	}
}

func TestUnknownScene(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scene = "nope"
	if _, err := Build(cfg); !errors.Is(err, ErrUnknownScene) {
		t.Errorf("expected ErrUnknownScene, got %v", err)
	}
}

func TestRainIsSeeded(t *testing.T) {
	positions := func(seed int64) []float64 {
		cfg := config.DefaultConfig()
		cfg.Scene = "rain"
		cfg.Seed = seed
		w, err := Build(cfg)
		if err != nil {
			t.Fatal(err)
		}
		var out []float64
		for _, b := range w.Bodies() {
			out = append(out, b.Position().X(), b.Position().Z())
		}
		return out
	}

	a, b, c := positions(7), positions(7), positions(8)
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different layouts at %d", i)
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds gave the same layout")
	}
}

func TestLoadFile(t *testing.T) {
	f, err := LoadFile("testdata/seesaw.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Name != "seesaw" || len(f.Bodies) != 4 || len(f.Joints) != 1 {
		t.Fatalf("unexpected file contents: %+v", f)
	}

	w, err := f.Scene().New(config.DefaultConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	plank := w.Bodies()[2]
	if !plank.IsDynamic() {
		t.Fatal("plank should default to dynamic")
	}
	hinge, ok := w.Joints()[0].(*joint.HingeJoint)
	if !ok {
		t.Fatalf("expected a hinge, got %T", w.Joints()[0])
	}

	run(t, w, 120)
	limit := 20 * math.Pi / 180
	if a := hinge.Angle(); a > limit+0.05 || a < -limit-0.05 {
		t.Errorf("hinge angle %v escaped its limit", a)
	}
	if plank.Position().Sub(hinge.AnchorA()).Len() > 0.05 {
		t.Errorf("plank drifted off its hinge: %v", plank.Position())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "bodies: []"},
		{"bad type", "name: x\nbodies:\n  - type: floating"},
		{"two geometries", "name: x\nbodies:\n  - shapes:\n      - sphere: 1\n        box: [1, 1, 1]"},
		{"no geometry", "name: x\nbodies:\n  - shapes:\n      - density: 2"},
		{"flat box", "name: x\nbodies:\n  - shapes:\n      - box: [1, 0, 1]"},
		{"joint range", "name: x\nbodies:\n  - {}\njoints:\n  - {type: ball, a: 0, b: 1}"},
		{"self joint", "name: x\nbodies:\n  - {}\n  - {}\njoints:\n  - {type: ball, a: 1, b: 1}"},
		{"hinge axis", "name: x\nbodies:\n  - {}\n  - {}\njoints:\n  - {type: hinge, a: 0, b: 1}"},
		{"joint type", "name: x\nbodies:\n  - {}\n  - {}\njoints:\n  - {type: slider, a: 0, b: 1}"},
		{"syntax", "name: [x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalidScene) {
				t.Errorf("expected ErrInvalidScene, got %v", err)
			}
		})
	}
}

func TestBuildValidatesFile(t *testing.T) {
	tests := []struct {
		name string
		file File
	}{
		{"bad type", File{Name: "x", Bodies: []BodySpec{{Type: "floating"}}}},
		{"joint range", File{Name: "x", Bodies: []BodySpec{{}}, Joints: []JointSpec{{Type: "ball", A: 0, B: 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := world.New(config.DefaultPhysics())
			if err != nil {
				t.Fatal(err)
			}
			if err := tt.file.Build(w, nil); !errors.Is(err, ErrInvalidScene) {
				t.Errorf("expected ErrInvalidScene, got %v", err)
			}
			if len(w.Bodies()) != 0 {
				t.Errorf("rejected file added %d bodies", len(w.Bodies()))
			}
		})
	}
}

func BenchmarkPyramidStep(b *testing.B) {
	cfg := config.DefaultConfig()
	cfg.Scene = "pyramid"
	w, err := Build(cfg)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := w.Step(1.0 / 60); err != nil {
			b.Fatal(err)
		}
	}
}
