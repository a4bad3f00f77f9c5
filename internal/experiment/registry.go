package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/impulse/internal/metrics"
	"github.com/san-kum/impulse/internal/scene"
	"github.com/san-kum/impulse/internal/sim"
)

type Registry struct {
	scenes map[string]scene.Scene
}

// NewRegistry starts with every built-in scene.
func NewRegistry() *Registry {
	r := &Registry{scenes: make(map[string]scene.Scene)}
	for _, name := range scene.Names() {
		s, _ := scene.Get(name)
		r.scenes[name] = s
	}
	return r
}

// AddFile registers a YAML scene, replacing any scene of the same name.
func (r *Registry) AddFile(path string) (scene.Scene, error) {
	f, err := scene.LoadFile(path)
	if err != nil {
		return scene.Scene{}, err
	}
	s := f.Scene()
	r.scenes[s.Name] = s
	return s, nil
}

func (r *Registry) GetScene(name string) (scene.Scene, error) {
	s, ok := r.scenes[name]
	if !ok {
		return scene.Scene{}, fmt.Errorf("%w: %s", scene.ErrUnknownScene, name)
	}
	return s, nil
}

func (r *Registry) ListScenes() []string {
	names := make([]string, 0, len(r.scenes))
	for name := range r.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics builds the metrics a scene asks for, or every metric when
// it names none.
func (r *Registry) DefaultMetrics(name string) ([]sim.Metric, error) {
	s, err := r.GetScene(name)
	if err != nil {
		return nil, err
	}
	if len(s.Metrics) == 0 {
		return metrics.Build(metrics.Names())
	}
	return metrics.Build(s.Metrics)
}

// MetricsFactory returns a fresh-metrics constructor for ensemble runs.
func (r *Registry) MetricsFactory(name string) func() []sim.Metric {
	return func() []sim.Metric {
		ms, _ := r.DefaultMetrics(name)
		return ms
	}
}
