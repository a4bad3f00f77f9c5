// Package scene builds named worlds: the built-in demo scenes and scenes
// described in YAML files.
package scene

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/world"
)

var (
	ErrUnknownScene = errors.New("scene: unknown scene")
	ErrInvalidScene = errors.New("scene: invalid scene description")
)

// Builder populates an empty world. rng is seeded from the run config.
type Builder func(w *world.World, rng *rand.Rand) error

type Scene struct {
	Name        string
	Description string
	Build       Builder
	// Metrics are the metric names worth reporting for this scene.
	Metrics []string
}

var registry = map[string]Scene{}

// Register adds or replaces a scene.
func Register(s Scene) {
	registry[s.Name] = s
}

func Get(name string) (Scene, error) {
	s, ok := registry[name]
	if !ok {
		return Scene{}, fmt.Errorf("%w: %s", ErrUnknownScene, name)
	}
	return s, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a world from cfg.Physics and builds the scene into it.
func (s Scene) New(cfg *config.Config) (*world.World, error) {
	w, err := world.New(cfg.Physics)
	if err != nil {
		return nil, err
	}
	if err := s.Build(w, rand.New(rand.NewSource(cfg.Seed))); err != nil {
		return nil, fmt.Errorf("build %s: %w", s.Name, err)
	}
	return w, nil
}

// Build looks up cfg.Scene and builds it.
func Build(cfg *config.Config) (*world.World, error) {
	s, err := Get(cfg.Scene)
	if err != nil {
		return nil, err
	}
	return s.New(cfg)
}
