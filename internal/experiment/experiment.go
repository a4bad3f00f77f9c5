package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/sim"
	"github.com/san-kum/impulse/internal/world"
)

// Experiment wires one config to a scene world and a simulator.
type Experiment struct {
	cfg       *config.Config
	world     *world.World
	simulator *sim.Simulator
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup builds the configured scene and attaches its default metrics.
func (e *Experiment) Setup(reg *Registry) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	s, err := reg.GetScene(e.cfg.Scene)
	if err != nil {
		return err
	}
	w, err := s.New(e.cfg)
	if err != nil {
		return err
	}
	ms, err := reg.DefaultMetrics(e.cfg.Scene)
	if err != nil {
		return err
	}

	e.world = w
	e.simulator = sim.New()
	for _, m := range ms {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.world, sim.FromConfig(e.cfg))
}

func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) World() *world.World    { return e.world }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
