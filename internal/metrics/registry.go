package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/impulse/internal/sim"
)

// DefaultRestSpeed is the speed below which a body counts as resting.
const DefaultRestSpeed = 0.05

var factories = map[string]func() sim.Metric{
	"kinetic_energy":  func() sim.Metric { return NewKineticEnergy() },
	"energy_drift":    func() sim.Metric { return NewEnergyDrift() },
	"max_penetration": func() sim.Metric { return NewMaxPenetration() },
	"rest_stability":  func() sim.Metric { return NewRestStability(DefaultRestSpeed) },
	"contact_impulse": func() sim.Metric { return NewContactImpulse() },
	"sleep_ratio":     func() sim.Metric { return NewSleepRatio() },
}

// New builds the named metric.
func New(name string) (sim.Metric, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return f(), nil
}

// Build builds every named metric, failing on the first unknown name.
func Build(names []string) ([]sim.Metric, error) {
	out := make([]sim.Metric, 0, len(names))
	for _, n := range names {
		m, err := New(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
