package metrics

import (
	"math"

	"github.com/san-kum/impulse/internal/sim"
	"github.com/san-kum/impulse/internal/world"
)

// MaxPenetration is the deepest contact seen during the run.
type MaxPenetration struct {
	name string
	max  float64
}

func NewMaxPenetration() *MaxPenetration {
	return &MaxPenetration{name: "max_penetration"}
}

func (m *MaxPenetration) Name() string { return m.name }

func (m *MaxPenetration) Observe(w *world.World, s sim.Sample) {
	m.max = math.Max(m.max, s.MaxDepth)
}

func (m *MaxPenetration) Value() float64 { return m.max }
func (m *MaxPenetration) Reset()         { m.max = 0 }

// ContactImpulse is the mean total normal impulse per step.
type ContactImpulse struct {
	name    string
	sum     float64
	samples int
}

func NewContactImpulse() *ContactImpulse {
	return &ContactImpulse{name: "contact_impulse"}
}

func (c *ContactImpulse) Name() string { return c.name }

func (c *ContactImpulse) Observe(w *world.World, s sim.Sample) {
	c.sum += s.NormalImpulse
	c.samples++
}

func (c *ContactImpulse) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ContactImpulse) Reset() {
	c.sum = 0
	c.samples = 0
}
