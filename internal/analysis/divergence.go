package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/impulse/internal/world"
)

type DivergenceResult struct {
	Initial float64
	Final   float64
	Max     float64
	// Exponent is ln(Final/Initial) per second. A pile of bodies is
	// chaotic, so a large positive value is expected there.
	Exponent float64
}

// Divergence steps two copies of a scene, one of them perturbed, and
// measures how far apart the body positions drift.
func Divergence(build func() (*world.World, error), perturb func(*world.World), dt float64, steps int) (*DivergenceResult, error) {
	a, err := build()
	if err != nil {
		return nil, err
	}
	b, err := build()
	if err != nil {
		return nil, err
	}
	if len(a.Bodies()) != len(b.Bodies()) {
		return nil, fmt.Errorf("analysis: builds differ in body count")
	}
	perturb(b)

	res := &DivergenceResult{Initial: separation(a, b)}
	if res.Initial == 0 {
		return nil, fmt.Errorf("analysis: perturbation did not move any body")
	}
	for i := 0; i < steps; i++ {
		if err := a.Step(dt); err != nil {
			return nil, err
		}
		if err := b.Step(dt); err != nil {
			return nil, err
		}
		sep := separation(a, b)
		res.Max = math.Max(res.Max, sep)
		res.Final = sep
	}
	if steps > 0 && res.Final > 0 {
		res.Exponent = math.Log(res.Final/res.Initial) / (float64(steps) * dt)
	}
	return res, nil
}

func separation(a, b *world.World) float64 {
	sum := 0.0
	bb := b.Bodies()
	for i, body := range a.Bodies() {
		sum += body.Position().Sub(bb[i].Position()).LenSqr()
	}
	return math.Sqrt(sum)
}
