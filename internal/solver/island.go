package solver

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/config"
)

// Island is a set of dynamic bodies connected by constraints. Only its own
// bodies are written while it steps; static and kinematic bodies touched
// by its constraints are read only.
type Island struct {
	Bodies  []*body.RigidBody
	Solvers []ConstraintSolver
}

// IslandResult summarizes one island step.
type IslandResult struct {
	Bodies      int
	Constraints int
	Slept       bool
}

func (is *Island) Clear() {
	clear(is.Bodies)
	clear(is.Solvers)
	is.Bodies = is.Bodies[:0]
	is.Solvers = is.Solvers[:0]
}

func (is *Island) AddBody(b *body.RigidBody)    { is.Bodies = append(is.Bodies, b) }
func (is *Island) AddSolver(s ConstraintSolver) { is.Solvers = append(is.Solvers, s) }

// Step advances the island by one step: velocity integration, warm start,
// velocity iterations, position integration, position correction, post
// solve, then the sleep update.
func (is *Island) Step(step TimeStep, cfg config.Physics) IslandResult {
	gravity := mgl64.Vec3(cfg.Gravity)
	dt := step.Dt

	for _, b := range is.Bodies {
		b.IntegrateVelocity(dt, gravity, cfg.Integration)
	}

	for _, s := range is.Solvers {
		s.PreSolveVelocity(step)
	}
	for _, s := range is.Solvers {
		s.WarmStart(step)
	}
	for i := 0; i < cfg.Solver.VelocityIterations; i++ {
		for _, s := range is.Solvers {
			s.SolveVelocity()
		}
	}

	for _, b := range is.Bodies {
		b.Integrate(dt, cfg.Integration)
	}

	if len(is.Solvers) > 0 && cfg.Solver.PositionIterations > 0 {
		switch step.Correction {
		case config.CorrectionSplitImpulse:
			for _, s := range is.Solvers {
				s.PreSolvePosition(step)
			}
			for i := 0; i < cfg.Solver.PositionIterations; i++ {
				for _, s := range is.Solvers {
					s.SolvePositionSplitImpulse()
				}
			}
			for _, b := range is.Bodies {
				b.IntegratePseudoVelocity()
			}
		case config.CorrectionNGS:
			for _, s := range is.Solvers {
				s.PreSolvePosition(step)
			}
			for i := 0; i < cfg.Solver.PositionIterations; i++ {
				for _, s := range is.Solvers {
					s.SolvePositionNgs(step)
				}
			}
		}
	}

	for _, s := range is.Solvers {
		s.PostSolve(step)
	}
	for _, b := range is.Bodies {
		b.ClearForces()
	}

	res := IslandResult{Bodies: len(is.Bodies), Constraints: len(is.Solvers)}
	if cfg.Sleep.Enabled {
		res.Slept = is.updateSleep(dt, cfg.Sleep)
	}
	return res
}

// updateSleep advances each body's low-motion timer. The island sleeps as a
// unit once every body has been slow for long enough.
func (is *Island) updateSleep(dt float64, cfg config.Sleep) bool {
	ready := true
	for _, b := range is.Bodies {
		if b.AutoSleep && b.LowMotion(cfg.LinearThreshold, cfg.AngularThreshold) {
			b.AddSleepTime(dt)
		} else {
			b.ResetSleepTime()
		}
		if b.SleepTime() < cfg.TimeToSleep {
			ready = false
		}
	}
	if !ready || len(is.Bodies) == 0 {
		return false
	}
	for _, b := range is.Bodies {
		b.Sleep()
	}
	return true
}
