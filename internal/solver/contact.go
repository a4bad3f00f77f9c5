package solver

import (
	"math"

	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/manifold"
)

type contactRow struct {
	point    *manifold.Point
	normal   jacobian
	tangent  jacobian
	binormal jacobian
	rhs      float64
}

// ContactSolver solves the non-penetration and friction rows of one manifold.
type ContactSolver struct {
	A, B        *body.RigidBody
	Manifold    *manifold.Manifold
	Friction    float64
	Restitution float64

	cfg   config.Contact
	rows  [manifold.MaxPoints]contactRow
	count int

	// NormalImpulse is the total normal impulse applied in the last step.
	NormalImpulse float64
}

func NewContactSolver(a, b *body.RigidBody, m *manifold.Manifold, friction, restitution float64, cfg config.Contact) *ContactSolver {
	return &ContactSolver{
		A:           a,
		B:           b,
		Manifold:    m,
		Friction:    friction,
		Restitution: restitution,
		cfg:         cfg,
	}
}

func (c *ContactSolver) sealed() {}

// Rows is the number of active rows built by the last pre-solve.
func (c *ContactSolver) Rows() int { return c.count }

func (c *ContactSolver) PreSolveVelocity(step TimeStep) {
	m := c.Manifold
	c.count = 0
	for i := 0; i < m.Count; i++ {
		p := &m.Points[i]
		if p.Disabled {
			continue
		}
		r := &c.rows[c.count]
		c.count++
		r.point = p

		r.normal.setLinear(m.Normal, p.RelA, p.RelB)
		r.tangent.setLinear(m.Tangent, p.RelA, p.RelB)
		r.binormal.setLinear(m.Binormal, p.RelA, p.RelB)
		r.normal.build(c.A, c.B, 0)
		r.tangent.build(c.A, c.B, 0)
		r.binormal.build(c.A, c.B, 0)

		r.rhs = c.velocityRHS(p, r.normal.velocity(c.A, c.B), step)
	}
}

// velocityRHS is the target normal velocity: restitution for fresh impacts
// and, in baumgarte mode, a floor that pushes penetration out over time.
// Points that were warm started are resting and never bounce.
func (c *ContactSolver) velocityRHS(p *manifold.Point, vn float64, step TimeStep) float64 {
	rhs := 0.0
	if vn < -c.cfg.BounceThreshold && !p.WarmStarted {
		rhs = -vn * c.Restitution
	}
	if step.Correction == config.CorrectionBaumgarte && p.Depth > c.cfg.LinearSlop {
		if floor := (p.Depth - c.cfg.LinearSlop) * c.cfg.VelocityBaumgarte * step.InvDt; floor > rhs {
			rhs = floor
		}
	}
	return rhs
}

func (c *ContactSolver) WarmStart(step TimeStep) {
	for i := 0; i < c.count; i++ {
		r := &c.rows[i]
		p := r.point
		if !step.WarmStarting {
			p.ClearImpulses()
			continue
		}
		p.NormalImpulse *= step.DtRatio
		p.TangentImpulse *= step.DtRatio
		p.BinormalImpulse *= step.DtRatio

		r.normal.apply(c.A, c.B, p.NormalImpulse)
		r.tangent.apply(c.A, c.B, p.TangentImpulse)
		r.binormal.apply(c.A, c.B, p.BinormalImpulse)
	}
}

func (c *ContactSolver) SolveVelocity() {
	for i := 0; i < c.count; i++ {
		r := &c.rows[i]
		p := r.point

		// friction, bounded by a circular cone around last iteration's normal impulse
		limit := c.Friction * p.NormalImpulse
		oldT, oldB := p.TangentImpulse, p.BinormalImpulse
		newT := oldT - r.tangent.velocity(c.A, c.B)*r.tangent.mass
		newB := oldB - r.binormal.velocity(c.A, c.B)*r.binormal.mass
		if sq := newT*newT + newB*newB; sq > limit*limit {
			scale := 0.0
			if sq > 0 {
				scale = limit / math.Sqrt(sq)
			}
			newT *= scale
			newB *= scale
		}
		p.TangentImpulse, p.BinormalImpulse = newT, newB
		r.tangent.apply(c.A, c.B, newT-oldT)
		r.binormal.apply(c.A, c.B, newB-oldB)

		old := p.NormalImpulse
		next := math.Max(old+(r.rhs-r.normal.velocity(c.A, c.B))*r.normal.mass, 0)
		p.NormalImpulse = next
		r.normal.apply(c.A, c.B, next-old)
	}
}

// PreSolvePosition rebuilds the normal rows against the integrated poses.
func (c *ContactSolver) PreSolvePosition(step TimeStep) {
	m := c.Manifold
	m.UpdateDepths(c.A.Transform(), c.B.Transform())
	c.count = 0
	for i := 0; i < m.Count; i++ {
		p := &m.Points[i]
		p.PositionImpulse = 0
		if p.Disabled {
			continue
		}
		r := &c.rows[c.count]
		c.count++
		r.point = p
		r.normal.setLinear(m.Normal, p.RelA, p.RelB)
		r.normal.build(c.A, c.B, 0)
		r.rhs = math.Max(p.Depth-c.cfg.LinearSlop, 0) * c.cfg.SplitImpulseBaumgarte
	}
}

func (c *ContactSolver) SolvePositionSplitImpulse() {
	for i := 0; i < c.count; i++ {
		r := &c.rows[i]
		p := r.point
		old := p.PositionImpulse
		next := math.Max(old+(r.rhs-r.normal.pseudoVelocity(c.A, c.B))*r.normal.mass, 0)
		p.PositionImpulse = next
		r.normal.applyPseudo(c.A, c.B, next-old)
	}
}

// SolvePositionNgs re-reads depths from the current poses every iteration
// and nudges the poses directly.
func (c *ContactSolver) SolvePositionNgs(step TimeStep) {
	m := c.Manifold
	m.UpdateDepths(c.A.Transform(), c.B.Transform())
	for i := 0; i < m.Count; i++ {
		p := &m.Points[i]
		var j jacobian
		j.setLinear(m.Normal, p.RelA, p.RelB)
		j.build(c.A, c.B, 0)

		rhs := math.Min((p.Depth-c.cfg.LinearSlop)*c.cfg.NgsBaumgarte, c.cfg.MaxNgsCorrection)
		old := p.PositionImpulse
		next := math.Max(old+rhs*j.mass, 0)
		p.PositionImpulse = next
		j.applyPosition(c.A, c.B, next-old)
	}
}

func (c *ContactSolver) PostSolve(step TimeStep) {
	c.NormalImpulse = c.Manifold.TotalNormalImpulse()
}
