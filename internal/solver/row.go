package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/config"
)

// TimeStep describes the step being solved.
type TimeStep struct {
	Dt    float64
	InvDt float64
	// DtRatio is this step's dt over the previous one; warm-start impulses
	// are scaled by it.
	DtRatio      float64
	WarmStarting bool
	Correction   config.PositionCorrection
	// Baumgarte is the velocity-level error reduction used in baumgarte mode.
	Baumgarte float64
}

func NewTimeStep(dt, prevDt float64, cfg config.Physics) TimeStep {
	ts := TimeStep{
		Dt:           dt,
		DtRatio:      1,
		WarmStarting: cfg.Solver.WarmStarting,
		Correction:   cfg.Solver.PositionCorrection,
		Baumgarte:    cfg.Contact.VelocityBaumgarte,
	}
	if dt > 0 {
		ts.InvDt = 1 / dt
	}
	if prevDt > 0 {
		ts.DtRatio = dt / prevDt
	}
	return ts
}

// JointImpulse holds a row's accumulated impulses across steps.
type JointImpulse struct {
	Impulse         float64
	MotorImpulse    float64
	PositionImpulse float64
}

func (ji *JointImpulse) Clear() {
	*ji = JointImpulse{}
}

// Row is one Jacobian row. Jv = LinA·vA + AngA·ωA + LinB·vB + AngB·ωB.
type Row struct {
	LinA mgl64.Vec3
	AngA mgl64.Vec3
	LinB mgl64.Vec3
	AngB mgl64.Vec3

	RHS float64
	// Error is the positional error the row corrects. Velocity rows feed
	// it to baumgarte stabilization, position rows to the position solve.
	Error float64
	CFM   float64

	MinImpulse float64
	MaxImpulse float64

	MotorSpeed      float64
	MotorMaxImpulse float64

	Impulse *JointImpulse
}

// JointSolverInfo is the row set a joint hands to the solver each step.
type JointSolverInfo struct {
	A    *body.RigidBody
	B    *body.RigidBody
	Rows []Row
}

func (info *JointSolverInfo) Reset(a, b *body.RigidBody) {
	info.A = a
	info.B = b
	info.Rows = info.Rows[:0]
}

// AddRow appends an unbounded row bound to impulse. The pointer is valid
// until the next AddRow.
func (info *JointSolverInfo) AddRow(impulse *JointImpulse) *Row {
	info.Rows = append(info.Rows, Row{
		MinImpulse: math.Inf(-1),
		MaxImpulse: math.Inf(1),
		Impulse:    impulse,
	})
	return &info.Rows[len(info.Rows)-1]
}

// SetLinear fills a row constraining the relative velocity of two anchors
// along dir. rA and rB are the anchors relative to the body origins.
func (r *Row) SetLinear(dir, rA, rB mgl64.Vec3) {
	r.LinA = dir.Mul(-1)
	r.AngA = rA.Cross(dir).Mul(-1)
	r.LinB = dir
	r.AngB = rB.Cross(dir)
}

// SetAngular fills a row constraining relative angular velocity about axis.
func (r *Row) SetAngular(axis mgl64.Vec3) {
	r.LinA = mgl64.Vec3{}
	r.AngA = axis.Mul(-1)
	r.LinB = mgl64.Vec3{}
	r.AngB = axis
}

// jacobian is a row with the velocity change per unit impulse precomputed.
type jacobian struct {
	linA, angA, linB, angB     mgl64.Vec3
	dLinA, dAngA, dLinB, dAngB mgl64.Vec3
	// mass is the effective mass including cfm, massNoCfm without it.
	mass      float64
	massNoCfm float64
}

func (j *jacobian) setLinear(dir, rA, rB mgl64.Vec3) {
	j.linA = dir.Mul(-1)
	j.angA = rA.Cross(dir).Mul(-1)
	j.linB = dir
	j.angB = rB.Cross(dir)
}

func (j *jacobian) setRow(r *Row) {
	j.linA, j.angA, j.linB, j.angB = r.LinA, r.AngA, r.LinB, r.AngB
}

func (j *jacobian) build(a, b *body.RigidBody, cfm float64) {
	j.dLinA = j.linA.Mul(a.InvMass())
	j.dAngA = a.InvInertia().Mul3x1(j.angA)
	j.dLinB = j.linB.Mul(b.InvMass())
	j.dAngB = b.InvInertia().Mul3x1(j.angB)

	denom := j.linA.Dot(j.dLinA) + j.angA.Dot(j.dAngA) + j.linB.Dot(j.dLinB) + j.angB.Dot(j.dAngB)
	j.massNoCfm = invOrZero(denom)
	j.mass = invOrZero(denom + cfm)
}

func invOrZero(x float64) float64 {
	if x > 0 {
		return 1 / x
	}
	return 0
}

func (j *jacobian) velocity(a, b *body.RigidBody) float64 {
	return j.linA.Dot(a.LinearVelocity()) + j.angA.Dot(a.AngularVelocity()) +
		j.linB.Dot(b.LinearVelocity()) + j.angB.Dot(b.AngularVelocity())
}

func (j *jacobian) pseudoVelocity(a, b *body.RigidBody) float64 {
	la, aa := a.PseudoVelocity()
	lb, ab := b.PseudoVelocity()
	return j.linA.Dot(la) + j.angA.Dot(aa) + j.linB.Dot(lb) + j.angB.Dot(ab)
}

func (j *jacobian) apply(a, b *body.RigidBody, impulse float64) {
	a.ApplyVelocityDelta(j.dLinA.Mul(impulse), j.dAngA.Mul(impulse))
	b.ApplyVelocityDelta(j.dLinB.Mul(impulse), j.dAngB.Mul(impulse))
}

func (j *jacobian) applyPseudo(a, b *body.RigidBody, impulse float64) {
	a.ApplyPseudoDelta(j.dLinA.Mul(impulse), j.dAngA.Mul(impulse))
	b.ApplyPseudoDelta(j.dLinB.Mul(impulse), j.dAngB.Mul(impulse))
}

func (j *jacobian) applyPosition(a, b *body.RigidBody, impulse float64) {
	a.ApplyPositionDelta(j.dLinA.Mul(impulse), j.dAngA.Mul(impulse))
	b.ApplyPositionDelta(j.dLinB.Mul(impulse), j.dAngB.Mul(impulse))
}
