package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/config"
)

// IntegrateVelocity applies gravity, accumulated force and damping.
func (b *RigidBody) IntegrateVelocity(dt float64, gravity mgl64.Vec3, cfg config.Integration) {
	if b.typ != Dynamic {
		return
	}
	accel := gravity.Mul(b.GravityScale).Add(b.force.Mul(b.invMass))
	b.vel = b.vel.Add(accel.Mul(dt))
	b.angVel = b.angVel.Add(b.invInertia.Mul3x1(b.torque).Mul(dt))

	lin := b.LinearDamping + cfg.LinearDamping
	ang := b.AngularDamping + cfg.AngularDamping
	if lin > 0 {
		b.vel = b.vel.Mul(1 / (1 + dt*lin))
	}
	if ang > 0 {
		b.angVel = b.angVel.Mul(1 / (1 + dt*ang))
	}
}

func (b *RigidBody) ClearForces() {
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}

// Integrate advances the pose by one step of velocity. Per-step translation
// and rotation are capped; when a cap bites the velocity is scaled with it.
func (b *RigidBody) Integrate(dt float64, cfg config.Integration) {
	if b.typ == Static {
		return
	}
	translation := b.vel.Mul(dt)
	if l2 := translation.LenSqr(); cfg.MaxTranslation > 0 && l2 > cfg.MaxTranslation*cfg.MaxTranslation {
		scale := cfg.MaxTranslation / math.Sqrt(l2)
		b.vel = b.vel.Mul(scale)
		translation = translation.Mul(scale)
	}
	rotation := b.angVel.Mul(dt)
	if r2 := rotation.LenSqr(); cfg.MaxRotation > 0 && r2 > cfg.MaxRotation*cfg.MaxRotation {
		scale := cfg.MaxRotation / math.Sqrt(r2)
		b.angVel = b.angVel.Mul(scale)
		rotation = rotation.Mul(scale)
	}
	b.Translate(translation)
	b.Rotate(rotation)
}

// IntegratePseudoVelocity applies the split-impulse position channel, which
// holds displacements rather than rates, and clears it.
func (b *RigidBody) IntegratePseudoVelocity() {
	if b.pseudoVel.LenSqr() == 0 && b.pseudoAng.LenSqr() == 0 {
		return
	}
	b.Translate(b.pseudoVel)
	b.Rotate(b.pseudoAng)
	b.pseudoVel = mgl64.Vec3{}
	b.pseudoAng = mgl64.Vec3{}
}

func (b *RigidBody) Translate(d mgl64.Vec3) {
	b.xf.Position = b.xf.Position.Add(d)
}

// Rotate turns the body by a rotation vector (axis times angle).
func (b *RigidBody) Rotate(r mgl64.Vec3) {
	if r.LenSqr() == 0 {
		return
	}
	b.setRotation(quatExp(r).Mul(b.rot))
}

// quatExp maps a rotation vector to a unit quaternion. Below half a radian
// the sin/cos ratios come from their Maclaurin series.
func quatExp(r mgl64.Vec3) mgl64.Quat {
	theta := r.Len()
	h := theta * 0.5
	var s, c float64
	if theta < 0.5 {
		h2 := h * h
		// sin(h)/h and cos(h) to sixth order
		s = 0.5 * (1 - h2/6*(1-h2/20*(1-h2/42)))
		c = 1 - h2/2*(1-h2/12*(1-h2/30))
	} else {
		s = math.Sin(h) / theta
		c = math.Cos(h)
	}
	return mgl64.Quat{W: c, V: r.Mul(s)}
}

// orthonormalize re-orthogonalizes a rotation matrix by Gram-Schmidt over its columns.
func orthonormalize(m mgl64.Mat3) mgl64.Mat3 {
	x := m.Col(0).Normalize()
	y := m.Col(1)
	y = y.Sub(x.Mul(x.Dot(y))).Normalize()
	z := x.Cross(y)
	return mgl64.Mat3FromCols(x, y, z)
}
