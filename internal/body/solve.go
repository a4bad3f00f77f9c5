package body

import "github.com/go-gl/mathgl/mgl64"

// ApplyVelocityDelta adds raw velocity changes. Only dynamic bodies move.
func (b *RigidBody) ApplyVelocityDelta(lin, ang mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.vel = b.vel.Add(lin)
	b.angVel = b.angVel.Add(ang)
}

// ApplyPseudoDelta adds to the split-impulse position channel.
func (b *RigidBody) ApplyPseudoDelta(lin, ang mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.pseudoVel = b.pseudoVel.Add(lin)
	b.pseudoAng = b.pseudoAng.Add(ang)
}

// ApplyPositionDelta moves the pose directly, used by nonlinear position correction.
func (b *RigidBody) ApplyPositionDelta(lin, ang mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.Translate(lin)
	b.Rotate(ang)
}

func (b *RigidBody) PseudoVelocity() (lin, ang mgl64.Vec3) {
	return b.pseudoVel, b.pseudoAng
}

// ApplyImpulse applies an impulse at a world point and wakes the body.
func (b *RigidBody) ApplyImpulse(impulse, point mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	r := point.Sub(b.xf.Position)
	b.vel = b.vel.Add(impulse.Mul(b.invMass))
	b.angVel = b.angVel.Add(b.invInertia.Mul3x1(r.Cross(impulse)))
	b.WakeUp()
}

func (b *RigidBody) ApplyLinearImpulse(impulse mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.vel = b.vel.Add(impulse.Mul(b.invMass))
	b.WakeUp()
}

func (b *RigidBody) ApplyAngularImpulse(impulse mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.angVel = b.angVel.Add(b.invInertia.Mul3x1(impulse))
	b.WakeUp()
}

// ApplyForce accumulates a force at a world point until the next step.
func (b *RigidBody) ApplyForce(force, point mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(point.Sub(b.xf.Position).Cross(force))
	b.WakeUp()
}

func (b *RigidBody) ApplyForceToCenter(force mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.force = b.force.Add(force)
	b.WakeUp()
}

func (b *RigidBody) ApplyTorque(torque mgl64.Vec3) {
	if b.typ != Dynamic {
		return
	}
	b.torque = b.torque.Add(torque)
	b.WakeUp()
}
