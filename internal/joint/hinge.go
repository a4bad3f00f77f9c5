package joint

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/solver"
)

// ErrZeroAxis indicates a hinge built with a zero-length axis.
var ErrZeroAxis = errors.New("joint: zero hinge axis")

// HingeConfig adds a rotation axis, an optional angle limit and a motor.
type HingeConfig struct {
	Config
	// LocalAxisA and LocalAxisB are the hinge axis in each body's frame.
	LocalAxisA mgl64.Vec3
	LocalAxisB mgl64.Vec3

	// The limit is active when LowerAngle <= UpperAngle.
	LowerAngle float64
	UpperAngle float64

	MotorSpeed     float64
	MaxMotorTorque float64
}

// NewHingeConfig hinges a and b about a world axis through a world anchor,
// with the limit and motor off.
func NewHingeConfig(a, b *body.RigidBody, anchor, axis mgl64.Vec3) HingeConfig {
	if axis.LenSqr() > 0 {
		axis = axis.Normalize()
	}
	return HingeConfig{
		Config:     NewConfig(a, b, anchor),
		LocalAxisA: a.Transform().InverseRotate(axis),
		LocalAxisB: b.Transform().InverseRotate(axis),
		LowerAngle: 1,
		UpperAngle: 0,
	}
}

// HingeJoint allows rotation about one axis only.
type HingeJoint struct {
	base

	axisA, axisB mgl64.Vec3
	refA, refB   mgl64.Vec3

	lower, upper   float64
	motorSpeed     float64
	maxMotorTorque float64

	a1, b1 mgl64.Vec3
	t1, t2 mgl64.Vec3
	angle  float64

	linear  [3]solver.JointImpulse
	angular [2]solver.JointImpulse
	axial   solver.JointImpulse
}

func NewHinge(cfg HingeConfig) (*HingeJoint, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.LocalAxisA.LenSqr() == 0 || cfg.LocalAxisB.LenSqr() == 0 {
		return nil, ErrZeroAxis
	}
	j := &HingeJoint{
		base:           base{cfg: cfg.Config},
		axisA:          cfg.LocalAxisA.Normalize(),
		axisB:          cfg.LocalAxisB.Normalize(),
		lower:          cfg.LowerAngle,
		upper:          cfg.UpperAngle,
		motorSpeed:     cfg.MotorSpeed,
		maxMotorTorque: cfg.MaxMotorTorque,
	}
	// angle zero is the pose at creation
	j.refA = perpendicular(j.axisA)
	worldRef := cfg.A.Transform().Rotate(j.refA)
	j.refB = cfg.B.Transform().InverseRotate(worldRef)
	j.SyncAnchors()
	return j, nil
}

func (j *HingeJoint) Type() Type { return Hinge }

// Angle is B's rotation relative to A about the hinge axis, in (-π, π].
func (j *HingeJoint) Angle() float64 { return j.angle }

func (j *HingeJoint) Axis() mgl64.Vec3 { return j.a1 }

func (j *HingeJoint) SetLimit(lower, upper float64) {
	j.lower, j.upper = lower, upper
	j.wake()
}

func (j *HingeJoint) SetMotor(speed, maxTorque float64) {
	j.motorSpeed, j.maxMotorTorque = speed, maxTorque
	j.wake()
}

func (j *HingeJoint) wake() {
	j.cfg.A.WakeUp()
	j.cfg.B.WakeUp()
}

func (j *HingeJoint) SyncAnchors() {
	j.syncAnchors()
	xa, xb := j.cfg.A.Transform(), j.cfg.B.Transform()
	j.a1 = xa.Rotate(j.axisA)
	j.b1 = xb.Rotate(j.axisB)
	j.t1 = perpendicular(j.a1)
	j.t2 = j.a1.Cross(j.t1)

	ra := xa.Rotate(j.refA)
	rb := xb.Rotate(j.refB)
	j.angle = math.Atan2(ra.Cross(rb).Dot(j.a1), ra.Dot(rb))
}

func (j *HingeJoint) VelocitySolverInfo(step solver.TimeStep, info *solver.JointSolverInfo) {
	j.linearRows(info, &j.linear, true)
	j.angularRows(info, true)

	active, err, lo, hi := j.limitState()
	motor := j.maxMotorTorque > 0
	if !active && !motor {
		j.axial.Clear()
		return
	}
	if !active {
		j.axial.Impulse = 0
		lo, hi = 0, 0
	}
	row := info.AddRow(&j.axial)
	row.SetAngular(j.a1)
	row.Error = err
	row.MinImpulse, row.MaxImpulse = lo, hi
	if motor {
		row.MotorSpeed = j.motorSpeed
		row.MotorMaxImpulse = j.maxMotorTorque * step.Dt
	} else {
		j.axial.MotorImpulse = 0
	}
}

func (j *HingeJoint) PositionSolverInfo(info *solver.JointSolverInfo) {
	j.linearRows(info, &j.linear, false)
	j.angularRows(info, false)
	if active, err, lo, hi := j.limitState(); active {
		row := info.AddRow(&j.axial)
		row.SetAngular(j.a1)
		row.Error = err
		row.MinImpulse, row.MaxImpulse = lo, hi
	}
}

// angularRows keep the two axes aligned. The error is the rotation that
// carries B's axis onto A's.
func (j *HingeJoint) angularRows(info *solver.JointSolverInfo, withCfm bool) {
	misalign := j.b1.Cross(j.a1)
	for i, t := range [2]mgl64.Vec3{j.t1, j.t2} {
		row := info.AddRow(&j.angular[i])
		row.SetAngular(t)
		row.Error = misalign.Dot(t)
		if withCfm {
			row.CFM = j.cfg.CFM
		}
	}
}

// limitState reports whether the angle limit binds, the angular error and
// the impulse bounds for the axial row.
func (j *HingeJoint) limitState() (bool, float64, float64, float64) {
	if j.lower > j.upper {
		return false, 0, 0, 0
	}
	inf := math.Inf(1)
	switch {
	case j.lower == j.upper:
		return true, j.lower - j.angle, -inf, inf
	case j.angle <= j.lower:
		return true, j.lower - j.angle, 0, inf
	case j.angle >= j.upper:
		return true, j.upper - j.angle, -inf, 0
	}
	return false, 0, 0, 0
}

func (j *HingeJoint) CheckDestruction(step solver.TimeStep) bool {
	j.force = linearImpulse(&j.linear).Mul(step.InvDt)
	torque := j.t1.Mul(j.angular[0].Impulse).
		Add(j.t2.Mul(j.angular[1].Impulse)).
		Add(j.a1.Mul(j.axial.Impulse + j.axial.MotorImpulse))
	j.torque = torque.Mul(step.InvDt)
	return exceeds(j.force, j.cfg.BreakForce) || exceeds(j.torque, j.cfg.BreakTorque)
}
