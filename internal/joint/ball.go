package joint

import (
	"github.com/san-kum/impulse/internal/solver"
)

// BallJoint pins two anchors together and leaves rotation free.
type BallJoint struct {
	base
	impulses [3]solver.JointImpulse
}

func NewBall(cfg Config) (*BallJoint, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &BallJoint{base: base{cfg: cfg}}, nil
}

func (j *BallJoint) Type() Type { return Ball }

func (j *BallJoint) SyncAnchors() { j.syncAnchors() }

func (j *BallJoint) VelocitySolverInfo(step solver.TimeStep, info *solver.JointSolverInfo) {
	j.linearRows(info, &j.impulses, true)
}

func (j *BallJoint) PositionSolverInfo(info *solver.JointSolverInfo) {
	j.linearRows(info, &j.impulses, false)
}

func (j *BallJoint) CheckDestruction(step solver.TimeStep) bool {
	j.force = linearImpulse(&j.impulses).Mul(step.InvDt)
	return exceeds(j.force, j.cfg.BreakForce)
}
