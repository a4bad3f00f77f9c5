package solver

import (
	"math"

	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/config"
)

// Joint is the contract a joint type fulfils for the solver.
type Joint interface {
	Bodies() (a, b *body.RigidBody)
	// SyncAnchors refreshes world anchors and axes from the body poses.
	SyncAnchors()
	// VelocitySolverInfo appends this step's velocity rows.
	VelocitySolverInfo(step TimeStep, info *JointSolverInfo)
	// PositionSolverInfo appends position rows; each row's Error is the
	// positional error to remove.
	PositionSolverInfo(info *JointSolverInfo)
	WarmStartingFactor() float64
	// CheckDestruction reports whether the joint broke this step.
	CheckDestruction(step TimeStep) bool
}

// JointSolver runs a Joint's rows through the PGS iterations.
type JointSolver struct {
	Joint Joint

	cfg  config.Contact
	info JointSolverInfo
	jac  []jacobian

	// Broken is set by PostSolve when the joint exceeded its break limits.
	Broken bool
}

func NewJointSolver(j Joint, cfg config.Contact) *JointSolver {
	return &JointSolver{Joint: j, cfg: cfg}
}

func (s *JointSolver) sealed() {}

func (s *JointSolver) prepare(withCfm bool) {
	if cap(s.jac) < len(s.info.Rows) {
		s.jac = make([]jacobian, len(s.info.Rows))
	}
	s.jac = s.jac[:len(s.info.Rows)]
	for i := range s.info.Rows {
		row := &s.info.Rows[i]
		cfm := 0.0
		if withCfm {
			cfm = row.CFM
		}
		s.jac[i].setRow(row)
		s.jac[i].build(s.info.A, s.info.B, cfm)
	}
}

func (s *JointSolver) PreSolveVelocity(step TimeStep) {
	a, b := s.Joint.Bodies()
	s.info.Reset(a, b)
	s.Joint.SyncAnchors()
	s.Joint.VelocitySolverInfo(step, &s.info)
	if step.Correction == config.CorrectionBaumgarte {
		for i := range s.info.Rows {
			s.info.Rows[i].RHS += s.info.Rows[i].Error * step.Baumgarte * step.InvDt
		}
	}
	s.prepare(true)
}

func (s *JointSolver) WarmStart(step TimeStep) {
	factor := s.Joint.WarmStartingFactor() * step.DtRatio
	if !step.WarmStarting {
		factor = 0
	}
	for i := range s.info.Rows {
		imp := s.info.Rows[i].Impulse
		imp.Impulse *= factor
		imp.MotorImpulse *= factor
		s.jac[i].apply(s.info.A, s.info.B, imp.Impulse+imp.MotorImpulse)
	}
}

func (s *JointSolver) SolveVelocity() {
	a, b := s.info.A, s.info.B

	for i := range s.info.Rows {
		row := &s.info.Rows[i]
		if row.MotorMaxImpulse <= 0 {
			continue
		}
		j := &s.jac[i]
		imp := row.Impulse
		old := imp.MotorImpulse
		next := clamp(old+(row.MotorSpeed-j.velocity(a, b))*j.massNoCfm, -row.MotorMaxImpulse, row.MotorMaxImpulse)
		imp.MotorImpulse = next
		j.apply(a, b, next-old)
	}

	for i := range s.info.Rows {
		row := &s.info.Rows[i]
		j := &s.jac[i]
		imp := row.Impulse
		old := imp.Impulse
		d := (row.RHS - j.velocity(a, b) - imp.Impulse*row.CFM) * j.mass
		next := clamp(old+d, row.MinImpulse, row.MaxImpulse)
		imp.Impulse = next
		j.apply(a, b, next-old)
	}
}

func (s *JointSolver) PreSolvePosition(step TimeStep) {
	s.rebuildPosition()
	for i := range s.info.Rows {
		s.info.Rows[i].Impulse.PositionImpulse = 0
	}
}

func (s *JointSolver) rebuildPosition() {
	a, b := s.Joint.Bodies()
	s.info.Reset(a, b)
	s.Joint.SyncAnchors()
	s.Joint.PositionSolverInfo(&s.info)
	s.prepare(false)
}

func (s *JointSolver) SolvePositionSplitImpulse() {
	a, b := s.info.A, s.info.B
	for i := range s.info.Rows {
		row := &s.info.Rows[i]
		j := &s.jac[i]
		imp := row.Impulse
		rhs := row.Error * s.cfg.SplitImpulseBaumgarte
		old := imp.PositionImpulse
		next := clamp(old+(rhs-j.pseudoVelocity(a, b))*j.massNoCfm, row.MinImpulse, row.MaxImpulse)
		imp.PositionImpulse = next
		j.applyPseudo(a, b, next-old)
	}
}

// SolvePositionNgs rebuilds the rows from the current poses and nudges them.
func (s *JointSolver) SolvePositionNgs(step TimeStep) {
	s.rebuildPosition()
	a, b := s.info.A, s.info.B
	for i := range s.info.Rows {
		row := &s.info.Rows[i]
		j := &s.jac[i]
		imp := row.Impulse
		rhs := clamp(row.Error*s.cfg.NgsBaumgarte, -s.cfg.MaxNgsCorrection, s.cfg.MaxNgsCorrection)
		old := imp.PositionImpulse
		next := clamp(old+rhs*j.massNoCfm, row.MinImpulse, row.MaxImpulse)
		imp.PositionImpulse = next
		j.applyPosition(a, b, next-old)
	}
}

func (s *JointSolver) PostSolve(step TimeStep) {
	if s.Joint.CheckDestruction(step) {
		s.Broken = true
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
