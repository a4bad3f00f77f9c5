// Package solver implements the projected Gauss-Seidel (sequential impulse)
// solver for contacts and joints, and the per-island step that drives it.
package solver

// ConstraintSolver is implemented by ContactSolver and JointSolver only.
//
// Per step the island calls, in order: PreSolveVelocity, WarmStart,
// SolveVelocity (N times), then after position integration
// PreSolvePosition, SolvePositionSplitImpulse or SolvePositionNgs
// (M times), and finally PostSolve.
type ConstraintSolver interface {
	PreSolveVelocity(step TimeStep)
	WarmStart(step TimeStep)
	SolveVelocity()
	PreSolvePosition(step TimeStep)
	SolvePositionSplitImpulse()
	SolvePositionNgs(step TimeStep)
	PostSolve(step TimeStep)

	sealed()
}
