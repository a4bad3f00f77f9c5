// Package joint provides the ball and hinge joints. Each one builds generic
// Jacobian rows for the solver; the solver knows nothing joint specific.
package joint

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/solver"
)

var (
	// ErrSameBody indicates a joint whose two ends are the same body.
	ErrSameBody = errors.New("joint: both ends on the same body")

	// ErrNilBody indicates a joint missing one of its bodies.
	ErrNilBody = errors.New("joint: nil body")
)

type Type int

const (
	Ball Type = iota
	Hinge
)

func (t Type) String() string {
	switch t {
	case Ball:
		return "ball"
	case Hinge:
		return "hinge"
	}
	return "unknown"
}

// Joint is what a world stores: a solver joint that is also a body edge.
type Joint interface {
	solver.Joint
	body.Edge
	Type() Type
	SetEdgeID(id int)
	CollideConnected() bool
	AnchorA() mgl64.Vec3
	AnchorB() mgl64.Vec3
	// AppliedForce and AppliedTorque are from the last solved step.
	AppliedForce() mgl64.Vec3
	AppliedTorque() mgl64.Vec3
}

// Config is shared by every joint type.
type Config struct {
	A, B *body.RigidBody
	// LocalAnchorA and LocalAnchorB are in each body's frame.
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3

	CollideConnected bool
	// BreakForce and BreakTorque of zero mean unbreakable.
	BreakForce  float64
	BreakTorque float64
	// CFM softens the equality rows.
	CFM                float64
	WarmStartingFactor float64
}

// NewConfig anchors both bodies at one world point.
func NewConfig(a, b *body.RigidBody, worldAnchor mgl64.Vec3) Config {
	return Config{
		A:                  a,
		B:                  b,
		LocalAnchorA:       a.Transform().ApplyInverse(worldAnchor),
		LocalAnchorB:       b.Transform().ApplyInverse(worldAnchor),
		WarmStartingFactor: 1,
	}
}

func (c Config) validate() error {
	if c.A == nil || c.B == nil {
		return ErrNilBody
	}
	if c.A == c.B {
		return ErrSameBody
	}
	return nil
}

// base carries the anchor and break bookkeeping common to all joints.
type base struct {
	cfg Config
	id  int

	rA, rB         mgl64.Vec3
	worldA, worldB mgl64.Vec3

	force  mgl64.Vec3
	torque mgl64.Vec3
}

func (j *base) EdgeID() int                 { return j.id }
func (j *base) SetEdgeID(id int)            { j.id = id }
func (j *base) CollideConnected() bool      { return j.cfg.CollideConnected }
func (j *base) AppliedForce() mgl64.Vec3    { return j.force }
func (j *base) AppliedTorque() mgl64.Vec3   { return j.torque }
func (j *base) WarmStartingFactor() float64 { return j.cfg.WarmStartingFactor }

func (j *base) Bodies() (*body.RigidBody, *body.RigidBody) {
	return j.cfg.A, j.cfg.B
}

// AnchorA and AnchorB are the anchors in world space as of the last sync.
func (j *base) AnchorA() mgl64.Vec3 { return j.worldA }
func (j *base) AnchorB() mgl64.Vec3 { return j.worldB }

func (j *base) syncAnchors() {
	xa, xb := j.cfg.A.Transform(), j.cfg.B.Transform()
	j.rA = xa.Rotate(j.cfg.LocalAnchorA)
	j.rB = xb.Rotate(j.cfg.LocalAnchorB)
	j.worldA = j.rA.Add(xa.Position)
	j.worldB = j.rB.Add(xb.Position)
}

// linearRows adds the three point-to-point rows along the world axes.
func (j *base) linearRows(info *solver.JointSolverInfo, imps *[3]solver.JointImpulse, withCfm bool) {
	diff := j.worldA.Sub(j.worldB)
	for i := 0; i < 3; i++ {
		var axis mgl64.Vec3
		axis[i] = 1
		row := info.AddRow(&imps[i])
		row.SetLinear(axis, j.rA, j.rB)
		row.Error = diff[i]
		if withCfm {
			row.CFM = j.cfg.CFM
		}
	}
}

// linearImpulse is the point-to-point impulse as a world vector.
func linearImpulse(imps *[3]solver.JointImpulse) mgl64.Vec3 {
	return mgl64.Vec3{imps[0].Impulse, imps[1].Impulse, imps[2].Impulse}
}

// exceeds reports whether a limit is set and v goes beyond it.
func exceeds(v mgl64.Vec3, limit float64) bool {
	return limit > 0 && v.LenSqr() > limit*limit
}

// perpendicular returns a unit vector orthogonal to n.
func perpendicular(n mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(n[0]) > 1/math.Sqrt(3) {
		return mgl64.Vec3{n[1], -n[0], 0}.Normalize()
	}
	return mgl64.Vec3{0, n[2], -n[1]}.Normalize()
}
