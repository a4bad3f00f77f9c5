package body

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/geom"
)

type Type int

const (
	Dynamic Type = iota
	Static
	Kinematic
)

func (t Type) String() string {
	switch t {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	}
	return "unknown"
}

// Edge is a constraint (contact or joint) linking a body to another body.
type Edge interface {
	EdgeID() int
}

// ShapeListener is told when shapes come and go on a body already in a world.
// A shape the listener rejects is detached again.
type ShapeListener interface {
	ShapeAdded(s *Shape) error
	ShapeRemoved(s *Shape)
}

type Config struct {
	Type            Type
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	LinearDamping   float64
	AngularDamping  float64
	GravityScale    float64
	AutoSleep       bool
}

func DefaultConfig() Config {
	return Config{
		Type:         Dynamic,
		Rotation:     mgl64.QuatIdent(),
		GravityScale: 1,
		AutoSleep:    true,
	}
}

type RigidBody struct {
	ID       int
	UserData any

	// requested is the type asked for; typ is the effective one.
	requested Type
	typ       Type
	demoted   bool

	xf  geom.Transform
	rot mgl64.Quat

	vel       mgl64.Vec3
	angVel    mgl64.Vec3
	pseudoVel mgl64.Vec3
	pseudoAng mgl64.Vec3
	force     mgl64.Vec3
	torque    mgl64.Vec3

	mass            float64
	invMass         float64
	localInertia    mgl64.Mat3
	invLocalInertia mgl64.Mat3
	invInertia      mgl64.Mat3

	LinearDamping  float64
	AngularDamping float64
	GravityScale   float64
	AutoSleep      bool

	sleeping  bool
	sleepTime float64

	shapes   []*Shape
	contacts map[Edge]struct{}
	joints   map[Edge]struct{}
	listener ShapeListener

	// Index is the body's slot in its world's body list, -1 when detached.
	Index int
	// Island is scratch state for island building.
	Island int
}

func New(cfg Config) *RigidBody {
	q := cfg.Rotation
	if q.Len() == 0 {
		q = mgl64.QuatIdent()
	}
	q = q.Normalize()
	b := &RigidBody{
		requested:      cfg.Type,
		typ:            cfg.Type,
		rot:            q,
		xf:             geom.NewTransform(cfg.Position, q),
		vel:            cfg.LinearVelocity,
		angVel:         cfg.AngularVelocity,
		LinearDamping:  cfg.LinearDamping,
		AngularDamping: cfg.AngularDamping,
		GravityScale:   cfg.GravityScale,
		AutoSleep:      cfg.AutoSleep,
		contacts:       make(map[Edge]struct{}),
		joints:         make(map[Edge]struct{}),
		Index:          -1,
		Island:         -1,
	}
	b.UpdateMass()
	return b
}

func (b *RigidBody) Type() Type { return b.typ }

// Demoted reports whether the body asked to be dynamic but had no usable mass.
func (b *RigidBody) Demoted() bool { return b.demoted }

func (b *RigidBody) SetType(t Type) {
	b.requested = t
	b.UpdateMass()
	b.WakeUp()
}

func (b *RigidBody) IsDynamic() bool   { return b.typ == Dynamic }
func (b *RigidBody) IsStatic() bool    { return b.typ == Static }
func (b *RigidBody) IsKinematic() bool { return b.typ == Kinematic }

func (b *RigidBody) Transform() geom.Transform { return b.xf }
func (b *RigidBody) Position() mgl64.Vec3      { return b.xf.Position }
func (b *RigidBody) Rotation() mgl64.Quat      { return b.rot }

func (b *RigidBody) SetPosition(p mgl64.Vec3) {
	b.xf.Position = p
	b.SyncShapes()
	b.WakeUp()
}

func (b *RigidBody) SetRotation(q mgl64.Quat) {
	b.setRotation(q)
	b.SyncShapes()
	b.WakeUp()
}

func (b *RigidBody) setRotation(q mgl64.Quat) {
	b.rot = q.Normalize()
	b.xf.Rotation = orthonormalize(b.rot.Mat4().Mat3())
	b.updateInertia()
}

func (b *RigidBody) LinearVelocity() mgl64.Vec3  { return b.vel }
func (b *RigidBody) AngularVelocity() mgl64.Vec3 { return b.angVel }

func (b *RigidBody) SetLinearVelocity(v mgl64.Vec3) {
	if b.typ == Static {
		return
	}
	b.vel = v
	b.WakeUp()
}

func (b *RigidBody) SetAngularVelocity(w mgl64.Vec3) {
	if b.typ == Static {
		return
	}
	b.angVel = w
	b.WakeUp()
}

// PointVelocity is the velocity of a world point riding on the body.
func (b *RigidBody) PointVelocity(p mgl64.Vec3) mgl64.Vec3 {
	return b.vel.Add(b.angVel.Cross(p.Sub(b.xf.Position)))
}

func (b *RigidBody) Mass() float64                    { return b.mass }
func (b *RigidBody) InvMass() float64                 { return b.invMass }
func (b *RigidBody) LocalInertia() mgl64.Mat3         { return b.localInertia }
func (b *RigidBody) InvInertia() mgl64.Mat3           { return b.invInertia }
func (b *RigidBody) Force() mgl64.Vec3                { return b.force }
func (b *RigidBody) Torque() mgl64.Vec3               { return b.torque }
func (b *RigidBody) Shapes() []*Shape                 { return b.shapes }
func (b *RigidBody) SetShapeListener(l ShapeListener) { b.listener = l }

// KineticEnergy is ½mv² + ½ωᵀIω with I in world space.
func (b *RigidBody) KineticEnergy() float64 {
	if b.typ != Dynamic {
		return 0
	}
	rot := b.xf.Rotation
	iw := rot.Mul3(b.localInertia).Mul3(rot.Transpose())
	return 0.5*b.mass*b.vel.LenSqr() + 0.5*b.angVel.Dot(iw.Mul3x1(b.angVel))
}

func (b *RigidBody) AddShape(s *Shape) error {
	if s.body != nil {
		return ErrShapeAttached
	}
	s.body = b
	s.index = len(b.shapes)
	b.shapes = append(b.shapes, s)
	s.world = b.xf.Mul(s.Local)
	s.aabb = s.Geometry.ComputeAabb(s.world)
	b.UpdateMass()
	if b.listener != nil {
		if err := b.listener.ShapeAdded(s); err != nil {
			b.shapes[s.index] = nil
			b.shapes = b.shapes[:s.index]
			s.body = nil
			s.index = -1
			b.UpdateMass()
			return err
		}
	}
	b.WakeUp()
	return nil
}

func (b *RigidBody) RemoveShape(s *Shape) error {
	if s.body != b {
		return ErrShapeNotAttached
	}
	if b.listener != nil {
		b.listener.ShapeRemoved(s)
	}
	last := len(b.shapes) - 1
	b.shapes[s.index] = b.shapes[last]
	b.shapes[s.index].index = s.index
	b.shapes[last] = nil
	b.shapes = b.shapes[:last]
	s.body = nil
	s.index = -1
	b.UpdateMass()
	b.WakeUp()
	return nil
}

// SyncShapes refreshes every shape's world transform and box.
func (b *RigidBody) SyncShapes() {
	for _, s := range b.shapes {
		s.sync(b.xf)
	}
}

// SyncShape refreshes one shape and returns its displacement.
func (b *RigidBody) SyncShape(s *Shape) mgl64.Vec3 {
	return s.sync(b.xf)
}

func (b *RigidBody) LinkContact(e Edge)   { b.contacts[e] = struct{}{} }
func (b *RigidBody) UnlinkContact(e Edge) { delete(b.contacts, e) }
func (b *RigidBody) LinkJoint(e Edge)     { b.joints[e] = struct{}{} }
func (b *RigidBody) UnlinkJoint(e Edge)   { delete(b.joints, e) }
func (b *RigidBody) ContactCount() int    { return len(b.contacts) }
func (b *RigidBody) JointCount() int      { return len(b.joints) }

// Contacts lists linked contacts ordered by edge ID.
func (b *RigidBody) Contacts() []Edge { return sortedEdges(b.contacts) }

// Joints lists linked joints ordered by edge ID.
func (b *RigidBody) Joints() []Edge { return sortedEdges(b.joints) }

func sortedEdges(set map[Edge]struct{}) []Edge {
	out := make([]Edge, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EdgeID() < out[j].EdgeID() })
	return out
}

// EachContact visits linked contacts in no particular order until fn returns false.
func (b *RigidBody) EachContact(fn func(Edge) bool) {
	for e := range b.contacts {
		if !fn(e) {
			return
		}
	}
}

// EachJoint visits linked joints in no particular order until fn returns false.
func (b *RigidBody) EachJoint(fn func(Edge) bool) {
	for e := range b.joints {
		if !fn(e) {
			return
		}
	}
}
