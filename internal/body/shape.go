package body

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/bvh"
	"github.com/san-kum/impulse/internal/geom"
)

const (
	DefaultFriction    = 0.2
	DefaultRestitution = 0.2
	DefaultDensity     = 1.0
	AllCategories      = ^uint32(0)
)

type ShapeConfig struct {
	Geometry    geom.Geometry
	Position    mgl64.Vec3
	Rotation    mgl64.Quat
	Friction    float64
	Restitution float64
	Density     float64
	// Category and Mask filter pairs: two shapes collide when each one's
	// category intersects the other's mask.
	Category uint32
	Mask     uint32
}

func DefaultShapeConfig(g geom.Geometry) ShapeConfig {
	return ShapeConfig{
		Geometry:    g,
		Rotation:    mgl64.QuatIdent(),
		Friction:    DefaultFriction,
		Restitution: DefaultRestitution,
		Density:     DefaultDensity,
		Category:    1,
		Mask:        AllCategories,
	}
}

// Shape attaches one geometry to a body at a local offset.
type Shape struct {
	ID          int
	Geometry    geom.Geometry
	Local       geom.Transform
	Friction    float64
	Restitution float64
	Density     float64
	Category    uint32
	Mask        uint32
	UserData    any

	// Proxy is owned by the world for as long as the shape is in it.
	Proxy *bvh.Proxy

	body  *RigidBody
	index int
	world geom.Transform
	aabb  geom.Aabb
}

func NewShape(cfg ShapeConfig) (*Shape, error) {
	if cfg.Geometry == nil {
		return nil, ErrNilGeometry
	}
	q := cfg.Rotation
	if q.Len() == 0 {
		q = mgl64.QuatIdent()
	}
	return &Shape{
		Geometry:    cfg.Geometry,
		Local:       geom.NewTransform(cfg.Position, q),
		Friction:    cfg.Friction,
		Restitution: cfg.Restitution,
		Density:     cfg.Density,
		Category:    cfg.Category,
		Mask:        cfg.Mask,
		index:       -1,
	}, nil
}

func (s *Shape) Body() *RigidBody { return s.body }

// Transform is the world transform as of the last sync.
func (s *Shape) Transform() geom.Transform { return s.world }

// Aabb is the tight world box as of the last sync.
func (s *Shape) Aabb() geom.Aabb { return s.aabb }

// ShouldCollide applies the category/mask filter.
func (s *Shape) ShouldCollide(o *Shape) bool {
	return s.Category&o.Mask != 0 && o.Category&s.Mask != 0
}

// SetDensity changes the density and refreshes the body's mass.
func (s *Shape) SetDensity(d float64) {
	s.Density = d
	if s.body != nil {
		s.body.UpdateMass()
	}
}

// sync recomputes the world transform and box and returns how far the
// shape's origin moved.
func (s *Shape) sync(bodyXf geom.Transform) mgl64.Vec3 {
	prev := s.world.Position
	s.world = bodyXf.Mul(s.Local)
	s.aabb = s.Geometry.ComputeAabb(s.world)
	return s.world.Position.Sub(prev)
}
