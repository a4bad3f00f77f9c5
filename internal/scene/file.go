package scene

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/joint"
	"github.com/san-kum/impulse/internal/world"
)

// File is a scene described in YAML.
type File struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Metrics     []string    `yaml:"metrics"`
	Bodies      []BodySpec  `yaml:"bodies"`
	Joints      []JointSpec `yaml:"joints"`
}

type BodySpec struct {
	Type     string     `yaml:"type"`
	Position [3]float64 `yaml:"position"`
	// Axis and Angle (degrees) give the initial rotation.
	Axis            [3]float64  `yaml:"axis"`
	Angle           float64     `yaml:"angle"`
	Velocity        [3]float64  `yaml:"velocity"`
	AngularVelocity [3]float64  `yaml:"angular_velocity"`
	LinearDamping   float64     `yaml:"linear_damping"`
	AngularDamping  float64     `yaml:"angular_damping"`
	Shapes          []ShapeSpec `yaml:"shapes"`
}

type ShapeSpec struct {
	Sphere      float64     `yaml:"sphere"`
	Box         *[3]float64 `yaml:"box"`
	Offset      [3]float64  `yaml:"offset"`
	Density     *float64    `yaml:"density"`
	Friction    *float64    `yaml:"friction"`
	Restitution *float64    `yaml:"restitution"`
	Category    *uint32     `yaml:"category"`
	Mask        *uint32     `yaml:"mask"`
}

type JointSpec struct {
	Type   string     `yaml:"type"`
	A      int        `yaml:"a"`
	B      int        `yaml:"b"`
	Anchor [3]float64 `yaml:"anchor"`
	Axis   [3]float64 `yaml:"axis"`
	// Lower and Upper are degrees; the limit is off when both are zero.
	Lower            float64 `yaml:"lower"`
	Upper            float64 `yaml:"upper"`
	MotorSpeed       float64 `yaml:"motor_speed"`
	MaxMotorTorque   float64 `yaml:"max_motor_torque"`
	BreakForce       float64 `yaml:"break_force"`
	BreakTorque      float64 `yaml:"break_torque"`
	CollideConnected bool    `yaml:"collide_connected"`
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScene, fmt.Sprintf(format, args...))
}

func (f *File) Validate() error {
	if f.Name == "" {
		return invalid("missing name")
	}
	for i, b := range f.Bodies {
		if _, err := parseType(b.Type); err != nil {
			return invalid("body %d: %v", i, err)
		}
		for k, s := range b.Shapes {
			if (s.Sphere > 0) == (s.Box != nil) {
				return invalid("body %d shape %d: exactly one of sphere or box is required", i, k)
			}
			if s.Box != nil && (s.Box[0] <= 0 || s.Box[1] <= 0 || s.Box[2] <= 0) {
				return invalid("body %d shape %d: box half extents must be positive", i, k)
			}
		}
	}
	for i, j := range f.Joints {
		if j.A < 0 || j.A >= len(f.Bodies) || j.B < 0 || j.B >= len(f.Bodies) {
			return invalid("joint %d: body index out of range", i)
		}
		if j.A == j.B {
			return invalid("joint %d: a and b must differ", i)
		}
		switch j.Type {
		case "ball":
		case "hinge":
			if mgl64.Vec3(j.Axis).LenSqr() == 0 {
				return invalid("joint %d: hinge needs an axis", i)
			}
		default:
			return invalid("joint %d: unknown type %q", i, j.Type)
		}
	}
	return nil
}

func parseType(s string) (body.Type, error) {
	switch s {
	case "", "dynamic":
		return body.Dynamic, nil
	case "static":
		return body.Static, nil
	case "kinematic":
		return body.Kinematic, nil
	}
	return 0, fmt.Errorf("unknown body type %q", s)
}

func rotation(axis [3]float64, degrees float64) mgl64.Quat {
	a := mgl64.Vec3(axis)
	if degrees == 0 || a.LenSqr() == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(mgl64.DegToRad(degrees), a.Normalize())
}

func (s ShapeSpec) config() body.ShapeConfig {
	var g geom.Geometry
	if s.Box != nil {
		g = geom.NewBox(mgl64.Vec3(*s.Box))
	} else {
		g = geom.NewSphere(s.Sphere)
	}
	sc := body.DefaultShapeConfig(g)
	sc.Position = mgl64.Vec3(s.Offset)
	if s.Density != nil {
		sc.Density = *s.Density
	}
	if s.Friction != nil {
		sc.Friction = *s.Friction
	}
	if s.Restitution != nil {
		sc.Restitution = *s.Restitution
	}
	if s.Category != nil {
		sc.Category = *s.Category
	}
	if s.Mask != nil {
		sc.Mask = *s.Mask
	}
	return sc
}

// Build adds the described bodies and joints to w. Files that did not come
// through Parse are validated first.
func (f *File) Build(w *world.World, _ *rand.Rand) error {
	if err := f.Validate(); err != nil {
		return err
	}
	b := &builder{w: w}
	bodies := make([]*body.RigidBody, len(f.Bodies))
	for i, spec := range f.Bodies {
		typ, err := parseType(spec.Type)
		if err != nil {
			return invalid("body %d: %v", i, err)
		}
		shapes := make([]body.ShapeConfig, len(spec.Shapes))
		for k, s := range spec.Shapes {
			shapes[k] = s.config()
		}
		rb := b.add(typ, mgl64.Vec3(spec.Position), rotation(spec.Axis, spec.Angle), shapes...)
		if b.err != nil {
			return fmt.Errorf("body %d: %w", i, b.err)
		}
		rb.LinearDamping = spec.LinearDamping
		rb.AngularDamping = spec.AngularDamping
		rb.SetLinearVelocity(mgl64.Vec3(spec.Velocity))
		rb.SetAngularVelocity(mgl64.Vec3(spec.AngularVelocity))
		bodies[i] = rb
	}

	for i, spec := range f.Joints {
		j, err := spec.build(bodies[spec.A], bodies[spec.B])
		if err != nil {
			return fmt.Errorf("joint %d: %w", i, err)
		}
		if err := w.AddJoint(j); err != nil {
			return fmt.Errorf("joint %d: %w", i, err)
		}
	}
	return nil
}

func (s JointSpec) build(a, b *body.RigidBody) (joint.Joint, error) {
	anchor := mgl64.Vec3(s.Anchor)
	if s.Type == "ball" {
		cfg := joint.NewConfig(a, b, anchor)
		s.apply(&cfg)
		return joint.NewBall(cfg)
	}
	hc := joint.NewHingeConfig(a, b, anchor, mgl64.Vec3(s.Axis))
	s.apply(&hc.Config)
	if s.Lower != 0 || s.Upper != 0 {
		hc.LowerAngle = mgl64.DegToRad(s.Lower)
		hc.UpperAngle = mgl64.DegToRad(s.Upper)
	}
	hc.MotorSpeed = s.MotorSpeed
	hc.MaxMotorTorque = math.Abs(s.MaxMotorTorque)
	return joint.NewHinge(hc)
}

func (s JointSpec) apply(cfg *joint.Config) {
	cfg.BreakForce = s.BreakForce
	cfg.BreakTorque = s.BreakTorque
	cfg.CollideConnected = s.CollideConnected
}

// Scene turns the file into a registrable scene.
func (f *File) Scene() Scene {
	return Scene{
		Name:        f.Name,
		Description: f.Description,
		Build:       f.Build,
		Metrics:     f.Metrics,
	}
}
