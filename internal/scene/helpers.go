package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/world"
)

// builder adds bodies to a world and keeps the first error.
type builder struct {
	w   *world.World
	err error
}

func (b *builder) add(typ body.Type, pos mgl64.Vec3, rot mgl64.Quat, shapes ...body.ShapeConfig) *body.RigidBody {
	bc := body.DefaultConfig()
	bc.Type = typ
	bc.Position = pos
	bc.Rotation = rot
	rb := body.New(bc)
	if b.err != nil {
		return rb
	}
	for _, sc := range shapes {
		s, err := body.NewShape(sc)
		if err != nil {
			b.err = err
			return rb
		}
		if err := rb.AddShape(s); err != nil {
			b.err = err
			return rb
		}
	}
	b.err = b.w.AddBody(rb)
	return rb
}

func (b *builder) ground(halfWidth float64) *body.RigidBody {
	return b.add(body.Static, mgl64.Vec3{0, -0.5, 0}, mgl64.QuatIdent(),
		body.DefaultShapeConfig(geom.NewBox(mgl64.Vec3{halfWidth, 0.5, halfWidth})))
}

func (b *builder) box(typ body.Type, pos, half mgl64.Vec3) *body.RigidBody {
	return b.add(typ, pos, mgl64.QuatIdent(), body.DefaultShapeConfig(geom.NewBox(half)))
}

func (b *builder) sphere(typ body.Type, pos mgl64.Vec3, radius float64) *body.RigidBody {
	return b.add(typ, pos, mgl64.QuatIdent(), body.DefaultShapeConfig(geom.NewSphere(radius)))
}
