package geom

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rigid pose: a rotation matrix followed by a translation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Mat3
}

func Identity() Transform {
	return Transform{Rotation: mgl64.Ident3()}
}

func NewTransform(pos mgl64.Vec3, q mgl64.Quat) Transform {
	return Transform{Position: pos, Rotation: q.Normalize().Mat4().Mat3()}
}

// Apply maps a local point to world space.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Mul3x1(p).Add(t.Position)
}

// ApplyInverse maps a world point to local space.
func (t Transform) ApplyInverse(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Transpose().Mul3x1(p.Sub(t.Position))
}

func (t Transform) Rotate(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Mul3x1(v)
}

func (t Transform) InverseRotate(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Transpose().Mul3x1(v)
}

// Mul composes t with a child transform expressed in t's frame.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Position: t.Rotation.Mul3x1(child.Position).Add(t.Position),
		Rotation: t.Rotation.Mul3(child.Rotation),
	}
}
