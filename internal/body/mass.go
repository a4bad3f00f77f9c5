package body

import "github.com/go-gl/mathgl/mgl64"

// UpdateMass aggregates mass and inertia about the body origin from every
// shape. A dynamic body with no positive mass or a singular inertia is
// treated as static until its shapes give it a usable mass again.
func (b *RigidBody) UpdateMass() {
	var mass float64
	var inertia mgl64.Mat3
	for _, s := range b.shapes {
		m := s.Density * s.Geometry.Volume()
		mass += m

		rot := s.Local.Rotation
		local := rot.Mul3(s.Geometry.InertiaCoeff().Mul(m)).Mul3(rot.Transpose())

		// parallel axis: m(|p|²I - ppᵀ)
		p := s.Local.Position
		shift := mgl64.Ident3().Mul(p.Dot(p)).Sub(p.OuterProd3(p)).Mul(m)
		inertia = inertia.Add(local.Add(shift))
	}
	b.mass = mass
	b.localInertia = inertia
	b.typ = b.requested
	b.demoted = b.requested == Dynamic && (mass <= 0 || inertia.Det() <= 0)
	if b.demoted {
		b.typ = Static
	}

	if b.typ == Dynamic {
		b.invMass = 1 / mass
		b.invLocalInertia = inertia.Inv()
	} else {
		b.invMass = 0
		b.invLocalInertia = mgl64.Mat3{}
	}
	b.updateInertia()
}

func (b *RigidBody) updateInertia() {
	rot := b.xf.Rotation
	b.invInertia = rot.Mul3(b.invLocalInertia).Mul3(rot.Transpose())
}
