package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind tags the closed set of geometry variants.
type Kind int

const (
	KindSphere Kind = iota
	KindBox
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindBox:
		return "box"
	default:
		return "unknown"
	}
}

// Geometry is the collision shape contract consumed by the engine. All
// quantities are in the geometry's local frame unless a transform is given.
type Geometry interface {
	Kind() Kind
	LocalSupport(dir mgl64.Vec3) mgl64.Vec3
	ComputeAabb(xf Transform) Aabb
	RayCastLocal(begin, end mgl64.Vec3) (RayHit, bool)
	Volume() float64
	// InertiaCoeff is the local inertia tensor per unit mass.
	InertiaCoeff() mgl64.Mat3
}

type RayHit struct {
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	Fraction float64
}

// RayCast casts a world-space segment against g placed at xf.
func RayCast(g Geometry, xf Transform, begin, end mgl64.Vec3) (RayHit, bool) {
	hit, ok := g.RayCastLocal(xf.ApplyInverse(begin), xf.ApplyInverse(end))
	if !ok {
		return RayHit{}, false
	}
	hit.Position = xf.Apply(hit.Position)
	hit.Normal = xf.Rotate(hit.Normal)
	return hit, true
}

type Sphere struct {
	Radius float64
}

func NewSphere(radius float64) *Sphere {
	return &Sphere{Radius: radius}
}

func (s *Sphere) Kind() Kind { return KindSphere }

func (s *Sphere) LocalSupport(dir mgl64.Vec3) mgl64.Vec3 {
	l := dir.Len()
	if l < 1e-12 {
		return mgl64.Vec3{}
	}
	return dir.Mul(s.Radius / l)
}

func (s *Sphere) ComputeAabb(xf Transform) Aabb {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AabbAround(xf.Position, r)
}

func (s *Sphere) RayCastLocal(begin, end mgl64.Vec3) (RayHit, bool) {
	d := end.Sub(begin)
	a := d.Dot(d)
	if a < 1e-24 {
		return RayHit{}, false
	}
	b := begin.Dot(d)
	c := begin.Dot(begin) - s.Radius*s.Radius
	disc := b*b - a*c
	if disc < 0 {
		return RayHit{}, false
	}
	t := (-b - math.Sqrt(disc)) / a
	if t < 0 || t > 1 {
		return RayHit{}, false
	}
	p := begin.Add(d.Mul(t))
	return RayHit{Position: p, Normal: p.Normalize(), Fraction: t}, true
}

func (s *Sphere) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius
}

func (s *Sphere) InertiaCoeff() mgl64.Mat3 {
	c := 0.4 * s.Radius * s.Radius
	return mgl64.Diag3(mgl64.Vec3{c, c, c})
}

type Box struct {
	HalfExtents mgl64.Vec3
}

func NewBox(half mgl64.Vec3) *Box {
	return &Box{HalfExtents: half}
}

func (b *Box) Kind() Kind { return KindBox }

func (b *Box) LocalSupport(dir mgl64.Vec3) mgl64.Vec3 {
	var p mgl64.Vec3
	for i := 0; i < 3; i++ {
		if dir[i] < 0 {
			p[i] = -b.HalfExtents[i]
		} else {
			p[i] = b.HalfExtents[i]
		}
	}
	return p
}

func (b *Box) ComputeAabb(xf Transform) Aabb {
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ext[i] += math.Abs(xf.Rotation.At(i, j)) * b.HalfExtents[j]
		}
	}
	return AabbAround(xf.Position, ext)
}

func (b *Box) RayCastLocal(begin, end mgl64.Vec3) (RayHit, bool) {
	local := Aabb{Min: b.HalfExtents.Mul(-1), Max: b.HalfExtents}
	d := end.Sub(begin)
	tmin, tmax := 0.0, 1.0
	axis, sign := -1, 0.0
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if begin[i] < local.Min[i] || begin[i] > local.Max[i] {
				return RayHit{}, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (local.Min[i] - begin[i]) * inv
		t2 := (local.Max[i] - begin[i]) * inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1
		}
		if t1 > tmin {
			tmin = t1
			axis, sign = i, s
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return RayHit{}, false
		}
	}
	// a ray starting inside the box does not hit it
	if axis < 0 {
		return RayHit{}, false
	}
	var n mgl64.Vec3
	n[axis] = sign
	return RayHit{Position: begin.Add(d.Mul(tmin)), Normal: n, Fraction: tmin}, true
}

func (b *Box) Volume() float64 {
	h := b.HalfExtents
	return 8 * h[0] * h[1] * h[2]
}

func (b *Box) InertiaCoeff() mgl64.Mat3 {
	h := b.HalfExtents
	x2, y2, z2 := h[0]*h[0], h[1]*h[1], h[2]*h[2]
	return mgl64.Diag3(mgl64.Vec3{(y2 + z2) / 3, (x2 + z2) / 3, (x2 + y2) / 3})
}

// Vertex returns corner i (0..7); bit 0 picks +x, bit 1 +y, bit 2 +z.
func (b *Box) Vertex(i int) mgl64.Vec3 {
	v := b.HalfExtents.Mul(-1)
	for axis := 0; axis < 3; axis++ {
		if i&(1<<axis) != 0 {
			v[axis] = b.HalfExtents[axis]
		}
	}
	return v
}
