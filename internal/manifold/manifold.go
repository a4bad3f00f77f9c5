package manifold

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/geom"
)

// MaxPoints is the number of points a manifold keeps.
const MaxPoints = 4

// ContactPoint is one narrow-phase result point in world space.
type ContactPoint struct {
	PositionA mgl64.Vec3
	PositionB mgl64.Vec3
	// Depth is positive when the shapes penetrate.
	Depth float64
	ID    uint64
}

// Result is the output of one narrow-phase test. Normal points from A to B.
type Result struct {
	Normal mgl64.Vec3
	Points []ContactPoint
}

func (r *Result) Reset() {
	r.Normal = mgl64.Vec3{}
	r.Points = r.Points[:0]
}

func (r *Result) Add(posA, posB mgl64.Vec3, depth float64, id uint64) {
	r.Points = append(r.Points, ContactPoint{PositionA: posA, PositionB: posB, Depth: depth, ID: id})
}

// Point is a persistent contact point. Local anchors ride with their bodies,
// so depth and slide can be recomputed from the current transforms.
type Point struct {
	LocalA mgl64.Vec3
	LocalB mgl64.Vec3
	// RelA and RelB are the anchors rotated into world space, relative to the body origins.
	RelA   mgl64.Vec3
	RelB   mgl64.Vec3
	WorldA mgl64.Vec3
	WorldB mgl64.Vec3
	Depth  float64
	ID     uint64

	NormalImpulse   float64
	TangentImpulse  float64
	BinormalImpulse float64
	PositionImpulse float64

	WarmStarted bool
	Disabled    bool
}

// ClearImpulses drops every accumulated impulse.
func (p *Point) ClearImpulses() {
	p.NormalImpulse = 0
	p.TangentImpulse = 0
	p.BinormalImpulse = 0
	p.PositionImpulse = 0
}

// Manifold is the contact cache of one shape pair.
type Manifold struct {
	Normal   mgl64.Vec3
	Tangent  mgl64.Vec3
	Binormal mgl64.Vec3
	Points   [MaxPoints]Point
	Count    int
}

func (m *Manifold) Clear() {
	for i := 0; i < m.Count; i++ {
		m.Points[i] = Point{}
	}
	m.Count = 0
}

// SetBasis stores n and completes it to an orthonormal basis.
func (m *Manifold) SetBasis(n mgl64.Vec3) {
	m.Normal = n
	if math.Abs(n[0]) > 1/math.Sqrt(3) {
		m.Tangent = mgl64.Vec3{n[1], -n[0], 0}.Normalize()
	} else {
		m.Tangent = mgl64.Vec3{0, n[2], -n[1]}.Normalize()
	}
	m.Binormal = n.Cross(m.Tangent)
}

// UpdateDepths recomputes world anchors and depths from the body transforms.
func (m *Manifold) UpdateDepths(xfA, xfB geom.Transform) {
	for i := 0; i < m.Count; i++ {
		refresh(&m.Points[i], m.Normal, xfA, xfB)
	}
}

func refresh(p *Point, n mgl64.Vec3, xfA, xfB geom.Transform) {
	p.RelA = xfA.Rotate(p.LocalA)
	p.RelB = xfB.Rotate(p.LocalB)
	p.WorldA = p.RelA.Add(xfA.Position)
	p.WorldB = p.RelB.Add(xfB.Position)
	p.Depth = p.WorldA.Sub(p.WorldB).Dot(n)
	p.Disabled = p.Depth < 0
}

func (m *Manifold) removePoint(i int) {
	last := m.Count - 1
	m.Points[i] = m.Points[last]
	m.Points[last] = Point{}
	m.Count--
}

// DeepestIndex is the index of the deepest point, -1 when empty.
func (m *Manifold) DeepestIndex() int {
	idx := -1
	depth := math.Inf(-1)
	for i := 0; i < m.Count; i++ {
		if m.Points[i].Depth > depth {
			depth = m.Points[i].Depth
			idx = i
		}
	}
	return idx
}

// MaxDepth is the deepest penetration, 0 when empty.
func (m *Manifold) MaxDepth() float64 {
	if i := m.DeepestIndex(); i >= 0 {
		return m.Points[i].Depth
	}
	return 0
}

// TotalNormalImpulse sums the accumulated normal impulse of all points.
func (m *Manifold) TotalNormalImpulse() float64 {
	sum := 0.0
	for i := 0; i < m.Count; i++ {
		sum += m.Points[i].NormalImpulse
	}
	return sum
}
