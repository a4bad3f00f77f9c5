package narrow

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/manifold"
)

// lateralTolerance lets vertices sitting exactly on a face edge count as inside.
const lateralTolerance = 1e-4

var fallbackNormal = mgl64.Vec3{0, 1, 0}

// Detect computes contact points between ga at xfA and gb at xfB. The result
// normal points from A to B and point ids name a feature of one shape, so
// they stay stable while the same features touch.
func Detect(ga geom.Geometry, xfA geom.Transform, gb geom.Geometry, xfB geom.Transform, res *manifold.Result) bool {
	res.Reset()
	switch a := ga.(type) {
	case *geom.Sphere:
		switch b := gb.(type) {
		case *geom.Sphere:
			return sphereSphere(a, xfA, b, xfB, res)
		case *geom.Box:
			if !boxSphere(b, xfB, a, xfA, res) {
				return false
			}
			flip(res)
			return true
		}
	case *geom.Box:
		switch b := gb.(type) {
		case *geom.Sphere:
			return boxSphere(a, xfA, b, xfB, res)
		case *geom.Box:
			return boxBox(a, xfA, b, xfB, res)
		}
	}
	return false
}

// Supports reports whether Detect handles the pair of kinds.
func Supports(a, b geom.Kind) bool {
	known := func(k geom.Kind) bool { return k == geom.KindSphere || k == geom.KindBox }
	return known(a) && known(b)
}

func flip(res *manifold.Result) {
	res.Normal = res.Normal.Mul(-1)
	for i := range res.Points {
		p := &res.Points[i]
		p.PositionA, p.PositionB = p.PositionB, p.PositionA
	}
}

func sphereSphere(a *geom.Sphere, xfA geom.Transform, b *geom.Sphere, xfB geom.Transform, res *manifold.Result) bool {
	d := xfB.Position.Sub(xfA.Position)
	dist := d.Len()
	r := a.Radius + b.Radius
	if dist >= r {
		return false
	}
	n := fallbackNormal
	if dist > 1e-12 {
		n = d.Mul(1 / dist)
	}
	res.Normal = n
	res.Add(xfA.Position.Add(n.Mul(a.Radius)), xfB.Position.Sub(n.Mul(b.Radius)), r-dist, 0)
	return true
}

// boxSphere writes a result with the box as A.
func boxSphere(box *geom.Box, xfBox geom.Transform, s *geom.Sphere, xfS geom.Transform, res *manifold.Result) bool {
	h := box.HalfExtents
	c := xfBox.ApplyInverse(xfS.Position)

	var q mgl64.Vec3
	inside := true
	for i := 0; i < 3; i++ {
		q[i] = math.Max(-h[i], math.Min(h[i], c[i]))
		if q[i] != c[i] {
			inside = false
		}
	}

	var nLocal mgl64.Vec3
	var depth float64
	if !inside {
		d := c.Sub(q)
		dist := d.Len()
		if dist >= s.Radius {
			return false
		}
		nLocal = d.Mul(1 / dist)
		depth = s.Radius - dist
	} else {
		// centre inside the box: push out through the nearest face
		axis := 0
		best := math.Inf(1)
		for i := 0; i < 3; i++ {
			if gap := h[i] - math.Abs(c[i]); gap < best {
				best = gap
				axis = i
			}
		}
		sign := 1.0
		if c[axis] < 0 {
			sign = -1
		}
		nLocal[axis] = sign
		q = c
		q[axis] = sign * h[axis]
		depth = s.Radius + best
	}

	res.Normal = xfBox.Rotate(nLocal)
	res.Add(xfBox.Apply(q), xfBox.Apply(c.Sub(nLocal.Mul(s.Radius))), depth, 0)
	return true
}

type obb struct {
	box    *geom.Box
	xf     geom.Transform
	axes   [3]mgl64.Vec3
	isB    bool
	center mgl64.Vec3
}

func newObb(b *geom.Box, xf geom.Transform, isB bool) obb {
	o := obb{box: b, xf: xf, isB: isB, center: xf.Position}
	for i := 0; i < 3; i++ {
		o.axes[i] = xf.Rotation.Col(i)
	}
	return o
}

func (o *obb) radius(l mgl64.Vec3) float64 {
	h := o.box.HalfExtents
	return h[0]*math.Abs(o.axes[0].Dot(l)) + h[1]*math.Abs(o.axes[1].Dot(l)) + h[2]*math.Abs(o.axes[2].Dot(l))
}

func (o *obb) vertex(i int) mgl64.Vec3 {
	return o.xf.Apply(o.box.Vertex(i))
}

func (o *obb) idBase() uint64 {
	if o.isB {
		return 8
	}
	return 0
}

// insideFace reports whether p projects onto the face of o whose normal is axis.
func (o *obb) insideFace(p mgl64.Vec3, axis int) bool {
	rel := p.Sub(o.center)
	h := o.box.HalfExtents
	for j := 0; j < 3; j++ {
		if j == axis {
			continue
		}
		if math.Abs(rel.Dot(o.axes[j])) > h[j]+lateralTolerance {
			return false
		}
	}
	return true
}

// boxBox separates on the six face axes, then collects incident vertices
// below the reference face and reference vertices below the incident face.
func boxBox(ba *geom.Box, xfA geom.Transform, bb *geom.Box, xfB geom.Transform, res *manifold.Result) bool {
	A := newObb(ba, xfA, false)
	B := newObb(bb, xfB, true)
	d := B.center.Sub(A.center)

	bestOverlap := math.Inf(1)
	var ref, inc *obb
	refAxis := 0
	for _, cand := range []*obb{&A, &B} {
		for i := 0; i < 3; i++ {
			l := cand.axes[i]
			overlap := A.radius(l) + B.radius(l) - math.Abs(d.Dot(l))
			if overlap <= 0 {
				return false
			}
			// prefer A's faces unless B's are clearly better, which keeps the
			// reference choice from flickering on parallel faces
			if cand == &B && overlap >= bestOverlap*0.95-1e-6 {
				continue
			}
			if overlap < bestOverlap {
				bestOverlap = overlap
				ref = cand
				refAxis = i
			}
		}
	}
	inc = &B
	if ref == &B {
		inc = &A
	}

	// n points from the reference box to the incident box
	n := ref.axes[refAxis]
	if inc.center.Sub(ref.center).Dot(n) < 0 {
		n = n.Mul(-1)
	}
	refOffset := ref.center.Dot(n) + ref.box.HalfExtents[refAxis]

	type pair struct {
		onRef, onInc mgl64.Vec3
		depth        float64
		id           uint64
	}
	var found []pair

	for i := 0; i < 8; i++ {
		v := inc.vertex(i)
		depth := refOffset - v.Dot(n)
		if depth <= 0 || !ref.insideFace(v, refAxis) {
			continue
		}
		found = append(found, pair{onRef: v.Add(n.Mul(depth)), onInc: v, depth: depth, id: inc.idBase() + uint64(i)})
	}

	// incident face: the axis of inc most anti-parallel to n
	incAxis := 0
	bestDot := -1.0
	for i := 0; i < 3; i++ {
		if dd := math.Abs(inc.axes[i].Dot(n)); dd > bestDot {
			bestDot = dd
			incAxis = i
		}
	}
	m := inc.axes[incAxis]
	if m.Dot(n) > 0 {
		m = m.Mul(-1)
	}
	incOffset := inc.center.Dot(m) + inc.box.HalfExtents[incAxis]
	mn := m.Dot(n)

	if mn < -1e-9 {
		for i := 0; i < 8; i++ {
			u := ref.vertex(i)
			inside := incOffset - u.Dot(m)
			if inside <= 0 || !inc.insideFace(u, incAxis) {
				continue
			}
			depth := (u.Dot(m) - incOffset) / mn
			onInc := u.Sub(n.Mul(depth))
			dup := false
			for _, f := range found {
				if f.onInc.Sub(onInc).LenSqr() < 1e-8 {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			found = append(found, pair{onRef: u, onInc: onInc, depth: depth, id: ref.idBase() + uint64(i)})
		}
	}

	if len(found) == 0 {
		return false
	}

	if ref == &A {
		res.Normal = n
		for _, f := range found {
			res.Add(f.onRef, f.onInc, f.depth, f.id)
		}
	} else {
		res.Normal = n.Mul(-1)
		for _, f := range found {
			res.Add(f.onInc, f.onRef, f.depth, f.id)
		}
	}
	return true
}
