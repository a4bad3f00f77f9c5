package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/bvh"
	"github.com/san-kum/impulse/internal/geom"
)

// RayHit is the closest shape hit by a ray cast.
type RayHit struct {
	Shape    *body.Shape
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	Fraction float64
}

// RayCast returns the closest shape hit by the segment from begin to end.
func (w *World) RayCast(begin, end mgl64.Vec3) (RayHit, bool) {
	var best RayHit
	found := false
	w.bp.QueryRay(begin, end, func(p *bvh.Proxy) bool {
		s := p.UserData.(*body.Shape)
		hit, ok := geom.RayCast(s.Geometry, s.Transform(), begin, end)
		if ok && (!found || hit.Fraction < best.Fraction) {
			best = RayHit{Shape: s, Position: hit.Position, Normal: hit.Normal, Fraction: hit.Fraction}
			found = true
		}
		return true
	})
	return best, found
}

// QueryAabb calls fn for every shape whose tight box overlaps aabb until
// fn returns false.
func (w *World) QueryAabb(aabb geom.Aabb, fn func(*body.Shape) bool) {
	w.bp.QueryAabb(aabb, func(p *bvh.Proxy) bool {
		s := p.UserData.(*body.Shape)
		if !s.Aabb().Overlaps(aabb) {
			return true
		}
		return fn(s)
	})
}

// QuerySweep calls fn for every shape whose tight box is touched by aabb
// swept along translation, until fn returns false.
func (w *World) QuerySweep(aabb geom.Aabb, translation mgl64.Vec3, fn func(*body.Shape) bool) {
	w.bp.QuerySweep(aabb, translation, func(p *bvh.Proxy) bool {
		s := p.UserData.(*body.Shape)
		grown := geom.AabbAround(s.Aabb().Center(), s.Aabb().Extents().Add(aabb.Extents()))
		if !grown.IntersectsSegment(aabb.Center(), aabb.Center().Add(translation)) {
			return true
		}
		return fn(s)
	})
}
