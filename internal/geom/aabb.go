package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Aabb is an axis-aligned bounding box.
type Aabb struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func NewAabb(min, max mgl64.Vec3) Aabb {
	return Aabb{Min: min, Max: max}
}

// AabbAround returns the box of half size ext centred at c.
func AabbAround(c, ext mgl64.Vec3) Aabb {
	return Aabb{Min: c.Sub(ext), Max: c.Add(ext)}
}

// Overlaps is strict: boxes that only touch do not overlap.
func (a Aabb) Overlaps(b Aabb) bool {
	return a.Min[0] < b.Max[0] && a.Max[0] > b.Min[0] &&
		a.Min[1] < b.Max[1] && a.Max[1] > b.Min[1] &&
		a.Min[2] < b.Max[2] && a.Max[2] > b.Min[2]
}

// Contains reports whether b lies entirely inside a.
func (a Aabb) Contains(b Aabb) bool {
	return a.Min[0] <= b.Min[0] && a.Min[1] <= b.Min[1] && a.Min[2] <= b.Min[2] &&
		b.Max[0] <= a.Max[0] && b.Max[1] <= a.Max[1] && b.Max[2] <= a.Max[2]
}

func (a Aabb) Union(b Aabb) Aabb {
	return Aabb{
		Min: mgl64.Vec3{math.Min(a.Min[0], b.Min[0]), math.Min(a.Min[1], b.Min[1]), math.Min(a.Min[2], b.Min[2])},
		Max: mgl64.Vec3{math.Max(a.Max[0], b.Max[0]), math.Max(a.Max[1], b.Max[1]), math.Max(a.Max[2], b.Max[2])},
	}
}

func (a Aabb) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

func (a Aabb) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half size.
func (a Aabb) Extents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

func (a Aabb) Expand(margin float64) Aabb {
	m := mgl64.Vec3{margin, margin, margin}
	return Aabb{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Extend grows the box on the side d points to, leaving the other side alone.
func (a Aabb) Extend(d mgl64.Vec3) Aabb {
	out := a
	for i := 0; i < 3; i++ {
		if d[i] < 0 {
			out.Min[i] += d[i]
		} else {
			out.Max[i] += d[i]
		}
	}
	return out
}

func (a Aabb) IsValid() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(a.Min[i]) || math.IsNaN(a.Max[i]) || a.Min[i] > a.Max[i] {
			return false
		}
	}
	return true
}

// SegmentFraction runs a slab test of the segment begin->end against the box and
// returns the entry fraction in [0, 1].
func (a Aabb) SegmentFraction(begin, end mgl64.Vec3) (float64, bool) {
	d := end.Sub(begin)
	tmin, tmax := 0.0, 1.0
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if begin[i] < a.Min[i] || begin[i] > a.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (a.Min[i] - begin[i]) * inv
		t2 := (a.Max[i] - begin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

func (a Aabb) IntersectsSegment(begin, end mgl64.Vec3) bool {
	_, ok := a.SegmentFraction(begin, end)
	return ok
}
