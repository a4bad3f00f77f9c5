package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/world"
)

// Projection maps world points to canvas dots.
type Projection interface {
	Project(p mgl64.Vec3) (x, y int, ok bool)
	// Scale is the number of dots per world unit near p.
	Scale(p mgl64.Vec3) float64
}

// SideView looks down -z: world x goes right, world y goes up.
type SideView struct {
	// Min and Max bound the visible x/y region.
	Min, Max mgl64.Vec2
	W, H     int
	scale    float64
	origin   mgl64.Vec2
}

// NewSideView fits the x/y extent of bounds into a w x h dot area, keeping
// the aspect ratio.
func NewSideView(bounds geom.Aabb, w, h int) *SideView {
	const pad = 0.5
	v := &SideView{
		Min: mgl64.Vec2{bounds.Min[0] - pad, bounds.Min[1] - pad},
		Max: mgl64.Vec2{bounds.Max[0] + pad, bounds.Max[1] + pad},
		W:   w,
		H:   h,
	}
	span := v.Max.Sub(v.Min)
	sx, sy := float64(w-1)/math.Max(span[0], 1e-6), float64(h-1)/math.Max(span[1], 1e-6)
	v.scale = math.Min(sx, sy)
	// center the unused axis
	used := span.Mul(v.scale)
	v.origin = mgl64.Vec2{(float64(w-1) - used[0]) / 2, (float64(h-1) - used[1]) / 2}
	return v
}

func (v *SideView) Project(p mgl64.Vec3) (int, int, bool) {
	x := v.origin[0] + (p[0]-v.Min[0])*v.scale
	y := float64(v.H-1) - (v.origin[1] + (p[1]-v.Min[1])*v.scale)
	ix, iy := int(math.Round(x)), int(math.Round(y))
	return ix, iy, ix >= 0 && ix < v.W && iy >= 0 && iy < v.H
}

func (v *SideView) Scale(mgl64.Vec3) float64 { return v.scale }

// OrbitCamera is a perspective camera circling Target.
type OrbitCamera struct {
	Target   mgl64.Vec3
	Yaw      float64
	Pitch    float64
	Distance float64
	FOV      float64
	W, H     int
}

func NewOrbitCamera(bounds geom.Aabb, w, h int) *OrbitCamera {
	ext := bounds.Extents()
	return &OrbitCamera{
		Target:   bounds.Center(),
		Yaw:      math.Pi / 6,
		Pitch:    math.Pi / 8,
		Distance: math.Max(3*ext.Len(), 5),
		FOV:      math.Pi / 3,
		W:        w,
		H:        h,
	}
}

func (c *OrbitCamera) Rotate(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = mgl64.Clamp(c.Pitch+dpitch, -1.5, 1.5)
}

func (c *OrbitCamera) Zoom(f float64) {
	c.Distance = mgl64.Clamp(c.Distance*f, 0.5, 1e4)
}

func (c *OrbitCamera) eye() mgl64.Vec3 {
	cp := math.Cos(c.Pitch)
	dir := mgl64.Vec3{cp * math.Sin(c.Yaw), math.Sin(c.Pitch), cp * math.Cos(c.Yaw)}
	return c.Target.Add(dir.Mul(c.Distance))
}

func (c *OrbitCamera) view() mgl64.Mat4 {
	return mgl64.LookAtV(c.eye(), c.Target, mgl64.Vec3{0, 1, 0})
}

func (c *OrbitCamera) focal() float64 {
	return float64(min(c.W, c.H)) / 2 / math.Tan(c.FOV/2)
}

func (c *OrbitCamera) Project(p mgl64.Vec3) (int, int, bool) {
	q := c.view().Mul4x1(p.Vec4(1))
	// camera looks down -z
	if q[2] > -0.05 {
		return 0, 0, false
	}
	f := c.focal()
	x := float64(c.W)/2 + f*q[0]/-q[2]
	y := float64(c.H)/2 - f*q[1]/-q[2]
	ix, iy := int(math.Round(x)), int(math.Round(y))
	return ix, iy, ix >= 0 && ix < c.W && iy >= 0 && iy < c.H
}

func (c *OrbitCamera) Scale(p mgl64.Vec3) float64 {
	d := -c.view().Mul4x1(p.Vec4(1))[2]
	if d <= 0 {
		return 0
	}
	return c.focal() / d
}

var boxEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// segment draws the part of a world segment whose ends project.
func segment(c *Canvas, proj Projection, a, b mgl64.Vec3) {
	x0, y0, ok0 := proj.Project(a)
	x1, y1, ok1 := proj.Project(b)
	if ok0 || ok1 {
		c.Line(x0, y0, x1, y1)
	}
}

// DrawBox draws the edges of a box with half extents h placed at xf.
func DrawBox(c *Canvas, proj Projection, xf geom.Transform, h mgl64.Vec3) {
	var corners [8]mgl64.Vec3
	for i := range corners {
		local := h
		for k := 0; k < 3; k++ {
			if i&(1<<k) == 0 {
				local[k] = -local[k]
			}
		}
		corners[i] = xf.Apply(local)
	}
	for _, e := range boxEdges {
		segment(c, proj, corners[e[0]], corners[e[1]])
	}
}

// DrawSphere draws the projected outline plus a radius marking the
// orientation, so spin is visible.
func DrawSphere(c *Canvas, proj Projection, xf geom.Transform, r float64) {
	x, y, ok := proj.Project(xf.Position)
	if !ok {
		return
	}
	c.Circle(x, y, int(math.Round(r*proj.Scale(xf.Position))))
	segment(c, proj, xf.Position, xf.Apply(mgl64.Vec3{r, 0, 0}))
}

// DrawAabb outlines a bound in world space.
func DrawAabb(c *Canvas, proj Projection, a geom.Aabb) {
	xf := geom.Identity()
	xf.Position = a.Center()
	DrawBox(c, proj, xf, a.Extents())
}

// DrawWorld renders every shape of every body. Sleeping bodies are drawn
// as their bounds only when showSleeping is false.
func DrawWorld(c *Canvas, proj Projection, w *world.World, showSleeping bool) {
	for _, b := range w.Bodies() {
		if b.IsSleeping() && !showSleeping {
			continue
		}
		for _, s := range b.Shapes() {
			drawShape(c, proj, s)
		}
	}
}

func drawShape(c *Canvas, proj Projection, s *body.Shape) {
	switch g := s.Geometry.(type) {
	case *geom.Box:
		DrawBox(c, proj, s.Transform(), g.HalfExtents)
	case *geom.Sphere:
		DrawSphere(c, proj, s.Transform(), g.Radius)
	default:
		DrawAabb(c, proj, s.Aabb())
	}
}

// DrawJoints connects each joint's two anchors.
func DrawJoints(c *Canvas, proj Projection, w *world.World) {
	for _, j := range w.Joints() {
		a, b := j.Bodies()
		segment(c, proj, a.Position(), j.AnchorA())
		segment(c, proj, j.AnchorB(), b.Position())
	}
}

// WorldBounds is the union of all finite body bounds, or a unit box
// around the origin for an empty world.
func WorldBounds(w *world.World) geom.Aabb {
	var out geom.Aabb
	first := true
	for _, b := range w.Bodies() {
		for _, s := range b.Shapes() {
			a := s.Aabb()
			if !a.IsValid() || a.Extents().Len() > 1e3 {
				continue
			}
			if first {
				out, first = a, false
			} else {
				out = out.Union(a)
			}
		}
	}
	if first {
		return geom.Aabb{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}
	}
	return out
}
