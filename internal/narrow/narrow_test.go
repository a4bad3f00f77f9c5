package narrow

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/manifold"
)

func at(x, y, z float64) geom.Transform {
	xf := geom.Identity()
	xf.Position = mgl64.Vec3{x, y, z}
	return xf
}

func checkDepths(t *testing.T, res *manifold.Result) {
	t.Helper()
	for _, p := range res.Points {
		got := p.PositionA.Sub(p.PositionB).Dot(res.Normal)
		if math.Abs(got-p.Depth) > 1e-9 {
			t.Errorf("point %d: depth %f but positions give %f", p.ID, p.Depth, got)
		}
	}
}

func TestSphereSphere(t *testing.T) {
	var res manifold.Result
	a, b := geom.NewSphere(1), geom.NewSphere(0.5)

	if !Detect(a, at(0, 0, 0), b, at(1.4, 0, 0), &res) {
		t.Fatal("expected contact")
	}
	if len(res.Points) != 1 {
		t.Fatalf("points %d", len(res.Points))
	}
	if res.Normal != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("normal %v", res.Normal)
	}
	if math.Abs(res.Points[0].Depth-0.1) > 1e-12 {
		t.Errorf("depth %f", res.Points[0].Depth)
	}
	checkDepths(t, &res)

	if Detect(a, at(0, 0, 0), b, at(1.5, 0, 0), &res) {
		t.Error("touching spheres should not collide")
	}
}

func TestSphereBoxBothOrders(t *testing.T) {
	box := geom.NewBox(mgl64.Vec3{5, 0.5, 5})
	ball := geom.NewSphere(0.5)
	var res manifold.Result

	if !Detect(box, at(0, 0, 0), ball, at(1, 0.98, 0), &res) {
		t.Fatal("box-sphere: expected contact")
	}
	if !vecNear(res.Normal, mgl64.Vec3{0, 1, 0}) {
		t.Errorf("box-sphere normal %v", res.Normal)
	}
	if math.Abs(res.Points[0].Depth-0.02) > 1e-9 {
		t.Errorf("box-sphere depth %f", res.Points[0].Depth)
	}
	checkDepths(t, &res)

	if !Detect(ball, at(1, 0.98, 0), box, at(0, 0, 0), &res) {
		t.Fatal("sphere-box: expected contact")
	}
	if !vecNear(res.Normal, mgl64.Vec3{0, -1, 0}) {
		t.Errorf("sphere-box normal %v", res.Normal)
	}
	if res.Points[0].PositionA[1] > res.Points[0].PositionB[1] {
		t.Error("sphere point should sit below the box surface point")
	}
	checkDepths(t, &res)
}

func TestSphereCentreInsideBox(t *testing.T) {
	box := geom.NewBox(mgl64.Vec3{1, 1, 1})
	ball := geom.NewSphere(0.25)
	var res manifold.Result
	if !Detect(box, at(0, 0, 0), ball, at(0, 0.8, 0), &res) {
		t.Fatal("expected contact")
	}
	if !vecNear(res.Normal, mgl64.Vec3{0, 1, 0}) {
		t.Errorf("normal %v", res.Normal)
	}
	if math.Abs(res.Points[0].Depth-0.45) > 1e-9 {
		t.Errorf("depth %f, want 0.45", res.Points[0].Depth)
	}
	checkDepths(t, &res)
}

func TestBoxRestingOnGround(t *testing.T) {
	ground := geom.NewBox(mgl64.Vec3{10, 0.5, 10})
	cube := geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	var res manifold.Result

	if !Detect(ground, at(0, 0, 0), cube, at(0, 0.99, 0), &res) {
		t.Fatal("expected contact")
	}
	if len(res.Points) != 4 {
		t.Fatalf("points %d, want 4", len(res.Points))
	}
	if !vecNear(res.Normal, mgl64.Vec3{0, 1, 0}) {
		t.Errorf("normal %v", res.Normal)
	}
	for _, p := range res.Points {
		if math.Abs(p.Depth-0.01) > 1e-9 {
			t.Errorf("depth %f", p.Depth)
		}
		if p.ID < 8 {
			t.Errorf("ids of cube vertices should be offset, got %d", p.ID)
		}
	}
	checkDepths(t, &res)
}

func TestSmallBoxAboveLargeBox(t *testing.T) {
	// A is the small box, so its face is the reference and the large box's
	// vertices all lie outside it
	cube := geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	ground := geom.NewBox(mgl64.Vec3{10, 0.5, 10})
	var res manifold.Result

	if !Detect(cube, at(0, 0.99, 0), ground, at(0, 0, 0), &res) {
		t.Fatal("expected contact")
	}
	if len(res.Points) != 4 {
		t.Fatalf("points %d, want 4", len(res.Points))
	}
	if !vecNear(res.Normal, mgl64.Vec3{0, -1, 0}) {
		t.Errorf("normal %v", res.Normal)
	}
	checkDepths(t, &res)
}

func TestStackedEqualCubes(t *testing.T) {
	cube := geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	var res manifold.Result
	if !Detect(cube, at(0, 0, 0), cube, at(0, 0.995, 0), &res) {
		t.Fatal("expected contact")
	}
	if len(res.Points) != 4 {
		t.Errorf("points %d, want 4 without duplicates", len(res.Points))
	}
	checkDepths(t, &res)
}

func TestBoxesSeparated(t *testing.T) {
	cube := geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	var res manifold.Result
	tilted := geom.NewTransform(mgl64.Vec3{1.2, 0, 0}, mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0}))
	if Detect(cube, at(0, 0, 0), cube, tilted, &res) {
		// 0.5 + 0.5*sqrt2 > 1.2, so these do overlap
		checkDepths(t, &res)
	} else {
		t.Error("rotated cubes within reach should collide")
	}
	if Detect(cube, at(0, 0, 0), cube, at(0, 1.01, 0), &res) {
		t.Error("separated cubes should not collide")
	}
}

func TestBoxIdsStable(t *testing.T) {
	ground := geom.NewBox(mgl64.Vec3{10, 0.5, 10})
	cube := geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	var first, second manifold.Result
	Detect(ground, at(0, 0, 0), cube, at(0, 0.99, 0), &first)
	Detect(ground, at(0, 0, 0), cube, at(0.01, 0.995, 0), &second)

	ids := map[uint64]bool{}
	for _, p := range first.Points {
		ids[p.ID] = true
	}
	for _, p := range second.Points {
		if !ids[p.ID] {
			t.Errorf("id %d not seen in the previous frame", p.ID)
		}
	}
}

func TestSupports(t *testing.T) {
	if !Supports(geom.KindBox, geom.KindSphere) {
		t.Error("box-sphere should be supported")
	}
	if Supports(geom.Kind(42), geom.KindBox) {
		t.Error("unknown kind should not be supported")
	}
}

func vecNear(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}
