package solver

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/manifold"
)

func ground() *body.RigidBody {
	cfg := body.DefaultConfig()
	cfg.Type = body.Static
	return body.New(cfg)
}

// unitCube is a dynamic unit-mass cube with inertia 1/6 about each axis.
func unitCube(t testing.TB, pos mgl64.Vec3) *body.RigidBody {
	cfg := body.DefaultConfig()
	cfg.Position = pos
	b := body.New(cfg)
	s, err := body.NewShape(body.DefaultShapeConfig(geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddShape(s); err != nil {
		t.Fatal(err)
	}
	return b
}

// restingManifold puts the four bottom corners of a unit cube on the plane y=0.
func restingManifold(a, b *body.RigidBody) *manifold.Manifold {
	m := &manifold.Manifold{}
	m.SetBasis(mgl64.Vec3{0, 1, 0})
	for i, c := range [][2]float64{{-0.5, -0.5}, {0.5, -0.5}, {-0.5, 0.5}, {0.5, 0.5}} {
		m.Points[i] = manifold.Point{
			LocalA: mgl64.Vec3{c[0], 0, c[1]},
			LocalB: mgl64.Vec3{c[0], -0.5, c[1]},
			ID:     uint64(i),
		}
	}
	m.Count = 4
	m.UpdateDepths(a.Transform(), b.Transform())
	return m
}

func singlePoint(a, b *body.RigidBody) *manifold.Manifold {
	m := &manifold.Manifold{}
	m.SetBasis(mgl64.Vec3{0, 1, 0})
	m.Points[0] = manifold.Point{LocalB: mgl64.Vec3{0, -0.5, 0}}
	m.Count = 1
	m.UpdateDepths(a.Transform(), b.Transform())
	return m
}

func testStep(cfg config.Physics) TimeStep {
	return NewTimeStep(1.0/60, 1.0/60, cfg)
}

func TestBounceOnlyForFreshContacts(t *testing.T) {
	tests := []struct {
		name        string
		warmStarted bool
		speed       float64
		wantRHS     float64
	}{
		{"fresh impact bounces", false, 2, 1},
		{"resting contact ignores noise", true, 2, 0},
		{"slow fresh contact", false, 0.1, 0},
	}
	cfg := config.DefaultPhysics()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ground()
			b := unitCube(t, mgl64.Vec3{0, 0.5, 0})
			b.SetLinearVelocity(mgl64.Vec3{0, -tt.speed, 0})
			m := singlePoint(a, b)
			m.Points[0].WarmStarted = tt.warmStarted

			c := NewContactSolver(a, b, m, 0.5, 0.5, cfg.Contact)
			c.PreSolveVelocity(testStep(cfg))
			if c.Rows() != 1 {
				t.Fatalf("rows = %d, want 1", c.Rows())
			}
			if got := c.rows[0].rhs; math.Abs(got-tt.wantRHS) > 1e-12 {
				t.Errorf("rhs = %v, want %v", got, tt.wantRHS)
			}
		})
	}
}

func TestBaumgarteFloor(t *testing.T) {
	cfg := config.DefaultPhysics()
	cfg.Solver.PositionCorrection = config.CorrectionBaumgarte
	a := ground()
	b := unitCube(t, mgl64.Vec3{0, 0.4, 0})
	m := singlePoint(a, b)

	c := NewContactSolver(a, b, m, 0.5, 0, cfg.Contact)
	step := testStep(cfg)
	c.PreSolveVelocity(step)
	want := (0.1 - cfg.Contact.LinearSlop) * cfg.Contact.VelocityBaumgarte * step.InvDt
	if got := c.rows[0].rhs; math.Abs(got-want) > 1e-9 {
		t.Errorf("rhs = %v, want %v", got, want)
	}
}

func TestNormalImpulseStopsApproach(t *testing.T) {
	cfg := config.DefaultPhysics()
	a := ground()
	b := unitCube(t, mgl64.Vec3{0, 0.5, 0})
	b.SetLinearVelocity(mgl64.Vec3{0, -0.3, 0})
	m := singlePoint(a, b)
	m.Points[0].WarmStarted = true

	c := NewContactSolver(a, b, m, 0, 0, cfg.Contact)
	c.PreSolveVelocity(testStep(cfg))
	c.SolveVelocity()

	if vy := b.LinearVelocity().Y(); math.Abs(vy) > 1e-12 {
		t.Errorf("vy = %v, want 0", vy)
	}
	if got := m.Points[0].NormalImpulse; math.Abs(got-0.3) > 1e-12 {
		t.Errorf("impulse = %v, want 0.3", got)
	}
	if a.LinearVelocity() != (mgl64.Vec3{}) {
		t.Error("static body was written")
	}
}

func TestNormalImpulseNeverPulls(t *testing.T) {
	cfg := config.DefaultPhysics()
	a := ground()
	b := unitCube(t, mgl64.Vec3{0, 0.5, 0})
	b.SetLinearVelocity(mgl64.Vec3{0, 1, 0})
	m := singlePoint(a, b)

	c := NewContactSolver(a, b, m, 0.5, 0, cfg.Contact)
	c.PreSolveVelocity(testStep(cfg))
	for i := 0; i < 5; i++ {
		c.SolveVelocity()
	}
	if got := m.Points[0].NormalImpulse; got != 0 {
		t.Errorf("impulse = %v, want 0", got)
	}
	if vy := b.LinearVelocity().Y(); vy != 1 {
		t.Errorf("vy = %v, want 1", vy)
	}
}

func TestFrictionCone(t *testing.T) {
	cfg := config.DefaultPhysics()
	a := ground()
	b := unitCube(t, mgl64.Vec3{0, 0.5, 0})
	b.SetLinearVelocity(mgl64.Vec3{3, -1, 2})
	m := restingManifold(a, b)

	const mu = 0.4
	c := NewContactSolver(a, b, m, mu, 0, cfg.Contact)
	c.PreSolveVelocity(testStep(cfg))
	for i := 0; i < 10; i++ {
		// friction is bounded by the normal impulse from the previous iteration
		var prev [manifold.MaxPoints]float64
		for k := 0; k < m.Count; k++ {
			prev[k] = m.Points[k].NormalImpulse
		}
		c.SolveVelocity()
		for k := 0; k < m.Count; k++ {
			p := m.Points[k]
			f := math.Hypot(p.TangentImpulse, p.BinormalImpulse)
			if f > mu*prev[k]+1e-9 {
				t.Fatalf("iteration %d point %d: friction %v exceeds cone %v", i, k, f, mu*prev[k])
			}
		}
	}
	v := b.LinearVelocity()
	if math.Hypot(v.X(), v.Z()) >= math.Hypot(3, 2) {
		t.Errorf("friction did not slow the slide: %v", v)
	}
}

func TestZeroEffectiveMass(t *testing.T) {
	cfg := config.DefaultPhysics()
	a := ground()
	b := ground()
	m := singlePoint(a, b)
	c := NewContactSolver(a, b, m, 0.5, 0.5, cfg.Contact)
	c.PreSolveVelocity(testStep(cfg))
	c.WarmStart(testStep(cfg))
	c.SolveVelocity()
	if got := m.Points[0].NormalImpulse; got != 0 || math.IsNaN(got) {
		t.Errorf("impulse = %v, want 0", got)
	}
}

func TestWarmStartScalesByDtRatio(t *testing.T) {
	cfg := config.DefaultPhysics()
	a := ground()
	b := unitCube(t, mgl64.Vec3{0, 0.5, 0})
	m := singlePoint(a, b)
	m.Points[0].NormalImpulse = 1

	c := NewContactSolver(a, b, m, 0, 0, cfg.Contact)
	step := NewTimeStep(1.0/120, 1.0/60, cfg)
	c.PreSolveVelocity(step)
	c.WarmStart(step)
	if got := m.Points[0].NormalImpulse; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("impulse = %v, want 0.5", got)
	}
	if vy := b.LinearVelocity().Y(); math.Abs(vy-0.5) > 1e-12 {
		t.Errorf("vy = %v, want 0.5", vy)
	}

	cfg.Solver.WarmStarting = false
	step = NewTimeStep(1.0/60, 1.0/60, cfg)
	c.PreSolveVelocity(step)
	c.WarmStart(step)
	if got := m.Points[0].NormalImpulse; got != 0 {
		t.Errorf("cold start kept impulse %v", got)
	}
}

func TestSplitImpulseKeepsVelocity(t *testing.T) {
	cfg := config.DefaultPhysics()
	a := ground()
	b := unitCube(t, mgl64.Vec3{0, 0.4, 0})
	m := singlePoint(a, b)

	c := NewContactSolver(a, b, m, 0, 0, cfg.Contact)
	c.PreSolvePosition(testStep(cfg))
	c.SolvePositionSplitImpulse()
	b.IntegratePseudoVelocity()

	want := 0.4 + (0.1-cfg.Contact.LinearSlop)*cfg.Contact.SplitImpulseBaumgarte
	if got := b.Position().Y(); math.Abs(got-want) > 1e-12 {
		t.Errorf("y = %v, want %v", got, want)
	}
	if b.LinearVelocity() != (mgl64.Vec3{}) {
		t.Errorf("velocity changed: %v", b.LinearVelocity())
	}
}

func TestNgsClampsCorrection(t *testing.T) {
	cfg := config.DefaultPhysics()
	cfg.Contact.MaxNgsCorrection = 0.05
	a := ground()
	b := unitCube(t, mgl64.Vec3{0, 0, 0})
	m := singlePoint(a, b)

	c := NewContactSolver(a, b, m, 0, 0, cfg.Contact)
	step := testStep(cfg)
	c.PreSolvePosition(step)
	c.SolvePositionNgs(step)
	if got := b.Position().Y(); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("y = %v, want 0.05", got)
	}
}

func TestIslandRestingCube(t *testing.T) {
	modes := []config.PositionCorrection{
		config.CorrectionSplitImpulse,
		config.CorrectionNGS,
		config.CorrectionBaumgarte,
	}
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			cfg := config.DefaultPhysics()
			cfg.Gravity = [3]float64{0, -10, 0}
			cfg.Solver.PositionCorrection = mode
			cfg.Sleep.Enabled = false

			a := ground()
			b := unitCube(t, mgl64.Vec3{0, 0.45, 0})
			m := restingManifold(a, b)
			island := &Island{}
			island.AddBody(b)
			island.AddSolver(NewContactSolver(a, b, m, 0.5, 0, cfg.Contact))

			step := testStep(cfg)
			for i := 0; i < 180; i++ {
				m.UpdateDepths(a.Transform(), b.Transform())
				island.Step(step, cfg)
				for k := 0; k < m.Count; k++ {
					m.Points[k].WarmStarted = true
				}
			}
			m.UpdateDepths(a.Transform(), b.Transform())
			if d := m.MaxDepth(); d > cfg.Contact.LinearSlop+1e-3 {
				t.Errorf("depth = %v, want <= slop", d)
			}
			if vy := b.LinearVelocity().Y(); math.Abs(vy) > 1e-2 {
				t.Errorf("vy = %v, want ~0", vy)
			}
		})
	}
}

func TestIslandSleeps(t *testing.T) {
	cfg := config.DefaultPhysics()
	cfg.Gravity = [3]float64{}
	cfg.Sleep.TimeToSleep = 0.5
	b := unitCube(t, mgl64.Vec3{})
	island := &Island{}
	island.AddBody(b)

	step := NewTimeStep(0.1, 0.1, cfg)
	for i := 0; i < 3; i++ {
		if island.Step(step, cfg).Slept {
			t.Fatalf("slept after %d steps", i+1)
		}
	}
	slept := false
	for i := 0; i < 3 && !slept; i++ {
		slept = island.Step(step, cfg).Slept
	}
	if !slept || !b.IsSleeping() {
		t.Error("island should be asleep")
	}
}

func TestIslandStaysAwakeWhileMoving(t *testing.T) {
	cfg := config.DefaultPhysics()
	cfg.Gravity = [3]float64{}
	a := unitCube(t, mgl64.Vec3{})
	b := unitCube(t, mgl64.Vec3{5, 0, 0})
	b.SetLinearVelocity(mgl64.Vec3{1, 0, 0})
	island := &Island{}
	island.AddBody(a)
	island.AddBody(b)

	step := NewTimeStep(0.1, 0.1, cfg)
	for i := 0; i < 30; i++ {
		if island.Step(step, cfg).Slept {
			t.Fatal("island with a moving body slept")
		}
	}
	if a.SleepTime() < cfg.Sleep.TimeToSleep {
		t.Error("slow body should have accumulated sleep time")
	}
}

type pinJoint struct {
	a, b     *body.RigidBody
	localA   mgl64.Vec3
	localB   mgl64.Vec3
	rA, rB   mgl64.Vec3
	impulses [3]JointImpulse
	broken   bool
}

func (j *pinJoint) Bodies() (*body.RigidBody, *body.RigidBody) { return j.a, j.b }

func (j *pinJoint) SyncAnchors() {
	j.rA = j.a.Transform().Rotate(j.localA)
	j.rB = j.b.Transform().Rotate(j.localB)
}

func (j *pinJoint) rows(info *JointSolverInfo) {
	diff := j.rA.Add(j.a.Position()).Sub(j.rB.Add(j.b.Position()))
	for i := 0; i < 3; i++ {
		var axis mgl64.Vec3
		axis[i] = 1
		row := info.AddRow(&j.impulses[i])
		row.SetLinear(axis, j.rA, j.rB)
		row.Error = diff.Dot(axis)
	}
}

func (j *pinJoint) VelocitySolverInfo(step TimeStep, info *JointSolverInfo) { j.rows(info) }
func (j *pinJoint) PositionSolverInfo(info *JointSolverInfo)                { j.rows(info) }
func (j *pinJoint) WarmStartingFactor() float64                             { return 1 }
func (j *pinJoint) CheckDestruction(step TimeStep) bool                     { return j.broken }

func TestJointSolverPinsAnchor(t *testing.T) {
	cfg := config.DefaultPhysics()
	a := ground()
	b := unitCube(t, mgl64.Vec3{0, -1, 0})
	b.SetLinearVelocity(mgl64.Vec3{1, 0, 0.5})
	j := &pinJoint{a: a, b: b, localB: mgl64.Vec3{0, 1, 0}}

	s := NewJointSolver(j, cfg.Contact)
	step := testStep(cfg)
	s.PreSolveVelocity(step)
	s.WarmStart(step)
	s.SolveVelocity()

	anchor := b.PointVelocity(mgl64.Vec3{})
	if anchor.Len() > 1e-9 {
		t.Errorf("anchor velocity = %v, want 0", anchor)
	}
	if b.AngularVelocity().Len() == 0 {
		t.Error("pinned body should swing")
	}
	s.PostSolve(step)
	if s.Broken {
		t.Error("joint should not break")
	}
	j.broken = true
	s.PostSolve(step)
	if !s.Broken {
		t.Error("joint should report broken")
	}
}

func TestJointMotorRespectsLimit(t *testing.T) {
	cfg := config.DefaultPhysics()
	a := ground()
	b := unitCube(t, mgl64.Vec3{})
	var imp JointImpulse
	j := &motorJoint{a: a, b: b, impulse: &imp, speed: 10, maxImpulse: 0.5}

	s := NewJointSolver(j, cfg.Contact)
	step := testStep(cfg)
	s.PreSolveVelocity(step)
	s.WarmStart(step)
	for i := 0; i < 5; i++ {
		s.SolveVelocity()
	}
	if imp.MotorImpulse != 0.5 {
		t.Errorf("motor impulse = %v, want 0.5", imp.MotorImpulse)
	}
	// torque impulse 0.5 on inertia 1/6
	if wy := b.AngularVelocity().Y(); math.Abs(wy-3) > 1e-9 {
		t.Errorf("wy = %v, want 3", wy)
	}
}

type motorJoint struct {
	a, b       *body.RigidBody
	impulse    *JointImpulse
	speed      float64
	maxImpulse float64
}

func (j *motorJoint) Bodies() (*body.RigidBody, *body.RigidBody) { return j.a, j.b }
func (j *motorJoint) SyncAnchors()                               {}
func (j *motorJoint) VelocitySolverInfo(step TimeStep, info *JointSolverInfo) {
	row := info.AddRow(j.impulse)
	row.SetAngular(mgl64.Vec3{0, 1, 0})
	row.MinImpulse, row.MaxImpulse = 0, 0
	row.MotorSpeed = j.speed
	row.MotorMaxImpulse = j.maxImpulse
}
func (j *motorJoint) PositionSolverInfo(info *JointSolverInfo) {}
func (j *motorJoint) WarmStartingFactor() float64              { return 1 }
func (j *motorJoint) CheckDestruction(step TimeStep) bool      { return false }

func BenchmarkContactSolve(b *testing.B) {
	cfg := config.DefaultPhysics()
	g := ground()
	cube := unitCube(b, mgl64.Vec3{0, 0.49, 0})
	m := restingManifold(g, cube)
	c := NewContactSolver(g, cube, m, 0.5, 0, cfg.Contact)
	step := testStep(cfg)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.PreSolveVelocity(step)
		c.WarmStart(step)
		for k := 0; k < 10; k++ {
			c.SolveVelocity()
		}
	}
}
