package joint

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/solver"
)

func anchorBody() *body.RigidBody {
	cfg := body.DefaultConfig()
	cfg.Type = body.Static
	return body.New(cfg)
}

func cube(t *testing.T, pos mgl64.Vec3) *body.RigidBody {
	t.Helper()
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

func physics() config.Physics {
	cfg := config.DefaultPhysics()
	cfg.Gravity = [3]float64{0, -10, 0}
	cfg.Sleep.Enabled = false
	return cfg
}

func run(cfg config.Physics, steps int, bodies []*body.RigidBody, solvers ...solver.ConstraintSolver) {
	island := &solver.Island{}
	for _, b := range bodies {
		island.AddBody(b)
	}
	for _, s := range solvers {
		island.AddSolver(s)
	}
	step := solver.NewTimeStep(1.0/60, 1.0/60, cfg)
	for i := 0; i < steps; i++ {
		island.Step(step, cfg)
	}
}

func TestConfigValidation(t *testing.T) {
	a := anchorBody()
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"same body", Config{A: a, B: a}, ErrSameBody},
		{"missing body", Config{A: a}, ErrNilBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBall(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("NewBall: got %v, want %v", err, tt.want)
			}
			if _, err := NewHinge(HingeConfig{Config: tt.cfg, LocalAxisA: mgl64.Vec3{1, 0, 0}, LocalAxisB: mgl64.Vec3{1, 0, 0}}); !errors.Is(err, tt.want) {
				t.Errorf("NewHinge: got %v, want %v", err, tt.want)
			}
		})
	}

	b := cube(t, mgl64.Vec3{})
	if _, err := NewHinge(HingeConfig{Config: NewConfig(a, b, mgl64.Vec3{})}); !errors.Is(err, ErrZeroAxis) {
		t.Errorf("expected ErrZeroAxis, got %v", err)
	}
}

func TestBallJointPendulumKeepsLength(t *testing.T) {
	cfg := physics()
	a := anchorBody()
	bob := cube(t, mgl64.Vec3{2, 0, 0})
	j, err := NewBall(NewConfig(a, bob, mgl64.Vec3{}))
	if err != nil {
		t.Fatal(err)
	}
	run(cfg, 240, []*body.RigidBody{bob}, solver.NewJointSolver(j, cfg.Contact))

	j.SyncAnchors()
	if gap := j.AnchorA().Sub(j.AnchorB()).Len(); gap > 1e-2 {
		t.Errorf("anchors drifted apart by %v", gap)
	}
	if r := bob.Position().Len(); math.Abs(r-2) > 2e-2 {
		t.Errorf("pendulum length = %v, want 2", r)
	}
	if bob.Position().Sub(mgl64.Vec3{2, 0, 0}).Len() < 1e-3 {
		t.Error("pendulum never moved")
	}
}

func TestHingeAngle(t *testing.T) {
	a := anchorBody()
	b := cube(t, mgl64.Vec3{})
	j, err := NewHinge(NewHingeConfig(a, b, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(j.Angle()) > 1e-12 {
		t.Errorf("initial angle = %v, want 0", j.Angle())
	}
	for _, want := range []float64{0.3, -1.2, 2.5} {
		b.SetRotation(mgl64.QuatRotate(want, mgl64.Vec3{0, 1, 0}))
		j.SyncAnchors()
		if math.Abs(j.Angle()-want) > 1e-9 {
			t.Errorf("angle = %v, want %v", j.Angle(), want)
		}
	}
}

func TestHingeMotorReachesSpeed(t *testing.T) {
	cfg := physics()
	cfg.Gravity = [3]float64{}
	a := anchorBody()
	b := cube(t, mgl64.Vec3{})
	hc := NewHingeConfig(a, b, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	hc.MotorSpeed = 2
	hc.MaxMotorTorque = 100
	j, err := NewHinge(hc)
	if err != nil {
		t.Fatal(err)
	}
	run(cfg, 30, []*body.RigidBody{b}, solver.NewJointSolver(j, cfg.Contact))

	if wy := b.AngularVelocity().Y(); math.Abs(wy-2) > 1e-3 {
		t.Errorf("wy = %v, want 2", wy)
	}
}

func TestHingeMotorTorqueIsBounded(t *testing.T) {
	cfg := physics()
	cfg.Gravity = [3]float64{}
	a := anchorBody()
	b := cube(t, mgl64.Vec3{})
	hc := NewHingeConfig(a, b, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	hc.MotorSpeed = 100
	hc.MaxMotorTorque = 1
	j, _ := NewHinge(hc)
	run(cfg, 1, []*body.RigidBody{b}, solver.NewJointSolver(j, cfg.Contact))

	// torque 1 for one step on inertia 1/6
	want := 6.0 / 60
	if wy := b.AngularVelocity().Y(); math.Abs(wy-want) > 1e-6 {
		t.Errorf("wy = %v, want %v", wy, want)
	}
}

func TestHingeLimit(t *testing.T) {
	cfg := physics()
	cfg.Gravity = [3]float64{}
	a := anchorBody()
	b := cube(t, mgl64.Vec3{})
	b.SetAngularVelocity(mgl64.Vec3{0, 3, 0})
	hc := NewHingeConfig(a, b, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	hc.LowerAngle, hc.UpperAngle = -0.5, 0.5
	j, _ := NewHinge(hc)
	s := solver.NewJointSolver(j, cfg.Contact)

	island := &solver.Island{}
	island.AddBody(b)
	island.AddSolver(s)
	step := solver.NewTimeStep(1.0/60, 1.0/60, cfg)
	for i := 0; i < 120; i++ {
		island.Step(step, cfg)
		j.SyncAnchors()
		if j.Angle() > 0.5+0.06 {
			t.Fatalf("step %d: angle %v passed the upper limit", i, j.Angle())
		}
	}
	if j.Angle() < 0.4 {
		t.Errorf("body should rest near the upper limit, angle %v", j.Angle())
	}
}

func TestHingeKeepsAxesAligned(t *testing.T) {
	cfg := physics()
	cfg.Gravity = [3]float64{}
	a := anchorBody()
	b := cube(t, mgl64.Vec3{})
	b.SetAngularVelocity(mgl64.Vec3{1, 2, 0.5})
	j, _ := NewHinge(NewHingeConfig(a, b, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}))
	run(cfg, 60, []*body.RigidBody{b}, solver.NewJointSolver(j, cfg.Contact))

	w := b.AngularVelocity()
	if math.Hypot(w.X(), w.Z()) > 1e-6 {
		t.Errorf("off-axis spin survived: %v", w)
	}
	if math.Abs(w.Y()-2) > 1e-6 {
		t.Errorf("axial spin = %v, want 2", w.Y())
	}
	j.SyncAnchors()
	if d := j.Axis().Sub(mgl64.Vec3{0, 1, 0}).Len(); d > 1e-3 {
		t.Errorf("hinge axis tilted by %v", d)
	}
}

func TestBreakForce(t *testing.T) {
	tests := []struct {
		name       string
		breakForce float64
		wantBroken bool
	}{
		{"unbreakable", 0, false},
		{"strong", 1000, false},
		{"weak", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := physics()
			a := anchorBody()
			bob := cube(t, mgl64.Vec3{0, -1, 0})
			jc := NewConfig(a, bob, mgl64.Vec3{})
			jc.BreakForce = tt.breakForce
			j, _ := NewBall(jc)
			s := solver.NewJointSolver(j, cfg.Contact)
			run(cfg, 5, []*body.RigidBody{bob}, s)

			if s.Broken != tt.wantBroken {
				t.Errorf("broken = %v, want %v", s.Broken, tt.wantBroken)
			}
			// holding a unit mass against g=10
			if f := j.AppliedForce().Y(); math.Abs(f-10) > 0.5 {
				t.Errorf("applied force = %v, want ~10", f)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	if Ball.String() != "ball" || Hinge.String() != "hinge" || Type(9).String() != "unknown" {
		t.Error("unexpected type names")
	}
}
