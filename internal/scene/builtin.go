package scene

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/control"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/joint"
	"github.com/san-kum/impulse/internal/world"
)

var unitHalf = mgl64.Vec3{0.5, 0.5, 0.5}

func init() {
	Register(Scene{
		Name:        "rest",
		Description: "a sphere and a cube dropped onto the ground",
		Build:       buildRest,
		Metrics:     []string{"max_penetration", "rest_stability", "sleep_ratio"},
	})
	Register(Scene{
		Name:        "stack",
		Description: "a column of five unit cubes",
		Build:       buildStack,
		Metrics:     []string{"max_penetration", "rest_stability", "contact_impulse", "sleep_ratio"},
	})
	Register(Scene{
		Name:        "pyramid",
		Description: "a six-row pyramid of cubes",
		Build:       buildPyramid,
		Metrics:     []string{"max_penetration", "rest_stability", "sleep_ratio"},
	})
	Register(Scene{
		Name:        "rain",
		Description: "random spheres and boxes falling onto the ground",
		Build:       buildRain,
		Metrics:     []string{"kinetic_energy", "max_penetration", "sleep_ratio"},
	})
	Register(Scene{
		Name:        "pendulum",
		Description: "a chain of five spheres on ball joints",
		Build:       buildPendulum,
		Metrics:     []string{"kinetic_energy"},
	})
	Register(Scene{
		Name:        "motor",
		Description: "a motor-driven wheel and a limited swinging door",
		Build:       buildMotor,
		Metrics:     []string{"kinetic_energy"},
	})
	Register(Scene{
		Name:        "sleepers",
		Description: "a field of resting cubes woken by a rolling ball",
		Build:       buildSleepers,
		Metrics:     []string{"sleep_ratio", "kinetic_energy"},
	})
	Register(Scene{
		Name:        "servo",
		Description: "a PID servo arm stepping between angles",
		Build:       buildServo,
		Metrics:     []string{"kinetic_energy"},
	})
}

func buildRest(w *world.World, _ *rand.Rand) error {
	b := &builder{w: w}
	b.ground(10)
	b.sphere(body.Dynamic, mgl64.Vec3{-1, 1, 0}, 0.5)
	b.box(body.Dynamic, mgl64.Vec3{1, 1, 0}, unitHalf)
	return b.err
}

func buildStack(w *world.World, _ *rand.Rand) error {
	b := &builder{w: w}
	b.ground(10)
	for i := 0; i < 5; i++ {
		b.box(body.Dynamic, mgl64.Vec3{0, 0.5 + float64(i), 0}, unitHalf)
	}
	return b.err
}

func buildPyramid(w *world.World, _ *rand.Rand) error {
	const rows = 6
	b := &builder{w: w}
	b.ground(20)
	for row := 0; row < rows; row++ {
		n := rows - row
		x0 := -float64(n-1) * 0.55
		for i := 0; i < n; i++ {
			b.box(body.Dynamic, mgl64.Vec3{x0 + float64(i)*1.1, 0.5 + float64(row), 0}, unitHalf)
		}
	}
	return b.err
}

func buildRain(w *world.World, rng *rand.Rand) error {
	const drops = 60
	b := &builder{w: w}
	b.ground(15)
	for i := 0; i < drops; i++ {
		pos := mgl64.Vec3{
			rng.Float64()*10 - 5,
			3 + float64(i)*1.0,
			rng.Float64()*10 - 5,
		}
		if rng.Intn(2) == 0 {
			b.sphere(body.Dynamic, pos, 0.25+rng.Float64()*0.25)
			continue
		}
		half := mgl64.Vec3{0.2 + rng.Float64()*0.3, 0.2 + rng.Float64()*0.3, 0.2 + rng.Float64()*0.3}
		axis := mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}
		rot := mgl64.QuatIdent()
		if axis.LenSqr() > 1e-6 {
			rot = mgl64.QuatRotate(rng.Float64()*math.Pi, axis.Normalize())
		}
		b.add(body.Dynamic, pos, rot, body.DefaultShapeConfig(geom.NewBox(half)))
	}
	return b.err
}

func buildPendulum(w *world.World, _ *rand.Rand) error {
	const links = 5
	b := &builder{w: w}
	anchor := b.sphere(body.Static, mgl64.Vec3{0, 8, 0}, 0.1)
	prev := anchor
	for i := 1; i <= links; i++ {
		link := b.sphere(body.Dynamic, mgl64.Vec3{float64(i), 8, 0}, 0.4)
		if b.err != nil {
			return b.err
		}
		j, err := joint.NewBall(joint.NewConfig(prev, link, mgl64.Vec3{float64(i) - 0.5, 8, 0}))
		if err != nil {
			return err
		}
		if err := w.AddJoint(j); err != nil {
			return err
		}
		prev = link
	}
	return b.err
}

func buildMotor(w *world.World, _ *rand.Rand) error {
	b := &builder{w: w}
	b.ground(10)
	post := b.box(body.Static, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0.2, 2, 0.2})
	wheel := b.box(body.Dynamic, mgl64.Vec3{0, 3, 1}, mgl64.Vec3{1.5, 0.2, 0.2})
	door := b.box(body.Dynamic, mgl64.Vec3{1, 1.5, -1}, mgl64.Vec3{0.8, 1, 0.05})
	if b.err != nil {
		return b.err
	}

	hc := joint.NewHingeConfig(post, wheel, mgl64.Vec3{0, 3, 1}, mgl64.Vec3{0, 0, 1})
	hc.MotorSpeed = 2
	hc.MaxMotorTorque = 50
	motor, err := joint.NewHinge(hc)
	if err != nil {
		return err
	}
	if err := w.AddJoint(motor); err != nil {
		return err
	}

	dc := joint.NewHingeConfig(post, door, mgl64.Vec3{0.2, 1.5, -1}, mgl64.Vec3{0, 1, 0})
	dc.LowerAngle = -math.Pi / 4
	dc.UpperAngle = math.Pi / 4
	hinge, err := joint.NewHinge(dc)
	if err != nil {
		return err
	}
	if err := w.AddJoint(hinge); err != nil {
		return err
	}
	door.SetAngularVelocity(mgl64.Vec3{0, 3, 0})
	return nil
}

func buildSleepers(w *world.World, _ *rand.Rand) error {
	b := &builder{w: w}
	b.ground(20)
	for i := 0; i < 5; i++ {
		for k := 0; k < 5; k++ {
			b.box(body.Dynamic, mgl64.Vec3{float64(i)*2 - 4, 0.5, float64(k)*2 - 4}, unitHalf)
		}
	}
	ball := b.sphere(body.Dynamic, mgl64.Vec3{-12, 0.5, 0}, 0.5)
	ball.SetLinearVelocity(mgl64.Vec3{4, 0, 0})
	return b.err
}

// ServoTargets are the arm angles the servo scene cycles through.
var ServoTargets = []float64{math.Pi / 4, -math.Pi / 6, math.Pi / 2}

const servoPeriod = 2.0

func buildServo(w *world.World, _ *rand.Rand) error {
	b := &builder{w: w}
	b.ground(10)
	post := b.box(body.Static, mgl64.Vec3{0, 1.5, 0}, mgl64.Vec3{0.2, 1.5, 0.2})
	arm := b.box(body.Dynamic, mgl64.Vec3{0.75, 3, 0}, mgl64.Vec3{0.75, 0.1, 0.1})
	tip := b.sphere(body.Dynamic, mgl64.Vec3{1.6, 3, 0}, 0.15)
	if b.err != nil {
		return b.err
	}

	hinge, err := joint.NewHinge(joint.NewHingeConfig(post, arm, mgl64.Vec3{0, 3, 0}, mgl64.Vec3{0, 0, 1}))
	if err != nil {
		return err
	}
	if err := w.AddJoint(hinge); err != nil {
		return err
	}
	weld, err := joint.NewBall(joint.NewConfig(arm, tip, mgl64.Vec3{1.5, 3, 0}))
	if err != nil {
		return err
	}
	if err := w.AddJoint(weld); err != nil {
		return err
	}

	servo := control.NewHingeServo(hinge, control.NewPID(6, 1.5, 0.05), 4, 5)
	servo.PID.IntegralLimit = 1
	w.AddController(control.NewSchedule(servo, servoPeriod, ServoTargets...))
	w.AddController(servo)
	return nil
}
