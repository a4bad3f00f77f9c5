package world_test

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/broadphase"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/geom"
	"github.com/san-kum/impulse/internal/joint"
	"github.com/san-kum/impulse/internal/world"
)

const dt = 1.0 / 60

func newWorld(mutate func(*config.Physics)) *world.World {
	cfg := config.DefaultPhysics()
	cfg.Gravity = [3]float64{0, -10, 0}
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := world.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return w
}

func addBody(w *world.World, typ body.Type, pos mgl64.Vec3, g geom.Geometry, density float64) *body.RigidBody {
	bc := body.DefaultConfig()
	bc.Type = typ
	bc.Position = pos
	b := body.New(bc)
	sc := body.DefaultShapeConfig(g)
	sc.Density = density
	s, err := body.NewShape(sc)
	Expect(err).NotTo(HaveOccurred())
	Expect(b.AddShape(s)).To(Succeed())
	Expect(w.AddBody(b)).To(Succeed())
	return b
}

// addGround adds a static slab whose top face is the plane y=0.
func addGround(w *world.World) *body.RigidBody {
	return addBody(w, body.Static, mgl64.Vec3{0, -0.5, 0}, geom.NewBox(mgl64.Vec3{20, 0.5, 20}), 1)
}

func addSphere(w *world.World, pos mgl64.Vec3) *body.RigidBody {
	s := geom.NewSphere(0.5)
	return addBody(w, body.Dynamic, pos, s, 1/s.Volume())
}

func addCube(w *world.World, pos mgl64.Vec3) *body.RigidBody {
	return addBody(w, body.Dynamic, pos, geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}), 1)
}

func stepN(w *world.World, n int) {
	for i := 0; i < n; i++ {
		Expect(w.Step(dt)).To(Succeed())
	}
}

type recorder struct {
	begins, ends int
}

func (r *recorder) BeginContact(*world.Contact) { r.begins++ }
func (r *recorder) EndContact(*world.Contact)   { r.ends++ }

var _ = Describe("World", func() {
	Describe("resting contact", func() {
		var slop float64

		BeforeEach(func() {
			slop = config.DefaultPhysics().Contact.LinearSlop
		})

		It("settles a unit sphere on static ground", func() {
			w := newWorld(func(c *config.Physics) { c.Solver.VelocityIterations = 4 })
			addGround(w)
			ball := addSphere(w, mgl64.Vec3{0, 0.5, 0})

			stepN(w, 90)

			depth := 0.5 - ball.Position().Y()
			Expect(depth).To(BeNumerically("<=", slop+1e-4))
			Expect(ball.LinearVelocity().Y()).To(BeNumerically("~", 0, 1e-3))
			Expect(math.Abs(ball.Position().X())).To(BeNumerically("<", 1e-9))
		})

		It("settles two stacked spheres", func() {
			w := newWorld(nil)
			addGround(w)
			low := addSphere(w, mgl64.Vec3{0, 0.5, 0})
			high := addSphere(w, mgl64.Vec3{0, 1.5, 0})

			stepN(w, 180)

			Expect(0.5 - low.Position().Y()).To(BeNumerically("<=", slop+1e-3))
			Expect(1.0 - (high.Position().Y() - low.Position().Y())).To(BeNumerically("<=", slop+1e-3))
			Expect(low.LinearVelocity().Y()).To(BeNumerically("~", 0, 1e-2))
			Expect(high.LinearVelocity().Y()).To(BeNumerically("~", 0, 1e-2))
		})

		DescribeTable("keeps a three-cube stack upright",
			func(mode config.PositionCorrection, drift float64) {
				w := newWorld(func(c *config.Physics) { c.Solver.PositionCorrection = mode })
				addGround(w)
				var cubes []*body.RigidBody
				for i := 0; i < 3; i++ {
					cubes = append(cubes, addCube(w, mgl64.Vec3{0, 0.5 + float64(i), 0}))
				}

				stepN(w, 240)

				for i, c := range cubes {
					Expect(math.Abs(c.Position().X())).To(BeNumerically("<", drift), "cube %d drifted", i)
					Expect(c.Position().Y()).To(BeNumerically("~", 0.5+float64(i), 0.05), "cube %d height", i)
				}
				Expect(w.BroadPhase().Tree().Validate()).To(Succeed())
			},
			Entry("split impulse", config.CorrectionSplitImpulse, 1e-2),
			Entry("ngs", config.CorrectionNGS, 1e-2),
			// the velocity bias is real velocity, so the stack jitters and
			// friction lets it creep sideways a little before it sleeps
			Entry("baumgarte", config.CorrectionBaumgarte, 3e-2),
		)
	})

	Describe("sleeping", func() {
		It("puts a settled stack to sleep and wakes it on demand", func() {
			w := newWorld(nil)
			addGround(w)
			bottom := addCube(w, mgl64.Vec3{0, 0.5, 0})
			top := addCube(w, mgl64.Vec3{0, 1.5, 0})

			stepN(w, 300)
			Expect(bottom.IsSleeping()).To(BeTrue())
			Expect(top.IsSleeping()).To(BeTrue())
			Expect(w.LastStats().SleepingBodies).To(Equal(2))

			top.ApplyImpulse(mgl64.Vec3{0, 0.1, 0}, top.Position())
			Expect(top.IsSleeping()).To(BeFalse())
			stepN(w, 1)
			Expect(bottom.IsSleeping()).To(BeFalse(), "touching island wakes as a whole")
		})

		It("never sleeps when disabled", func() {
			w := newWorld(func(c *config.Physics) { c.Sleep.Enabled = false })
			addGround(w)
			cube := addCube(w, mgl64.Vec3{0, 0.5, 0})
			stepN(w, 300)
			Expect(cube.IsSleeping()).To(BeFalse())
		})

		It("wakes a sleeper hit by a moving kinematic body", func() {
			w := newWorld(nil)
			addGround(w)
			cube := addCube(w, mgl64.Vec3{0, 0.5, 0})
			stepN(w, 300)
			Expect(cube.IsSleeping()).To(BeTrue())

			pusher := addBody(w, body.Kinematic, mgl64.Vec3{-3, 0.5, 0}, geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5}), 1)
			pusher.SetLinearVelocity(mgl64.Vec3{2, 0, 0})
			stepN(w, 120)
			Expect(cube.Position().X()).To(BeNumerically(">", 0.5))
		})
	})

	Describe("contacts", func() {
		It("reports begin and end events", func() {
			w := newWorld(nil)
			rec := &recorder{}
			w.SetContactListener(rec)
			addGround(w)
			ball := addSphere(w, mgl64.Vec3{0, 1, 0})

			stepN(w, 60)
			Expect(rec.begins).To(Equal(1))
			Expect(rec.ends).To(Equal(0))

			ball.SetPosition(mgl64.Vec3{0, 10, 0})
			stepN(w, 2)
			Expect(rec.ends).To(Equal(1))
			Expect(w.Contacts()).To(BeEmpty())
		})

		It("filters pairs by category and mask", func() {
			w := newWorld(nil)
			addGround(w)
			ghost := addSphere(w, mgl64.Vec3{0, 0.5, 0})
			ghost.Shapes()[0].Mask = 0

			stepN(w, 30)
			Expect(w.Contacts()).To(BeEmpty())
			Expect(ghost.Position().Y()).To(BeNumerically("<", 0))
		})

		It("drops contacts and proxies with a removed body", func() {
			w := newWorld(nil)
			addGround(w)
			ball := addSphere(w, mgl64.Vec3{0, 0.5, 0})
			stepN(w, 5)
			Expect(w.Contacts()).NotTo(BeEmpty())

			Expect(w.RemoveBody(ball)).To(Succeed())
			Expect(w.Contacts()).To(BeEmpty())
			Expect(ball.ContactCount()).To(Equal(0))
			Expect(w.BroadPhase().ProxyCount()).To(Equal(1))
			Expect(w.BroadPhase().Tree().Validate()).To(Succeed())
			Expect(w.RemoveBody(ball)).To(MatchError(world.ErrBodyNotInWorld))
		})
	})

	Describe("joints", func() {
		It("holds a ball-joint chain together", func() {
			w := newWorld(nil)
			anchor := addBody(w, body.Static, mgl64.Vec3{0, 10, 0}, geom.NewSphere(0.1), 1)
			prev := anchor
			var links []*joint.BallJoint
			for i := 1; i <= 4; i++ {
				link := addSphere(w, mgl64.Vec3{float64(i), 10, 0})
				j, err := joint.NewBall(joint.NewConfig(prev, link, mgl64.Vec3{float64(i) - 0.5, 10, 0}))
				Expect(err).NotTo(HaveOccurred())
				Expect(w.AddJoint(j)).To(Succeed())
				links = append(links, j)
				prev = link
			}

			stepN(w, 180)

			for i, j := range links {
				j.SyncAnchors()
				Expect(j.AnchorA().Sub(j.AnchorB()).Len()).To(BeNumerically("<", 0.05), "joint %d", i)
			}
			for _, c := range w.Contacts() {
				a, b := c.Bodies()
				for _, j := range links {
					ja, jb := j.Bodies()
					jointed := (a == ja && b == jb) || (a == jb && b == ja)
					Expect(jointed).To(BeFalse(), "jointed neighbours must not collide")
				}
			}
		})

		It("removes a joint that breaks", func() {
			w := newWorld(nil)
			anchor := addBody(w, body.Static, mgl64.Vec3{0, 5, 0}, geom.NewSphere(0.1), 1)
			bob := addSphere(w, mgl64.Vec3{0, 4, 0})
			cfg := joint.NewConfig(anchor, bob, mgl64.Vec3{0, 5, 0})
			cfg.BreakForce = 1
			j, err := joint.NewBall(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.AddJoint(j)).To(Succeed())

			stepN(w, 1)
			Expect(w.LastStats().BrokenJoints).To(Equal(1))
			Expect(w.Joints()).To(BeEmpty())
			Expect(bob.JointCount()).To(Equal(0))
		})

		It("rejects joints on bodies outside the world", func() {
			w := newWorld(nil)
			a := addSphere(w, mgl64.Vec3{})
			stray := body.New(body.DefaultConfig())
			j, err := joint.NewBall(joint.NewConfig(a, stray, mgl64.Vec3{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(w.AddJoint(j)).To(MatchError(world.ErrJointBodies))
		})

		It("spins a hinge motor up to speed", func() {
			w := newWorld(func(c *config.Physics) { c.Gravity = [3]float64{} })
			frame := addBody(w, body.Static, mgl64.Vec3{}, geom.NewSphere(0.1), 1)
			wheel := addBody(w, body.Dynamic, mgl64.Vec3{0, 0, 2}, geom.NewBox(mgl64.Vec3{1, 0.1, 1}), 1)
			hc := joint.NewHingeConfig(frame, wheel, mgl64.Vec3{0, 0, 2}, mgl64.Vec3{0, 1, 0})
			hc.MotorSpeed = 3
			hc.MaxMotorTorque = 50
			j, err := joint.NewHinge(hc)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.AddJoint(j)).To(Succeed())

			stepN(w, 60)
			Expect(wheel.AngularVelocity().Y()).To(BeNumerically("~", 3, 1e-3))
		})
	})

	Describe("queries", func() {
		var w *world.World
		var near, far *body.RigidBody

		BeforeEach(func() {
			w = newWorld(nil)
			near = addSphere(w, mgl64.Vec3{3, 0, 0})
			far = addSphere(w, mgl64.Vec3{6, 0, 0})
		})

		It("ray casts to the closest shape", func() {
			hit, ok := w.RayCast(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0})
			Expect(ok).To(BeTrue())
			Expect(hit.Shape.Body()).To(BeIdenticalTo(near))
			Expect(hit.Position.X()).To(BeNumerically("~", 2.5, 1e-9))
			Expect(hit.Normal.X()).To(BeNumerically("~", -1, 1e-9))

			_, ok = w.RayCast(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{10, 5, 0})
			Expect(ok).To(BeFalse())
		})

		It("finds shapes in a box", func() {
			var found []*body.RigidBody
			w.QueryAabb(geom.AabbAround(mgl64.Vec3{6, 0, 0}, mgl64.Vec3{1, 1, 1}), func(s *body.Shape) bool {
				found = append(found, s.Body())
				return true
			})
			Expect(found).To(ConsistOf(far))
		})

		It("finds shapes along a sweep", func() {
			var found []*body.RigidBody
			box := geom.AabbAround(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0.2, 0.2, 0.2})
			w.QuerySweep(box, mgl64.Vec3{4, 0, 0}, func(s *body.Shape) bool {
				found = append(found, s.Body())
				return true
			})
			Expect(found).To(ConsistOf(near))
		})
	})

	Describe("parallel islands", func() {
		build := func(workers int) []*body.RigidBody {
			w := newWorld(func(c *config.Physics) {
				c.Workers = workers
				c.Sleep.Enabled = false
			})
			addGround(w)
			var all []*body.RigidBody
			for s := 0; s < 4; s++ {
				x := float64(s) * 4
				for i := 0; i < 3; i++ {
					all = append(all, addCube(w, mgl64.Vec3{x, 0.5 + float64(i), 0}))
				}
			}
			stepN(w, 120)
			// one awake island per stack, so the workers had work to split
			Expect(w.LastStats().Islands).To(Equal(4))
			return all
		}

		It("matches the serial result exactly", func() {
			serial := build(1)
			parallel := build(4)
			for i := range serial {
				Expect(parallel[i].Position()).To(Equal(serial[i].Position()))
				Expect(parallel[i].Rotation()).To(Equal(serial[i].Rotation()))
			}
		})
	})

	Describe("errors and stats", func() {
		It("wraps a bad time step", func() {
			w := newWorld(nil)
			err := w.Step(-1)
			Expect(errors.Is(err, world.ErrInvalidDt)).To(BeTrue())
			var werr *world.WorldError
			Expect(errors.As(err, &werr)).To(BeTrue())
			Expect(werr.Op).To(Equal("step"))
		})

		It("rejects an invalid configuration", func() {
			cfg := config.DefaultPhysics()
			cfg.Solver.VelocityIterations = 0
			_, err := world.New(cfg)
			Expect(errors.Is(err, config.ErrInvalidConfig)).To(BeTrue())
		})

		It("delivers step stats to the hook", func() {
			w := newWorld(nil)
			var seen []world.StepStats
			w.SetStatsHook(func(s world.StepStats) { seen = append(seen, s) })
			addGround(w)
			addSphere(w, mgl64.Vec3{0, 0.5, 0})
			stepN(w, 3)

			Expect(seen).To(HaveLen(3))
			last := seen[2]
			Expect(last.Step).To(Equal(2))
			Expect(last.Bodies).To(Equal(2))
			Expect(last.Proxies).To(Equal(2))
			Expect(last.TouchingContacts).To(Equal(1))
			Expect(last.Time).To(BeNumerically("~", 3*dt, 1e-12))
		})

		It("refuses to add a body twice", func() {
			w := newWorld(nil)
			b := addSphere(w, mgl64.Vec3{})
			Expect(w.AddBody(b)).To(MatchError(world.ErrBodyInWorld))
		})

		It("treats a dynamic body without shapes as static", func() {
			w := newWorld(nil)
			b := body.New(body.DefaultConfig())
			Expect(w.AddBody(b)).To(Succeed())
			stepN(w, 10)
			Expect(b.IsStatic()).To(BeTrue())
			Expect(b.Position()).To(Equal(mgl64.Vec3{}))
		})

		It("creates proxies for shapes added later", func() {
			w := newWorld(nil)
			b := addSphere(w, mgl64.Vec3{})
			s, err := body.NewShape(body.DefaultShapeConfig(geom.NewBox(mgl64.Vec3{1, 1, 1})))
			Expect(err).NotTo(HaveOccurred())
			Expect(b.AddShape(s)).To(Succeed())
			Expect(s.Proxy).NotTo(BeNil())
			Expect(w.BroadPhase().ProxyCount()).To(Equal(2))
			Expect(b.RemoveShape(s)).To(Succeed())
			Expect(w.BroadPhase().ProxyCount()).To(Equal(1))
		})

		It("rejects a body whose shape has no valid bounds", func() {
			w := newWorld(nil)
			addGround(w)
			bc := body.DefaultConfig()
			bc.Position = mgl64.Vec3{math.NaN(), 0, 0}
			b := body.New(bc)
			for i := 0; i < 2; i++ {
				s, err := body.NewShape(body.DefaultShapeConfig(geom.NewSphere(0.5)))
				Expect(err).NotTo(HaveOccurred())
				Expect(b.AddShape(s)).To(Succeed())
			}
			Expect(w.AddBody(b)).To(MatchError(broadphase.ErrInvalidAabb))
			Expect(b.Index).To(Equal(-1))
			Expect(w.Bodies()).To(HaveLen(1))
			Expect(w.BroadPhase().ProxyCount()).To(Equal(1))
			for _, s := range b.Shapes() {
				Expect(s.Proxy).To(BeNil())
			}
		})

		It("detaches a later shape the broad phase rejects", func() {
			w := newWorld(nil)
			b := addSphere(w, mgl64.Vec3{})
			mass := b.Mass()
			sc := body.DefaultShapeConfig(geom.NewBox(mgl64.Vec3{1, 1, 1}))
			sc.Position = mgl64.Vec3{0, math.NaN(), 0}
			s, err := body.NewShape(sc)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.AddShape(s)).To(MatchError(broadphase.ErrInvalidAabb))
			Expect(s.Body()).To(BeNil())
			Expect(b.Shapes()).To(HaveLen(1))
			Expect(b.Mass()).To(Equal(mass))
			Expect(w.BroadPhase().ProxyCount()).To(Equal(1))
			stepN(w, 5)
		})
	})
})
