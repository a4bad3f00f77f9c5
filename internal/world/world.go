// Package world runs the per-step pipeline: broad phase, narrow phase and
// manifold update, island solve, then proxy refresh.
package world

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/broadphase"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/joint"
	"github.com/san-kum/impulse/internal/solver"
)

type jointEntry struct {
	joint  joint.Joint
	solver *solver.JointSolver
	index  int
}

type World struct {
	cfg config.Physics
	bp  *broadphase.BroadPhase

	bodies   []*body.RigidBody
	joints   []*jointEntry
	byJoint  map[joint.Joint]*jointEntry
	contacts *contactManager
	shapes   shapeHook

	islands     islandBuilder
	controllers []Controller
	hook        StatsHook
	stats       StepStats
	locked      bool
	prevDt      float64
	time        float64
	steps       int
	nextBody    int
	nextShp     int
	nextEdge    int
}

// New builds an empty world. The configuration is copied and fixed for
// the world's lifetime.
func New(cfg config.Physics) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	w := &World{
		cfg:     cfg,
		bp:      broadphase.New(cfg.BroadPhase),
		byJoint: make(map[joint.Joint]*jointEntry),
	}
	w.contacts = newContactManager(w)
	w.shapes = shapeHook{w}
	return w, nil
}

func (w *World) Config() config.Physics               { return w.cfg }
func (w *World) BroadPhase() *broadphase.BroadPhase   { return w.bp }
func (w *World) Bodies() []*body.RigidBody            { return w.bodies }
func (w *World) Contacts() []*Contact                 { return w.contacts.contacts }
func (w *World) Time() float64                        { return w.time }
func (w *World) StepCount() int                       { return w.steps }
func (w *World) LastStats() StepStats                 { return w.stats }
func (w *World) SetStatsHook(h StatsHook)             { w.hook = h }
func (w *World) SetContactListener(l ContactListener) { w.contacts.listener = l }

func (w *World) Joints() []joint.Joint {
	out := make([]joint.Joint, len(w.joints))
	for i, e := range w.joints {
		out[i] = e.joint
	}
	return out
}

// Controller adjusts bodies or joints at the start of every step.
type Controller interface {
	Update(dt float64)
}

func (w *World) AddController(c Controller) { w.controllers = append(w.controllers, c) }

func (w *World) AddBody(b *body.RigidBody) error {
	if w.locked {
		return ErrLocked
	}
	if b.Index >= 0 {
		return ErrBodyInWorld
	}
	b.SyncShapes()
	for i, s := range b.Shapes() {
		if err := w.shapes.ShapeAdded(s); err != nil {
			for _, added := range b.Shapes()[:i] {
				w.shapes.ShapeRemoved(added)
			}
			return err
		}
	}
	w.nextBody++
	b.ID = w.nextBody
	b.Index = len(w.bodies)
	w.bodies = append(w.bodies, b)
	b.SetShapeListener(w.shapes)
	return nil
}

// RemoveBody detaches b along with its joints, contacts and proxies.
func (w *World) RemoveBody(b *body.RigidBody) error {
	if w.locked {
		return ErrLocked
	}
	if !w.owns(b) {
		return ErrBodyNotInWorld
	}
	for _, e := range b.Joints() {
		if err := w.RemoveJoint(e.(joint.Joint)); err != nil {
			return err
		}
	}
	for _, s := range b.Shapes() {
		w.shapes.ShapeRemoved(s)
	}
	b.SetShapeListener(nil)

	last := len(w.bodies) - 1
	moved := w.bodies[last]
	w.bodies[b.Index] = moved
	moved.Index = b.Index
	w.bodies[last] = nil
	w.bodies = w.bodies[:last]
	b.Index = -1
	return nil
}

func (w *World) owns(b *body.RigidBody) bool {
	return b.Index >= 0 && b.Index < len(w.bodies) && w.bodies[b.Index] == b
}

// AddJoint links two bodies already in the world. A joint that does not
// collide its bodies drops their current contacts.
func (w *World) AddJoint(j joint.Joint) error {
	if w.locked {
		return ErrLocked
	}
	if _, ok := w.byJoint[j]; ok {
		return ErrJointInWorld
	}
	a, b := j.Bodies()
	if !w.owns(a) || !w.owns(b) {
		return ErrJointBodies
	}
	w.nextEdge++
	j.SetEdgeID(w.nextEdge)
	e := &jointEntry{joint: j, solver: solver.NewJointSolver(j, w.cfg.Contact), index: len(w.joints)}
	w.joints = append(w.joints, e)
	w.byJoint[j] = e
	a.LinkJoint(j)
	b.LinkJoint(j)

	if !j.CollideConnected() {
		for _, edge := range a.Contacts() {
			c := edge.(*Contact)
			ca, cb := c.Bodies()
			if (ca == a && cb == b) || (ca == b && cb == a) {
				w.contacts.destroy(c)
			}
		}
	}
	a.WakeUp()
	b.WakeUp()
	return nil
}

func (w *World) RemoveJoint(j joint.Joint) error {
	if w.locked {
		return ErrLocked
	}
	return w.removeJoint(j)
}

func (w *World) removeJoint(j joint.Joint) error {
	e, ok := w.byJoint[j]
	if !ok {
		return ErrJointNotInWorld
	}
	a, b := j.Bodies()
	a.UnlinkJoint(j)
	b.UnlinkJoint(j)
	delete(w.byJoint, j)

	last := len(w.joints) - 1
	moved := w.joints[last]
	w.joints[e.index] = moved
	moved.index = e.index
	w.joints[last] = nil
	w.joints = w.joints[:last]

	// pairs the joint filtered out must be re-reported
	if !j.CollideConnected() {
		for _, s := range a.Shapes() {
			_ = w.bp.TouchProxy(s.Proxy)
		}
	}
	a.WakeUp()
	b.WakeUp()
	return nil
}

// Step advances the world by dt.
func (w *World) Step(dt float64) error {
	if w.locked {
		return ErrLocked
	}
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return w.fail("step", fmt.Errorf("%w: %v", ErrInvalidDt, dt))
	}
	w.locked = true
	defer func() { w.locked = false }()

	start := time.Now()
	stats := StepStats{Step: w.steps, Dt: dt}

	for _, c := range w.controllers {
		c.Update(dt)
	}

	pairs := w.bp.UpdatePairs()
	bpStats := w.bp.Stats()
	stats.Pairs = len(pairs)
	stats.Incremental = bpStats.Incremental

	w.contacts.addPairs(pairs)
	w.contacts.collide()

	step := solver.NewTimeStep(dt, w.prevDt, w.cfg)
	w.solve(step, &stats)
	w.integrateKinematic(dt)
	stats.ProxyMoves = w.syncProxies()

	w.prevDt = dt
	w.time += dt
	w.steps++

	w.collectStats(&stats)
	stats.Time = w.time
	stats.Elapsed = time.Since(start)
	w.stats = stats
	if w.hook != nil {
		w.hook(stats)
	}
	return nil
}

func (w *World) integrateKinematic(dt float64) {
	for _, b := range w.bodies {
		if b.IsKinematic() && !b.IsSleeping() {
			b.Integrate(dt, w.cfg.Integration)
		}
	}
}

// syncProxies refreshes shape boxes of bodies that may have moved and
// refits escaped proxies.
func (w *World) syncProxies() int {
	moves := 0
	for _, b := range w.bodies {
		if b.IsSleeping() {
			continue
		}
		for _, s := range b.Shapes() {
			d := b.SyncShape(s)
			moved, err := w.bp.MoveProxy(s.Proxy, s.Aabb(), d)
			if err == nil && moved {
				moves++
			}
		}
	}
	return moves
}

func (w *World) collectStats(stats *StepStats) {
	stats.Bodies = len(w.bodies)
	for _, b := range w.bodies {
		if b.IsStatic() {
			continue
		}
		if b.IsSleeping() {
			stats.SleepingBodies++
		} else {
			stats.AwakeBodies++
		}
	}
	stats.Contacts = len(w.contacts.contacts)
	for _, c := range w.contacts.contacts {
		if !c.touching {
			continue
		}
		stats.TouchingContacts++
		stats.Points += c.Manifold.Count
		stats.MaxDepth = math.Max(stats.MaxDepth, c.Manifold.MaxDepth())
		stats.NormalImpulse += c.Manifold.TotalNormalImpulse()
	}
	stats.Joints = len(w.joints)
	stats.Proxies = w.bp.ProxyCount()
	stats.TreeHeight = w.bp.Tree().Height()
}

// shapeHook keeps proxies in step with shapes added to or removed from
// bodies already in the world.
type shapeHook struct {
	w *World
}

func (h shapeHook) ShapeAdded(s *body.Shape) error {
	p, err := h.w.bp.CreateProxy(s.Aabb(), s)
	if err != nil {
		return fmt.Errorf("world: add shape: %w", err)
	}
	h.w.nextShp++
	s.ID = h.w.nextShp
	s.Proxy = p
	return nil
}

func (h shapeHook) ShapeRemoved(s *body.Shape) {
	w := h.w
	if b := s.Body(); b != nil {
		for _, e := range b.Contacts() {
			c := e.(*Contact)
			if c.ShapeA == s || c.ShapeB == s {
				w.contacts.destroy(c)
			}
		}
	}
	if s.Proxy != nil {
		_ = w.bp.DestroyProxy(s.Proxy)
		s.Proxy = nil
	}
}
