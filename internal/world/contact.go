package world

import (
	"math"

	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/broadphase"
	"github.com/san-kum/impulse/internal/joint"
	"github.com/san-kum/impulse/internal/manifold"
	"github.com/san-kum/impulse/internal/narrow"
	"github.com/san-kum/impulse/internal/solver"
)

// ContactListener is told when a contact starts and stops touching.
// Implementations must not mutate the world.
type ContactListener interface {
	BeginContact(c *Contact)
	EndContact(c *Contact)
}

type pairKey struct {
	a, b int
}

// Contact is the persistent state of one overlapping shape pair.
type Contact struct {
	id     int
	ShapeA *body.Shape
	ShapeB *body.Shape

	Manifold manifold.Manifold
	solver   *solver.ContactSolver
	result   manifold.Result

	key      pairKey
	index    int
	touching bool
}

func (c *Contact) EdgeID() int { return c.id }

func (c *Contact) Bodies() (*body.RigidBody, *body.RigidBody) {
	return c.ShapeA.Body(), c.ShapeB.Body()
}

// Touching reports whether the manifold holds any point.
func (c *Contact) Touching() bool { return c.touching }

// NormalImpulse is the total normal impulse applied in the last step.
func (c *Contact) NormalImpulse() float64 { return c.Manifold.TotalNormalImpulse() }

// contactManager owns the contact list and the pair lookup.
type contactManager struct {
	w        *World
	contacts []*Contact
	byPair   map[pairKey]*Contact
	updater  *manifold.Updater
	listener ContactListener
	nextID   int
}

func newContactManager(w *World) *contactManager {
	return &contactManager{
		w:       w,
		byPair:  make(map[pairKey]*Contact),
		updater: manifold.NewUpdater(w.cfg.Contact),
	}
}

func keyOf(a, b *body.Shape) pairKey {
	if a.Proxy.ID > b.Proxy.ID {
		a, b = b, a
	}
	return pairKey{a.Proxy.ID, b.Proxy.ID}
}

// addPairs creates contacts for newly reported broad-phase pairs.
func (cm *contactManager) addPairs(pairs []broadphase.Pair) {
	for _, p := range pairs {
		sa := p.A.UserData.(*body.Shape)
		sb := p.B.UserData.(*body.Shape)
		key := keyOf(sa, sb)
		if _, ok := cm.byPair[key]; ok {
			continue
		}
		if !shouldCollide(sa, sb) {
			continue
		}
		cm.create(sa, sb, key)
	}
}

func shouldCollide(sa, sb *body.Shape) bool {
	ba, bb := sa.Body(), sb.Body()
	if ba == bb {
		return false
	}
	if !ba.IsDynamic() && !bb.IsDynamic() {
		return false
	}
	if !sa.ShouldCollide(sb) {
		return false
	}
	if !narrow.Supports(sa.Geometry.Kind(), sb.Geometry.Kind()) {
		return false
	}
	return !jointBlocks(ba, bb)
}

// jointBlocks reports whether a joint between the bodies disables their contacts.
func jointBlocks(a, b *body.RigidBody) bool {
	blocked := false
	a.EachJoint(func(e body.Edge) bool {
		j := e.(joint.Joint)
		ja, jb := j.Bodies()
		if (ja == b || jb == b) && !j.CollideConnected() {
			blocked = true
			return false
		}
		return true
	})
	return blocked
}

func (cm *contactManager) create(sa, sb *body.Shape, key pairKey) *Contact {
	if sa.Proxy.ID > sb.Proxy.ID {
		sa, sb = sb, sa
	}
	cm.nextID++
	c := &Contact{
		id:     cm.nextID,
		ShapeA: sa,
		ShapeB: sb,
		key:    key,
		index:  len(cm.contacts),
	}
	ba, bb := sa.Body(), sb.Body()
	c.solver = solver.NewContactSolver(ba, bb, &c.Manifold,
		math.Sqrt(sa.Friction*sb.Friction),
		math.Sqrt(sa.Restitution*sb.Restitution),
		cm.w.cfg.Contact)
	cm.contacts = append(cm.contacts, c)
	cm.byPair[key] = c
	ba.LinkContact(c)
	bb.LinkContact(c)
	return c
}

func (cm *contactManager) destroy(c *Contact) {
	if c.touching && cm.listener != nil {
		cm.listener.EndContact(c)
	}
	ba, bb := c.Bodies()
	ba.UnlinkContact(c)
	bb.UnlinkContact(c)
	delete(cm.byPair, c.key)

	last := len(cm.contacts) - 1
	moved := cm.contacts[last]
	cm.contacts[c.index] = moved
	moved.index = c.index
	cm.contacts[last] = nil
	cm.contacts = cm.contacts[:last]
	c.index = -1
}

// collide drops contacts whose fat boxes separated and runs the narrow
// phase and manifold update on the rest. Pairs where no body is awake
// keep their manifold untouched.
func (cm *contactManager) collide() {
	bp := cm.w.bp
	for i := 0; i < len(cm.contacts); {
		c := cm.contacts[i]
		if !bp.TestOverlap(c.ShapeA.Proxy, c.ShapeB.Proxy) {
			cm.destroy(c)
			continue
		}
		i++

		ba, bb := c.Bodies()
		if !awake(ba) && !awake(bb) {
			continue
		}
		was := c.touching
		c.update(cm.updater)
		if cm.listener == nil || was == c.touching {
			continue
		}
		if c.touching {
			cm.listener.BeginContact(c)
		} else {
			cm.listener.EndContact(c)
		}
	}
}

// awake reports whether a body takes part in the step: dynamic or
// kinematic, and not asleep.
func awake(b *body.RigidBody) bool {
	return !b.IsStatic() && !b.IsSleeping()
}

func (c *Contact) update(u *manifold.Updater) {
	c.result.Reset()
	narrow.Detect(c.ShapeA.Geometry, c.ShapeA.Transform(), c.ShapeB.Geometry, c.ShapeB.Transform(), &c.result)
	ba, bb := c.Bodies()
	u.Update(&c.Manifold, &c.result, ba.Transform(), bb.Transform())
	c.touching = c.Manifold.Count > 0
}
