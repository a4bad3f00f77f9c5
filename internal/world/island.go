package world

import (
	"github.com/san-kum/impulse/internal/body"
	"github.com/san-kum/impulse/internal/solver"
)

// islandBuilder groups dynamic bodies into islands with a union-find over
// touching contacts and joints. Its buffers are reused across steps.
type islandBuilder struct {
	parent   []int
	awake    []bool
	islandOf []int
	islands  []*solver.Island
	results  []solver.IslandResult
}

func (ib *islandBuilder) reset(n int) {
	ib.parent = resize(ib.parent, n)
	ib.islandOf = resize(ib.islandOf, n)
	if cap(ib.awake) < n {
		ib.awake = make([]bool, n)
	}
	ib.awake = ib.awake[:n]
	for i := 0; i < n; i++ {
		ib.parent[i] = i
		ib.islandOf[i] = -1
		ib.awake[i] = false
	}
}

func resize(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	return s[:n]
}

func (ib *islandBuilder) find(i int) int {
	for ib.parent[i] != i {
		ib.parent[i] = ib.parent[ib.parent[i]]
		i = ib.parent[i]
	}
	return i
}

func (ib *islandBuilder) union(a, b int) {
	ra, rb := ib.find(a), ib.find(b)
	if ra == rb {
		return
	}
	// lower index wins so roots do not depend on edge order
	if rb < ra {
		ra, rb = rb, ra
	}
	ib.parent[rb] = ra
}

func (ib *islandBuilder) island(i int) *solver.Island {
	for len(ib.islands) <= i {
		ib.islands = append(ib.islands, &solver.Island{})
	}
	is := ib.islands[i]
	return is
}

// link joins the bodies of a constraint when both are dynamic, and lets a
// moving kinematic body wake a sleeping dynamic one.
func (ib *islandBuilder) link(a, b *body.RigidBody) {
	switch {
	case a.IsDynamic() && b.IsDynamic():
		ib.union(a.Index, b.Index)
	case a.IsDynamic() && movingKinematic(b):
		a.WakeUp()
	case b.IsDynamic() && movingKinematic(a):
		b.WakeUp()
	}
}

func movingKinematic(b *body.RigidBody) bool {
	return b.IsKinematic() && (b.LinearVelocity().LenSqr() > 0 || b.AngularVelocity().LenSqr() > 0)
}

// owner is the dynamic body whose island a constraint joins.
func owner(a, b *body.RigidBody) *body.RigidBody {
	if a.IsDynamic() {
		return a
	}
	if b.IsDynamic() {
		return b
	}
	return nil
}

func (w *World) solve(step solver.TimeStep, stats *StepStats) {
	ib := &w.islands
	ib.reset(len(w.bodies))

	for _, c := range w.contacts.contacts {
		if c.touching {
			ib.link(c.Bodies())
		}
	}
	for _, e := range w.joints {
		ib.link(e.joint.Bodies())
	}

	// an island wakes as a whole when any member is awake
	for _, b := range w.bodies {
		if b.IsDynamic() && !b.IsSleeping() {
			ib.awake[ib.find(b.Index)] = true
		}
	}

	count := 0
	for _, b := range w.bodies {
		if !b.IsDynamic() {
			continue
		}
		root := ib.find(b.Index)
		if !ib.awake[root] {
			continue
		}
		if b.IsSleeping() {
			b.WakeUp()
		}
		if ib.islandOf[root] < 0 {
			ib.islandOf[root] = count
			ib.island(count).Clear()
			count++
		}
		ib.island(ib.islandOf[root]).AddBody(b)
	}

	for _, c := range w.contacts.contacts {
		if !c.touching {
			continue
		}
		if idx := ib.islandIndex(owner(c.Bodies())); idx >= 0 {
			ib.islands[idx].AddSolver(c.solver)
		}
	}
	for _, e := range w.joints {
		if idx := ib.islandIndex(owner(e.joint.Bodies())); idx >= 0 {
			ib.islands[idx].AddSolver(e.solver)
		}
	}

	if cap(ib.results) < count {
		ib.results = make([]solver.IslandResult, count)
	}
	ib.results = ib.results[:count]
	islands := ib.islands[:count]
	run := func(start, end int) {
		for i := start; i < end; i++ {
			ib.results[i] = islands[i].Step(step, w.cfg)
		}
	}
	if w.cfg.Workers > 1 {
		parallelFor(count, w.cfg.Workers, run)
	} else {
		run(0, count)
	}
	stats.Islands = count

	w.removeBroken(stats)
}

func (ib *islandBuilder) islandIndex(b *body.RigidBody) int {
	if b == nil {
		return -1
	}
	return ib.islandOf[ib.find(b.Index)]
}

// removeBroken detaches joints that exceeded their break limits this step.
func (w *World) removeBroken(stats *StepStats) {
	for i := 0; i < len(w.joints); {
		e := w.joints[i]
		if !e.solver.Broken {
			i++
			continue
		}
		// swap removal puts an unvisited joint at i
		_ = w.removeJoint(e.joint)
		stats.BrokenJoints++
	}
}
