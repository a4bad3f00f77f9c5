package bvh

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/geom"
)

// QueryFunc is called for each candidate leaf; returning false stops the query.
type QueryFunc func(p *Proxy) bool

// QueryAabb visits every leaf whose box overlaps aabb.
func (t *Tree) QueryAabb(aabb geom.Aabb, fn QueryFunc) {
	t.traverse(func(box geom.Aabb) bool { return box.Overlaps(aabb) }, fn)
}

// QueryRay visits every leaf whose box the segment begin->end crosses.
func (t *Tree) QueryRay(begin, end mgl64.Vec3, fn QueryFunc) {
	t.traverse(func(box geom.Aabb) bool { return box.IntersectsSegment(begin, end) }, fn)
}

// QuerySweep visits every leaf whose box is touched by aabb translated along
// translation.
func (t *Tree) QuerySweep(aabb geom.Aabb, translation mgl64.Vec3, fn QueryFunc) {
	half := aabb.Extents()
	begin := aabb.Center()
	end := begin.Add(translation)
	t.traverse(func(box geom.Aabb) bool {
		grown := geom.Aabb{Min: box.Min.Sub(half), Max: box.Max.Add(half)}
		return grown.IntersectsSegment(begin, end)
	}, fn)
}

func (t *Tree) traverse(hit func(geom.Aabb) bool, fn QueryFunc) {
	if t.root == nullNode {
		return
	}
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if !hit(n.aabb) {
			continue
		}
		if n.isLeaf() {
			if !fn(n.proxy) {
				return
			}
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
}

// Leaves calls fn for every proxy in the tree in slot order.
func (t *Tree) Leaves(fn func(p *Proxy)) {
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.height == 0 && n.proxy != nil {
			fn(n.proxy)
		}
	}
}
