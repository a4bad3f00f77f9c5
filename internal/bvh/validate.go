package bvh

import (
	"fmt"
	"math"
)

// Validate checks parent links, leaf heights, internal heights and boxes, the
// balance bound when balancing is on and the free list accounting.
func (t *Tree) Validate() error {
	if t.root != nullNode && t.nodes[t.root].parent != nullNode {
		return fmt.Errorf("%w: root %d has a parent", ErrCorrupt, t.root)
	}
	leaves, err := t.validateNode(t.root)
	if err != nil {
		return err
	}
	if leaves != t.leaves {
		return fmt.Errorf("%w: reached %d leaves, tracking %d", ErrCorrupt, leaves, t.leaves)
	}
	if t.balance {
		if b := t.MaxBalance(); b > 1 {
			return fmt.Errorf("%w: balance %d", ErrCorrupt, b)
		}
	}
	if free := t.FreeCount(); free+t.NodeCount() != len(t.nodes) {
		return fmt.Errorf("%w: %d free + %d live != %d slots", ErrCorrupt, free, t.NodeCount(), len(t.nodes))
	}
	return nil
}

func (t *Tree) validateNode(id int) (int, error) {
	if id == nullNode {
		return 0, nil
	}
	n := &t.nodes[id]
	if n.height < 0 {
		return 0, fmt.Errorf("%w: free node %d reachable", ErrCorrupt, id)
	}
	if n.isLeaf() {
		if n.child2 != nullNode || n.height != 0 {
			return 0, fmt.Errorf("%w: leaf %d malformed", ErrCorrupt, id)
		}
		if n.proxy == nil || n.proxy.leaf != id {
			return 0, fmt.Errorf("%w: leaf %d proxy link broken", ErrCorrupt, id)
		}
		if n.proxy.Aabb != n.aabb {
			return 0, fmt.Errorf("%w: leaf %d box differs from its proxy", ErrCorrupt, id)
		}
		return 1, nil
	}

	c1, c2 := &t.nodes[n.child1], &t.nodes[n.child2]
	if c1.parent != id || c2.parent != id {
		return 0, fmt.Errorf("%w: node %d child parent links broken", ErrCorrupt, id)
	}
	if n.proxy != nil {
		return 0, fmt.Errorf("%w: internal node %d references a proxy", ErrCorrupt, id)
	}
	if want := 1 + max(c1.height, c2.height); n.height != want {
		return 0, fmt.Errorf("%w: node %d height %d, want %d", ErrCorrupt, id, n.height, want)
	}
	if want := c1.aabb.Union(c2.aabb); n.aabb != want {
		return 0, fmt.Errorf("%w: node %d box is not the union of its children", ErrCorrupt, id)
	}

	l1, err := t.validateNode(n.child1)
	if err != nil {
		return 0, err
	}
	l2, err := t.validateNode(n.child2)
	if err != nil {
		return 0, err
	}
	return l1 + l2, nil
}

// MaxBalance is the largest child height difference over all internal nodes.
func (t *Tree) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.height <= 1 {
			continue
		}
		b := t.nodes[n.child2].height - t.nodes[n.child1].height
		if b < 0 {
			b = -b
		}
		maxBalance = max(maxBalance, b)
	}
	return maxBalance
}

// AreaRatio is the summed surface area of all live nodes over the root area.
func (t *Tree) AreaRatio() float64 {
	if t.root == nullNode {
		return 0
	}
	rootArea := t.nodes[t.root].aabb.SurfaceArea()
	if rootArea == 0 {
		return math.Inf(1)
	}
	total := 0.0
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		total += t.nodes[i].aabb.SurfaceArea()
	}
	return total / rootArea
}

// ComputeHeight recomputes the height by walking the tree.
func (t *Tree) ComputeHeight() int {
	return t.computeHeight(t.root)
}

func (t *Tree) computeHeight(id int) int {
	if id == nullNode {
		return 0
	}
	n := &t.nodes[id]
	if n.isLeaf() {
		return 0
	}
	return 1 + max(t.computeHeight(n.child1), t.computeHeight(n.child2))
}
