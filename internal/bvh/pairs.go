package bvh

// PairFunc receives one overlapping proxy pair, ordered by ascending ID.
type PairFunc func(a, b *Proxy)

// QueryPairs reports every pair of leaves whose boxes overlap exactly once.
// With incremental set, only leaves inserted or moved since the last call are
// re-tested against the whole tree; otherwise the tree is tested against
// itself from the root. The moved set is cleared either way.
func (t *Tree) QueryPairs(incremental bool, fn PairFunc) {
	defer t.clearMoved()
	if t.root == nullNode {
		return
	}
	if !incremental {
		t.collide(t.root, t.root, fn)
		return
	}
	stack := make([]int, 0, 64)
	for _, p := range t.moved {
		stack = t.collideLeaf(p, stack[:0], fn)
	}
}

func emit(a, b *Proxy, fn PairFunc) {
	if b.ID < a.ID {
		a, b = b, a
	}
	fn(a, b)
}

// collide is the dual-tree traversal: a node against itself recurses into its
// child combinations, otherwise the taller side is split.
func (t *Tree) collide(i1, i2 int, fn PairFunc) {
	n1, n2 := &t.nodes[i1], &t.nodes[i2]
	if i1 == i2 {
		if n1.isLeaf() {
			return
		}
		c1, c2 := n1.child1, n1.child2
		t.collide(c1, c1, fn)
		t.collide(c2, c2, fn)
		t.collide(c1, c2, fn)
		return
	}

	if !n1.aabb.Overlaps(n2.aabb) {
		return
	}

	leaf1, leaf2 := n1.isLeaf(), n2.isLeaf()
	if leaf1 && leaf2 {
		emit(n1.proxy, n2.proxy, fn)
		return
	}

	if leaf2 || (!leaf1 && n1.height > n2.height) {
		c1, c2 := n1.child1, n1.child2
		t.collide(c1, i2, fn)
		t.collide(c2, i2, fn)
		return
	}
	c1, c2 := n2.child1, n2.child2
	t.collide(i1, c1, fn)
	t.collide(i1, c2, fn)
}

// collideLeaf tests one moved leaf against the whole tree. A pair of two moved
// leaves is reported only from the side with the smaller ID.
func (t *Tree) collideLeaf(p *Proxy, stack []int, fn PairFunc) []int {
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if id == p.leaf || !n.aabb.Overlaps(p.Aabb) {
			continue
		}
		if !n.isLeaf() {
			stack = append(stack, n.child1, n.child2)
			continue
		}
		other := n.proxy
		if other.moved && other.ID < p.ID {
			continue
		}
		emit(p, other, fn)
	}
	return stack
}
