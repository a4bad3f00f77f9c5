package bvh

import (
	"fmt"

	"github.com/san-kum/impulse/internal/geom"
)

const nullNode = -1

// InsertStrategy selects how Insert picks the sibling of a new leaf.
type InsertStrategy int

const (
	// InsertSimple descends toward the child whose centre is nearest.
	InsertSimple InsertStrategy = iota
	// InsertSAH minimizes the surface area added to the tree.
	InsertSAH
)

func (s InsertStrategy) String() string {
	if s == InsertSimple {
		return "simple"
	}
	return "sah"
}

type node struct {
	aabb   geom.Aabb
	parent int
	child1 int
	child2 int
	next   int
	// leaf = 0, free = -1
	height int
	proxy  *Proxy
	gen    uint32
}

func (n *node) isLeaf() bool { return n.child1 == nullNode }

// Tree is a dynamic AABB tree stored in an index arena. Freed slots are kept
// on a free list and stamped with a new generation so stale proxy handles are
// rejected instead of aliasing a reused slot.
type Tree struct {
	nodes    []node
	root     int
	freeList int
	leaves   int

	strategy InsertStrategy
	balance  bool

	moved []*Proxy

	// Debug turns contract misuse into a panic.
	Debug bool
}

func New(strategy InsertStrategy, balance bool) *Tree {
	return &Tree{
		nodes:    make([]node, 0, 16),
		root:     nullNode,
		freeList: nullNode,
		strategy: strategy,
		balance:  balance,
	}
}

func (t *Tree) allocateNode() int {
	if t.freeList == nullNode {
		t.nodes = append(t.nodes, node{})
		id := len(t.nodes) - 1
		t.resetNode(id)
		return id
	}
	id := t.freeList
	t.freeList = t.nodes[id].next
	t.resetNode(id)
	return id
}

func (t *Tree) resetNode(id int) {
	n := &t.nodes[id]
	gen := n.gen
	*n = node{
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
		next:   nullNode,
		gen:    gen,
	}
}

func (t *Tree) freeNode(id int) {
	n := &t.nodes[id]
	n.parent = nullNode
	n.child1 = nullNode
	n.child2 = nullNode
	n.proxy = nil
	n.height = -1
	n.gen++
	n.next = t.freeList
	t.freeList = id
}

func (t *Tree) misuse(err error, p *Proxy) error {
	err = fmt.Errorf("%w: proxy %d", err, p.ID)
	if t.Debug {
		panic(err)
	}
	return err
}

// Insert adds a leaf for p using p.Aabb and marks it moved.
func (t *Tree) Insert(p *Proxy) error {
	if p.leaf != nullNode {
		return t.misuse(ErrProxyInserted, p)
	}
	leaf := t.allocateNode()
	n := &t.nodes[leaf]
	n.aabb = p.Aabb
	n.proxy = p
	n.height = 0
	p.leaf = leaf
	p.gen = n.gen

	t.insertLeaf(leaf)
	t.leaves++
	t.markMoved(p)
	return nil
}

// Remove deletes p's leaf and returns its nodes to the free list.
func (t *Tree) Remove(p *Proxy) error {
	if !t.owns(p) {
		return t.misuse(ErrProxyNotInTree, p)
	}
	leaf := p.leaf
	t.removeLeaf(leaf)
	t.freeNode(leaf)
	t.leaves--
	t.unmarkMoved(p)
	p.leaf = nullNode
	return nil
}

// Move re-inserts p with a new fattened box and marks it moved.
func (t *Tree) Move(p *Proxy, fat geom.Aabb) error {
	if !t.owns(p) {
		return t.misuse(ErrProxyNotInTree, p)
	}
	t.removeLeaf(p.leaf)
	p.Aabb = fat
	t.nodes[p.leaf].aabb = fat
	t.insertLeaf(p.leaf)
	t.markMoved(p)
	return nil
}

// Touch marks p moved without changing its box, so the next incremental
// pair query re-tests it.
func (t *Tree) Touch(p *Proxy) error {
	if !t.owns(p) {
		return t.misuse(ErrProxyNotInTree, p)
	}
	t.markMoved(p)
	return nil
}

func (t *Tree) owns(p *Proxy) bool {
	if p.leaf < 0 || p.leaf >= len(t.nodes) {
		return false
	}
	n := &t.nodes[p.leaf]
	return n.gen == p.gen && n.proxy == p && n.height == 0
}

func (t *Tree) markMoved(p *Proxy) {
	if p.moved {
		return
	}
	p.moved = true
	p.movedIndex = len(t.moved)
	t.moved = append(t.moved, p)
}

func (t *Tree) unmarkMoved(p *Proxy) {
	if !p.moved {
		return
	}
	last := len(t.moved) - 1
	t.moved[p.movedIndex] = t.moved[last]
	t.moved[p.movedIndex].movedIndex = p.movedIndex
	t.moved[last] = nil
	t.moved = t.moved[:last]
	p.moved = false
}

func (t *Tree) clearMoved() {
	for i, p := range t.moved {
		p.moved = false
		t.moved[i] = nil
	}
	t.moved = t.moved[:0]
}

func (t *Tree) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	leafAabb := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		next := t.chooseChild(index, leafAabb)
		if next == nullNode {
			break
		}
		index = next
	}

	sibling := index
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAabb.Union(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	t.fixUpward(t.nodes[leaf].parent)
}

// chooseChild returns the child of index to descend into, or nullNode to
// create the new parent at index.
func (t *Tree) chooseChild(index int, leafAabb geom.Aabb) int {
	n := &t.nodes[index]
	c1, c2 := n.child1, n.child2

	if t.strategy == InsertSimple {
		center := leafAabb.Center()
		d1 := t.nodes[c1].aabb.Center().Sub(center).LenSqr()
		d2 := t.nodes[c2].aabb.Center().Sub(center).LenSqr()
		if d1 < d2 {
			return c1
		}
		return c2
	}

	area := n.aabb.SurfaceArea()
	combinedArea := n.aabb.Union(leafAabb).SurfaceArea()

	// cost of creating a new parent for this node and the new leaf
	cost := 2 * combinedArea
	// minimum cost of pushing the leaf further down the tree
	inheritanceCost := 2 * (combinedArea - area)

	cost1 := t.descendCost(c1, leafAabb) + inheritanceCost
	cost2 := t.descendCost(c2, leafAabb) + inheritanceCost

	// a balanced tree only takes a new parent this high when the subtree is shallow,
	// so one insert never changes a subtree height by more than one
	canStop := !t.balance || n.height <= 1
	if canStop && cost < cost1 && cost < cost2 {
		return nullNode
	}
	if cost1 < cost2 {
		return c1
	}
	return c2
}

func (t *Tree) descendCost(child int, leafAabb geom.Aabb) float64 {
	c := &t.nodes[child]
	combined := leafAabb.Union(c.aabb).SurfaceArea()
	if c.isLeaf() {
		return combined
	}
	return combined - c.aabb.SurfaceArea()
}

func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	t.nodes[leaf].parent = nullNode
	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
		return
	}

	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.freeNode(parent)
	t.fixUpward(grandParent)
}

// fixUpward walks to the root recomputing heights and boxes, rotating
// imbalanced ancestors on the way when balancing is on.
func (t *Tree) fixUpward(index int) {
	for index != nullNode {
		if t.balance {
			index = t.rotate(index)
		}
		n := &t.nodes[index]
		c1, c2 := &t.nodes[n.child1], &t.nodes[n.child2]
		n.height = 1 + max(c1.height, c2.height)
		n.aabb = c1.aabb.Union(c2.aabb)
		index = n.parent
	}
}

// rotate performs a single rotation at iA when its children differ in height
// by more than one and returns the index now occupying iA's slot.
func (t *Tree) rotate(iA int) int {
	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB, iC := A.child1, A.child2
	B, C := &t.nodes[iB], &t.nodes[iC]
	balance := C.height - B.height

	switch {
	case balance > 1:
		t.liftChild(iA, iC, false)
		return iC
	case balance < -1:
		t.liftChild(iA, iB, true)
		return iB
	}
	return iA
}

// liftChild rotates child iUp of iA into iA's place. iUp keeps its taller
// grandchild; the shorter one moves under iA in iUp's old slot.
func (t *Tree) liftChild(iA, iUp int, upIsChild1 bool) {
	A := &t.nodes[iA]
	Up := &t.nodes[iUp]

	iF, iG := Up.child1, Up.child2
	F, G := &t.nodes[iF], &t.nodes[iG]

	Up.child1 = iA
	Up.parent = A.parent
	A.parent = iUp

	if Up.parent != nullNode {
		if t.nodes[Up.parent].child1 == iA {
			t.nodes[Up.parent].child1 = iUp
		} else {
			t.nodes[Up.parent].child2 = iUp
		}
	} else {
		t.root = iUp
	}

	iTall, iShort := iF, iG
	if G.height > F.height {
		iTall, iShort = iG, iF
	}
	Up.child2 = iTall
	if upIsChild1 {
		A.child1 = iShort
	} else {
		A.child2 = iShort
	}
	t.nodes[iShort].parent = iA

	a1, a2 := &t.nodes[A.child1], &t.nodes[A.child2]
	A.aabb = a1.aabb.Union(a2.aabb)
	A.height = 1 + max(a1.height, a2.height)

	tall := &t.nodes[iTall]
	Up.aabb = A.aabb.Union(tall.aabb)
	Up.height = 1 + max(A.height, tall.height)
}

// Height is the height of the root, 0 for an empty tree.
func (t *Tree) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

func (t *Tree) Empty() bool { return t.root == nullNode }

// LeafCount is the number of proxies in the tree.
func (t *Tree) LeafCount() int { return t.leaves }

// NodeCount is the number of live (non-free) nodes.
func (t *Tree) NodeCount() int {
	if t.leaves == 0 {
		return 0
	}
	return 2*t.leaves - 1
}

// Capacity is the number of allocated slots, live or free.
func (t *Tree) Capacity() int { return len(t.nodes) }

func (t *Tree) FreeCount() int {
	n := 0
	for i := t.freeList; i != nullNode; i = t.nodes[i].next {
		n++
	}
	return n
}

// MovedCount is the number of proxies inserted or moved since the last pair query.
func (t *Tree) MovedCount() int { return len(t.moved) }
