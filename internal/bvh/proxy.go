package bvh

import "github.com/san-kum/impulse/internal/geom"

// Proxy is the broad-phase handle of one shape. The tree never owns it; a leaf
// only points at it, and the proxy records which leaf slot (and which
// generation of that slot) it currently occupies.
type Proxy struct {
	ID       int
	Aabb     geom.Aabb
	UserData any

	leaf       int
	gen        uint32
	moved      bool
	movedIndex int
}

func NewProxy(id int, aabb geom.Aabb, userData any) *Proxy {
	return &Proxy{ID: id, Aabb: aabb, UserData: userData, leaf: nullNode}
}

// InTree reports whether the proxy currently owns a leaf.
func (p *Proxy) InTree() bool { return p.leaf != nullNode }

// Moved reports whether the proxy was inserted or moved since the last pair query.
func (p *Proxy) Moved() bool { return p.moved }
