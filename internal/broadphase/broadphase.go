package broadphase

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/impulse/internal/bvh"
	"github.com/san-kum/impulse/internal/config"
	"github.com/san-kum/impulse/internal/geom"
)

// ErrInvalidAabb rejects a proxy whose box is NaN or inverted.
var ErrInvalidAabb = errors.New("broadphase: invalid aabb")

// Pair is a candidate pair of proxies with A.ID < B.ID.
type Pair struct {
	A *bvh.Proxy
	B *bvh.Proxy
}

// Stats describes the last pair collection and the tree shape.
type Stats struct {
	Proxies     int
	Moved       int
	Pairs       int
	Incremental bool
	TreeHeight  int
	MaxBalance  int
	AreaRatio   float64
}

// BroadPhase owns the BVH and the pair list. Proxies are fattened by a fixed
// padding plus a multiple of their predicted displacement so small motions do
// not touch the tree.
type BroadPhase struct {
	tree   *bvh.Tree
	cfg    config.BroadPhase
	nextID int
	pairs  []Pair
	stats  Stats
}

func New(cfg config.BroadPhase) *BroadPhase {
	strategy := bvh.InsertSAH
	if cfg.InsertStrategy == config.InsertSimple {
		strategy = bvh.InsertSimple
	}
	return &BroadPhase{
		tree: bvh.New(strategy, cfg.Balance),
		cfg:  cfg,
	}
}

// Tree exposes the underlying BVH for validation and metrics.
func (bp *BroadPhase) Tree() *bvh.Tree { return bp.tree }

func (bp *BroadPhase) fatten(tight geom.Aabb, displacement mgl64.Vec3) geom.Aabb {
	fat := tight.Expand(bp.cfg.AabbPadding)
	return fat.Extend(displacement.Mul(bp.cfg.DisplacementMultiplier))
}

// CreateProxy inserts a new proxy for tight and returns it.
func (bp *BroadPhase) CreateProxy(tight geom.Aabb, userData any) (*bvh.Proxy, error) {
	if !tight.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAabb, tight)
	}
	p := bvh.NewProxy(bp.nextID, bp.fatten(tight, mgl64.Vec3{}), userData)
	bp.nextID++
	if err := bp.tree.Insert(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (bp *BroadPhase) DestroyProxy(p *bvh.Proxy) error {
	return bp.tree.Remove(p)
}

// MoveProxy refits p when tight escapes its fattened box and reports whether
// the tree changed.
func (bp *BroadPhase) MoveProxy(p *bvh.Proxy, tight geom.Aabb, displacement mgl64.Vec3) (bool, error) {
	if p.Aabb.Contains(tight) {
		return false, nil
	}
	if err := bp.tree.Move(p, bp.fatten(tight, displacement)); err != nil {
		return false, err
	}
	return true, nil
}

// TouchProxy makes the next UpdatePairs re-report p's overlaps.
func (bp *BroadPhase) TouchProxy(p *bvh.Proxy) error {
	return bp.tree.Touch(p)
}

// TestOverlap reports whether the fattened boxes of a and b overlap.
func (bp *BroadPhase) TestOverlap(a, b *bvh.Proxy) bool {
	return a.Aabb.Overlaps(b.Aabb)
}

// UpdatePairs recollects candidate pairs. Few moved proxies are re-tested
// individually; past the configured fraction the whole tree is re-tested.
func (bp *BroadPhase) UpdatePairs() []Pair {
	bp.pairs = bp.pairs[:0]
	leaves := bp.tree.LeafCount()
	moved := bp.tree.MovedCount()

	incremental := leaves == 0 || float64(moved) <= bp.cfg.IncrementalThreshold*float64(leaves)
	bp.tree.QueryPairs(incremental, func(a, b *bvh.Proxy) {
		bp.pairs = append(bp.pairs, Pair{A: a, B: b})
	})

	sort.Slice(bp.pairs, func(i, j int) bool {
		pi, pj := bp.pairs[i], bp.pairs[j]
		if pi.A.ID != pj.A.ID {
			return pi.A.ID < pj.A.ID
		}
		return pi.B.ID < pj.B.ID
	})

	bp.stats = Stats{
		Proxies:     leaves,
		Moved:       moved,
		Pairs:       len(bp.pairs),
		Incremental: incremental,
		TreeHeight:  bp.tree.Height(),
	}
	return bp.pairs
}

// Stats returns the figures of the last UpdatePairs plus current tree quality.
func (bp *BroadPhase) Stats() Stats {
	s := bp.stats
	s.MaxBalance = bp.tree.MaxBalance()
	s.AreaRatio = bp.tree.AreaRatio()
	return s
}

func (bp *BroadPhase) ProxyCount() int { return bp.tree.LeafCount() }

func (bp *BroadPhase) QueryAabb(aabb geom.Aabb, fn bvh.QueryFunc) {
	bp.tree.QueryAabb(aabb, fn)
}

func (bp *BroadPhase) QueryRay(begin, end mgl64.Vec3, fn bvh.QueryFunc) {
	bp.tree.QueryRay(begin, end, fn)
}

func (bp *BroadPhase) QuerySweep(aabb geom.Aabb, translation mgl64.Vec3, fn bvh.QueryFunc) {
	bp.tree.QuerySweep(aabb, translation, fn)
}
