package bvh

import "errors"

var (
	// ErrProxyInserted indicates an insert of a proxy that already owns a leaf.
	ErrProxyInserted = errors.New("bvh: proxy already in tree")

	// ErrProxyNotInTree indicates a remove or move of a proxy the tree does not hold,
	// including stale handles whose leaf slot was recycled.
	ErrProxyNotInTree = errors.New("bvh: proxy not in tree")

	// ErrCorrupt is returned by Validate when a structural invariant is broken.
	ErrCorrupt = errors.New("bvh: tree invariant violated")
)
