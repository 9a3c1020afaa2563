// Package tree implements the k-d tree node model, builder, and on-disk
// codec (spec §4.D-§4.F). The algorithm is grounded on
// original_source/src/branch.rs and point.rs (quantile pivot selection,
// cascade-order intersection scanning, recursive bucket partitioning); the
// in-memory shape follows the teacher's pkg/bptree node split between
// branch and leaf variants, generalized to D dimensions and to the
// straddling-interval semantics spec §3 requires.
package tree

import "github.com/ssargent/kdforest/pkg/spatial"

// Node is the sum type over Branch and Leaf (spec §4.D). Axis and level are
// never persisted: a query recomputes axis = depth mod D while descending,
// starting at 0 at a forest root and carrying the depth across a TreeRef,
// since a subtree Split cuts loose keeps the pivots of the level it was
// built at.
type Node[S spatial.Number, V spatial.Value] interface {
	isNode()
}

// Branch holds n = branch_factor-1 pivots splitting its rows into n+1
// buckets, plus the straddling rows each pivot captured during the build's
// cascade scan.
type Branch[S spatial.Number, V spatial.Value] struct {
	Pivots []S

	// IntersectMask[i] is the bitmask of pivot indices the i-th
	// intersection subtree straddles (spec §4.F intersect_bitmap).
	IntersectMask []uint32
	Intersections []Node[S, V]

	// Children has len(Pivots)+1 entries, one per bucket.
	Children []Node[S, V]
}

func (*Branch[S, V]) isNode() {}

// Leaf is a terminal data block, or an indirection node when Refs is
// non-empty (spec §4.D: "an empty-refs leaf is a terminal data block").
// Rows and Refs may both be non-empty: a size-class split can leave some
// rows behind in the parent tree alongside a TreeRef to the split-off
// subtree.
type Leaf[S spatial.Number, V spatial.Value] struct {
	Rows []spatial.Row[S, V]
	Refs []TreeRef[S]

	// Deleted marks rows as tombstones (spec §4.F delete_bitmap): the codec
	// round-trips it and IsLive honours it. Neither Build nor the forest's
	// rebuild path sets it; pending deletes are filtered at query time and
	// their rows dropped when their tree is next rebuilt.
	Deleted []bool
}

// IsLive reports whether Rows[i] should be visible to queries.
func (l *Leaf[S, V]) IsLive(i int) bool {
	return i >= len(l.Deleted) || !l.Deleted[i]
}

func (*Leaf[S, V]) isNode() {}

// TreeRef points at an independently stored tree (by TreeId), carrying its
// bounds so a query can prune without opening it (spec §4.D).
type TreeRef[S spatial.Number] struct {
	ID     uint64
	Bounds spatial.Bounds[S]
}

// IsLeaf and IsBranch are convenience type assertions used throughout the
// query engine and codec.
func IsLeaf[S spatial.Number, V spatial.Value](n Node[S, V]) (*Leaf[S, V], bool) {
	l, ok := n.(*Leaf[S, V])
	return l, ok
}

func IsBranch[S spatial.Number, V spatial.Value](n Node[S, V]) (*Branch[S, V], bool) {
	b, ok := n.(*Branch[S, V])
	return b, ok
}
