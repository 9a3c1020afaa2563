// Package query implements the forest's bbox query engine (spec §4.K),
// grounded on the teacher's pkg/query/engine.go (a work-queue driven field
// matcher) reshaped around tree traversal and pivot-based pruning instead
// of flat field comparisons.
package query

import (
	"github.com/ssargent/kdforest/pkg/kderrors"
	"github.com/ssargent/kdforest/pkg/meta"
	"github.com/ssargent/kdforest/pkg/spatial"
	"github.com/ssargent/kdforest/pkg/tree"
	"github.com/ssargent/kdforest/pkg/treefile"
)

// Location uniquely identifies a hit, for callers that want to issue a
// follow-up delete (spec §4.K). Ordinal numbers the rows of tree TreeID in
// a fixed order (at each branch: children first, then intersections), so it
// does not depend on which parts of the tree a query pruned.
type Location struct {
	TreeID  uint64
	Ordinal int
}

// Hit is one query result.
type Hit[S spatial.Number, V spatial.Value] struct {
	Point    spatial.Point[S]
	Value    V
	Location Location
}

// Trace receives every TreeRef the engine enters, letting tests assert
// which files were opened (spec §4.K "Optional tracing").
type Trace[S spatial.Number] func(id uint64, bounds spatial.Bounds[S])

// Engine runs bbox queries against a forest's current roots.
type Engine[S spatial.Number, V spatial.Value] struct {
	Dim     int
	TF      *treefile.TreeFile[S, V]
	Roots   []meta.Root[S]
	Pending map[string]bool
	Trace   Trace[S]
}

// workItem carries the build level of its node, since axis = depth mod Dim
// (spec §4.D, builder.go's level/axis convention). Depth starts at 0 at a
// root and is carried unchanged across a leaf's TreeRef: a subtree that
// Split cut loose keeps the pivots of the level it was cut from, and the
// TreeRef leaf sits at that same level. ord is the ordinal of the node's
// first row within treeID.
type workItem[S spatial.Number, V spatial.Value] struct {
	treeID uint64
	node   tree.Node[S, V]
	depth  int
	ord    int
}

// Query returns every live row overlapping bbox (spec §4.K).
func (e *Engine[S, V]) Query(bbox spatial.Bounds[S]) ([]Hit[S, V], error) {
	var hits []Hit[S, V]
	var queue []workItem[S, V]

	for _, r := range e.Roots {
		if !r.Bounds.Overlaps(bbox) {
			continue
		}
		entry, err := e.TF.Get(r.ID)
		if err != nil {
			if kderrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if e.Trace != nil {
			e.Trace(r.ID, entry.Bounds)
		}
		queue = append(queue, workItem[S, V]{treeID: r.ID, node: entry.Root, depth: 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		switch n := item.node.(type) {
		case *tree.Leaf[S, V]:
			for i, row := range n.Rows {
				if !n.IsLive(i) {
					continue
				}
				if e.Pending != nil && e.Pending[row.ID] {
					continue
				}
				if row.Point.Overlaps(bbox) {
					hits = append(hits, Hit[S, V]{
						Point:    row.Point,
						Value:    row.Value,
						Location: Location{TreeID: item.treeID, Ordinal: item.ord + i},
					})
				}
			}
			for _, ref := range n.Refs {
				if !ref.Bounds.Overlaps(bbox) {
					continue
				}
				entry, err := e.TF.Get(ref.ID)
				if err != nil {
					if kderrors.IsNotFound(err) {
						continue
					}
					return nil, err
				}
				if e.Trace != nil {
					e.Trace(ref.ID, entry.Bounds)
				}
				queue = append(queue, workItem[S, V]{treeID: ref.ID, node: entry.Root, depth: item.depth})
			}

		case *tree.Branch[S, V]:
			axis := item.depth % e.Dim
			lo, hi := bbox.Lo[axis], bbox.Hi[axis]

			// Traverse children and intersections in cascade (center-out)
			// order, matching the builder's pivot scan order (spec §4.K
			// step 4).
			order := cascadeOrder(len(n.Pivots))
			visitedChild := make([]bool, len(n.Children))
			offs := make([]int, 0, len(n.Children)+len(n.Intersections))
			next := item.ord
			for _, c := range append(append([]tree.Node[S, V]{}, n.Children...), n.Intersections...) {
				offs = append(offs, next)
				next += tree.CountRows[S, V](c)
			}
			for _, pi := range order {
				p := n.Pivots[pi]
				if lo <= p && !visitedChild[pi] {
					visitedChild[pi] = true
					queue = append(queue, workItem[S, V]{treeID: item.treeID, node: n.Children[pi], depth: item.depth + 1, ord: offs[pi]})
				}
				if hi >= p && !visitedChild[pi+1] {
					visitedChild[pi+1] = true
					queue = append(queue, workItem[S, V]{treeID: item.treeID, node: n.Children[pi+1], depth: item.depth + 1, ord: offs[pi+1]})
				}
				if straddlesRange(n.IntersectMask[pi], n.Pivots, lo, hi) {
					queue = append(queue, workItem[S, V]{treeID: item.treeID, node: n.Intersections[pi], depth: item.depth + 1, ord: offs[len(n.Children)+pi]})
				}
			}
		}
	}

	return hits, nil
}

// straddlesRange reports whether an intersection group whose rows straddle
// the pivots set in mask can hold a row overlapping [lo,hi]. A row that
// straddles pivot i lies within [pivots[i-1], pivots[i+1]] unless it also
// straddles those neighbours, so each masked pivot's neighbour span is
// tested against the query range.
func straddlesRange[S spatial.Number](mask uint32, pivots []S, lo, hi S) bool {
	for i := range pivots {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		below := i == 0 || hi >= pivots[i-1]
		above := i == len(pivots)-1 || lo <= pivots[i+1]
		if below && above {
			return true
		}
	}
	return false
}

func cascadeOrder(n int) []int {
	type span struct{ lo, hi int }
	var order []int
	queue := []span{{0, n}}
	for len(queue) > 0 {
		var next []span
		for _, s := range queue {
			if s.lo >= s.hi {
				continue
			}
			mid := (s.lo + s.hi) / 2
			order = append(order, mid)
			next = append(next, span{s.lo, mid})
			next = append(next, span{mid + 1, s.hi})
		}
		queue = next
	}
	return order
}
