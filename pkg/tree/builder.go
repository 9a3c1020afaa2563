package tree

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ssargent/kdforest/pkg/spatial"
)

// Config carries the builder's tunables (spec §4.E, §4.L Setup fields).
type Config struct {
	Dim          int
	BranchFactor int
	LeafCapacity int
}

// Build constructs a root Node from an unordered slice of rows (spec §4.E).
func Build[S spatial.Number, V spatial.Value](rows []spatial.Row[S, V], cfg Config) Node[S, V] {
	return build(rows, 0, cfg)
}

func build[S spatial.Number, V spatial.Value](rows []spatial.Row[S, V], level int, cfg Config) Node[S, V] {
	if len(rows) <= cfg.LeafCapacity {
		return &Leaf[S, V]{Rows: rows}
	}

	axis := level % cfg.Dim
	upperSelector := (level/cfg.Dim)%2 != 0

	key := func(r spatial.Row[S, V]) S {
		c := r.Point[axis]
		if !c.IsInterval() {
			return c.Lo()
		}
		if upperSelector {
			return c.Hi()
		}
		return c.Lo()
	}

	sorted := make([]spatial.Row[S, V], len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return key(sorted[i]) < key(sorted[j]) })

	n := cfg.BranchFactor - 1
	if n < 1 {
		n = 1
	}
	if n > len(sorted)-1 {
		n = len(sorted) - 1
	}
	if n < 1 {
		return &Leaf[S, V]{Rows: rows}
	}

	pivots := choosePivots(sorted, key, n)
	order := cascadeOrder(n)

	remaining := make([]bool, len(sorted))
	for i := range remaining {
		remaining[i] = true
	}
	groups := make([][]spatial.Row[S, V], n)

	for _, pi := range order {
		p := pivots[pi]
		for idx, r := range sorted {
			if !remaining[idx] {
				continue
			}
			if r.Point[axis].OverlapsPivot(p) {
				remaining[idx] = false
				groups[pi] = append(groups[pi], r)
			}
		}
	}

	masks := make([]uint32, n)
	for i, g := range groups {
		var mask uint32
		for _, r := range g {
			c := r.Point[axis]
			for j, pv := range pivots {
				if c.OverlapsPivot(pv) {
					mask |= 1 << uint(j)
				}
			}
		}
		masks[i] = mask
	}

	buckets := make([][]spatial.Row[S, V], n+1)
	nonEmpty := 0
	for idx, r := range sorted {
		if !remaining[idx] {
			continue
		}
		k := key(r)
		b := sort.Search(n, func(i int) bool { return k < pivots[i] })
		if len(buckets[b]) == 0 {
			nonEmpty++
		}
		buckets[b] = append(buckets[b], r)
	}

	totalIntersections := 0
	for _, g := range groups {
		totalIntersections += len(g)
	}
	if nonEmpty <= 1 && totalIntersections == 0 {
		// Subdivision collapsed onto a single bucket; stop recursing.
		return &Leaf[S, V]{Rows: rows}
	}

	// Children and rebalanced intersection subtrees are built from disjoint
	// row slices, so sibling subtree construction fans out concurrently
	// rather than recursing sequentially (spec §5's CPU-bound "parallel
	// sub-task" suspension point during a cascade merge).
	children := make([]Node[S, V], n+1)
	intersections := make([]Node[S, V], n)

	var eg errgroup.Group
	for i, b := range buckets {
		i, b := i, b
		eg.Go(func() error {
			children[i] = build(b, level+1, cfg)
			return nil
		})
	}
	for i, grp := range groups {
		i, grp := i, grp
		if len(grp) > cfg.LeafCapacity {
			// Rebalancing: an oversized intersection group becomes its own
			// nested branch rather than a flat leaf (spec §4.E).
			eg.Go(func() error {
				intersections[i] = build(grp, level+1, cfg)
				return nil
			})
		} else {
			intersections[i] = &Leaf[S, V]{Rows: grp}
		}
	}
	_ = eg.Wait() // build never returns an error; Wait only joins the fan-out.

	return &Branch[S, V]{
		Pivots:        pivots,
		IntersectMask: masks,
		Intersections: intersections,
		Children:      children,
	}
}

// choosePivots samples n quantile boundaries from the sorted rows and
// averages each with its neighbor, per spec §4.E step 4.
func choosePivots[S spatial.Number, V spatial.Value](sorted []spatial.Row[S, V], key func(spatial.Row[S, V]) S, n int) []S {
	N := len(sorted)
	pivots := make([]S, n)
	for k := 1; k <= n; k++ {
		idx := k * N / (n + 1)
		a := idx - 1
		if a < 0 {
			a = 0
		}
		b := idx
		if b >= N {
			b = N - 1
		}
		pivots[k-1] = (key(sorted[a]) + key(sorted[b])) / S(2)
	}
	return pivots
}

// cascadeOrder enumerates indices [0,n) in breadth-first, center-outward
// order over the implicit complete binary tree spanning the pivot array
// (spec §4.E "Cascade order").
func cascadeOrder(n int) []int {
	type span struct{ lo, hi int }
	order := make([]int, 0, n)
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
