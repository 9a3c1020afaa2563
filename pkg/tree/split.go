package tree

import "github.com/ssargent/kdforest/pkg/spatial"

// ExtractedTree is a subtree that Split cut out of a larger tree into its
// own independently stored tree, to be persisted under its own TreeId by
// the caller (spec §4.F "Size-class splitting").
type ExtractedTree[S spatial.Number, V spatial.Value] struct {
	ID     uint64
	Root   Node[S, V]
	Bounds spatial.Bounds[S]
}

// SplitResult is the output of Split: a root and extracted trees that each
// fit within the byte budget (best effort; a single oversize leaf cannot be
// shrunk further), plus every subtree it had to cut loose.
type SplitResult[S spatial.Number, V spatial.Value] struct {
	Root      Node[S, V]
	Extracted []ExtractedTree[S, V]
}

// Split caps the serialized size of root, and of every tree it cuts loose,
// at maxBytes by repeatedly cutting the largest remaining subtree into its
// own independent tree, replacing the
// cut point with a TreeRef leaf (spec §4.F: "the builder re-emits its
// largest subtrees as independent new trees and replaces them with TreeRef
// leaves in the parent"). nextID allocates a fresh TreeId per cut,
// mirroring the forest's NextTree watermark. A maxBytes of 0 disables
// splitting, per spec §4.L's max_tree_bytes being optional.
func Split[S spatial.Number, V spatial.Value](root Node[S, V], bounds spatial.Bounds[S], maxBytes int64, nextID func() uint64) SplitResult[S, V] {
	if maxBytes <= 0 {
		return SplitResult[S, V]{Root: root}
	}

	var extracted []ExtractedTree[S, V]
	for int64(len(EncodeTree[S, V](root, bounds))) > maxBytes {
		loc := largestCuttable(root)
		if loc == nil {
			// Nothing left to cut (root itself is a single oversize leaf
			// with no refs/branches beneath it): accept the overage.
			break
		}
		cutBounds := nodeBounds(loc.node)
		id := nextID()
		extracted = append(extracted, ExtractedTree[S, V]{ID: id, Root: loc.node, Bounds: cutBounds})
		loc.replace(&Leaf[S, V]{Refs: []TreeRef[S]{{ID: id, Bounds: cutBounds}}})
	}

	// Each cut-loose subtree is itself held to the same budget; whatever it
	// cuts loose is appended and checked in turn.
	for i := 0; i < len(extracted); i++ {
		sub := Split[S, V](extracted[i].Root, extracted[i].Bounds, maxBytes, nextID)
		extracted[i].Root = sub.Root
		extracted = append(extracted, sub.Extracted...)
	}

	return SplitResult[S, V]{Root: root, Extracted: extracted}
}

// cutSite is a mutable slot (one of a Branch's Children/Intersections
// entries) that can be replaced with a TreeRef-carrying Leaf.
type cutSite[S spatial.Number, V spatial.Value] struct {
	node    Node[S, V]
	replace func(Node[S, V])
}

// largestCuttable walks the tree collecting every candidate cut site (every
// Branch child and intersection subtree below the root — the root itself
// is never a candidate, since there's nowhere to graft its TreeRef) and
// returns the one with the largest encoded size.
func largestCuttable[S spatial.Number, V spatial.Value](root Node[S, V]) *cutSite[S, V] {
	br, ok := root.(*Branch[S, V])
	if !ok {
		return nil
	}

	var best *cutSite[S, V]
	bestSize := -1

	var walk func(b *Branch[S, V])
	walk = func(b *Branch[S, V]) {
		for i := range b.Children {
			i := i
			site := &cutSite[S, V]{
				node:    b.Children[i],
				replace: func(n Node[S, V]) { b.Children[i] = n },
			}
			consider(site, &best, &bestSize)
			if child, ok := b.Children[i].(*Branch[S, V]); ok {
				walk(child)
			}
		}
		for i := range b.Intersections {
			i := i
			site := &cutSite[S, V]{
				node:    b.Intersections[i],
				replace: func(n Node[S, V]) { b.Intersections[i] = n },
			}
			consider(site, &best, &bestSize)
			if sub, ok := b.Intersections[i].(*Branch[S, V]); ok {
				walk(sub)
			}
		}
	}
	walk(br)
	return best
}

func consider[S spatial.Number, V spatial.Value](site *cutSite[S, V], best **cutSite[S, V], bestSize *int) {
	size := len(appendNode(nil, site.node))
	if size > *bestSize {
		*bestSize = size
		*best = site
	}
}

// nodeBounds computes a conservative Bounds covering every row and TreeRef
// reachable from n, used to build the TreeRef left behind when n is cut
// into its own tree.
func nodeBounds[S spatial.Number, V spatial.Value](n Node[S, V]) spatial.Bounds[S] {
	var acc spatial.Bounds[S]
	first := true
	union := func(b spatial.Bounds[S]) {
		if first {
			acc = b
			first = false
			return
		}
		acc = acc.Union(b)
	}

	var walk func(Node[S, V])
	walk = func(n Node[S, V]) {
		switch x := n.(type) {
		case *Leaf[S, V]:
			for _, r := range x.Rows {
				union(r.Point.ToBounds())
			}
			for _, ref := range x.Refs {
				union(ref.Bounds)
			}
		case *Branch[S, V]:
			for _, c := range x.Children {
				walk(c)
			}
			for _, in := range x.Intersections {
				walk(in)
			}
		}
	}
	walk(n)
	return acc
}
