package forest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ssargent/kdforest/pkg/kderrors"
	"github.com/ssargent/kdforest/pkg/meta"
	"github.com/ssargent/kdforest/pkg/planner"
	"github.com/ssargent/kdforest/pkg/spatial"
	"github.com/ssargent/kdforest/pkg/tree"
	"github.com/ssargent/kdforest/pkg/treefile"
)

// Batch applies a set of insert/delete rows, per spec §4.J. It never syncs;
// callers must call Sync to make the result durable.
func (db *DB[S, V]) Batch(rows []spatial.Row[S, V]) error {
	var inserts []spatial.Row[S, V]
	var deletes []spatial.Row[S, V]
	for _, r := range rows {
		if r.IsDelete() {
			deletes = append(deletes, r)
		} else {
			inserts = append(inserts, r)
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	prevPending := db.pending
	if len(deletes) > 0 {
		next := make(map[string]bool, len(db.pending)+len(deletes))
		for id := range db.pending {
			next[id] = true
		}
		for _, d := range deletes {
			next[d.ID] = true
		}
		db.pending = next
	}

	if db.setup.ErrorIfMissing {
		var missing []string
		for _, d := range deletes {
			found, err := db.hasLiveID(d.ID, prevPending)
			if err != nil {
				db.pending = prevPending
				return err
			}
			if !found {
				missing = append(missing, d.ID)
			}
		}
		if len(missing) > 0 {
			db.pending = prevPending
			return &kderrors.RemoveIdsMissing{IDs: missing}
		}
	}

	if len(inserts) == 0 {
		return nil
	}

	slots := db.occupancyBits()
	// Spec §8 invariant 6 expresses occupancy in base_size units, not raw
	// row counts; a partial unit still advances the counter by one so a
	// batch smaller than BaseSize still makes forward progress.
	unitSize := db.setup.BaseSize
	if unitSize == 0 {
		unitSize = 1
	}
	units := (uint64(len(inserts)) + unitSize - 1) / unitSize
	plan := planner.New(units, slots)

	inputSlots := setBitsOf(plan.Inputs)
	// A natural cascade deeper than RebuildDepth is re-planned with the same
	// capped-merge the planner already gives Optimize, rather than truncating
	// inputSlots by hand: a hand truncation can leave an output slot that's
	// still occupied by a tree the truncated inputs no longer consume,
	// leaving two Roots entries claiming the same slot (spec §8 invariant 6).
	if db.setup.RebuildDepth > 0 && len(inputSlots) > db.setup.RebuildDepth {
		plan = planner.RebuildDepth(db.setup.RebuildDepth, slots)
		inputSlots = setBitsOf(plan.Inputs)
	}
	outputSlot := highestSetBit(plan.Outputs)
	if outputSlot < 0 {
		outputSlot = len(inputSlots)
	}

	flattened, consumedIDs, err := db.flattenSlots(inputSlots)
	if err != nil {
		return err
	}

	merged := append([]spatial.Row[S, V]{}, inserts...)
	merged = append(merged, flattened...)
	merged, consumedPending := db.dropPending(merged)

	cfg := tree.Config{Dim: db.setup.Dim, BranchFactor: db.setup.BranchFactor, LeafCapacity: db.setup.MaxDataSize}
	root := tree.Build(merged, cfg)
	bounds, ok := spatial.BoundsOf(rowPoints(merged))
	if !ok {
		bounds = spatial.Bounds[S]{Lo: make([]S, db.setup.Dim), Hi: make([]S, db.setup.Dim)}
	}

	newID, splitIDs := db.installSplit(root, bounds)

	var newRoots []meta.Root[S]
	for _, r := range db.meta.Roots {
		if containsUint64(consumedIDs, r.ID) {
			db.tf.Remove(r.ID)
			continue
		}
		newRoots = append(newRoots, r)
	}
	newRoots = append(newRoots, meta.Root[S]{ID: newID, Slot: outputSlot, Bounds: bounds})
	db.meta.Roots = newRoots

	db.clearPending(consumedPending)

	db.setup.log("forest: batch installed tree %d at slot %d (%d rows, %d consumed, %d split-off)", newID, outputSlot, len(merged), len(consumedIDs), len(splitIDs))
	return nil
}

// installSplit caps root's serialized size at the forest's MaxTreeBytes
// (spec §4.F "Size-class splitting"), persisting any subtree Split cuts
// loose as its own independently cached tree, and installs the (possibly
// rewritten) root under a freshly allocated TreeId.
func (db *DB[S, V]) installSplit(root tree.Node[S, V], bounds spatial.Bounds[S]) (uint64, []uint64) {
	nextID := func() uint64 {
		id := db.meta.NextTree
		db.meta.NextTree++
		return id
	}
	result := tree.Split[S, V](root, bounds, db.setup.MaxTreeBytes, nextID)

	var splitIDs []uint64
	for _, e := range result.Extracted {
		db.tf.Put(e.ID, &treefile.Entry[S, V]{Root: e.Root, Bounds: e.Bounds})
		splitIDs = append(splitIDs, e.ID)
	}

	newID := nextID()
	db.tf.Put(newID, &treefile.Entry[S, V]{Root: result.Root, Bounds: bounds})
	return newID, splitIDs
}

// Sync flushes the tree cache and rewrites Meta, the only durability
// barrier the coordinator crosses (spec §4.J step 7, §4.H).
func (db *DB[S, V]) Sync(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.tf.Sync(ctx); err != nil {
		return err
	}
	return meta.Save(db.store, db.meta)
}

// Optimize forces a collapse of the forest's bottom `depth` slots into one,
// independent of the natural batch-driven cascade (spec §4.I, supplemented
// from original_source/examples/optimize.rs).
func (db *DB[S, V]) Optimize(ctx context.Context, depth int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	slots := db.occupancyBits()
	if len(slots) == 0 {
		return nil
	}
	plan := planner.RebuildDepth(depth, slots)
	inputSlots := setBitsOf(plan.Inputs)

	merged, consumedIDs, err := db.flattenSlots(inputSlots)
	if err != nil {
		return err
	}
	merged, consumedPending := db.dropPending(merged)
	if len(merged) == 0 {
		return nil
	}

	cfg := tree.Config{Dim: db.setup.Dim, BranchFactor: db.setup.BranchFactor, LeafCapacity: db.setup.MaxDataSize}
	root := tree.Build(merged, cfg)
	bounds, _ := spatial.BoundsOf(rowPoints(merged))

	newID, _ := db.installSplit(root, bounds)

	outputSlot := highestSetBit(plan.Outputs)
	if outputSlot < 0 {
		outputSlot = len(inputSlots)
	}

	var newRoots []meta.Root[S]
	for _, r := range db.meta.Roots {
		if containsUint64(consumedIDs, r.ID) {
			db.tf.Remove(r.ID)
			continue
		}
		newRoots = append(newRoots, r)
	}
	newRoots = append(newRoots, meta.Root[S]{ID: newID, Slot: outputSlot, Bounds: bounds})
	db.meta.Roots = newRoots

	db.clearPending(consumedPending)
	return nil
}

// hasLiveID reports whether any currently-reachable row (across all live
// trees, ignoring ids already in pending) carries id. Callers must already
// hold db.mu.
func (db *DB[S, V]) hasLiveID(id string, pending map[string]bool) (bool, error) {
	for _, r := range db.meta.Roots {
		rows, err := db.flatten(r.ID)
		if err != nil {
			return false, err
		}
		for _, row := range rows {
			if row.ID == id && !pending[row.ID] {
				return true, nil
			}
		}
	}
	return false, nil
}

// flattenSlots flattens the trees occupying inputSlots, one tree per
// goroutine — the same disjoint-work fan-out pkg/tree.build uses for sibling
// subtrees (spec §5's "parallel sub-task" suspension point during a cascade
// merge's fan-in) — returning every row read plus the ids of the trees
// consumed. Callers must already hold db.mu.
func (db *DB[S, V]) flattenSlots(inputSlots []int) ([]spatial.Row[S, V], []uint64, error) {
	type slotResult struct {
		rows []spatial.Row[S, V]
		id   uint64
		ok   bool
	}
	results := make([]slotResult, len(inputSlots))

	var eg errgroup.Group
	for i, slotIdx := range inputSlots {
		i, slotIdx := i, slotIdx
		eg.Go(func() error {
			root, ok := db.rootAtSlot(slotIdx)
			if !ok {
				return nil
			}
			rows, err := db.flatten(root.ID)
			if err != nil {
				return err
			}
			results[i] = slotResult{rows: rows, id: root.ID, ok: true}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var merged []spatial.Row[S, V]
	var consumedIDs []uint64
	for _, r := range results {
		if !r.ok {
			continue
		}
		merged = append(merged, r.rows...)
		consumedIDs = append(consumedIDs, r.id)
	}
	return merged, consumedIDs, nil
}

// flatten walks a tree (and any TreeRef subtrees from size-class splitting)
// collecting every live row. Rebuilding by flattening and rebuilding from
// scratch is a deliberate simplification of the planner's "merge in
// passing" cascade described in spec §4.I.
func (db *DB[S, V]) flatten(id uint64) ([]spatial.Row[S, V], error) {
	entry, err := db.tf.Get(id)
	if err != nil {
		return nil, err
	}
	var out []spatial.Row[S, V]
	if err := db.flattenNode(entry.Root, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB[S, V]) flattenNode(n tree.Node[S, V], out *[]spatial.Row[S, V]) error {
	switch x := n.(type) {
	case *tree.Leaf[S, V]:
		for i, r := range x.Rows {
			if x.IsLive(i) {
				*out = append(*out, r)
			}
		}
		for _, ref := range x.Refs {
			rows, err := db.flatten(ref.ID)
			if err != nil {
				return err
			}
			*out = append(*out, rows...)
		}
	case *tree.Branch[S, V]:
		for _, c := range x.Children {
			if err := db.flattenNode(c, out); err != nil {
				return err
			}
		}
		for _, in := range x.Intersections {
			if err := db.flattenNode(in, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// dropPending removes rows whose id is a pending delete, returning the
// filtered rows plus the ids it actually found — those are now materialized
// out of the rebuilt tree and a caller should clear them from db.pending via
// clearPending. Callers must already hold db.mu.
func (db *DB[S, V]) dropPending(rows []spatial.Row[S, V]) ([]spatial.Row[S, V], []string) {
	if len(db.pending) == 0 {
		return rows, nil
	}
	out := rows[:0:0]
	var consumed []string
	for _, r := range rows {
		if db.pending[r.ID] {
			consumed = append(consumed, r.ID)
			continue
		}
		out = append(out, r)
	}
	return out, consumed
}

// clearPending drops ids from db.pending via a copy-on-write swap (spec §5:
// "the pending-delete table is copy-on-write per batch") now that they've
// been materialized out of a rebuilt tree. Callers must already hold db.mu.
func (db *DB[S, V]) clearPending(ids []string) {
	if len(ids) == 0 {
		return
	}
	next := make(map[string]bool, len(db.pending))
	for id := range db.pending {
		next[id] = true
	}
	for _, id := range ids {
		delete(next, id)
	}
	db.pending = next
}

func (db *DB[S, V]) occupancyBits() []bool {
	maxSlot := -1
	for _, r := range db.meta.Roots {
		if r.Slot > maxSlot {
			maxSlot = r.Slot
		}
	}
	bits := make([]bool, maxSlot+1)
	for _, r := range db.meta.Roots {
		bits[r.Slot] = true
	}
	return bits
}

func (db *DB[S, V]) rootAtSlot(slot int) (meta.Root[S], bool) {
	for _, r := range db.meta.Roots {
		if r.Slot == slot {
			return r, true
		}
	}
	return meta.Root[S]{}, false
}

func setBitsOf(bits []bool) []int {
	var out []int
	for i, b := range bits {
		if b {
			out = append(out, i)
		}
	}
	return out
}

func highestSetBit(bits []bool) int {
	for i := len(bits) - 1; i >= 0; i-- {
		if bits[i] {
			return i
		}
	}
	return -1
}

func containsUint64(s []uint64, v uint64) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func rowPoints[S spatial.Number, V spatial.Value](rows []spatial.Row[S, V]) []spatial.Point[S] {
	out := make([]spatial.Point[S], len(rows))
	for i, r := range rows {
		out[i] = r.Point
	}
	return out
}
