package forest

// ExplainResult summarizes forest occupancy for diagnostics, grounded on
// the teacher's pkg/store.ExplainResult shape (a Global summary struct)
// generalized from a single log file's key/tombstone counts to a forest's
// per-slot tree occupancy.
type ExplainResult struct {
	Global struct {
		LiveRoots      int `json:"live_roots"`
		NextTreeID     uint64 `json:"next_tree_id"`
		PendingDeletes int `json:"pending_deletes"`
	} `json:"global"`

	Slots []SlotInfo `json:"slots"`
}

// SlotInfo is one occupied binary-counter slot.
type SlotInfo struct {
	Slot   int    `json:"slot"`
	TreeID uint64 `json:"tree_id"`
}

// Explain reports the forest's current occupancy and pending-delete state,
// used by the debug CLI's "info" subcommand.
func (db *DB[S, V]) Explain() ExplainResult {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var res ExplainResult
	res.Global.LiveRoots = len(db.meta.Roots)
	res.Global.NextTreeID = db.meta.NextTree
	res.Global.PendingDeletes = len(db.pending)
	for _, r := range db.meta.Roots {
		res.Slots = append(res.Slots, SlotInfo{Slot: r.Slot, TreeID: r.ID})
	}
	return res
}
