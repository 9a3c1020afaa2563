package forest

import (
	"github.com/ssargent/kdforest/pkg/query"
	"github.com/ssargent/kdforest/pkg/spatial"
)

// Query runs a bbox query against the forest's current live roots (spec
// §4.K). trace, if non-nil, is invoked for every TreeRef entered.
func (db *DB[S, V]) Query(bbox spatial.Bounds[S], trace query.Trace[S]) ([]query.Hit[S, V], error) {
	// Roots and Pending are never mutated in place (batch.go always swaps
	// in a fresh slice/map), so a snapshot taken under a brief RLock stays
	// safe to read for the rest of the traversal without holding the lock.
	db.mu.RLock()
	roots := db.meta.Roots
	pending := db.pending
	db.mu.RUnlock()

	eng := query.Engine[S, V]{
		Dim:     db.setup.Dim,
		TF:      db.tf,
		Roots:   roots,
		Pending: pending,
		Trace:   trace,
	}
	return eng.Query(bbox)
}
