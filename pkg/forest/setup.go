// Package forest implements Setup/open, the batch coordinator, sync, and
// optimize (spec §4.I, §4.J, §4.L): the top-level DB type callers open and
// drive. It is grounded on the teacher's pkg/store.StoreImpl (field layout,
// a builder-style config struct, an Explain diagnostics call) generalized
// from a single-file KV log to a multi-tree forest over pkg/blockstore.
package forest

import (
	"log"
	"sync"

	"github.com/ssargent/kdforest/pkg/blockstore"
	"github.com/ssargent/kdforest/pkg/meta"
	"github.com/ssargent/kdforest/pkg/spatial"
	"github.com/ssargent/kdforest/pkg/treefile"
)

// Setup is the builder-style configuration spec §4.L names. Fields default
// to the values the reference documents (branch_factor 5-9, leaf capacity
// ~3000, rebuild_depth 2).
type Setup[S spatial.Number, V spatial.Value] struct {
	Dim               int
	BranchFactor      int
	MaxDataSize       int
	BaseSize          uint64
	MaxTreeBytes      int64
	BBoxCacheSize     int
	DataListCacheSize int
	TreeCacheSize     int
	RebuildDepth      int
	ErrorIfMissing    bool
	Decoder           spatial.Decoder[V]
	Logger            *log.Logger

	// Path, if set, is the directory OpenFromSetup binds its block-I/O
	// adapter to. Setup built via DefaultSetup leaves this empty; callers
	// going through OpenFromSetup should set it (spec §6 open_from_setup).
	Path string
}

// DefaultSetup returns a Setup with the spec's documented defaults for a
// dim-dimensional forest. Decoder must still be supplied by the caller.
func DefaultSetup[S spatial.Number, V spatial.Value](dim int, decoder spatial.Decoder[V]) Setup[S, V] {
	return Setup[S, V]{
		Dim:               dim,
		BranchFactor:      5,
		MaxDataSize:       3000,
		BaseSize:          4096,
		MaxTreeBytes:      0,
		BBoxCacheSize:     256,
		DataListCacheSize: 256,
		TreeCacheSize:     64,
		RebuildDepth:      2,
		ErrorIfMissing:    false,
		Decoder:           decoder,
	}
}

// Debug installs a logger for diagnostic output, matching spec §4.L's
// debug(logger) option and the teacher's Setup.debug idiom.
func (s Setup[S, V]) Debug(logger *log.Logger) Setup[S, V] {
	s.Logger = logger
	return s
}

func (s Setup[S, V]) log(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// DB is the open forest handle returned by Open.
type DB[S spatial.Number, V spatial.Value] struct {
	setup   Setup[S, V]
	adapter blockstore.Adapter
	store   blockstore.Store
	tf      *treefile.TreeFile[S, V]

	// mu guards meta and pending, spec §5's "TreeFile maps and Meta are
	// guarded by a reader-writer lock": Batch/Sync/Optimize take it for
	// their whole critical section, Query only long enough to snapshot
	// both fields. Neither field is ever mutated in place afterward — a
	// critical section always builds a new Roots slice / pending map and
	// swaps the field — so a snapshot taken under RLock stays valid to
	// read lock-free for the rest of a query's traversal (spec §5: "a
	// query started before a batch's critical section may continue
	// against the earlier snapshot").
	mu   sync.RWMutex
	meta meta.Meta[S]

	// pending holds delete ids whose rows have not yet been dropped by a
	// rebuild of their tree (spec §4.J step 3). Copy-on-write per spec §5
	// ("the pending-delete table is copy-on-write per batch"): every
	// mutation builds a fresh map and assigns it, it is never written to
	// in place.
	pending map[string]bool
}

// OpenFromPath binds the block-I/O adapter to a directory, per spec §4.L
// open_from_path(path).
func OpenFromPath[S spatial.Number, V spatial.Value](path string, setup Setup[S, V]) (*DB[S, V], error) {
	dir, err := blockstore.NewDirectory(path)
	if err != nil {
		return nil, err
	}
	return Open[S, V](dir, setup)
}

// OpenFromSetup opens a forest using setup.Path as the storage directory,
// per spec §6's open_from_setup(setup) -> DB: the single-argument form that
// folds the path into the builder-style Setup itself rather than taking it
// as a separate parameter the way OpenFromPath does.
func OpenFromSetup[S spatial.Number, V spatial.Value](setup Setup[S, V]) (*DB[S, V], error) {
	return OpenFromPath[S, V](setup.Path, setup)
}

// Open builds a DB over an arbitrary blockstore.Adapter (file-backed or
// in-memory), loading existing Meta if present.
func Open[S spatial.Number, V spatial.Value](adapter blockstore.Adapter, setup Setup[S, V]) (*DB[S, V], error) {
	metaStore, err := adapter.Open(meta.StoreName)
	if err != nil {
		return nil, err
	}
	m, err := meta.Load[S](setup.Dim, metaStore)
	if err != nil {
		return nil, err
	}
	tf, err := treefile.New[S, V](adapter, setup.Dim, setup.Decoder, setup.TreeCacheSize)
	if err != nil {
		return nil, err
	}
	setup.log("forest: opened with %d live roots, next_tree=%d", len(m.Roots), m.NextTree)
	return &DB[S, V]{
		setup:   setup,
		adapter: adapter,
		meta:    m,
		store:   metaStore,
		tf:      tf,
		pending: make(map[string]bool),
	}, nil
}

// Close releases the meta store handle. The tree cache opens and closes a
// tree's store around each read or flush, so it holds no open handle.
func (db *DB[S, V]) Close() error {
	return db.store.Close()
}
