// Package treefile implements the forest's tree cache and dirty/tombstone
// tables (spec §4.G), grounded on the teacher's pkg/store write path (a
// mutex-guarded table plus an explicit sync barrier) and hardened with
// hashicorp/golang-lru/v2 for the size-bounded cache the reference's Rust
// lru crate provided (see original_source/src/data.rs's use of
// lru::LruCache for its list_cache/bbox cache). Parallel flush uses
// golang.org/x/sync/errgroup, mirroring the reference's async-std
// task::spawn fan-out in tree_file.rs's sync().
package treefile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/kdforest/pkg/blockstore"
	"github.com/ssargent/kdforest/pkg/kderrors"
	"github.com/ssargent/kdforest/pkg/spatial"
	"github.com/ssargent/kdforest/pkg/tree"
)

// Entry is a tree with its conservative bounds, the pair actually held in
// the cache and the updated/removed tables.
type Entry[S spatial.Number, V spatial.Value] struct {
	Root   tree.Node[S, V]
	Bounds spatial.Bounds[S]
}

// TreeFile is the cache described by spec §4.G: an LRU of loaded trees plus
// two tables tracking trees that must be flushed (updated) or deleted
// (removed) at the next sync.
type TreeFile[S spatial.Number, V spatial.Value] struct {
	mu sync.Mutex

	adapter blockstore.Adapter
	dim     int
	decoder spatial.Decoder[V]

	cache   *lru.Cache[uint64, *Entry[S, V]]
	updated map[uint64]*Entry[S, V]
	removed map[uint64]bool
}

// New builds a TreeFile backed by adapter, caching up to cacheSize trees in
// memory.
func New[S spatial.Number, V spatial.Value](adapter blockstore.Adapter, dim int, decoder spatial.Decoder[V], cacheSize int) (*TreeFile[S, V], error) {
	c, err := lru.New[uint64, *Entry[S, V]](cacheSize)
	if err != nil {
		return nil, kderrors.Io("create tree cache", err)
	}
	return &TreeFile[S, V]{
		adapter: adapter,
		dim:     dim,
		decoder: decoder,
		cache:   c,
		updated: make(map[uint64]*Entry[S, V]),
		removed: make(map[uint64]bool),
	}, nil
}

func storeName(id uint64) string {
	return fmt.Sprintf("tree-%d", id)
}

// Get loads a tree by id, consulting updated, then removed (TreeRemoved),
// then the LRU cache, then finally the backing store (spec §4.G get).
func (tf *TreeFile[S, V]) Get(id uint64) (*Entry[S, V], error) {
	tf.mu.Lock()
	if e, ok := tf.updated[id]; ok {
		tf.mu.Unlock()
		return e, nil
	}
	if tf.removed[id] {
		tf.mu.Unlock()
		return nil, &kderrors.TreeRemoved{ID: id}
	}
	if e, ok := tf.cache.Get(id); ok {
		tf.mu.Unlock()
		return e, nil
	}
	tf.mu.Unlock()

	store, err := tf.adapter.Open(storeName(id))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	empty, err := store.IsEmpty()
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, &kderrors.TreeEmpty{ID: id, File: storeName(id)}
	}
	n, err := store.Len()
	if err != nil {
		return nil, err
	}
	buf, err := store.Read(0, int(n))
	if err != nil {
		return nil, err
	}
	root, bounds, err := tree.DecodeTree[S](tf.dim, tf.decoder, buf)
	if err != nil {
		return nil, err
	}
	e := &Entry[S, V]{Root: root, Bounds: bounds}

	tf.mu.Lock()
	tf.cache.Add(id, e)
	tf.mu.Unlock()
	return e, nil
}

// Put installs a newly built or rebuilt tree into the cache and marks it
// dirty (spec §4.G put).
func (tf *TreeFile[S, V]) Put(id uint64, e *Entry[S, V]) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	delete(tf.removed, id)
	tf.cache.Add(id, e)
	tf.updated[id] = e
}

// Remove evicts id from the cache and updated table and marks it a
// tombstone awaiting file deletion (spec §4.G remove).
func (tf *TreeFile[S, V]) Remove(id uint64) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	tf.cache.Remove(id)
	delete(tf.updated, id)
	tf.removed[id] = true
}

// Sync drains the updated and removed tables: dirty trees are serialized
// and written (then durably synced), tombstoned trees are deleted, both in
// parallel (spec §4.G sync).
func (tf *TreeFile[S, V]) Sync(ctx context.Context) error {
	tf.mu.Lock()
	updated := tf.updated
	removed := tf.removed
	tf.updated = make(map[uint64]*Entry[S, V])
	tf.removed = make(map[uint64]bool)
	tf.mu.Unlock()

	// Dispatch order is sorted by id (rather than Go's unordered map
	// iteration) so two syncs of the same dirty set fan out their
	// goroutines identically; fan-out is still concurrent, the ordering
	// only governs the deterministic sequence in which it's issued.
	updatedIDs := make([]uint64, 0, len(updated))
	for id := range updated {
		updatedIDs = append(updatedIDs, id)
	}
	sort.Slice(updatedIDs, func(i, j int) bool { return updatedIDs[i] < updatedIDs[j] })

	removedIDs := make([]uint64, 0, len(removed))
	for id := range removed {
		removedIDs = append(removedIDs, id)
	}
	sort.Slice(removedIDs, func(i, j int) bool { return removedIDs[i] < removedIDs[j] })

	g, _ := errgroup.WithContext(ctx)
	for _, id := range updatedIDs {
		id := id
		e := updated[id]
		g.Go(func() error {
			store, err := tf.adapter.Open(storeName(id))
			if err != nil {
				return err
			}
			defer store.Close()
			blob := tree.EncodeTree[S, V](e.Root, e.Bounds)
			if err := store.Truncate(0); err != nil {
				return err
			}
			if err := store.Write(0, blob); err != nil {
				return err
			}
			return store.SyncAll()
		})
	}
	for _, id := range removedIDs {
		id := id
		g.Go(func() error {
			return tf.adapter.Remove(storeName(id))
		})
	}
	return g.Wait()
}

// PendingCounts reports the size of the updated/removed tables.
func (tf *TreeFile[S, V]) PendingCounts() (updated, removed int) {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return len(tf.updated), len(tf.removed)
}
