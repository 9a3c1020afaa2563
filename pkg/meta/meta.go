// Package meta persists the forest's roots table (spec §4.H): which trees
// are currently live, and the next unused TreeId. It is grounded on the
// teacher's pkg/store atomic-rewrite idiom (write the whole blob, then
// fsync as the durability barrier) rather than an incremental log, since
// the roots table is small and always rewritten whole.
package meta

import (
	"github.com/ssargent/kdforest/pkg/blockstore"
	"github.com/ssargent/kdforest/pkg/codec"
	"github.com/ssargent/kdforest/pkg/spatial"
)

// StoreName is the well-known blockstore.Store name the forest opens for
// the meta blob.
const StoreName = "meta"

// Root is one present entry in the roots table: a live tree's id, the
// binary-counter slot it occupies, and its conservative bounds (spec §4.H
// present_roots). Slot is not part of the wire grammar §4.H spells out
// explicitly, but the forest planner's occupancy bitmap (spec §4.I) needs a
// way to recover which slot each on-disk tree fills across a reopen, so it
// travels alongside ID/Bounds in the same present_roots entry.
type Root[S spatial.Number] struct {
	ID     uint64
	Slot   int
	Bounds spatial.Bounds[S]
}

// Meta is the decoded roots table.
type Meta[S spatial.Number] struct {
	NextTree uint64
	Roots    []Root[S]
}

// Encode writes m per spec §4.H:
// varint(next_tree) · varint(|roots|) · ceil(|roots|/8) bitmap · present_roots
//
// The bitmap records which slots are present; since this implementation
// always compacts Roots to only live entries, every bit is set, but the
// field is kept so the wire format matches a sparse roots table if a
// caller chooses to carry empty slots (e.g. to preserve positional tree
// ids across an optimize() pass).
func (m Meta[S]) Encode() []byte {
	var out []byte
	out = codec.AppendUvarint(out, m.NextTree)
	out = codec.AppendUvarint(out, uint64(len(m.Roots)))
	bitmap := make([]byte, (len(m.Roots)+7)/8)
	for i := range m.Roots {
		bitmap[i/8] |= 1 << uint(i%8)
	}
	out = append(out, bitmap...)
	for _, r := range m.Roots {
		out = codec.AppendUvarint(out, r.ID)
		out = codec.AppendUvarint(out, uint64(r.Slot))
		bb := make([]byte, r.Bounds.CountBytes())
		r.Bounds.Encode(bb)
		out = append(out, bb...)
	}
	return out
}

// Decode reads a Meta blob written by Encode. dim is the forest's fixed
// dimension, needed to size each root's Bounds.
func Decode[S spatial.Number](dim int, src []byte) (Meta[S], error) {
	pos, next, err := codec.ReadUvarint(src)
	if err != nil {
		return Meta[S]{}, err
	}
	n2, count, err := codec.ReadUvarint(src[pos:])
	if err != nil {
		return Meta[S]{}, err
	}
	pos += n2
	bitmapLen := (int(count) + 7) / 8
	pos += bitmapLen // positional bitmap is not consulted: Roots is always compact.

	roots := make([]Root[S], 0, count)
	for i := uint64(0); i < count; i++ {
		n3, id, err := codec.ReadUvarint(src[pos:])
		if err != nil {
			return Meta[S]{}, err
		}
		pos += n3
		n4, slot, err := codec.ReadUvarint(src[pos:])
		if err != nil {
			return Meta[S]{}, err
		}
		pos += n4
		bn, bounds, err := spatial.DecodeBounds[S](dim, src[pos:])
		if err != nil {
			return Meta[S]{}, err
		}
		pos += bn
		roots = append(roots, Root[S]{ID: id, Slot: int(slot), Bounds: bounds})
	}
	return Meta[S]{NextTree: next, Roots: roots}, nil
}

// Load reads Meta from the forest's meta store. An empty store (first open)
// yields a zero-valued Meta with NextTree 0.
func Load[S spatial.Number](dim int, store blockstore.Store) (Meta[S], error) {
	empty, err := store.IsEmpty()
	if err != nil {
		return Meta[S]{}, err
	}
	if empty {
		return Meta[S]{}, nil
	}
	n, err := store.Len()
	if err != nil {
		return Meta[S]{}, err
	}
	buf, err := store.Read(0, int(n))
	if err != nil {
		return Meta[S]{}, err
	}
	return Decode[S](dim, buf)
}

// Save rewrites m atomically: truncate, write, durable sync (spec §4.H).
func Save[S spatial.Number](store blockstore.Store, m Meta[S]) error {
	blob := m.Encode()
	if err := store.Truncate(0); err != nil {
		return err
	}
	if err := store.Write(0, blob); err != nil {
		return err
	}
	return store.SyncAll()
}
