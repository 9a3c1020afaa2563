package tree

import (
	"github.com/ssargent/kdforest/pkg/codec"
	"github.com/ssargent/kdforest/pkg/kderrors"
	"github.com/ssargent/kdforest/pkg/spatial"
)

// tagBranch / tagLeaf are the node-kind tags. Spec §4.F packs the kind into
// the low bit of each node's size header; here each node instead starts
// with its own varint tag, followed by a varint body length. Byte-for-byte
// compatibility with the
// original Rust reference's packed offset/inline child_ref scheme is not a
// goal here (nothing else reads that wire format); this codec keeps the
// same conceptual fields — a varint row count, bounds, pivots, an
// intersect mask per pivot, rows, and refs — but lays each node out as a
// self-describing, recursively length-prefixed block so decode never needs
// a separate offset table. See DESIGN.md for that Open Question decision.
const (
	tagBranch = 0
	tagLeaf   = 1
)

// CountRows returns the total number of data rows a tree holds, used for
// the Tree header's leading varint(count).
func CountRows[S spatial.Number, V spatial.Value](n Node[S, V]) int {
	switch x := n.(type) {
	case *Leaf[S, V]:
		return len(x.Rows)
	case *Branch[S, V]:
		total := 0
		for _, c := range x.Children {
			total += CountRows[S, V](c)
		}
		for _, c := range x.Intersections {
			total += CountRows[S, V](c)
		}
		return total
	default:
		return 0
	}
}

// EncodeTree writes the full on-disk Tree blob: varint(count), bounds, Node.
func EncodeTree[S spatial.Number, V spatial.Value](n Node[S, V], bounds spatial.Bounds[S]) []byte {
	var out []byte
	out = codec.AppendUvarint(out, uint64(CountRows[S, V](n)))
	bb := make([]byte, bounds.CountBytes())
	bounds.Encode(bb)
	out = append(out, bb...)
	out = appendNode(out, n)
	return out
}

// DecodeTree reads a Tree blob written by EncodeTree.
func DecodeTree[S spatial.Number, V spatial.Value](dim int, dec spatial.Decoder[V], src []byte) (Node[S, V], spatial.Bounds[S], error) {
	n, _, err := codec.ReadUvarint(src)
	if err != nil {
		return nil, spatial.Bounds[S]{}, err
	}
	pos := n
	bn, bounds, err := spatial.DecodeBounds[S](dim, src[pos:])
	if err != nil {
		return nil, spatial.Bounds[S]{}, err
	}
	pos += bn
	node, _, err := readNode[S, V](dim, dec, src[pos:])
	if err != nil {
		return nil, spatial.Bounds[S]{}, err
	}
	return node, bounds, nil
}

func appendNode[S spatial.Number, V spatial.Value](dst []byte, n Node[S, V]) []byte {
	var body []byte
	var tag uint64
	switch x := n.(type) {
	case *Leaf[S, V]:
		tag = tagLeaf
		body = appendLeafBody(body, x)
	case *Branch[S, V]:
		tag = tagBranch
		body = appendBranchBody(body, x)
	default:
		panic("tree: unknown node kind")
	}
	dst = codec.AppendUvarint(dst, tag)
	dst = codec.AppendUvarint(dst, uint64(len(body)))
	dst = append(dst, body...)
	return dst
}

func appendLeafBody[S spatial.Number, V spatial.Value](dst []byte, l *Leaf[S, V]) []byte {
	dst = codec.AppendUvarint(dst, uint64(len(l.Rows)))
	dst = append(dst, packDeleteBitmap(l.Deleted, len(l.Rows))...)
	for _, r := range l.Rows {
		pb := make([]byte, r.Point.CountBytes())
		r.Point.Encode(pb)
		dst = append(dst, pb...)
		vb := make([]byte, r.Value.CountBytes())
		r.Value.Encode(vb)
		dst = append(dst, vb...)
	}
	dst = codec.AppendUvarint(dst, uint64(len(l.Refs)))
	for _, ref := range l.Refs {
		dst = codec.AppendUvarint(dst, ref.ID)
		bb := make([]byte, ref.Bounds.CountBytes())
		ref.Bounds.Encode(bb)
		dst = append(dst, bb...)
	}
	return dst
}

func appendBranchBody[S spatial.Number, V spatial.Value](dst []byte, b *Branch[S, V]) []byte {
	n := len(b.Pivots)
	dst = codec.AppendUvarint(dst, uint64(n))
	for _, p := range b.Pivots {
		dst = appendScalar(dst, p)
	}
	for _, m := range b.IntersectMask {
		dst = codec.AppendUvarint(dst, uint64(m))
	}
	for _, in := range b.Intersections {
		dst = appendNode(dst, in)
	}
	for _, c := range b.Children {
		dst = appendNode(dst, c)
	}
	return dst
}

func appendScalar[S spatial.Number](dst []byte, v S) []byte {
	buf := make([]byte, spatial.ScalarSize[S]())
	n := spatial.EncodeScalar(buf, v)
	return append(dst, buf[:n]...)
}

func readNode[S spatial.Number, V spatial.Value](dim int, dec spatial.Decoder[V], src []byte) (Node[S, V], int, error) {
	n, tag, err := codec.ReadUvarint(src)
	if err != nil {
		return nil, 0, err
	}
	pos := n
	n2, length, err := codec.ReadUvarint(src[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += n2
	body := src[pos : pos+int(length)]
	pos += int(length)

	switch tag {
	case tagLeaf:
		l, err := readLeafBody[S, V](dim, dec, body)
		if err != nil {
			return nil, 0, err
		}
		return l, pos, nil
	case tagBranch:
		br, err := readBranchBody[S, V](dim, dec, body)
		if err != nil {
			return nil, 0, err
		}
		return br, pos, nil
	default:
		return nil, 0, kderrors.Codec("unknown node tag %d", tag)
	}
}

func readLeafBody[S spatial.Number, V spatial.Value](dim int, dec spatial.Decoder[V], src []byte) (*Leaf[S, V], error) {
	pos, rowCount, err := codec.ReadUvarint(src)
	if err != nil {
		return nil, err
	}
	bitmapLen := (int(rowCount) + 7) / 8
	deleted := unpackDeleteBitmap(src[pos:pos+bitmapLen], int(rowCount))
	pos += bitmapLen
	rows := make([]spatial.Row[S, V], 0, rowCount)
	for i := uint64(0); i < rowCount; i++ {
		pn, p, err := spatial.DecodePoint[S](dim, src[pos:])
		if err != nil {
			return nil, err
		}
		pos += pn
		vn, v, err := dec.Decode(src[pos:])
		if err != nil {
			return nil, err
		}
		pos += vn
		rows = append(rows, spatial.NewInsert[S, V](p, v))
	}
	n2, refCount, err := codec.ReadUvarint(src[pos:])
	if err != nil {
		return nil, err
	}
	pos += n2
	refs := make([]TreeRef[S], 0, refCount)
	for i := uint64(0); i < refCount; i++ {
		n3, id, err := codec.ReadUvarint(src[pos:])
		if err != nil {
			return nil, err
		}
		pos += n3
		bn, bounds, err := spatial.DecodeBounds[S](dim, src[pos:])
		if err != nil {
			return nil, err
		}
		pos += bn
		refs = append(refs, TreeRef[S]{ID: id, Bounds: bounds})
	}
	return &Leaf[S, V]{Rows: rows, Refs: refs, Deleted: deleted}, nil
}

// packDeleteBitmap writes one bit per row, set when that row is a
// tombstone (spec §4.F delete_bitmap).
func packDeleteBitmap(deleted []bool, rowCount int) []byte {
	out := make([]byte, (rowCount+7)/8)
	for i := 0; i < rowCount && i < len(deleted); i++ {
		if deleted[i] {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func unpackDeleteBitmap(bitmap []byte, rowCount int) []bool {
	out := make([]bool, rowCount)
	for i := 0; i < rowCount; i++ {
		out[i] = bitmap[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

func readBranchBody[S spatial.Number, V spatial.Value](dim int, dec spatial.Decoder[V], src []byte) (*Branch[S, V], error) {
	pos, n, err := codec.ReadUvarint(src)
	if err != nil {
		return nil, err
	}
	pivots := make([]S, n)
	for i := uint64(0); i < n; i++ {
		cn, v, err := spatial.DecodeScalar[S](src[pos:])
		if err != nil {
			return nil, err
		}
		pivots[i] = v
		pos += cn
	}
	masks := make([]uint32, n)
	for i := uint64(0); i < n; i++ {
		mn, m, err := codec.ReadUvarint(src[pos:])
		if err != nil {
			return nil, err
		}
		masks[i] = uint32(m)
		pos += mn
	}
	intersections := make([]Node[S, V], n)
	for i := uint64(0); i < n; i++ {
		node, consumed, err := readNode[S, V](dim, dec, src[pos:])
		if err != nil {
			return nil, err
		}
		intersections[i] = node
		pos += consumed
	}
	children := make([]Node[S, V], n+1)
	for i := uint64(0); i < n+1; i++ {
		node, consumed, err := readNode[S, V](dim, dec, src[pos:])
		if err != nil {
			return nil, err
		}
		children[i] = node
		pos += consumed
	}
	return &Branch[S, V]{Pivots: pivots, IntersectMask: masks, Intersections: intersections, Children: children}, nil
}
