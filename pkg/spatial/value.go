package spatial

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/ssargent/kdforest/pkg/codec"
	"github.com/ssargent/kdforest/pkg/kderrors"
)

// Value is any opaque, user-supplied payload type with byte encode/decode/
// count and a stable ID hash projection (spec §3), generalized from the
// teacher's codec.Record (which hard-coded key/value []byte with a CRC32
// header) into a pluggable interface so a database's value type is not
// fixed to []byte.
type Value interface {
	// CountBytes returns the encoded size without encoding.
	CountBytes() int
	// Encode writes the value to dst (at least CountBytes() long) and
	// returns the number of bytes written.
	Encode(dst []byte) int
	// ID returns a stable identity used for delete matching (spec §9:
	// "Match by V::Id, not by reference identity"). Point equality is not
	// required; two values decoded from the same logical record must
	// return the same ID even if their []byte representation differs.
	ID() string
}

// Decoder decodes a Value of concrete type V from bytes. Implementations
// are supplied by the caller via Setup, mirroring spec §1's "pluggable
// byte-serializer interface".
type Decoder[V Value] interface {
	Decode(src []byte) (int, V, error)
}

// BytesValue is the default Value implementation: an opaque byte blob whose
// ID is an xxhash digest of its content. xxhash is already present in the
// dependency graph (pulled in transitively by pebble in the system-store
// side car); using it directly here avoids hand-rolling a hash function for
// something every batch's delete path depends on.
type BytesValue []byte

// CountBytes reports the varint length prefix plus the payload itself: a
// BytesValue's own encoded length is arbitrary (not fixed by configuration),
// so the prefix is what lets Decode recover bytes_read from the bytes alone
// (spec.md:81 "from_bytes(src) -> (bytes_read, value)").
func (v BytesValue) CountBytes() int {
	return codec.CountUvarint(uint64(len(v))) + len(v)
}

func (v BytesValue) Encode(dst []byte) int {
	n := codec.WriteUvarint(dst, uint64(len(v)))
	return n + copy(dst[n:], v)
}

func (v BytesValue) ID() string {
	return strconv.FormatUint(xxhash.Sum64(v), 16)
}

// BytesDecoder decodes BytesValue payloads written by BytesValue.Encode: the
// leading varint gives the payload length directly, so decoding never
// depends on an externally configured width (a configured width can't track
// per-row values of differing length, which silently misaligned every field
// following a short or long value on the next load from disk).
type BytesDecoder struct{ Len int }

func (d BytesDecoder) Decode(src []byte) (int, BytesValue, error) {
	n, length, err := codec.ReadUvarint(src)
	if err != nil {
		return 0, nil, err
	}
	pos := n + int(length)
	if pos > len(src) {
		return 0, nil, kderrors.Codec("buffer too small for value of length %d", length)
	}
	out := make(BytesValue, length)
	copy(out, src[n:pos])
	return pos, out, nil
}
