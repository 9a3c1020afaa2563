// Package spatial implements the Scalar / Coord / Point / Bounds / Value
// data model from spec §3, grounded on original_source/src/point.rs's
// Point trait (cmp_at / midpoint_upper / serialize_at) but expressed with
// Go generics over a runtime dimension count instead of per-arity trait
// impls — see DESIGN.md for that Open Question decision.
package spatial

import (
	"unsafe"

	"github.com/ssargent/kdforest/pkg/codec"
	"github.com/ssargent/kdforest/pkg/kderrors"
)

// Number is the set of scalar kinds spec §3 allows: IEEE-754 floats and
// fixed-width signed/unsigned integers.
type Number interface {
	~float32 | ~float64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64
}

// average mirrors the reference's `(a+b)/2.into()` midpoint rule exactly,
// including its integer truncation behavior for integer scalar kinds.
func average[S Number](a, b S) S {
	return (a + b) / S(2)
}

// scalarSize returns the fixed on-disk width of S.
func scalarSize[S Number]() int {
	var zero S
	return int(unsafe.Sizeof(zero))
}

// ScalarSize returns the fixed on-disk width of S, exported for callers
// (pkg/tree's codec) that need to size buffers for bare scalar values such
// as branch pivots.
func ScalarSize[S Number]() int { return scalarSize[S]() }

// EncodeScalar writes a single scalar value to dst, exported for pkg/tree's
// pivot encoding.
func EncodeScalar[S Number](dst []byte, v S) int { return encodeScalar(dst, v) }

// DecodeScalar reads a single scalar value from the front of src, exported
// for pkg/tree's pivot decoding.
func DecodeScalar[S Number](src []byte) (int, S, error) { return decodeScalar[S](src) }

func encodeScalar[S Number](dst []byte, v S) int {
	switch x := any(v).(type) {
	case float32:
		return codec.WriteFloat32(dst, x)
	case float64:
		return codec.WriteFloat64(dst, x)
	case int8:
		return codec.WriteInt8(dst, x)
	case int16:
		return codec.WriteInt16(dst, x)
	case int32:
		return codec.WriteInt32(dst, x)
	case int64:
		return codec.WriteInt64(dst, x)
	case uint8:
		return codec.WriteUint8(dst, x)
	case uint16:
		return codec.WriteUint16(dst, x)
	case uint32:
		return codec.WriteUint32(dst, x)
	case uint64:
		return codec.WriteUint64(dst, x)
	default:
		panic("spatial: unsupported scalar kind")
	}
}

func decodeScalar[S Number](src []byte) (int, S, error) {
	var zero S
	switch any(zero).(type) {
	case float32:
		n, v, err := codec.ReadFloat32(src)
		return n, S(v), err
	case float64:
		n, v, err := codec.ReadFloat64(src)
		return n, S(v), err
	case int8:
		n, v, err := codec.ReadInt8(src)
		return n, S(v), err
	case int16:
		n, v, err := codec.ReadInt16(src)
		return n, S(v), err
	case int32:
		n, v, err := codec.ReadInt32(src)
		return n, S(v), err
	case int64:
		n, v, err := codec.ReadInt64(src)
		return n, S(v), err
	case uint8:
		n, v, err := codec.ReadUint8(src)
		return n, S(v), err
	case uint16:
		n, v, err := codec.ReadUint16(src)
		return n, S(v), err
	case uint32:
		n, v, err := codec.ReadUint32(src)
		return n, S(v), err
	case uint64:
		n, v, err := codec.ReadUint64(src)
		return n, S(v), err
	default:
		return 0, zero, kderrors.Codec("unsupported scalar kind")
	}
}
