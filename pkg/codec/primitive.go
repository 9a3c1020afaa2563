package codec

import (
	"math"

	"github.com/ssargent/kdforest/pkg/kderrors"
)

// Fixed-width little-endian codecs for the scalar kinds spec §3 allows:
// IEEE-754 floats and fixed-width signed/unsigned integers. pkg/spatial
// dispatches to these by underlying kind so that Coord[S] stays generic.

func WriteFloat32(dst []byte, v float32) int {
	putU32(dst, math.Float32bits(v))
	return 4
}

func ReadFloat32(src []byte) (int, float32, error) {
	if len(src) < 4 {
		return 0, 0, kderrors.Codec("buffer too small for float32")
	}
	return 4, math.Float32frombits(getU32(src)), nil
}

func WriteFloat64(dst []byte, v float64) int {
	putU64(dst, math.Float64bits(v))
	return 8
}

func ReadFloat64(src []byte) (int, float64, error) {
	if len(src) < 8 {
		return 0, 0, kderrors.Codec("buffer too small for float64")
	}
	return 8, math.Float64frombits(getU64(src)), nil
}

func WriteUint8(dst []byte, v uint8) int  { dst[0] = v; return 1 }
func ReadUint8(src []byte) (int, uint8, error) {
	if len(src) < 1 {
		return 0, 0, kderrors.Codec("buffer too small for uint8")
	}
	return 1, src[0], nil
}

func WriteUint16(dst []byte, v uint16) int { putU16(dst, v); return 2 }
func ReadUint16(src []byte) (int, uint16, error) {
	if len(src) < 2 {
		return 0, 0, kderrors.Codec("buffer too small for uint16")
	}
	return 2, getU16(src), nil
}

func WriteUint32(dst []byte, v uint32) int { putU32(dst, v); return 4 }
func ReadUint32(src []byte) (int, uint32, error) {
	if len(src) < 4 {
		return 0, 0, kderrors.Codec("buffer too small for uint32")
	}
	return 4, getU32(src), nil
}

func WriteUint64(dst []byte, v uint64) int { putU64(dst, v); return 8 }
func ReadUint64(src []byte) (int, uint64, error) {
	if len(src) < 8 {
		return 0, 0, kderrors.Codec("buffer too small for uint64")
	}
	return 8, getU64(src), nil
}

func WriteInt8(dst []byte, v int8) int { dst[0] = byte(v); return 1 }
func ReadInt8(src []byte) (int, int8, error) {
	if len(src) < 1 {
		return 0, 0, kderrors.Codec("buffer too small for int8")
	}
	return 1, int8(src[0]), nil
}

func WriteInt16(dst []byte, v int16) int { putU16(dst, uint16(v)); return 2 }
func ReadInt16(src []byte) (int, int16, error) {
	if len(src) < 2 {
		return 0, 0, kderrors.Codec("buffer too small for int16")
	}
	return 2, int16(getU16(src)), nil
}

func WriteInt32(dst []byte, v int32) int { putU32(dst, uint32(v)); return 4 }
func ReadInt32(src []byte) (int, int32, error) {
	if len(src) < 4 {
		return 0, 0, kderrors.Codec("buffer too small for int32")
	}
	return 4, int32(getU32(src)), nil
}

func WriteInt64(dst []byte, v int64) int { putU64(dst, uint64(v)); return 8 }
func ReadInt64(src []byte) (int, int64, error) {
	if len(src) < 8 {
		return 0, 0, kderrors.Codec("buffer too small for int64")
	}
	return 8, int64(getU64(src)), nil
}

func putU16(dst []byte, v uint16) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
}

func getU16(src []byte) uint16 {
	return uint16(src[0]) | uint16(src[1])<<8
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func getU32(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

func putU64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func getU64(src []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}
