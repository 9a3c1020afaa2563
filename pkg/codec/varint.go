package codec

import "github.com/ssargent/kdforest/pkg/kderrors"

// WriteUvarint encodes value as ULEB128 into dst and returns the number of
// bytes written. dst must be at least CountUvarint(value) bytes long.
func WriteUvarint(dst []byte, value uint64) int {
	n := 0
	for value > 127 {
		dst[n] = byte(value) | 0x80
		value >>= 7
		n++
	}
	dst[n] = byte(value)
	return n + 1
}

// AppendUvarint appends the ULEB128 encoding of value to dst.
func AppendUvarint(dst []byte, value uint64) []byte {
	for value > 127 {
		dst = append(dst, byte(value)|0x80)
		value >>= 7
	}
	return append(dst, byte(value))
}

// ReadUvarint decodes a ULEB128 value from the front of src, returning the
// number of bytes consumed and the value. It mirrors the reference's
// bytes/varint.rs decode, capped at 9 bytes (8 continuation bytes; values
// below 2^63, comfortably covering TreeId and record counts).
func ReadUvarint(src []byte) (n int, value uint64, err error) {
	var shift uint
	for i := 0; i < 9; i++ {
		if i >= len(src) {
			return 0, 0, kderrors.Codec("buffer too small for varint")
		}
		b := src[i]
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return i + 1, value, nil
		}
		shift += 7
	}
	return 0, 0, kderrors.Codec("varint exceeds maximum length")
}

// CountUvarint returns the number of bytes WriteUvarint would emit for value.
func CountUvarint(value uint64) int {
	n := 1
	for value > 127 {
		value >>= 7
		n++
	}
	return n
}
