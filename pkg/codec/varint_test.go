package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUvarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 16384, 1 << 32, 1<<56 - 1}
	for _, v := range cases {
		buf := make([]byte, CountUvarint(v))
		n := WriteUvarint(buf, v)
		assert.Equal(t, len(buf), n)

		rn, got, err := ReadUvarint(buf)
		assert.NoError(t, err)
		assert.Equal(t, n, rn)
		assert.Equal(t, v, got)
	}
}

func TestReadUvarintTruncated(t *testing.T) {
	_, _, err := ReadUvarint([]byte{0x80})
	assert.Error(t, err)
}

func TestFixedWidthRoundTrip(t *testing.T) {
	buf := make([]byte, 8)

	WriteFloat64(buf, 3.5)
	_, f, err := ReadFloat64(buf)
	assert.NoError(t, err)
	assert.Equal(t, 3.5, f)

	WriteInt64(buf, -42)
	_, i, err := ReadInt64(buf)
	assert.NoError(t, err)
	assert.Equal(t, int64(-42), i)

	WriteUint32(buf[:4], 0xdeadbeef)
	_, u, err := ReadUint32(buf[:4])
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u)
}
