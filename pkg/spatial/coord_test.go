package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSidesRejected(t *testing.T) {
	_, err := NewInterval[float64](2, 5.0, 3.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lo=5")
}

// TestOverlapsPivot exercises spec §8 invariant 5: "An interval overlaps a
// pivot iff lo <= pivot <= hi".
func TestOverlapsPivot(t *testing.T) {
	scalar := NewScalar(4.0)
	assert.True(t, scalar.OverlapsPivot(4.0))
	assert.False(t, scalar.OverlapsPivot(4.1))

	iv := MustInterval(2.0, 6.0)
	assert.True(t, iv.OverlapsPivot(2.0))
	assert.True(t, iv.OverlapsPivot(6.0))
	assert.True(t, iv.OverlapsPivot(4.0))
	assert.False(t, iv.OverlapsPivot(1.9))
	assert.False(t, iv.OverlapsPivot(6.1))
}

// TestOverlapsRange exercises spec §8 invariant 5's bbox-edge rule: "bbox.lo
// <= hi and lo <= bbox.hi".
func TestOverlapsRange(t *testing.T) {
	iv := MustInterval(3.0, 5.0)
	assert.True(t, iv.OverlapsRange(4.0, 10.0))
	assert.True(t, iv.OverlapsRange(0.0, 3.0))
	assert.True(t, iv.OverlapsRange(5.0, 10.0))
	assert.False(t, iv.OverlapsRange(5.1, 10.0))
	assert.False(t, iv.OverlapsRange(-5.0, 2.9))
}

func TestPointEncodeDecodeRoundTrip(t *testing.T) {
	p := Point[float64]{
		NewScalar(1.5),
		MustInterval(2.0, 3.0),
		NewScalar(-7.25),
	}
	buf := make([]byte, p.CountBytes())
	n := p.Encode(buf)
	assert.Equal(t, len(buf), n)

	consumed, decoded, err := DecodePoint[float64](3, buf)
	require.NoError(t, err)
	assert.Equal(t, n, consumed)
	require.Equal(t, p.Dim(), decoded.Dim())
	for i := range p {
		assert.Equal(t, p[i].Lo(), decoded[i].Lo())
		assert.Equal(t, p[i].Hi(), decoded[i].Hi())
		assert.Equal(t, p[i].IsInterval(), decoded[i].IsInterval())
	}
}

func TestBoundsEncodeDecodeRoundTrip(t *testing.T) {
	b := Bounds[int32]{Lo: []int32{-5, 0}, Hi: []int32{10, 20}}
	buf := make([]byte, b.CountBytes())
	b.Encode(buf)

	_, decoded, err := DecodeBounds[int32](2, buf)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
}

func TestBoundsOverlaps(t *testing.T) {
	a := Bounds[float64]{Lo: []float64{0, 0}, Hi: []float64{5, 5}}
	b := Bounds[float64]{Lo: []float64{4, 4}, Hi: []float64{10, 10}}
	c := Bounds[float64]{Lo: []float64{6, 6}, Hi: []float64{10, 10}}
	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
}

func TestPointToBoundsRequiresInterval(t *testing.T) {
	p := Point[float64]{NewScalar(1.0), MustInterval(2.0, 3.0)}
	assert.Error(t, p.RequireInterval(0))
	assert.NoError(t, p.RequireInterval(1))
}
