package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/kdforest/pkg/spatial"
)

func samplePoint(x, y float64) spatial.Point[float64] {
	return spatial.Point[float64]{spatial.NewScalar(x), spatial.NewScalar(y)}
}

func TestBuildAndCodecRoundTrip(t *testing.T) {
	var rows []spatial.Row[float64, spatial.BytesValue]
	for i := 0; i < 500; i++ {
		x := float64(i % 50)
		y := float64(i / 50)
		rows = append(rows, spatial.NewInsert[float64, spatial.BytesValue](
			samplePoint(x, y), spatial.BytesValue([]byte{byte(i), byte(i >> 8)})))
	}

	cfg := Config{Dim: 2, BranchFactor: 4, LeafCapacity: 32}
	root := Build(rows, cfg)
	assert.Equal(t, len(rows), CountRows[float64, spatial.BytesValue](root))

	bounds, ok := spatial.BoundsOf(pointsOf(rows))
	require.True(t, ok)

	blob := EncodeTree[float64, spatial.BytesValue](root, bounds)

	decoded, decBounds, err := DecodeTree[float64](2, spatial.BytesDecoder{Len: 2}, blob)
	require.NoError(t, err)
	assert.Equal(t, bounds, decBounds)
	assert.Equal(t, len(rows), CountRows[float64, spatial.BytesValue](decoded))
}

func pointsOf(rows []spatial.Row[float64, spatial.BytesValue]) []spatial.Point[float64] {
	out := make([]spatial.Point[float64], len(rows))
	for i, r := range rows {
		out[i] = r.Point
	}
	return out
}

func TestCascadeOrderCenterOutward(t *testing.T) {
	order := cascadeOrder(7)
	assert.Equal(t, []int{3, 1, 5, 0, 2, 4, 6}, order)
}
