package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/kdforest/pkg/spatial"
)

func TestSplitCapsSerializedSize(t *testing.T) {
	var rows []spatial.Row[float64, spatial.BytesValue]
	for i := 0; i < 2000; i++ {
		x := float64(i % 100)
		y := float64(i / 100)
		rows = append(rows, spatial.NewInsert[float64, spatial.BytesValue](
			samplePoint(x, y), spatial.BytesValue([]byte{byte(i), byte(i >> 8), byte(i >> 16)})))
	}

	cfg := Config{Dim: 2, BranchFactor: 4, LeafCapacity: 16}
	root := Build(rows, cfg)
	bounds, ok := spatial.BoundsOf(pointsOf(rows))
	require.True(t, ok)

	var nextID uint64 = 1
	alloc := func() uint64 {
		id := nextID
		nextID++
		return id
	}

	const budget = 4000
	result := Split[float64, spatial.BytesValue](root, bounds, budget, alloc)

	require.NotEmpty(t, result.Extracted)
	assert.LessOrEqual(t, len(EncodeTree[float64, spatial.BytesValue](result.Root, bounds)), budget)

	for _, e := range result.Extracted {
		assert.LessOrEqual(t, len(EncodeTree[float64, spatial.BytesValue](e.Root, e.Bounds)), budget)
	}

	// Every row is still reachable: the root plus every extracted subtree
	// together account for all 2000 rows (spec §8 invariant 1, applied
	// across a size-class split).
	total := CountRows[float64, spatial.BytesValue](result.Root)
	for _, e := range result.Extracted {
		total += CountRows[float64, spatial.BytesValue](e.Root)
	}
	assert.Equal(t, len(rows), total)
}

func TestSplitDisabledWhenBudgetZero(t *testing.T) {
	root := &Leaf[float64, spatial.BytesValue]{}
	result := Split[float64, spatial.BytesValue](root, spatial.Bounds[float64]{}, 0, func() uint64 { return 1 })
	assert.Same(t, root, result.Root)
	assert.Empty(t, result.Extracted)
}
