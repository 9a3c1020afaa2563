package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/kdforest/pkg/blockstore"
	"github.com/ssargent/kdforest/pkg/meta"
	"github.com/ssargent/kdforest/pkg/spatial"
	"github.com/ssargent/kdforest/pkg/tree"
	"github.com/ssargent/kdforest/pkg/treefile"
)

func point(x, y float64) spatial.Point[float64] {
	return spatial.Point[float64]{spatial.NewScalar(x), spatial.NewScalar(y)}
}

func buildTestTree(t *testing.T, rows []spatial.Row[float64, spatial.BytesValue]) (*treefile.TreeFile[float64, spatial.BytesValue], meta.Root[float64]) {
	t.Helper()
	cfg := tree.Config{Dim: 2, BranchFactor: 3, LeafCapacity: 4}
	root := tree.Build(rows, cfg)
	bounds, ok := spatial.BoundsOf(rowPoints(rows))
	require.True(t, ok)

	tf, err := treefile.New[float64, spatial.BytesValue](blockstore.NewMemory(), 2, spatial.BytesDecoder{Len: 2}, 16)
	require.NoError(t, err)
	tf.Put(1, &treefile.Entry[float64, spatial.BytesValue]{Root: root, Bounds: bounds})
	return tf, meta.Root[float64]{ID: 1, Slot: 0, Bounds: bounds}
}

func rowPoints(rows []spatial.Row[float64, spatial.BytesValue]) []spatial.Point[float64] {
	out := make([]spatial.Point[float64], len(rows))
	for i, r := range rows {
		out[i] = r.Point
	}
	return out
}

// TestQueryNoDuplicateAcrossAdjacentPivots guards against the case where a
// bbox straddles two adjacent pivots: the shared child between them must be
// emitted from exactly one traversal path, not two (spec §8 invariant 4:
// every matching row is emitted exactly once).
func TestQueryNoDuplicateAcrossAdjacentPivots(t *testing.T) {
	var rows []spatial.Row[float64, spatial.BytesValue]
	for i := 0; i < 60; i++ {
		x := float64(i % 12)
		y := float64(i / 12)
		rows = append(rows, spatial.NewInsert[float64, spatial.BytesValue](
			point(x, y), spatial.BytesValue([]byte{byte(i), byte(i >> 8)})))
	}
	tf, root := buildTestTree(t, rows)

	// A bbox wide enough to overlap several pivots on both axes.
	bbox := spatial.Bounds[float64]{Lo: []float64{0, 0}, Hi: []float64{11, 4}}
	eng := Engine[float64, spatial.BytesValue]{Dim: 2, TF: tf, Roots: []meta.Root[float64]{root}}
	hits, err := eng.Query(bbox)
	require.NoError(t, err)

	seen := make(map[Location]bool)
	for _, h := range hits {
		assert.False(t, seen[h.Location], "row at %v emitted more than once", h.Point)
		seen[h.Location] = true
		assert.True(t, h.Point.Overlaps(bbox), "emitted row does not overlap bbox")
	}

	want := 0
	for _, r := range rows {
		if r.Point.Overlaps(bbox) {
			want++
		}
	}
	assert.Equal(t, want, len(hits))
}

func TestQueryPendingDeleteIsFiltered(t *testing.T) {
	rows := []spatial.Row[float64, spatial.BytesValue]{
		spatial.NewInsert[float64, spatial.BytesValue](point(1, 1), spatial.BytesValue([]byte{1, 2})),
		spatial.NewInsert[float64, spatial.BytesValue](point(2, 2), spatial.BytesValue([]byte{3, 4})),
	}
	tf, root := buildTestTree(t, rows)

	eng := Engine[float64, spatial.BytesValue]{
		Dim:     2,
		TF:      tf,
		Roots:   []meta.Root[float64]{root},
		Pending: map[string]bool{rows[0].ID: true},
	}
	bbox := spatial.Bounds[float64]{Lo: []float64{0, 0}, Hi: []float64{10, 10}}
	hits, err := eng.Query(bbox)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, rows[1].ID, hits[0].Value.ID())
}

func TestQueryTraceRecordsEveryRootEntered(t *testing.T) {
	rows := []spatial.Row[float64, spatial.BytesValue]{
		spatial.NewInsert[float64, spatial.BytesValue](point(1, 1), spatial.BytesValue([]byte{1, 2})),
	}
	tf, root := buildTestTree(t, rows)

	var traced []uint64
	eng := Engine[float64, spatial.BytesValue]{
		Dim:   2,
		TF:    tf,
		Roots: []meta.Root[float64]{root},
		Trace: func(id uint64, _ spatial.Bounds[float64]) { traced = append(traced, id) },
	}
	bbox := spatial.Bounds[float64]{Lo: []float64{0, 0}, Hi: []float64{10, 10}}
	_, err := eng.Query(bbox)
	require.NoError(t, err)
	assert.Equal(t, []uint64{root.ID}, traced)
}
