package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/kdforest/pkg/blockstore"
	"github.com/ssargent/kdforest/pkg/spatial"
)

func TestMetaEncodeDecodeRoundTrip(t *testing.T) {
	m := Meta[float64]{
		NextTree: 42,
		Roots: []Root[float64]{
			{ID: 1, Slot: 0, Bounds: spatial.Bounds[float64]{Lo: []float64{0, 0}, Hi: []float64{1, 1}}},
			{ID: 3, Slot: 2, Bounds: spatial.Bounds[float64]{Lo: []float64{-5, -5}, Hi: []float64{5, 5}}},
		},
	}
	blob := m.Encode()

	decoded, err := Decode[float64](2, blob)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestMetaSaveLoadThroughStore(t *testing.T) {
	mem := blockstore.NewMemory()
	store, err := mem.Open(StoreName)
	require.NoError(t, err)

	m := Meta[float64]{
		NextTree: 7,
		Roots: []Root[float64]{
			{ID: 5, Slot: 1, Bounds: spatial.Bounds[float64]{Lo: []float64{0}, Hi: []float64{10}}},
		},
	}
	require.NoError(t, Save(store, m))

	loaded, err := Load[float64](1, store)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestMetaLoadEmptyStoreYieldsZeroValue(t *testing.T) {
	mem := blockstore.NewMemory()
	store, err := mem.Open(StoreName)
	require.NoError(t, err)

	loaded, err := Load[float64](2, store)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), loaded.NextTree)
	assert.Empty(t, loaded.Roots)
}
