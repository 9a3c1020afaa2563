package blockstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryReadWrite(t *testing.T) {
	dir, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	s, err := dir.Open("tree-0")
	require.NoError(t, err)
	defer s.Close()

	empty, err := s.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, s.Write(10, []byte("hello")))
	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)

	got, err := s.Read(10, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, s.SyncAll())
	require.NoError(t, s.Truncate(5))
	n, err = s.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestDirectoryRemove(t *testing.T) {
	dir, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	s, err := dir.Open("tree-1")
	require.NoError(t, err)
	require.NoError(t, s.Write(0, []byte("x")))
	require.NoError(t, s.Close())

	require.NoError(t, dir.Remove("tree-1"))
	require.NoError(t, dir.Remove("does-not-exist"))
}

func TestMemoryReadWriteTruncate(t *testing.T) {
	mem := NewMemory()
	s, err := mem.Open("a")
	require.NoError(t, err)

	require.NoError(t, s.Write(3, []byte("abc")))
	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	got, err := s.Read(0, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, got)

	require.NoError(t, s.Truncate(2))
	n, err = s.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, mem.Remove("a"))
	s2, err := mem.Open("a")
	require.NoError(t, err)
	empty, err := s2.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
}
