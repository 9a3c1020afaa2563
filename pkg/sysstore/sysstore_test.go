package sysstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetAPIKey(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.CreateAPIKey("secret-123", "first client")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	got, err := s.GetAPIKey(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret-123", got.Key)
	assert.Equal(t, "first client", got.Label)
	assert.False(t, got.Revoked)
}

func TestCreateAPIKeyWithIDIsStable(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateAPIKeyWithID("system-root", "admin-secret", "bootstrap")
	require.NoError(t, err)

	got, err := s.GetAPIKey("system-root")
	require.NoError(t, err)
	assert.Equal(t, "system-root", got.ID)
	assert.Equal(t, "admin-secret", got.Key)
}

func TestFindByKeySkipsRevoked(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.CreateAPIKey("findme", "")
	require.NoError(t, err)

	found, ok, err := s.FindByKey("findme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.ID, found.ID)

	require.NoError(t, s.RevokeAPIKey(rec.ID))

	_, ok, err = s.FindByKey("findme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAPIKeys(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateAPIKey("a", "")
	require.NoError(t, err)
	_, err = s.CreateAPIKey("b", "")
	require.NoError(t, err)

	keys, err := s.ListAPIKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestSystemConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.LoadSystemConfig()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveSystemConfig(SystemConfig{SystemKey: "k1", EnableEncrypted: true}))

	cfg, ok, err := s.LoadSystemConfig()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "k1", cfg.SystemKey)
	assert.True(t, cfg.EnableEncrypted)
}
