package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystemService(t *testing.T) *SystemService {
	t.Helper()
	svc, err := NewSystemService(SystemConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, svc.Open())
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestSystemServiceInitializeSystem(t *testing.T) {
	svc, err := NewSystemService(SystemConfig{DataDir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, svc.InitializeSystem(svc.config.DataDir, "system-key", "admin-secret"))

	require.NoError(t, svc.Open())
	defer svc.Close()

	ok, err := svc.ValidateAPIKey("admin-secret")
	require.NoError(t, err)
	assert.True(t, ok)

	key, err := svc.GetAPIKey("system-root")
	require.NoError(t, err)
	assert.Equal(t, "admin-secret", key.Key)
	assert.True(t, key.IsActive)
}

func TestSystemServiceStoreAndListAPIKeys(t *testing.T) {
	svc := newTestSystemService(t)

	require.NoError(t, svc.StoreAPIKey(APIKey{Key: "client-key-1", Description: "first"}))
	require.NoError(t, svc.StoreAPIKey(APIKey{Key: "client-key-2", Description: "second"}))

	ids, err := svc.ListAPIKeys()
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	ok, err := svc.ValidateAPIKey("client-key-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ValidateAPIKey("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSystemServiceDeleteAPIKeyRevokes(t *testing.T) {
	svc := newTestSystemService(t)

	require.NoError(t, svc.StoreAPIKey(APIKey{ID: "k1", Key: "secret"}))
	ok, err := svc.ValidateAPIKey("secret")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.DeleteAPIKey("k1"))

	ok, err = svc.ValidateAPIKey("secret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSystemServiceNotOpenErrors(t *testing.T) {
	svc, err := NewSystemService(SystemConfig{DataDir: t.TempDir()})
	require.NoError(t, err)

	_, err = svc.ListAPIKeys()
	assert.Error(t, err)

	err = svc.StoreAPIKey(APIKey{Key: "x"})
	assert.Error(t, err)
}
