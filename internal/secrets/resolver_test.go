package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berbicanes/queryark/internal/secrets"
	"github.com/berbicanes/queryark/internal/secrets/memorybackend"
)

func TestResolverStoreAndGetPassword(t *testing.T) {
	r := secrets.NewResolver(memorybackend.New(), nil)

	require.NoError(t, r.StorePassword("conn-1", "hunter2"))

	value, ok := r.GetPassword("conn-1")
	require.True(t, ok)
	assert.Equal(t, "hunter2", value)
}

func TestResolverGetMissReturnsFalse(t *testing.T) {
	r := secrets.NewResolver(memorybackend.New(), nil)

	_, ok := r.Get("conn-1", secrets.KeySSHPassword)
	assert.False(t, ok)
}

func TestResolverNonPasswordKeyIsNamespaced(t *testing.T) {
	backend := memorybackend.New()
	r := secrets.NewResolver(backend, nil)

	require.NoError(t, r.Store("conn-1", secrets.KeySSHPassphrase, "s3cr3t"))

	_, err := backend.Get("com.queryark.database-ide", "conn-1")
	assert.Error(t, err, "ssh_passphrase must not collide with the bare-id password entry")

	value, err := backend.Get("com.queryark.database-ide", "conn-1:ssh_passphrase")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", value)
}

func TestResolverMigratesFromLegacyServiceName(t *testing.T) {
	backend := memorybackend.New()
	require.NoError(t, backend.Set("com.dataforge.database-ide", "conn-1", "old-password"))

	r := secrets.NewResolver(backend, nil)

	value, ok := r.GetPassword("conn-1")
	require.True(t, ok)
	assert.Equal(t, "old-password", value)

	migrated, err := backend.Get("com.queryark.database-ide", "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "old-password", migrated)

	_, err = backend.Get("com.dataforge.database-ide", "conn-1")
	assert.ErrorIs(t, err, secrets.ErrNotFound, "legacy entry must be deleted after migration")
}

func TestResolverDeleteAll(t *testing.T) {
	backend := memorybackend.New()
	r := secrets.NewResolver(backend, nil)

	require.NoError(t, r.StorePassword("conn-1", "p"))
	require.NoError(t, r.Store("conn-1", secrets.KeySSHPassword, "sp"))

	require.NoError(t, r.DeleteAll("conn-1"))

	_, ok := r.GetPassword("conn-1")
	assert.False(t, ok)
	_, ok = r.Get("conn-1", secrets.KeySSHPassword)
	assert.False(t, ok)
}

func TestResolverAvailableIsTrueOnEmptyBackend(t *testing.T) {
	r := secrets.NewResolver(memorybackend.New(), nil)
	assert.True(t, r.Available())
}
