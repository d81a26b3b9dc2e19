package configstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berbicanes/queryark/internal/configstore"
	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/model"
)

func TestLoadConnectionsEmptyOnFirstRun(t *testing.T) {
	store := configstore.New(t.TempDir())

	connections, err := store.LoadConnections()
	require.NoError(t, err)
	assert.Empty(t, connections)
}

func TestSaveAndLoadConnectionsRoundTrips(t *testing.T) {
	store := configstore.New(t.TempDir())

	connections := []model.ConnectionConfig{{ID: "c1", Name: "prod", DBType: model.PostgreSQL, Host: "db.internal"}}
	require.NoError(t, store.SaveConnections(connections))

	loaded, err := store.LoadConnections()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c1", loaded[0].ID)
	assert.Equal(t, model.PostgreSQL, loaded[0].DBType)
}

func TestSaveAndLoadSettingsRoundTrips(t *testing.T) {
	store := configstore.New(t.TempDir())

	require.NoError(t, store.SaveSettings(configstore.Settings{"theme": "dark"}))

	loaded, err := store.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "dark", loaded["theme"])
}

func TestBackupListRestoreDeleteRoundTrip(t *testing.T) {
	store := configstore.New(t.TempDir())

	connections := []model.ConnectionConfig{{ID: "c1", Name: "prod", DBType: model.MySQL}}
	require.NoError(t, store.SaveConnections(connections))
	require.NoError(t, store.SaveSettings(configstore.Settings{"theme": "dark"}))

	name, err := store.BackupConfigs()
	require.NoError(t, err)
	assert.Contains(t, name, "backup_")

	backups, err := store.ListBackups()
	require.NoError(t, err)
	assert.Contains(t, backups, name)

	require.NoError(t, store.SaveConnections(nil))
	require.NoError(t, store.RestoreBackup(name))

	restored, err := store.LoadConnections()
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, "c1", restored[0].ID)

	require.NoError(t, store.DeleteBackup(name))
	backups, err = store.ListBackups()
	require.NoError(t, err)
	assert.NotContains(t, backups, name)
}

func TestDeleteBackupMissingReturnsInvalidConfig(t *testing.T) {
	store := configstore.New(t.TempDir())
	err := store.DeleteBackup("backup_does_not_exist.json")
	require.Error(t, err)
	assert.Equal(t, dberrors.CodeInvalidConfig, dberrors.CodeOf(err))
}
