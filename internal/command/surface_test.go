package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berbicanes/queryark/internal/brokerage"
	"github.com/berbicanes/queryark/internal/command"
	"github.com/berbicanes/queryark/internal/configstore"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/exportimport"
	"github.com/berbicanes/queryark/internal/model"
	"github.com/berbicanes/queryark/internal/secrets"
	"github.com/berbicanes/queryark/internal/secrets/memorybackend"
	"github.com/berbicanes/queryark/internal/tunnel"
)

// fakeSql implements driver.Sql with just enough behavior to exercise the
// surface layer above it; it mirrors the fakeSql used in the exportimport
// package tests.
type fakeSql struct {
	closed      bool
	containers  []model.ContainerInfo
	columns     []model.ColumnInfo
	insertCols  []string
	insertVals  []string
	rowCount    int64
	beginCalled bool
}

var _ driver.Sql = (*fakeSql)(nil)

func (f *fakeSql) Category() model.DatabaseCategory { return model.CategoryRelational }

func (f *fakeSql) ExecuteRaw(ctx context.Context, query string) (*model.QueryResponse, error) {
	return &model.QueryResponse{Columns: []model.ColumnDef{{Name: "n", DataType: "int"}}}, nil
}

func (f *fakeSql) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	return f.containers, nil
}
func (f *fakeSql) GetItems(ctx context.Context, container string) ([]model.ItemInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	return &model.QueryResponse{}, nil
}
func (f *fakeSql) GetItemCount(ctx context.Context, container, item string) (int64, error) {
	return 0, nil
}
func (f *fakeSql) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func (f *fakeSql) GetSchemas(ctx context.Context) ([]model.SchemaInfo, error) {
	return []model.SchemaInfo{{Name: "public"}}, nil
}
func (f *fakeSql) GetTables(ctx context.Context, schema string) ([]model.TableInfo, error) {
	return []model.TableInfo{{Name: "users"}}, nil
}
func (f *fakeSql) GetColumns(ctx context.Context, schema, table string) ([]model.ColumnInfo, error) {
	return f.columns, nil
}
func (f *fakeSql) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	return &model.QueryResponse{}, nil
}
func (f *fakeSql) GetRowCount(ctx context.Context, schema, table string) (int64, error) {
	return f.rowCount, nil
}
func (f *fakeSql) GetTableStats(ctx context.Context, schema, table string) (model.TableStats, error) {
	return model.TableStats{RowCount: f.rowCount}, nil
}
func (f *fakeSql) GetRoutines(ctx context.Context, schema string) ([]model.RoutineInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetSequences(ctx context.Context, schema string) ([]model.SequenceInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetEnums(ctx context.Context, schema string) ([]model.EnumInfo, error) {
	return nil, nil
}
func (f *fakeSql) UpdateCell(ctx context.Context, schema, table, column, value string, pkColumns, pkValues []string) error {
	return nil
}
func (f *fakeSql) InsertRow(ctx context.Context, schema, table string, columns, values []string) error {
	f.insertCols = columns
	f.insertVals = values
	return nil
}
func (f *fakeSql) DeleteRows(ctx context.Context, schema, table string, pkColumns []string, pkValuesList [][]string) (int64, error) {
	return int64(len(pkValuesList)), nil
}
func (f *fakeSql) BeginTransaction(ctx context.Context) error {
	f.beginCalled = true
	return nil
}
func (f *fakeSql) CommitTransaction(ctx context.Context) error   { return nil }
func (f *fakeSql) RollbackTransaction(ctx context.Context) error { return nil }
func (f *fakeSql) InTransaction() bool                          { return false }

func newTestSurface(t *testing.T) (*command.Surface, *fakeSql, string) {
	t.Helper()
	registry := driver.NewRegistry()
	cancels := driver.NewCancelRegistry()
	broker := brokerage.New(cancels, nil)
	resolver := secrets.NewResolver(memorybackend.New(), nil)
	tunnels := tunnel.NewManager(nil)
	store := configstore.New(t.TempDir())

	surface := command.New(registry, cancels, broker, resolver, tunnels, store, nil)

	fake := &fakeSql{
		containers: []model.ContainerInfo{{Name: "public"}},
		columns:    []model.ColumnInfo{{Name: "id"}},
	}
	registry.Add("conn-1", driver.NewSqlHandle(fake))
	return surface, fake, "conn-1"
}

func TestConnectDBRejectsUnsupportedDialect(t *testing.T) {
	surface, _, _ := newTestSurface(t)

	_, err := surface.ConnectDB(context.Background(), model.ConnectionConfig{DBType: model.DatabaseType("not-a-real-engine")})
	require.Error(t, err)
}

func TestTestConnectionFalseOnUnsupportedDialect(t *testing.T) {
	surface, _, _ := newTestSurface(t)

	ok := surface.TestConnection(context.Background(), model.ConnectionConfig{DBType: model.DatabaseType("not-a-real-engine")})
	assert.False(t, ok)
}

func TestPingConnectionTrueForLiveHandle(t *testing.T) {
	surface, _, id := newTestSurface(t)
	assert.True(t, surface.PingConnection(context.Background(), id))
}

func TestPingConnectionFalseForUnknownID(t *testing.T) {
	surface, _, _ := newTestSurface(t)
	assert.False(t, surface.PingConnection(context.Background(), "missing"))
}

func TestDisconnectDBClosesAndRemoves(t *testing.T) {
	surface, fake, id := newTestSurface(t)

	require.NoError(t, surface.DisconnectDB(context.Background(), id))
	assert.True(t, fake.closed)

	_, err := surface.GetSchemas(context.Background(), id)
	require.Error(t, err)
}

func TestGetDatabaseCategory(t *testing.T) {
	surface, _, id := newTestSurface(t)

	category, err := surface.GetDatabaseCategory(id)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryRelational, category)
}

func TestGetContainersAndSchemas(t *testing.T) {
	surface, _, id := newTestSurface(t)

	containers, err := surface.GetContainers(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "public", containers[0].Name)

	schemas, err := surface.GetSchemas(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "public", schemas[0].Name)
}

func TestInsertRowRejectsMismatchedLengths(t *testing.T) {
	surface, _, id := newTestSurface(t)

	err := surface.InsertRow(context.Background(), id, "public", "users", []string{"id", "name"}, []string{"1"})
	require.Error(t, err)
}

func TestInsertRowForwardsToDriver(t *testing.T) {
	surface, fake, id := newTestSurface(t)

	err := surface.InsertRow(context.Background(), id, "public", "users", []string{"id"}, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, fake.insertCols)
	assert.Equal(t, []string{"1"}, fake.insertVals)
}

func TestDeleteRowsCountsRequestedRows(t *testing.T) {
	surface, _, id := newTestSurface(t)

	count, err := surface.DeleteRows(context.Background(), id, "public", "users", []string{"id"}, [][]string{{"1"}, {"2"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTransactionForwardingReachesDriver(t *testing.T) {
	surface, fake, id := newTestSurface(t)

	require.NoError(t, surface.BeginTransaction(context.Background(), id))
	assert.True(t, fake.beginCalled)
	require.NoError(t, surface.CommitTransaction(context.Background(), id))
}

func TestExecuteQueryUnknownConnection(t *testing.T) {
	surface, _, _ := newTestSurface(t)

	_, err := surface.ExecuteQuery(context.Background(), "missing", "SELECT 1", brokerage.ExecuteOptions{})
	require.Error(t, err)
}

func TestExecuteQueryForwardsThroughBrokerage(t *testing.T) {
	surface, _, id := newTestSurface(t)

	resp, err := surface.ExecuteQuery(context.Background(), id, "SELECT 1", brokerage.ExecuteOptions{})
	require.NoError(t, err)
	require.Len(t, resp.Columns, 1)
	assert.Equal(t, "n", resp.Columns[0].Name)
}

func TestKeychainRoundTrip(t *testing.T) {
	surface, _, _ := newTestSurface(t)

	require.NoError(t, surface.StoreKeychainPassword("conn-1", "hunter2"))
	password, ok := surface.GetKeychainPassword("conn-1")
	require.True(t, ok)
	assert.Equal(t, "hunter2", password)

	require.NoError(t, surface.DeleteKeychainPassword("conn-1"))
	_, ok = surface.GetKeychainPassword("conn-1")
	assert.False(t, ok)
}

func TestCheckKeychainAvailable(t *testing.T) {
	surface, _, _ := newTestSurface(t)
	assert.True(t, surface.CheckKeychainAvailable())
}

func TestBackupListRestoreDeleteThroughSurface(t *testing.T) {
	surface, _, _ := newTestSurface(t)

	name, err := surface.BackupConfigs()
	require.NoError(t, err)

	backups, err := surface.ListBackups()
	require.NoError(t, err)
	assert.Contains(t, backups, name)

	require.NoError(t, surface.RestoreBackup(name))
	require.NoError(t, surface.DeleteBackup(name))
}

func TestCancelQueryUnknownIsNoop(t *testing.T) {
	surface, _, _ := newTestSurface(t)
	assert.False(t, surface.CancelQuery("no-such-query"))
}

func TestCatalogExtrasForwardToDriver(t *testing.T) {
	surface, fake, id := newTestSurface(t)
	fake.rowCount = 42

	stats, err := surface.GetTableStats(context.Background(), id, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.RowCount)

	_, err = surface.GetRoutines(context.Background(), id, "public")
	require.NoError(t, err)
	_, err = surface.GetSequences(context.Background(), id, "public")
	require.NoError(t, err)
	_, err = surface.GetEnums(context.Background(), id, "public")
	require.NoError(t, err)
}

func TestExportDDLThroughSurface(t *testing.T) {
	surface, _, id := newTestSurface(t)

	ddl, err := surface.ExportDDL(context.Background(), id, "public", "users")
	require.NoError(t, err)
	assert.Contains(t, ddl, `CREATE TABLE "public"."users"`)
	assert.Contains(t, ddl, `"id"`)
}

func TestExportToCSVThroughSurface(t *testing.T) {
	surface, _, id := newTestSurface(t)
	path := t.TempDir() + "/out.csv"

	size, err := surface.ExportToCSV(context.Background(), id, "public", "users", path)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}

func TestDumpDatabaseThroughSurface(t *testing.T) {
	surface, _, id := newTestSurface(t)
	path := t.TempDir() + "/dump.sql"

	var progress []exportimport.DumpProgress
	err := surface.DumpDatabase(context.Background(), id, []string{"public"}, path, func(p exportimport.DumpProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, "users", progress[0].Table)
}
