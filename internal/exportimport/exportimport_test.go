package exportimport_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/exportimport"
	"github.com/berbicanes/queryark/internal/model"
)

// fakeSql is a minimal driver.Sql stand-in that serves one page of rows and
// then an empty page, so callers don't loop forever.
type fakeSql struct {
	columns      []model.ColumnDef
	rows         [][]model.CellValue
	insertedCols [][]string
	insertedVals [][]string
	getColumns   []model.ColumnInfo
	served       bool
}

func (f *fakeSql) Category() model.DatabaseCategory { return model.CategoryRelational }
func (f *fakeSql) ExecuteRaw(ctx context.Context, query string) (*model.QueryResponse, error) {
	return nil, nil
}
func (f *fakeSql) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) { return nil, nil }
func (f *fakeSql) GetItems(ctx context.Context, container string) ([]model.ItemInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	return nil, nil
}
func (f *fakeSql) GetItemCount(ctx context.Context, container, item string) (int64, error) {
	return 0, nil
}
func (f *fakeSql) Close(ctx context.Context) error { return nil }

func (f *fakeSql) GetSchemas(ctx context.Context) ([]model.SchemaInfo, error) { return nil, nil }
func (f *fakeSql) GetTables(ctx context.Context, schema string) ([]model.TableInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetColumns(ctx context.Context, schema, table string) ([]model.ColumnInfo, error) {
	return f.getColumns, nil
}
func (f *fakeSql) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	return nil, nil
}
func (f *fakeSql) GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error) {
	return nil, nil
}

func (f *fakeSql) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	if f.served || offset > 0 {
		return &model.QueryResponse{Columns: f.columns}, nil
	}
	f.served = true
	return &model.QueryResponse{Columns: f.columns, Rows: f.rows, RowCount: len(f.rows)}, nil
}
func (f *fakeSql) GetRowCount(ctx context.Context, schema, table string) (int64, error) {
	return int64(len(f.rows)), nil
}
func (f *fakeSql) UpdateCell(ctx context.Context, schema, table, column, value string, pkColumns, pkValues []string) error {
	return nil
}
func (f *fakeSql) InsertRow(ctx context.Context, schema, table string, columns, values []string) error {
	f.insertedCols = append(f.insertedCols, append([]string(nil), columns...))
	f.insertedVals = append(f.insertedVals, append([]string(nil), values...))
	return nil
}
func (f *fakeSql) DeleteRows(ctx context.Context, schema, table string, pkColumns []string, pkValuesList [][]string) (int64, error) {
	return 0, nil
}
func (f *fakeSql) GetTableStats(ctx context.Context, schema, table string) (model.TableStats, error) {
	return model.TableStats{}, nil
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
func (f *fakeSql) BeginTransaction(ctx context.Context) error    { return nil }
func (f *fakeSql) CommitTransaction(ctx context.Context) error   { return nil }
func (f *fakeSql) RollbackTransaction(ctx context.Context) error { return nil }
func (f *fakeSql) InTransaction() bool                          { return false }

var _ driver.Sql = (*fakeSql)(nil)

func sampleSql() *fakeSql {
	return &fakeSql{
		columns: []model.ColumnDef{{Name: "id", DataType: "int"}, {Name: "name", DataType: "text"}},
		rows: [][]model.CellValue{
			{model.IntValue(1), model.TextValue("o'b")},
			{model.IntValue(2), model.Null()},
		},
	}
}

func TestExportCSV(t *testing.T) {
	sql := sampleSql()
	path := filepath.Join(t.TempDir(), "out.csv")

	size, err := exportimport.ExportCSV(context.Background(), sql, "public", "users", path)
	require.NoError(t, err)
	assert.Positive(t, size)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "id,name")
	assert.Contains(t, content, "1,o'b")
	assert.Contains(t, content, "2,")
}

func TestExportJSON(t *testing.T) {
	sql := sampleSql()
	path := filepath.Join(t.TempDir(), "out.json")

	_, err := exportimport.ExportJSON(context.Background(), sql, "public", "users", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "[\n"))
	assert.True(t, strings.HasSuffix(content, "\n]\n"))
	assert.Contains(t, content, `"id": 1`)
	assert.Contains(t, content, `"name": "o'b"`)
	assert.Contains(t, content, `"name": null`)
}

func TestExportSQL(t *testing.T) {
	sql := sampleSql()
	path := filepath.Join(t.TempDir(), "out.sql")

	_, err := exportimport.ExportSQL(context.Background(), sql, "public", "users", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `INSERT INTO "public"."users" ("id", "name") VALUES (1, 'o''b');`)
	assert.Contains(t, content, `VALUES (2, NULL);`)
}

func TestGenerateDDL(t *testing.T) {
	columns := []model.ColumnInfo{
		{Name: "id", DataType: "INTEGER", IsNullable: false, IsPrimaryKey: true, OrdinalPosition: 1},
		{Name: "name", DataType: "TEXT", IsNullable: true, OrdinalPosition: 2},
	}
	indexes := []model.IndexInfo{
		{Name: "users_pkey", Columns: []string{"id"}, IsPrimary: true},
		{Name: "users_name_idx", Columns: []string{"name"}, IsUnique: true},
	}

	ddl := exportimport.GenerateDDL("public", "users", columns, indexes, nil)

	assert.Contains(t, ddl, `CREATE TABLE "public"."users"`)
	assert.Contains(t, ddl, `"id" INTEGER NOT NULL`)
	assert.Contains(t, ddl, `PRIMARY KEY ("id")`)
	assert.Contains(t, ddl, `CREATE UNIQUE INDEX "users_name_idx" ON "public"."users" ("name");`)
	assert.NotContains(t, ddl, "users_pkey")
}

func TestImportCSVWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,alice\n2,bob\n"), 0o644))

	sql := sampleSql()
	result, err := exportimport.ImportCSV(context.Background(), sql, "public", "users", path, true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsImported)
	assert.Equal(t, 0, result.RowsFailed)
	assert.Equal(t, []string{"id", "name"}, sql.insertedCols[0])
	assert.Equal(t, []string{"1", "alice"}, sql.insertedVals[0])
}

func TestImportCSVWithoutHeaderUsesLiveSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,alice\n"), 0o644))

	sql := sampleSql()
	sql.getColumns = []model.ColumnInfo{{Name: "id"}, {Name: "name"}}

	result, err := exportimport.ImportCSV(context.Background(), sql, "public", "users", path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsImported)
	assert.Equal(t, []string{"id", "name"}, sql.insertedCols[0])
}

func TestDumpWritesHeaderDDLAndDataWithProgress(t *testing.T) {
	sql := sampleSql()
	path := filepath.Join(t.TempDir(), "dump.sql")

	targets := []exportimport.DumpTarget{
		{
			Schema:  "public",
			Table:   "users",
			Columns: []model.ColumnInfo{{Name: "id", DataType: "INTEGER", IsPrimaryKey: true}, {Name: "name", DataType: "TEXT", IsNullable: true}},
		},
	}

	var progress []exportimport.DumpProgress
	err := exportimport.Dump(context.Background(), sql, targets, path, func(p exportimport.DumpProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "-- QueryArk dump")
	assert.Contains(t, content, `CREATE TABLE "public"."users"`)
	assert.Contains(t, content, "INSERT INTO")

	require.Len(t, progress, 1)
	assert.Equal(t, "users", progress[0].Table)
	assert.Equal(t, 1, progress[0].TablesDone)
	assert.Equal(t, 1, progress[0].TablesTotal)
	assert.Equal(t, int64(2), progress[0].RowsDumped)
}
