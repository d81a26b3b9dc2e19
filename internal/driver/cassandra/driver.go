// Package cassandra implements the Sql driver for Cassandra, backed by
// gocql. Cassandra has no database/sql binding (gocql exposes its own
// Session/Query types), so this driver talks to gocql directly rather than
// going through internal/driver/sqlcommon. ScyllaDB (internal/driver/
// scylladb) wraps this driver since it speaks the same CQL protocol and
// system_schema catalog.
package cassandra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/model"
	"github.com/berbicanes/queryark/internal/sqltext"
)

type Driver struct {
	session *gocql.Session
}

var _ driver.Sql = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	cluster := gocql.NewCluster(cfg.HostOrDefault())
	cluster.Port = cfg.PortOrDefault()
	if cfg.UsernameOrDefault() != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.UsernameOrDefault(),
			Password: cfg.PasswordOrDefault(),
		}
	}
	cluster.Timeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}
	return &Driver{session: session}, nil
}

func (d *Driver) Category() model.DatabaseCategory { return model.CategoryWideColumn }

func (d *Driver) Close(ctx context.Context) error {
	d.session.Close()
	return nil
}

func (d *Driver) ExecuteRaw(ctx context.Context, cql string) (*model.QueryResponse, error) {
	start := time.Now()
	iter := d.session.Query(strings.TrimSpace(cql)).WithContext(ctx).Iter()

	cols := iter.Columns()
	columns := make([]model.ColumnDef, len(cols))
	for i, c := range cols {
		columns[i] = model.ColumnDef{Name: c.Name, DataType: c.TypeInfo.Type().String()}
	}

	var rows [][]model.CellValue
	rowMap := make(map[string]interface{})
	for iter.MapScan(rowMap) {
		cells := make([]model.CellValue, len(cols))
		for i, c := range cols {
			cells[i] = gocqlValueToCell(rowMap[c.Name])
		}
		rows = append(rows, cells)
		rowMap = make(map[string]interface{})
	}

	if err := iter.Close(); err != nil {
		return nil, dberrors.Database("cassandra query error", err)
	}

	return &model.QueryResponse{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func gocqlValueToCell(v interface{}) model.CellValue {
	switch val := v.(type) {
	case nil:
		return model.Null()
	case *interface{}:
		if val == nil {
			return model.Null()
		}
		return gocqlValueToCell(*val)
	case bool:
		return model.BoolValue(val)
	case int:
		return model.IntValue(int64(val))
	case int64:
		return model.IntValue(val)
	case float32:
		return model.FloatValue(float64(val))
	case float64:
		return model.FloatValue(val)
	case string:
		return model.TextValue(val)
	case []byte:
		return model.BinaryValue(val)
	case gocql.UUID:
		return model.TextValue(val.String())
	case time.Time:
		return model.TimestampValue(val.UTC().Format(time.RFC3339Nano))
	default:
		return model.TextValue(fmt.Sprintf("%v", val))
	}
}

func (d *Driver) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	schemas, err := d.GetSchemas(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ContainerInfo, len(schemas))
	for i, s := range schemas {
		out[i] = model.ContainerInfoFromSchema(s)
	}
	return out, nil
}

func (d *Driver) GetItems(ctx context.Context, container string) ([]model.ItemInfo, error) {
	tables, err := d.GetTables(ctx, container)
	if err != nil {
		return nil, err
	}
	out := make([]model.ItemInfo, len(tables))
	for i, t := range tables {
		out[i] = model.ItemInfoFromTable(t)
	}
	return out, nil
}

func (d *Driver) GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error) {
	cols, err := d.GetColumns(ctx, container, item)
	if err != nil {
		return nil, err
	}
	out := make([]model.FieldInfo, len(cols))
	for i, c := range cols {
		out[i] = model.FieldInfoFromColumn(c)
	}
	return out, nil
}

func (d *Driver) GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	return d.GetTableData(ctx, container, item, limit, offset)
}

func (d *Driver) GetItemCount(ctx context.Context, container, item string) (int64, error) {
	return d.GetRowCount(ctx, container, item)
}

func (d *Driver) GetSchemas(ctx context.Context) ([]model.SchemaInfo, error) {
	resp, err := d.ExecuteRaw(ctx, "SELECT keyspace_name FROM system_schema.keyspaces")
	if err != nil {
		return nil, err
	}
	var out []model.SchemaInfo
	for _, row := range resp.Rows {
		name := row[0].Text
		if !strings.HasPrefix(name, "system") {
			out = append(out, model.SchemaInfo{Name: name})
		}
	}
	return out, nil
}

func (d *Driver) GetTables(ctx context.Context, schema string) ([]model.TableInfo, error) {
	resp, err := d.ExecuteRaw(ctx, fmt.Sprintf(
		"SELECT table_name FROM system_schema.tables WHERE keyspace_name = '%s'", sqltext.EscapeLiteral(schema)))
	if err != nil {
		return nil, err
	}
	out := make([]model.TableInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		out[i] = model.TableInfo{Name: row[0].Text, Schema: schema, TableType: "TABLE"}
	}
	return out, nil
}

func (d *Driver) GetColumns(ctx context.Context, schema, table string) ([]model.ColumnInfo, error) {
	resp, err := d.ExecuteRaw(ctx, fmt.Sprintf(
		"SELECT column_name, type, kind, position FROM system_schema.columns WHERE keyspace_name = '%s' AND table_name = '%s'",
		sqltext.EscapeLiteral(schema), sqltext.EscapeLiteral(table)))
	if err != nil {
		return nil, err
	}
	out := make([]model.ColumnInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		kind := row[2].Text
		out[i] = model.ColumnInfo{
			Name:            row[0].Text,
			DataType:        row[1].Text,
			IsNullable:      kind != "partition_key" && kind != "clustering",
			IsPrimaryKey:    kind == "partition_key" || kind == "clustering",
			OrdinalPosition: int(row[3].Int),
		}
	}
	return out, nil
}

func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	return nil, nil
}

func (d *Driver) GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error) {
	return nil, nil
}

// GetTableData ignores offset — Cassandra has no native OFFSET, matching
// the original driver's behavior (§9 open question: silently dropped).
func (d *Driver) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d",
		sqltext.QuoteIdentifier(model.Cassandra, schema), sqltext.QuoteIdentifier(model.Cassandra, table), limit)
	return d.ExecuteRaw(ctx, stmt)
}

func (d *Driver) GetRowCount(ctx context.Context, schema, table string) (int64, error) {
	resp, err := d.ExecuteRaw(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", schema, table))
	if err != nil {
		return 0, err
	}
	if len(resp.Rows) == 0 {
		return 0, nil
	}
	return resp.Rows[0][0].Int, nil
}

func (d *Driver) UpdateCell(ctx context.Context, schema, table, column, value string, pkColumns, pkValues []string) error {
	if len(pkColumns) != len(pkValues) || len(pkColumns) == 0 {
		return dberrors.InvalidConfig("invalid primary key specification")
	}
	var where []string
	for _, col := range pkColumns {
		where = append(where, fmt.Sprintf("%s = ?", col))
	}
	stmt := fmt.Sprintf("UPDATE %s.%s SET %s = ? WHERE %s", schema, table, column, strings.Join(where, " AND "))
	args := append([]interface{}{value}, toArgs(pkValues)...)
	if err := d.session.Query(stmt, args...).WithContext(ctx).Exec(); err != nil {
		return dberrors.Database("cassandra update error", err)
	}
	return nil
}

func (d *Driver) InsertRow(ctx context.Context, schema, table string, columns, values []string) error {
	if len(columns) != len(values) {
		return dberrors.InvalidConfig("columns and values must have the same length")
	}
	placeholders := make([]string, len(values))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		schema, table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if err := d.session.Query(stmt, toArgs(values)...).WithContext(ctx).Exec(); err != nil {
		return dberrors.Database("cassandra insert error", err)
	}
	return nil
}

func (d *Driver) DeleteRows(ctx context.Context, schema, table string, pkColumns []string, pkValuesList [][]string) (int64, error) {
	if len(pkColumns) == 0 {
		return 0, dberrors.InvalidConfig("at least one primary key column is required")
	}
	var total int64
	for _, pkValues := range pkValuesList {
		if len(pkColumns) != len(pkValues) {
			return total, dberrors.InvalidConfig("primary key columns and values must have the same length")
		}
		var where []string
		for _, col := range pkColumns {
			where = append(where, fmt.Sprintf("%s = ?", col))
		}
		stmt := fmt.Sprintf("DELETE FROM %s.%s WHERE %s", schema, table, strings.Join(where, " AND "))
		if err := d.session.Query(stmt, toArgs(pkValues)...).WithContext(ctx).Exec(); err != nil {
			return total, dberrors.Database("cassandra delete error", err)
		}
		total++
	}
	return total, nil
}

// Cassandra's lightweight transactions are per-statement CAS, not the
// multi-statement ACID transactions this interface models, so the original
// driver never implemented these; this port keeps that behavior explicit.
func (d *Driver) BeginTransaction(ctx context.Context) error {
	return dberrors.UnsupportedOperation("Cassandra does not support multi-statement transactions")
}

func (d *Driver) CommitTransaction(ctx context.Context) error {
	return dberrors.UnsupportedOperation("Cassandra does not support multi-statement transactions")
}

func (d *Driver) RollbackTransaction(ctx context.Context) error {
	return dberrors.UnsupportedOperation("Cassandra does not support multi-statement transactions")
}

func (d *Driver) InTransaction() bool {
	return false
}

// GetTableStats reports a COUNT(*) row count and leaves size unset. CQL has
// no stored routines, sequences, or named enum types, so the other three
// catalog calls report UnsupportedOperation.
func (d *Driver) GetTableStats(ctx context.Context, schema, table string) (model.TableStats, error) {
	count, err := d.GetRowCount(ctx, schema, table)
	return model.TableStats{RowCount: count}, err
}

func (d *Driver) GetRoutines(ctx context.Context, schema string) ([]model.RoutineInfo, error) {
	return nil, dberrors.UnsupportedOperation("Cassandra has no stored routines")
}

func (d *Driver) GetSequences(ctx context.Context, schema string) ([]model.SequenceInfo, error) {
	return nil, dberrors.UnsupportedOperation("Cassandra has no sequences")
}

func (d *Driver) GetEnums(ctx context.Context, schema string) ([]model.EnumInfo, error) {
	return nil, dberrors.UnsupportedOperation("Cassandra has no named enum types")
}

func toArgs(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
