// Package postgres implements the Sql driver for PostgreSQL, backed by
// lib/pq through database/sql. CockroachDB and Redshift (internal/driver/
// cockroachdb, internal/driver/redshift) wrap this driver rather than
// duplicate its metadata queries, since both speak Postgres's wire
// protocol and catalog.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/driver/sqlcommon"
	"github.com/berbicanes/queryark/internal/model"
	"github.com/berbicanes/queryark/internal/sqltext"
)

type Driver struct {
	*sqlcommon.Base
}

var _ driver.Sql = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	db, err := sql.Open("postgres", cfg.URL())
	if err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}
	pool := cfg.Pool
	db.SetMaxOpenConns(pool.MaxConnections)
	db.SetConnMaxIdleTime(time.Duration(pool.IdleTimeoutSecs) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}

	return &Driver{Base: &sqlcommon.Base{
		DB:     db,
		DBType: model.PostgreSQL,
		Quote:  func(name string) string { return sqltext.QuoteIdentifier(model.PostgreSQL, name) },
		Bind:   sqlcommon.DollarPlaceholder,
	}}, nil
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
	resp, err := d.ExecuteRaw(ctx, `SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	out := make([]model.SchemaInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		out[i] = model.SchemaInfo{Name: row[0].Text}
	}
	return out, nil
}

func (d *Driver) GetTables(ctx context.Context, schema string) ([]model.TableInfo, error) {
	resp, err := d.query(ctx, `SELECT table_name, table_type FROM information_schema.tables
		WHERE table_schema = $1 ORDER BY table_name`, schema)
	if err != nil {
		return nil, err
	}
	out := make([]model.TableInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		out[i] = model.TableInfo{Name: row[0].Text, Schema: schema, TableType: row[1].Text}
	}
	return out, nil
}

func (d *Driver) GetColumns(ctx context.Context, schema, table string) ([]model.ColumnInfo, error) {
	resp, err := d.query(ctx, `SELECT c.column_name, c.data_type, c.is_nullable, c.column_default, c.ordinal_position,
		CASE WHEN tc.constraint_type = 'PRIMARY KEY' THEN true ELSE false END as is_pk
		FROM information_schema.columns c
		LEFT JOIN information_schema.key_column_usage kcu
		  ON c.table_schema = kcu.table_schema AND c.table_name = kcu.table_name AND c.column_name = kcu.column_name
		LEFT JOIN information_schema.table_constraints tc
		  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema AND tc.constraint_type = 'PRIMARY KEY'
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	out := make([]model.ColumnInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		var def *string
		if row[3].Kind != model.KindNull {
			v := row[3].Text
			def = &v
		}
		out[i] = model.ColumnInfo{
			Name:            row[0].Text,
			DataType:        row[1].Text,
			IsNullable:      row[2].Text == "YES",
			ColumnDefault:   def,
			IsPrimaryKey:    row[5].Bool,
			OrdinalPosition: int(row[4].Int),
		}
	}
	return out, nil
}

func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	resp, err := d.query(ctx, `SELECT i.relname as index_name,
		       array_to_string(array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)), ',') as columns,
		       ix.indisunique as is_unique, ix.indisprimary as is_primary, am.amname as index_type
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_am am ON am.oid = i.relam
		WHERE t.relname = $2 AND n.nspname = $1
		GROUP BY i.relname, ix.indisunique, ix.indisprimary, am.amname
		ORDER BY i.relname`, schema, table)
	if err != nil {
		return nil, err
	}
	out := make([]model.IndexInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		out[i] = model.IndexInfo{
			Name:      row[0].Text,
			Columns:   splitCSV(row[1].Text),
			IsUnique:  row[2].Bool,
			IsPrimary: row[3].Bool,
			IndexType: row[4].Text,
		}
	}
	return out, nil
}

func (d *Driver) GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error) {
	resp, err := d.query(ctx, `SELECT tc.constraint_name, kcu.column_name, ccu.table_name as referenced_table,
		       ccu.table_schema as referenced_schema, ccu.column_name as referenced_column,
		       rc.update_rule, rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc ON tc.constraint_name = rc.constraint_name AND tc.table_schema = rc.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}

	fkOrder := []string{}
	fkMap := map[string]*model.ForeignKeyInfo{}
	for _, row := range resp.Rows {
		name := row[0].Text
		fk, ok := fkMap[name]
		if !ok {
			fk = &model.ForeignKeyInfo{
				Name:       name,
				RefTable:   row[2].Text,
				RefSchema:  row[3].Text,
				OnUpdate:   row[5].Text,
				OnDelete:   row[6].Text,
			}
			fkMap[name] = fk
			fkOrder = append(fkOrder, name)
		}
		if !contains(fk.Columns, row[1].Text) {
			fk.Columns = append(fk.Columns, row[1].Text)
		}
		if !contains(fk.RefColumns, row[4].Text) {
			fk.RefColumns = append(fk.RefColumns, row[4].Text)
		}
	}

	out := make([]model.ForeignKeyInfo, len(fkOrder))
	for i, name := range fkOrder {
		out[i] = *fkMap[name]
	}
	return out, nil
}

func (d *Driver) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d OFFSET %d",
		sqltext.QuoteIdentifier(model.PostgreSQL, schema), sqltext.QuoteIdentifier(model.PostgreSQL, table), limit, offset)
	return d.ExecuteRaw(ctx, stmt)
}

// GetTableStats reports the planner's row estimate and on-disk size from
// pg_class/pg_total_relation_size, the same catalog pg_stat_user_tables-
// adjacent views psql's \dt+ draws from.
func (d *Driver) GetTableStats(ctx context.Context, schema, table string) (model.TableStats, error) {
	resp, err := d.query(ctx, `SELECT c.reltuples::bigint, pg_total_relation_size(c.oid)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`, schema, table)
	if err != nil {
		return model.TableStats{}, err
	}
	if len(resp.Rows) == 0 {
		return model.TableStats{}, nil
	}
	row := resp.Rows[0]
	size := row[1].Int
	display := humanizeBytes(size)
	return model.TableStats{RowCount: row[0].Int, SizeBytes: &size, SizeDisplay: &display}, nil
}

func humanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// GetRoutines lists stored functions/procedures visible in schema.
func (d *Driver) GetRoutines(ctx context.Context, schema string) ([]model.RoutineInfo, error) {
	resp, err := d.query(ctx, `SELECT routine_name, routine_type, data_type
		FROM information_schema.routines
		WHERE routine_schema = $1 ORDER BY routine_name`, schema)
	if err != nil {
		return nil, err
	}
	out := make([]model.RoutineInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		info := model.RoutineInfo{Name: row[0].Text, Schema: schema, RoutineType: row[1].Text}
		if row[2].Kind != model.KindNull && row[2].Text != "" {
			v := row[2].Text
			info.ReturnType = &v
		}
		out[i] = info
	}
	return out, nil
}

// GetSequences lists CREATE SEQUENCE objects visible in schema.
func (d *Driver) GetSequences(ctx context.Context, schema string) ([]model.SequenceInfo, error) {
	resp, err := d.query(ctx, `SELECT sequence_name, data_type
		FROM information_schema.sequences
		WHERE sequence_schema = $1 ORDER BY sequence_name`, schema)
	if err != nil {
		return nil, err
	}
	out := make([]model.SequenceInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		v := row[1].Text
		out[i] = model.SequenceInfo{Name: row[0].Text, Schema: schema, DataType: &v}
	}
	return out, nil
}

// GetEnums lists CREATE TYPE ... AS ENUM types visible in schema, with
// their ordered variant labels.
func (d *Driver) GetEnums(ctx context.Context, schema string) ([]model.EnumInfo, error) {
	resp, err := d.query(ctx, `SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON e.enumtypid = t.oid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder`, schema)
	if err != nil {
		return nil, err
	}

	order := []string{}
	byName := map[string]*model.EnumInfo{}
	for _, row := range resp.Rows {
		name := row[0].Text
		info, ok := byName[name]
		if !ok {
			info = &model.EnumInfo{Name: name, Schema: schema}
			byName[name] = info
			order = append(order, name)
		}
		info.Variants = append(info.Variants, row[1].Text)
	}

	out := make([]model.EnumInfo, len(order))
	for i, name := range order {
		out[i] = *byName[name]
	}
	return out, nil
}

func (d *Driver) query(ctx context.Context, stmt string, args ...interface{}) (*model.QueryResponse, error) {
	rows, err := d.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, dberrors.Database("metadata query failed", err)
	}
	defer rows.Close()
	return sqlcommon.RowsToResponse(rows)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
