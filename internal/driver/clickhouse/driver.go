// Package clickhouse implements the Sql driver for ClickHouse, backed by
// ClickHouse/clickhouse-go/v2's database/sql binding.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	clickhouseopts "github.com/ClickHouse/clickhouse-go/v2"

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
	db := clickhouseopts.OpenDB(&clickhouseopts.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.HostOrDefault(), cfg.PortOrDefault())},
		Auth: clickhouseopts.Auth{
			Database: cfg.DatabaseOrDefault(),
			Username: cfg.UsernameOrDefault(),
			Password: cfg.PasswordOrDefault(),
		},
	})
	db.SetMaxOpenConns(cfg.Pool.MaxConnections)
	db.SetConnMaxIdleTime(time.Duration(cfg.Pool.IdleTimeoutSecs) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}

	return &Driver{Base: &sqlcommon.Base{
		DB:     db,
		DBType: model.ClickHouse,
		Quote:  func(name string) string { return sqltext.QuoteIdentifier(model.ClickHouse, name) },
		Bind:   sqlcommon.QuestionPlaceholder,
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
	resp, err := d.query(ctx, `SELECT name FROM system.databases
		WHERE name NOT IN ('system','information_schema','INFORMATION_SCHEMA') ORDER BY name`)
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
	resp, err := d.query(ctx, `SELECT name, engine FROM system.tables WHERE database = ? ORDER BY name`, schema)
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
	resp, err := d.query(ctx, `SELECT name, type, position, is_in_primary_key
		FROM system.columns WHERE database = ? AND table = ? ORDER BY position`, schema, table)
	if err != nil {
		return nil, err
	}
	out := make([]model.ColumnInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		out[i] = model.ColumnInfo{
			Name:            row[0].Text,
			DataType:        row[1].Text,
			IsNullable:      false,
			IsPrimaryKey:    row[3].Bool,
			OrdinalPosition: int(row[2].Int),
		}
	}
	return out, nil
}

// GetIndexes always returns empty — ClickHouse's MergeTree "sorting key"
// isn't a classic B-tree index and doesn't fit IndexInfo's shape.
func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	return nil, nil
}

// GetForeignKeys always returns empty — ClickHouse has no referential
// integrity constraints.
func (d *Driver) GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error) {
	return nil, nil
}

func (d *Driver) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d",
		sqltext.QuoteQualified(model.ClickHouse, schema, table), limit, offset)
	return d.ExecuteRaw(ctx, stmt)
}

func (d *Driver) query(ctx context.Context, stmt string, args ...interface{}) (*model.QueryResponse, error) {
	rows, err := d.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, dberrors.Database("metadata query failed", err)
	}
	defer rows.Close()
	return sqlcommon.RowsToResponse(rows)
}
