// Package sqlite implements the Sql driver for SQLite, backed by
// mattn/go-sqlite3 through database/sql. SQLite has no schema namespace
// concept, so GetSchemas returns a single synthetic "main" container.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

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
	path := cfg.FilePath
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), path, err)
	}
	db.SetMaxOpenConns(1) // go-sqlite3 serializes writers; pooling beyond 1 self-deadlocks on concurrent writes.

	if err := db.PingContext(ctx); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), path, err)
	}

	return &Driver{Base: &sqlcommon.Base{
		DB:     db,
		DBType: model.SQLite,
		Quote:  func(name string) string { return sqltext.QuoteIdentifier(model.SQLite, name) },
		Bind:   sqlcommon.QuestionPlaceholder,
	}}, nil
}

func (d *Driver) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	return []model.ContainerInfo{{Name: "main"}}, nil
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
	return []model.SchemaInfo{{Name: "main"}}, nil
}

func (d *Driver) GetTables(ctx context.Context, schema string) ([]model.TableInfo, error) {
	resp, err := d.query(ctx, `SELECT name, type FROM sqlite_master WHERE type IN ('table','view')
		AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	out := make([]model.TableInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		tableType := "BASE TABLE"
		if row[1].Text == "view" {
			tableType = "VIEW"
		}
		out[i] = model.TableInfo{Name: row[0].Text, Schema: "main", TableType: tableType}
	}
	return out, nil
}

func (d *Driver) GetColumns(ctx context.Context, schema, table string) ([]model.ColumnInfo, error) {
	resp, err := d.query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", sqltext.QuoteIdentifier(model.SQLite, table)))
	if err != nil {
		return nil, err
	}
	out := make([]model.ColumnInfo, len(resp.Rows))
	for i, row := range resp.Rows {
		// cid, name, type, notnull, dflt_value, pk
		var def *string
		if row[4].Kind != model.KindNull {
			v := row[4].Text
			def = &v
		}
		out[i] = model.ColumnInfo{
			Name:            row[1].Text,
			DataType:        row[2].Text,
			IsNullable:      row[3].Int == 0,
			ColumnDefault:   def,
			IsPrimaryKey:    row[5].Int != 0,
			OrdinalPosition: int(row[0].Int) + 1,
		}
	}
	return out, nil
}

func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	listResp, err := d.query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", sqltext.QuoteIdentifier(model.SQLite, table)))
	if err != nil {
		return nil, err
	}
	out := make([]model.IndexInfo, 0, len(listResp.Rows))
	for _, row := range listResp.Rows {
		name := row[1].Text
		unique := row[2].Int != 0
		colsResp, err := d.query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", sqltext.QuoteIdentifier(model.SQLite, name)))
		if err != nil {
			return nil, err
		}
		var cols []string
		for _, c := range colsResp.Rows {
			cols = append(cols, c[2].Text)
		}
		out = append(out, model.IndexInfo{
			Name:      name,
			Columns:   cols,
			IsUnique:  unique,
			IsPrimary: false,
			IndexType: "btree",
		})
	}
	return out, nil
}

func (d *Driver) GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error) {
	resp, err := d.query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", sqltext.QuoteIdentifier(model.SQLite, table)))
	if err != nil {
		return nil, err
	}
	order := []int64{}
	fkMap := map[int64]*model.ForeignKeyInfo{}
	for _, row := range resp.Rows {
		// id, seq, table, from, to, on_update, on_delete, match
		id := row[0].Int
		fk, ok := fkMap[id]
		if !ok {
			fk = &model.ForeignKeyInfo{
				Name:     fmt.Sprintf("fk_%s_%d", table, id),
				RefTable: row[2].Text,
				OnUpdate: row[5].Text,
				OnDelete: row[6].Text,
			}
			fkMap[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, row[3].Text)
		fk.RefColumns = append(fk.RefColumns, row[4].Text)
	}
	out := make([]model.ForeignKeyInfo, len(order))
	for i, id := range order {
		out[i] = *fkMap[id]
	}
	return out, nil
}

func (d *Driver) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", sqltext.QuoteIdentifier(model.SQLite, table), limit, offset)
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
