// Package mssql implements the Sql driver for SQL Server, backed by
// microsoft/go-mssqldb through database/sql. Pagination overrides the
// shared LIMIT/OFFSET rewrite with T-SQL's OFFSET/FETCH form, matching the
// brokerage's pagination.go dialect switch (§4.7).
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

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
	db, err := sql.Open("sqlserver", cfg.URL())
	if err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}
	db.SetMaxOpenConns(cfg.Pool.MaxConnections)
	db.SetConnMaxIdleTime(time.Duration(cfg.Pool.IdleTimeoutSecs) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}

	return &Driver{Base: &sqlcommon.Base{
		DB:     db,
		DBType: model.MSSQL,
		Quote:  func(name string) string { return sqltext.QuoteIdentifier(model.MSSQL, name) },
		Bind:   sqlcommon.AtPPlaceholder,
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
	resp, err := d.query(ctx, `SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('sys','INFORMATION_SCHEMA','db_owner','db_accessadmin','db_securityadmin',
		'db_ddladmin','db_backupoperator','db_datareader','db_datawriter','db_denydatareader','db_denydatawriter')
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
	resp, err := d.query(ctx, `SELECT TABLE_NAME, TABLE_TYPE FROM information_schema.tables
		WHERE TABLE_SCHEMA = @p1 ORDER BY TABLE_NAME`, schema)
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
	resp, err := d.query(ctx, `SELECT c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE, c.COLUMN_DEFAULT, c.ORDINAL_POSITION,
		       CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END as is_pk
		FROM information_schema.COLUMNS c
		LEFT JOIN (
		  SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
		  FROM information_schema.TABLE_CONSTRAINTS tc
		  JOIN information_schema.KEY_COLUMN_USAGE ku
		    ON tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = ku.TABLE_SCHEMA
		  WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		) pk ON pk.TABLE_SCHEMA = c.TABLE_SCHEMA AND pk.TABLE_NAME = c.TABLE_NAME AND pk.COLUMN_NAME = c.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION`, schema, table)
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
			IsPrimaryKey:    row[5].Int != 0,
			OrdinalPosition: int(row[4].Int),
		}
	}
	return out, nil
}

func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	resp, err := d.query(ctx, `SELECT i.name, c.name AS column_name, i.is_unique, i.is_primary_key, i.type_desc
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1 AND t.name = @p2 AND i.name IS NOT NULL
		ORDER BY i.name, ic.key_ordinal`, schema, table)
	if err != nil {
		return nil, err
	}
	order := []string{}
	idxMap := map[string]*model.IndexInfo{}
	for _, row := range resp.Rows {
		name := row[0].Text
		idx, ok := idxMap[name]
		if !ok {
			idx = &model.IndexInfo{Name: name, IsUnique: row[2].Bool, IsPrimary: row[3].Bool, IndexType: row[4].Text}
			idxMap[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, row[1].Text)
	}
	out := make([]model.IndexInfo, len(order))
	for i, name := range order {
		out[i] = *idxMap[name]
	}
	return out, nil
}

func (d *Driver) GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error) {
	resp, err := d.query(ctx, `SELECT fk.name, c1.name AS column_name, t2.name AS ref_table, s2.name AS ref_schema,
		       c2.name AS ref_column, fk.update_referential_action_desc, fk.delete_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.tables t1 ON t1.object_id = fk.parent_object_id
		JOIN sys.schemas s1 ON s1.schema_id = t1.schema_id
		JOIN sys.columns c1 ON c1.object_id = fkc.parent_object_id AND c1.column_id = fkc.parent_column_id
		JOIN sys.tables t2 ON t2.object_id = fk.referenced_object_id
		JOIN sys.schemas s2 ON s2.schema_id = t2.schema_id
		JOIN sys.columns c2 ON c2.object_id = fkc.referenced_object_id AND c2.column_id = fkc.referenced_column_id
		WHERE s1.name = @p1 AND t1.name = @p2
		ORDER BY fk.name, fkc.constraint_column_id`, schema, table)
	if err != nil {
		return nil, err
	}
	order := []string{}
	fkMap := map[string]*model.ForeignKeyInfo{}
	for _, row := range resp.Rows {
		name := row[0].Text
		fk, ok := fkMap[name]
		if !ok {
			fk = &model.ForeignKeyInfo{
				Name:      name,
				RefTable:  row[2].Text,
				RefSchema: row[3].Text,
				OnUpdate:  row[5].Text,
				OnDelete:  row[6].Text,
			}
			fkMap[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, row[1].Text)
		fk.RefColumns = append(fk.RefColumns, row[4].Text)
	}
	out := make([]model.ForeignKeyInfo, len(order))
	for i, name := range order {
		out[i] = *fkMap[name]
	}
	return out, nil
}

// GetTableData uses T-SQL's OFFSET/FETCH form rather than LIMIT/OFFSET,
// which SQL Server doesn't support; ORDER BY is mandatory for OFFSET/FETCH
// so this orders by a constant to get a stable-enough "no particular order"
// fetch the way the brokerage's unordered pagination fallback expects.
func (d *Driver) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s ORDER BY (SELECT NULL) OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		sqltext.QuoteQualified(model.MSSQL, schema, table), offset, limit)
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
