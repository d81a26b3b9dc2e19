// Package oracle implements the Sql driver for Oracle, backed by
// sijms/go-ora/v2 — a pure-Go implementation of Oracle's network protocol
// that needs no Oracle Instant Client, unlike the OCI-bound driver this is
// ported from (which shipped only as an unconfigured stub).
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/sijms/go-ora/v2"

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

func dsn(cfg *model.ConnectionConfig) string {
	service := cfg.OracleServiceName
	if service == "" {
		service = cfg.OracleSID
	}
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
		cfg.UsernameOrDefault(), cfg.PasswordOrDefault(), cfg.HostOrDefault(), cfg.PortOrDefault(), service)
}

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	db, err := sql.Open("oracle", dsn(cfg))
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
		DBType: model.Oracle,
		Quote:  func(name string) string { return sqltext.QuoteIdentifier(model.Oracle, name) },
		Bind:   func(n int) string { return fmt.Sprintf(":%d", n) },
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

// GetSchemas lists Oracle schemas as ALL_USERS minus Oracle's built-in
// system accounts, since Oracle treats "schema" and "user" as synonyms.
func (d *Driver) GetSchemas(ctx context.Context) ([]model.SchemaInfo, error) {
	resp, err := d.query(ctx, `SELECT username FROM all_users
		WHERE username NOT IN ('SYS','SYSTEM','OUTLN','DBSNMP','APPQOSSYS','ORACLE_OCM','XS$NULL',
		'DIP','ORDSYS','MDSYS','CTXSYS','WMSYS','XDB','ANONYMOUS','GSMADMIN_INTERNAL','APEX_PUBLIC_USER')
		ORDER BY username`)
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
	resp, err := d.query(ctx, `SELECT table_name FROM all_tables WHERE owner = :1 ORDER BY table_name`, strings.ToUpper(schema))
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
	resp, err := d.query(ctx, `SELECT c.column_name, c.data_type, c.nullable, c.data_default, c.column_id,
			CASE WHEN pk.column_name IS NOT NULL THEN 1 ELSE 0 END AS is_pk
		FROM all_tab_columns c
		LEFT JOIN (
			SELECT cc.column_name, cc.table_name, cc.owner
			FROM all_constraints k
			JOIN all_cons_columns cc ON cc.constraint_name = k.constraint_name AND cc.owner = k.owner
			WHERE k.constraint_type = 'P'
		) pk ON pk.owner = c.owner AND pk.table_name = c.table_name AND pk.column_name = c.column_name
		WHERE c.owner = :1 AND c.table_name = :2
		ORDER BY c.column_id`, strings.ToUpper(schema), strings.ToUpper(table))
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
			IsNullable:      row[2].Text == "Y",
			ColumnDefault:   def,
			IsPrimaryKey:    row[5].Int != 0,
			OrdinalPosition: int(row[4].Int),
		}
	}
	return out, nil
}

func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	resp, err := d.query(ctx, `SELECT i.index_name, ic.column_name, i.uniqueness, i.index_type
		FROM all_indexes i
		JOIN all_ind_columns ic ON ic.index_name = i.index_name AND ic.index_owner = i.owner
		WHERE i.owner = :1 AND i.table_name = :2
		ORDER BY i.index_name, ic.column_position`, strings.ToUpper(schema), strings.ToUpper(table))
	if err != nil {
		return nil, err
	}
	order := []string{}
	idxMap := map[string]*model.IndexInfo{}
	for _, row := range resp.Rows {
		name := row[0].Text
		idx, ok := idxMap[name]
		if !ok {
			idx = &model.IndexInfo{Name: name, IsUnique: row[2].Text == "UNIQUE", IndexType: row[3].Text}
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
	resp, err := d.query(ctx, `SELECT a.constraint_name, a.column_name, c_pk.table_name AS ref_table,
			c_pk.owner AS ref_schema, b.column_name AS ref_column
		FROM all_cons_columns a
		JOIN all_constraints c ON a.owner = c.owner AND a.constraint_name = c.constraint_name
		JOIN all_constraints c_pk ON c.r_owner = c_pk.owner AND c.r_constraint_name = c_pk.constraint_name
		JOIN all_cons_columns b ON b.owner = c_pk.owner AND b.constraint_name = c_pk.constraint_name AND b.position = a.position
		WHERE c.constraint_type = 'R' AND a.owner = :1 AND a.table_name = :2
		ORDER BY a.constraint_name, a.position`, strings.ToUpper(schema), strings.ToUpper(table))
	if err != nil {
		return nil, err
	}
	order := []string{}
	fkMap := map[string]*model.ForeignKeyInfo{}
	for _, row := range resp.Rows {
		name := row[0].Text
		fk, ok := fkMap[name]
		if !ok {
			fk = &model.ForeignKeyInfo{Name: name, RefTable: row[2].Text, RefSchema: row[3].Text}
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

// GetTableData uses Oracle's OFFSET/FETCH form (12c+), mirroring the
// MSSQL driver's override since Oracle also rejects bare LIMIT/OFFSET.
func (d *Driver) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		sqltext.QuoteQualified(model.Oracle, schema, table), offset, limit)
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
