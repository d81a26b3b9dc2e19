// Package mysql implements the Sql driver for MySQL, backed by
// go-sql-driver/mysql through database/sql. MariaDB
// (internal/driver/mariadb) wraps this driver rather than duplicate its
// information_schema queries, since MariaDB speaks the same wire protocol
// and catalog for everything this interface needs.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

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

// dsn builds the driver-native DSN go-sql-driver/mysql expects, since it
// doesn't accept the mysql:// URL form ConnectionConfig.URL() returns.
func dsn(cfg *model.ConnectionConfig) string {
	tls := ""
	if cfg.UseSSL {
		tls = "?tls=true"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s%s",
		cfg.UsernameOrDefault(), cfg.PasswordOrDefault(), cfg.HostOrDefault(), cfg.PortOrDefault(),
		cfg.DatabaseOrDefault(), tls)
}

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	db, err := sql.Open("mysql", dsn(cfg))
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
		DBType: model.MySQL,
		Quote:  func(name string) string { return sqltext.QuoteIdentifier(model.MySQL, name) },
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
	resp, err := d.query(ctx, `SELECT SCHEMA_NAME as name FROM information_schema.SCHEMATA
		WHERE SCHEMA_NAME NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')
		ORDER BY SCHEMA_NAME`)
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
	resp, err := d.query(ctx, `SELECT TABLE_NAME, TABLE_TYPE FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME`, schema)
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
	resp, err := d.query(ctx, `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT,
		       ORDINAL_POSITION, COLUMN_KEY
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schema, table)
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
			IsPrimaryKey:    row[5].Text == "PRI",
			OrdinalPosition: int(row[4].Int),
		}
	}
	return out, nil
}

func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	resp, err := d.query(ctx, `SELECT INDEX_NAME, COLUMN_NAME, NON_UNIQUE, INDEX_TYPE, SEQ_IN_INDEX
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`, schema, table)
	if err != nil {
		return nil, err
	}

	order := []string{}
	idxMap := map[string]*model.IndexInfo{}
	for _, row := range resp.Rows {
		name := row[0].Text
		idx, ok := idxMap[name]
		if !ok {
			idx = &model.IndexInfo{
				Name:      name,
				IsUnique:  row[2].Int == 0,
				IsPrimary: name == "PRIMARY",
				IndexType: row[3].Text,
			}
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
	resp, err := d.query(ctx, `SELECT tc.CONSTRAINT_NAME, kcu.COLUMN_NAME, kcu.REFERENCED_TABLE_NAME,
		       kcu.REFERENCED_TABLE_SCHEMA, kcu.REFERENCED_COLUMN_NAME, rc.UPDATE_RULE, rc.DELETE_RULE
		FROM information_schema.TABLE_CONSTRAINTS tc
		JOIN information_schema.KEY_COLUMN_USAGE kcu
		  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA AND tc.TABLE_NAME = kcu.TABLE_NAME
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
		  ON tc.CONSTRAINT_NAME = rc.CONSTRAINT_NAME AND tc.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
		WHERE tc.CONSTRAINT_TYPE = 'FOREIGN KEY' AND tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?
		ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`, schema, table)
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
		if !contains(fk.Columns, row[1].Text) {
			fk.Columns = append(fk.Columns, row[1].Text)
		}
		if !contains(fk.RefColumns, row[4].Text) {
			fk.RefColumns = append(fk.RefColumns, row[4].Text)
		}
	}

	out := make([]model.ForeignKeyInfo, len(order))
	for i, name := range order {
		out[i] = *fkMap[name]
	}
	return out, nil
}

func (d *Driver) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d OFFSET %d",
		sqltext.QuoteIdentifier(model.MySQL, schema), sqltext.QuoteIdentifier(model.MySQL, table), limit, offset)
	return d.ExecuteRaw(ctx, stmt)
}

// GetTableStats reads the optimizer's row/byte estimates off
// information_schema.TABLES, the same source SHOW TABLE STATUS draws from.
func (d *Driver) GetTableStats(ctx context.Context, schema, table string) (model.TableStats, error) {
	resp, err := d.query(ctx, `SELECT TABLE_ROWS, DATA_LENGTH + INDEX_LENGTH
		FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`, schema, table)
	if err != nil {
		return model.TableStats{}, err
	}
	if len(resp.Rows) == 0 {
		return model.TableStats{}, nil
	}
	row := resp.Rows[0]
	size := row[1].Int
	return model.TableStats{RowCount: row[0].Int, SizeBytes: &size}, nil
}

// GetRoutines lists stored procedures/functions, matching the MySQL
// information_schema.ROUTINES catalog both MySQL and MariaDB share.
func (d *Driver) GetRoutines(ctx context.Context, schema string) ([]model.RoutineInfo, error) {
	resp, err := d.query(ctx, `SELECT ROUTINE_NAME, ROUTINE_TYPE, DATA_TYPE
		FROM information_schema.ROUTINES WHERE ROUTINE_SCHEMA = ? ORDER BY ROUTINE_NAME`, schema)
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

// GetSequences reports unsupported — plain MySQL has no sequence object;
// auto_increment columns cover the common case and already surface through
// GetColumns. The MariaDB wrapper delegates here too, so MariaDB 10.3+
// sequences are not listed.
func (d *Driver) GetSequences(ctx context.Context, schema string) ([]model.SequenceInfo, error) {
	return nil, dberrors.UnsupportedOperation("MySQL has no sequence objects; see AUTO_INCREMENT columns instead")
}

// GetEnums reports unsupported — MySQL's ENUM is an inline column type
// constraint, not a named, shareable catalog type the way Postgres's is.
func (d *Driver) GetEnums(ctx context.Context, schema string) ([]model.EnumInfo, error) {
	return nil, dberrors.UnsupportedOperation("MySQL enums are inline column types, not named catalog types")
}

func (d *Driver) query(ctx context.Context, stmt string, args ...interface{}) (*model.QueryResponse, error) {
	rows, err := d.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, dberrors.Database("metadata query failed", err)
	}
	defer rows.Close()
	return sqlcommon.RowsToResponse(rows)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
