// Package snowflake implements the Sql driver for Snowflake, backed by
// snowflakedb/gosnowflake through database/sql. The original driver went
// through Snowflake's REST API directly (snowflake-api, no bind
// parameters); gosnowflake is a full database/sql binding, so this port
// reuses internal/driver/sqlcommon like the other analytics engines
// instead of hand-rolling literal-embedded SQL.
package snowflake

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/driver/sqlcommon"
	"github.com/berbicanes/queryark/internal/model"
	"github.com/berbicanes/queryark/internal/sqltext"
)

type Driver struct {
	*sqlcommon.Base
	database string
}

var _ driver.Sql = (*Driver)(nil)

func dsn(cfg *model.ConnectionConfig) (string, error) {
	if cfg.SnowflakeAccount == "" {
		return "", dberrors.InvalidConfig("Snowflake account is required")
	}
	if cfg.UsernameOrDefault() == "" {
		return "", dberrors.InvalidConfig("Snowflake username is required")
	}
	if cfg.PasswordOrDefault() == "" {
		return "", dberrors.InvalidConfig("Snowflake password is required")
	}

	warehouse := cfg.SnowflakeWarehouse
	if warehouse == "" {
		warehouse = "COMPUTE_WH"
	}

	dsn := fmt.Sprintf("%s:%s@%s/%s?warehouse=%s",
		cfg.UsernameOrDefault(), cfg.PasswordOrDefault(), cfg.SnowflakeAccount, cfg.DatabaseOrDefault(), warehouse)
	if cfg.SnowflakeRole != "" {
		dsn += "&role=" + cfg.SnowflakeRole
	}
	return dsn, nil
}

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	connStr, err := dsn(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("snowflake", connStr)
	if err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.SnowflakeAccount, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.SnowflakeAccount, err)
	}

	return &Driver{
		Base: &sqlcommon.Base{
			DB:     db,
			DBType: model.Snowflake,
			Quote:  func(name string) string { return sqltext.QuoteIdentifier(model.Snowflake, name) },
			Bind:   sqlcommon.QuestionPlaceholder,
		},
		database: cfg.DatabaseOrDefault(),
	}, nil
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

// GetSchemas runs SHOW SCHEMAS, which has no stable column ordering across
// Snowflake versions except that "name" sits at index 1 — matching the
// original driver's positional parsing.
func (d *Driver) GetSchemas(ctx context.Context) ([]model.SchemaInfo, error) {
	stmt := fmt.Sprintf("SHOW SCHEMAS IN DATABASE %s", sqltext.QuoteIdentifier(model.Snowflake, d.database))
	resp, err := d.ExecuteRaw(ctx, stmt)
	if err != nil {
		return nil, err
	}
	var out []model.SchemaInfo
	for _, row := range resp.Rows {
		if len(row) < 2 {
			continue
		}
		name := row[1].Text
		if name == "INFORMATION_SCHEMA" {
			continue
		}
		out = append(out, model.SchemaInfo{Name: name})
	}
	return out, nil
}

func (d *Driver) GetTables(ctx context.Context, schema string) ([]model.TableInfo, error) {
	stmt := fmt.Sprintf("SHOW TABLES IN SCHEMA %s.%s",
		sqltext.QuoteIdentifier(model.Snowflake, d.database), sqltext.QuoteIdentifier(model.Snowflake, schema))
	resp, err := d.ExecuteRaw(ctx, stmt)
	if err != nil {
		return nil, err
	}
	var out []model.TableInfo
	for _, row := range resp.Rows {
		if len(row) < 2 {
			continue
		}
		kind := "TABLE"
		if len(row) > 4 {
			kind = row[4].Text
		}
		out = append(out, model.TableInfo{Name: row[1].Text, Schema: schema, TableType: kind})
	}
	return out, nil
}

func (d *Driver) GetColumns(ctx context.Context, schema, table string) ([]model.ColumnInfo, error) {
	stmt := fmt.Sprintf("SHOW COLUMNS IN TABLE %s.%s.%s",
		sqltext.QuoteIdentifier(model.Snowflake, d.database),
		sqltext.QuoteIdentifier(model.Snowflake, schema),
		sqltext.QuoteIdentifier(model.Snowflake, table))
	resp, err := d.ExecuteRaw(ctx, stmt)
	if err != nil {
		return nil, err
	}

	nameIdx := columnIndex(resp.Columns, "column_name", 2)
	typeIdx := columnIndex(resp.Columns, "data_type", 3)
	defaultIdx := columnIndex(resp.Columns, "default", 4)
	nullIdx := columnIndex(resp.Columns, "is_nullable", 5)

	out := make([]model.ColumnInfo, 0, len(resp.Rows))
	for idx, row := range resp.Rows {
		if nameIdx >= len(row) {
			continue
		}
		name := row[nameIdx].Text

		dataType := "TEXT"
		if typeIdx < len(row) {
			var parsed struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal([]byte(row[typeIdx].Text), &parsed); err == nil && parsed.Type != "" {
				dataType = parsed.Type
			} else if row[typeIdx].Text != "" {
				dataType = row[typeIdx].Text
			}
		}

		isNullable := true
		if nullIdx < len(row) {
			v := strings.ToUpper(row[nullIdx].Text)
			isNullable = v == "Y" || v == "YES" || v == "TRUE"
		}

		var def *string
		if defaultIdx < len(row) && row[defaultIdx].Text != "" {
			v := row[defaultIdx].Text
			def = &v
		}

		out = append(out, model.ColumnInfo{
			Name:            name,
			DataType:        dataType,
			IsNullable:      isNullable,
			ColumnDefault:   def,
			OrdinalPosition: idx + 1,
		})
	}
	return out, nil
}

func columnIndex(cols []model.ColumnDef, name string, fallback int) int {
	for i, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return fallback
}

func (d *Driver) GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error) {
	return nil, nil
}

func (d *Driver) GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error) {
	stmt := fmt.Sprintf(`SELECT tc.CONSTRAINT_NAME, kcu.COLUMN_NAME,
			rc.UNIQUE_CONSTRAINT_SCHEMA, rc2_kcu.TABLE_NAME AS REFERENCED_TABLE, rc2_kcu.COLUMN_NAME AS REFERENCED_COLUMN
		FROM %s.INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN %s.INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		JOIN %s.INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		  ON tc.CONSTRAINT_NAME = rc.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = rc.CONSTRAINT_SCHEMA
		LEFT JOIN %s.INFORMATION_SCHEMA.KEY_COLUMN_USAGE rc2_kcu
		  ON rc.UNIQUE_CONSTRAINT_NAME = rc2_kcu.CONSTRAINT_NAME AND rc.UNIQUE_CONSTRAINT_SCHEMA = rc2_kcu.TABLE_SCHEMA
		WHERE tc.TABLE_SCHEMA = '%s' AND tc.TABLE_NAME = '%s' AND tc.CONSTRAINT_TYPE = 'FOREIGN KEY'
		ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`,
		d.database, d.database, d.database, d.database,
		sqltext.EscapeLiteral(schema), sqltext.EscapeLiteral(table))

	resp, err := d.ExecuteRaw(ctx, stmt)
	if err != nil {
		return nil, nil
	}

	order := []string{}
	fkMap := map[string]*model.ForeignKeyInfo{}
	for _, row := range resp.Rows {
		if len(row) < 5 {
			continue
		}
		name := row[0].Text
		fk, ok := fkMap[name]
		if !ok {
			fk = &model.ForeignKeyInfo{Name: name, RefSchema: row[2].Text, RefTable: row[3].Text,
				OnUpdate: "NO ACTION", OnDelete: "NO ACTION"}
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

func (d *Driver) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d OFFSET %d",
		sqltext.QuoteIdentifier(model.Snowflake, schema), sqltext.QuoteIdentifier(model.Snowflake, table), limit, offset)
	return d.ExecuteRaw(ctx, stmt)
}

func (d *Driver) GetRowCount(ctx context.Context, schema, table string) (int64, error) {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s",
		sqltext.QuoteIdentifier(model.Snowflake, schema), sqltext.QuoteIdentifier(model.Snowflake, table))
	resp, err := d.ExecuteRaw(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0]) == 0 {
		return 0, nil
	}
	return resp.Rows[0][0].Int, nil
}
