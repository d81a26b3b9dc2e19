// Package sqlcommon holds the database/sql-backed plumbing shared by every
// SQL-family driver (Postgres, MySQL, MariaDB, SQLite, MSSQL, Oracle,
// CockroachDB, Redshift, ClickHouse, Snowflake): raw execution, row
// scanning, pagination, and single-connection transaction pinning. Each
// concrete driver supplies its own metadata queries (schemas/tables/
// columns/indexes/foreign keys) since those vary by catalog, but shares
// this file's execute/scan/transaction/CRUD machinery.
package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/model"
)

// Placeholder renders the Nth (1-indexed) bind placeholder for a dialect.
type Placeholder func(n int) string

func DollarPlaceholder(n int) string  { return fmt.Sprintf("$%d", n) }
func QuestionPlaceholder(int) string  { return "?" }
func AtPPlaceholder(n int) string     { return fmt.Sprintf("@p%d", n) }

// Base wraps a database/sql pool with the transaction-pinning semantics the
// original driver used: starting a transaction acquires and holds a single
// *sql.Conn until commit/rollback, so every statement issued meanwhile runs
// on that connection rather than a fresh one from the pool.
type Base struct {
	DB       *sql.DB
	DBType   model.DatabaseType
	Quote    func(name string) string
	Bind     Placeholder

	txnMu   sync.Mutex
	txnConn *sql.Conn
	txnTx   *sql.Tx
}

func (b *Base) Category() model.DatabaseCategory {
	switch b.DBType {
	case model.ClickHouse, model.Snowflake, model.BigQuery:
		return model.CategoryAnalytics
	case model.Cassandra, model.ScyllaDB:
		return model.CategoryWideColumn
	default:
		return model.CategoryRelational
	}
}

func (b *Base) Close(ctx context.Context) error {
	if b.txnConn != nil {
		_ = b.txnConn.Close()
	}
	return b.DB.Close()
}

var selectPrefixes = []string{"SELECT", "WITH", "SHOW", "EXPLAIN", "TABLE", "VALUES", "PRAGMA", "DESCRIBE"}

func isSelectLike(sqlText string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sqlText))
	for _, p := range selectPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// queryContext and execContext dispatch to the pinned transaction (holding
// txnMu for the call's full duration, since *sql.Tx is documented as unsafe
// for concurrent use) or, with no transaction pinned, straight to the pool
// (no lock: *sql.DB already serializes nothing and dispatches concurrent
// statements across its own connections, per spec.md:153-154).
func (b *Base) queryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	b.txnMu.Lock()
	tx := b.txnTx
	if tx == nil {
		b.txnMu.Unlock()
		return b.DB.QueryContext(ctx, query, args...)
	}
	defer b.txnMu.Unlock()
	return tx.QueryContext(ctx, query, args...)
}

func (b *Base) execContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	b.txnMu.Lock()
	tx := b.txnTx
	if tx == nil {
		b.txnMu.Unlock()
		return b.DB.ExecContext(ctx, query, args...)
	}
	defer b.txnMu.Unlock()
	return tx.ExecContext(ctx, query, args...)
}

// ExecuteRaw runs sql against the pool, or the pinned transaction connection
// if one is active, classifying it as a row-returning statement by prefix
// the way the reference drivers do.
func (b *Base) ExecuteRaw(ctx context.Context, sqlText string) (*model.QueryResponse, error) {
	start := time.Now()
	trimmed := strings.TrimSpace(sqlText)

	if isSelectLike(trimmed) {
		rows, err := b.queryContext(ctx, trimmed)
		if err != nil {
			return nil, dberrors.Database("query execution failed", err)
		}
		defer rows.Close()
		resp, err := RowsToResponse(rows)
		if err != nil {
			return nil, dberrors.Database("failed to read result set", err)
		}
		resp.ExecutionTimeMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	result, err := b.execContext(ctx, trimmed)
	if err != nil {
		return nil, dberrors.Database("statement execution failed", err)
	}
	affected, _ := result.RowsAffected()
	return &model.QueryResponse{
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		AffectedRows:    &affected,
	}, nil
}

// GetTableData runs a dialect-neutral SELECT * ... LIMIT/OFFSET against a
// quoted schema.table pair. MSSQL overrides this with OFFSET/FETCH text at
// the engine layer, since plain LIMIT/OFFSET isn't valid T-SQL.
func (b *Base) GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	qualified := b.qualify(schema, table)
	stmt := fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", qualified, limit, offset)
	return b.ExecuteRaw(ctx, stmt)
}

func (b *Base) qualify(schema, table string) string {
	if schema == "" {
		return b.Quote(table)
	}
	return b.Quote(schema) + "." + b.Quote(table)
}

func (b *Base) GetRowCount(ctx context.Context, schema, table string) (int64, error) {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", b.qualify(schema, table))
	rows, err := b.queryContext(ctx, stmt)
	if err != nil {
		return 0, dberrors.Database("row count query failed", err)
	}
	defer rows.Close()
	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, dberrors.Database("failed to scan row count", err)
		}
	}
	return count, nil
}

// GetTableStats reports a row count via COUNT(*) and leaves size unset.
// Postgres and MySQL override this with a catalog-based row/byte estimate;
// the other dialects use this default.
func (b *Base) GetTableStats(ctx context.Context, schema, table string) (model.TableStats, error) {
	count, err := b.GetRowCount(ctx, schema, table)
	if err != nil {
		return model.TableStats{}, err
	}
	return model.TableStats{RowCount: count}, nil
}

// GetRoutines/GetSequences/GetEnums default to UnsupportedOperation.
// Postgres overrides all three with catalog queries and MySQL overrides
// GetRoutines; every other dialect, including MSSQL and Oracle, reports
// UnsupportedOperation.
func (b *Base) GetRoutines(ctx context.Context, schema string) ([]model.RoutineInfo, error) {
	return nil, dberrors.UnsupportedOperation(fmt.Sprintf("%s does not expose stored routines through this driver", b.DBType))
}

func (b *Base) GetSequences(ctx context.Context, schema string) ([]model.SequenceInfo, error) {
	return nil, dberrors.UnsupportedOperation(fmt.Sprintf("%s does not expose sequences through this driver", b.DBType))
}

func (b *Base) GetEnums(ctx context.Context, schema string) ([]model.EnumInfo, error) {
	return nil, dberrors.UnsupportedOperation(fmt.Sprintf("%s does not expose named enum types through this driver", b.DBType))
}

func (b *Base) UpdateCell(ctx context.Context, schema, table, column, value string, pkColumns, pkValues []string) error {
	if len(pkColumns) != len(pkValues) {
		return dberrors.InvalidConfig("primary key columns and values must have the same length")
	}
	if len(pkColumns) == 0 {
		return dberrors.InvalidConfig("at least one primary key column is required")
	}

	args := []interface{}{value}
	var where []string
	for i, col := range pkColumns {
		where = append(where, fmt.Sprintf("%s = %s", b.Quote(col), b.Bind(i+2)))
		args = append(args, pkValues[i])
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s",
		b.qualify(schema, table), b.Quote(column), b.Bind(1), strings.Join(where, " AND "))

	_, err := b.execContext(ctx, stmt, args...)
	if err != nil {
		return dberrors.Database("update failed", err)
	}
	return nil
}

func (b *Base) InsertRow(ctx context.Context, schema, table string, columns, values []string) error {
	if len(columns) != len(values) {
		return dberrors.InvalidConfig("columns and values must have the same length")
	}

	var cols, placeholders []string
	args := make([]interface{}, 0, len(values))
	for i, c := range columns {
		cols = append(cols, b.Quote(c))
		placeholders = append(placeholders, b.Bind(i+1))
		args = append(args, values[i])
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.qualify(schema, table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	_, err := b.execContext(ctx, stmt, args...)
	if err != nil {
		return dberrors.Database("insert failed", err)
	}
	return nil
}

func (b *Base) DeleteRows(ctx context.Context, schema, table string, pkColumns []string, pkValuesList [][]string) (int64, error) {
	if len(pkColumns) == 0 {
		return 0, dberrors.InvalidConfig("at least one primary key column is required")
	}

	var total int64
	for _, pkValues := range pkValuesList {
		if len(pkColumns) != len(pkValues) {
			return 0, dberrors.InvalidConfig("primary key columns and values must have the same length")
		}

		var where []string
		args := make([]interface{}, 0, len(pkValues))
		for i, col := range pkColumns {
			where = append(where, fmt.Sprintf("%s = %s", b.Quote(col), b.Bind(i+1)))
			args = append(args, pkValues[i])
		}

		stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", b.qualify(schema, table), strings.Join(where, " AND "))
		result, err := b.execContext(ctx, stmt, args...)
		if err != nil {
			return total, dberrors.Database("delete failed", err)
		}
		affected, _ := result.RowsAffected()
		total += affected
	}
	return total, nil
}

func (b *Base) BeginTransaction(ctx context.Context) error {
	b.txnMu.Lock()
	defer b.txnMu.Unlock()
	if b.txnTx != nil {
		return dberrors.Database("transaction already active", nil)
	}
	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return dberrors.Database("failed to acquire connection", err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return dberrors.Database("failed to begin transaction", err)
	}
	b.txnConn = conn
	b.txnTx = tx
	return nil
}

func (b *Base) CommitTransaction(ctx context.Context) error {
	b.txnMu.Lock()
	defer b.txnMu.Unlock()
	if b.txnTx == nil {
		return dberrors.Database("no active transaction", nil)
	}
	err := b.txnTx.Commit()
	_ = b.txnConn.Close()
	b.txnTx, b.txnConn = nil, nil
	if err != nil {
		return dberrors.Database("commit failed", err)
	}
	return nil
}

func (b *Base) RollbackTransaction(ctx context.Context) error {
	b.txnMu.Lock()
	defer b.txnMu.Unlock()
	if b.txnTx == nil {
		return dberrors.Database("no active transaction", nil)
	}
	err := b.txnTx.Rollback()
	_ = b.txnConn.Close()
	b.txnTx, b.txnConn = nil, nil
	if err != nil {
		return dberrors.Database("rollback failed", err)
	}
	return nil
}

func (b *Base) InTransaction() bool {
	b.txnMu.Lock()
	defer b.txnMu.Unlock()
	return b.txnTx != nil
}
