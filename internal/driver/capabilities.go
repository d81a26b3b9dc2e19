package driver

import (
	"context"

	"github.com/berbicanes/queryark/internal/model"
)

// Sql extends Base for every relational/analytics/wide-column engine that
// speaks a SQL-ish dialect: PostgreSQL, MySQL, MariaDB, SQLite, MSSQL,
// Oracle, CockroachDB, Redshift, ClickHouse, Snowflake, BigQuery, Cassandra,
// ScyllaDB.
type Sql interface {
	Base

	GetSchemas(ctx context.Context) ([]model.SchemaInfo, error)
	GetTables(ctx context.Context, schema string) ([]model.TableInfo, error)
	GetColumns(ctx context.Context, schema, table string) ([]model.ColumnInfo, error)
	GetIndexes(ctx context.Context, schema, table string) ([]model.IndexInfo, error)
	GetForeignKeys(ctx context.Context, schema, table string) ([]model.ForeignKeyInfo, error)

	GetTableData(ctx context.Context, schema, table string, limit, offset int64) (*model.QueryResponse, error)
	GetRowCount(ctx context.Context, schema, table string) (int64, error)

	UpdateCell(ctx context.Context, schema, table, column, value string, pkColumns, pkValues []string) error
	InsertRow(ctx context.Context, schema, table string, columns, values []string) error
	DeleteRows(ctx context.Context, schema, table string, pkColumns []string, pkValuesList [][]string) (int64, error)

	// GetTableStats/GetRoutines/GetSequences/GetEnums cover the catalog
	// objects §2's data model names beyond tables/columns/indexes/foreign
	// keys. Engines that genuinely lack the concept (Cassandra's CQL has no
	// stored routines, SQLite has no sequences) report
	// dberrors.UnsupportedOperation rather than an empty slice, so a caller
	// can tell "none exist" from "this engine doesn't have the concept".
	GetTableStats(ctx context.Context, schema, table string) (model.TableStats, error)
	GetRoutines(ctx context.Context, schema string) ([]model.RoutineInfo, error)
	GetSequences(ctx context.Context, schema string) ([]model.SequenceInfo, error)
	GetEnums(ctx context.Context, schema string) ([]model.EnumInfo, error)

	// BeginTransaction/CommitTransaction/RollbackTransaction pin a single
	// connection from the pool for the lifetime of the transaction (§4.3).
	BeginTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	InTransaction() bool
}

// Document extends Base for document stores: MongoDB, DynamoDB.
type Document interface {
	Base

	InsertDocument(ctx context.Context, container, collection string, document map[string]interface{}) (string, error)
	UpdateDocument(ctx context.Context, container, collection string, filter, update map[string]interface{}) (int64, error)
	DeleteDocuments(ctx context.Context, container, collection string, filter map[string]interface{}) (int64, error)
}

// KeyValue extends Base for key-value stores: Redis.
type KeyValue interface {
	Base

	GetValue(ctx context.Context, key string) (interface{}, error)
	SetValue(ctx context.Context, key, value string, ttlSeconds *int64) error
	DeleteKeys(ctx context.Context, keys []string) (int64, error)
	GetKeyType(ctx context.Context, key string) (string, error)
	ScanKeys(ctx context.Context, pattern string, count int64) ([]string, error)
}

// Graph extends Base for graph stores: Neo4j.
type Graph interface {
	Base

	GetLabels(ctx context.Context) ([]string, error)
	GetRelationshipTypes(ctx context.Context) ([]string, error)
	GetNodeProperties(ctx context.Context, label string) ([]string, error)
	GetNodes(ctx context.Context, label string, limit, offset int64) (*model.QueryResponse, error)
}
