// Package factory builds a driver.Handle for a ConnectionConfig by
// dispatching on its DatabaseType. This is the Go counterpart of the
// original's create_driver_handle match over DatabaseType in
// commands/connection.rs — one arm per engine, each connecting the
// concrete driver and wrapping it in the Handle constructor matching its
// capability family.
package factory

import (
	"context"
	"fmt"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/driver/bigquery"
	"github.com/berbicanes/queryark/internal/driver/cassandra"
	"github.com/berbicanes/queryark/internal/driver/clickhouse"
	"github.com/berbicanes/queryark/internal/driver/cockroachdb"
	"github.com/berbicanes/queryark/internal/driver/dynamodb"
	"github.com/berbicanes/queryark/internal/driver/mariadb"
	"github.com/berbicanes/queryark/internal/driver/mongodb"
	"github.com/berbicanes/queryark/internal/driver/mssql"
	"github.com/berbicanes/queryark/internal/driver/mysql"
	"github.com/berbicanes/queryark/internal/driver/neo4j"
	"github.com/berbicanes/queryark/internal/driver/oracle"
	"github.com/berbicanes/queryark/internal/driver/postgres"
	"github.com/berbicanes/queryark/internal/driver/redis"
	"github.com/berbicanes/queryark/internal/driver/redshift"
	"github.com/berbicanes/queryark/internal/driver/scylladb"
	"github.com/berbicanes/queryark/internal/driver/snowflake"
	"github.com/berbicanes/queryark/internal/driver/sqlite"
	"github.com/berbicanes/queryark/internal/model"
)

// Connect dials the engine named by cfg.DBType and wraps the resulting
// driver in the Handle matching its capability family.
func Connect(ctx context.Context, cfg *model.ConnectionConfig) (driver.Handle, error) {
	switch cfg.DBType {
	case model.PostgreSQL:
		d, err := postgres.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.MySQL:
		d, err := mysql.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.MariaDB:
		d, err := mariadb.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.SQLite:
		d, err := sqlite.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.MSSQL:
		d, err := mssql.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.Oracle:
		d, err := oracle.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.CockroachDB:
		d, err := cockroachdb.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.Redshift:
		d, err := redshift.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.ClickHouse:
		d, err := clickhouse.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.Snowflake:
		d, err := snowflake.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.BigQuery:
		d, err := bigquery.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.Cassandra:
		d, err := cassandra.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.ScyllaDB:
		d, err := scylladb.Connect(ctx, cfg)
		return wrapSql(d, err)
	case model.MongoDB:
		d, err := mongodb.Connect(ctx, cfg)
		return wrapDocument(d, err)
	case model.DynamoDB:
		d, err := dynamodb.Connect(ctx, cfg)
		return wrapDocument(d, err)
	case model.Redis:
		d, err := redis.Connect(ctx, cfg)
		return wrapKeyValue(d, err)
	case model.Neo4j:
		d, err := neo4j.Connect(ctx, cfg)
		return wrapGraph(d, err)
	default:
		return driver.Handle{}, dberrors.InvalidConfig(fmt.Sprintf("unsupported database type: %s", cfg.DBType))
	}
}

func wrapSql(d driver.Sql, err error) (driver.Handle, error) {
	if err != nil {
		return driver.Handle{}, err
	}
	return driver.NewSqlHandle(d), nil
}

func wrapDocument(d driver.Document, err error) (driver.Handle, error) {
	if err != nil {
		return driver.Handle{}, err
	}
	return driver.NewDocumentHandle(d), nil
}

func wrapKeyValue(d driver.KeyValue, err error) (driver.Handle, error) {
	if err != nil {
		return driver.Handle{}, err
	}
	return driver.NewKeyValueHandle(d), nil
}

func wrapGraph(d driver.Graph, err error) (driver.Handle, error) {
	if err != nil {
		return driver.Handle{}, err
	}
	return driver.NewGraphHandle(d), nil
}
