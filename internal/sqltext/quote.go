package sqltext

import (
	"strings"

	"github.com/berbicanes/queryark/internal/model"
)

// QuoteIdentifier wraps name in the quoting convention the given engine's
// SQL dialect uses, doubling any embedded quote character. MySQL/MariaDB
// use backticks; MSSQL uses brackets; every other SQL-capable engine here
// (Postgres family, SQLite, ClickHouse, Snowflake, BigQuery, Cassandra
// family, Oracle) uses ANSI double quotes.
func QuoteIdentifier(dbType model.DatabaseType, name string) string {
	switch dbType {
	case model.MySQL, model.MariaDB:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case model.MSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QuoteQualified quotes a schema.table pair, omitting the schema segment
// when empty (e.g. SQLite, MySQL databases addressed without a schema).
func QuoteQualified(dbType model.DatabaseType, schema, name string) string {
	if schema == "" {
		return QuoteIdentifier(dbType, name)
	}
	return QuoteIdentifier(dbType, schema) + "." + QuoteIdentifier(dbType, name)
}
