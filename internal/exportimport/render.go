// Package exportimport implements the streaming export/import/dump paths
// (§4.9): CSV and SQL-insert rendering, DDL generation, CSV import, and the
// schema-then-data dump command. Every writer is a buffered writer over a
// freshly created file, flushed before the call returns.
package exportimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/berbicanes/queryark/internal/model"
)

// PageSize is the fixed row page used by every streaming export/dump path.
const PageSize = 5000

// renderCSVCell is the total function §4.9 "CSV export" specifies: every
// CellKind maps to exactly one string, with no quoting/escaping decisions
// left to the caller (the CSV writer handles field quoting).
func renderCSVCell(c model.CellValue) string {
	switch c.Kind {
	case model.KindNull:
		return ""
	case model.KindBool:
		if c.Bool {
			return "true"
		}
		return "false"
	case model.KindInt:
		return strconv.FormatInt(c.Int, 10)
	case model.KindFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case model.KindText, model.KindTimestamp, model.KindJson:
		return c.Text
	case model.KindBinary:
		return hexEscape(c.Binary)
	case model.KindLargeText, model.KindLargeJson:
		return c.Preview
	case model.KindLargeBinary:
		return fmt.Sprintf("[%d bytes]", c.FullLen)
	default:
		return ""
	}
}

// hexEscape renders a byte slice as \xHH\xHH..., the binary projection used
// by both CSV and SQL export.
func hexEscape(b []byte) string {
	var sb strings.Builder
	for _, by := range b {
		fmt.Fprintf(&sb, `\x%02x`, by)
	}
	return sb.String()
}

// renderSQLLiteral renders a cell as a SQL value literal for INSERT
// statements: unquoted for null/bool/numbers, single-quoted with ''
// escaping for text/timestamp/json, and the same binary/large-cell
// projections CSV uses.
func renderSQLLiteral(c model.CellValue) string {
	switch c.Kind {
	case model.KindNull:
		return "NULL"
	case model.KindBool:
		if c.Bool {
			return "TRUE"
		}
		return "FALSE"
	case model.KindInt:
		return strconv.FormatInt(c.Int, 10)
	case model.KindFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case model.KindText, model.KindTimestamp, model.KindJson:
		return quoteSQLString(c.Text)
	case model.KindBinary:
		return quoteSQLString(hexEscape(c.Binary))
	case model.KindLargeText, model.KindLargeJson:
		return quoteSQLString(c.Preview)
	case model.KindLargeBinary:
		return quoteSQLString(fmt.Sprintf("[%d bytes]", c.FullLen))
	default:
		return "NULL"
	}
}

func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteAnsi ANSI double-quotes an identifier, the quoting convention every
// export/dump artifact uses regardless of the source dialect.
func quoteAnsi(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAnsiQualified(schema, name string) string {
	if schema == "" {
		return quoteAnsi(name)
	}
	return quoteAnsi(schema) + "." + quoteAnsi(name)
}
