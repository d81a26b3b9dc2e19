package exportimport

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
)

// ExportSQL streams schema.table to path as a sequence of INSERT
// statements, per §4.9 "SQL export and dump". Identifiers are always
// ANSI double-quoted, independent of the source dialect, so a dump file is
// portable regardless of which engine produced it.
func ExportSQL(ctx context.Context, sql driver.Sql, schema, table, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, dberrors.Database("failed to create export file", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writeTableInserts(ctx, writer, sql, schema, table); err != nil {
		return 0, err
	}
	if err := writer.Flush(); err != nil {
		return 0, dberrors.Database("failed to flush export file", err)
	}

	info, err := file.Stat()
	if err != nil {
		return 0, dberrors.Database("failed to stat export file", err)
	}
	return info.Size(), nil
}

// writeTableInserts pages through schema.table and emits one INSERT
// statement per row to writer, sharing implementation with the data phase
// of dump.go. Returns the number of rows written.
func writeTableInserts(ctx context.Context, writer *bufio.Writer, sql driver.Sql, schema, table string) (int64, error) {
	qualified := quoteAnsiQualified(schema, table)

	var offset, rowsWritten int64
	for {
		page, err := sql.GetTableData(ctx, schema, table, PageSize, offset)
		if err != nil {
			return rowsWritten, err
		}
		colNames := make([]string, len(page.Columns))
		for i, col := range page.Columns {
			colNames[i] = quoteAnsi(col.Name)
		}
		cols := strings.Join(colNames, ", ")

		for _, row := range page.Rows {
			values := make([]string, len(row))
			for i, cell := range row {
				values[i] = renderSQLLiteral(cell)
			}
			stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);\n", qualified, cols, strings.Join(values, ", "))
			if _, err := writer.WriteString(stmt); err != nil {
				return rowsWritten, dberrors.Database("failed to write INSERT statement", err)
			}
			rowsWritten++
		}

		if len(page.Rows) < PageSize {
			return rowsWritten, nil
		}
		offset += PageSize
	}
}
