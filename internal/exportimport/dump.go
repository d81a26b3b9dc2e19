package exportimport

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/model"
)

// DumpProgress is emitted once per table completion during Dump, per §4.9
// "SQL export and dump".
type DumpProgress struct {
	Schema      string
	Table       string
	TablesDone  int
	TablesTotal int
	RowsDumped  int64
}

// DumpTarget names one table to dump, with the metadata GenerateDDL needs
// already resolved by the caller.
type DumpTarget struct {
	Schema      string
	Table       string
	Columns     []model.ColumnInfo
	Indexes     []model.IndexInfo
	ForeignKeys []model.ForeignKeyInfo
}

// Dump writes a schema-then-data SQL dump of targets to path: a header
// comment naming the tool, a UTC timestamp, the schema list, and the mode,
// followed by every table's DDL, then every table's data, reporting
// progress through onProgress after each table's data phase completes.
func Dump(ctx context.Context, sql driver.Sql, targets []DumpTarget, path string, onProgress func(DumpProgress)) error {
	file, err := os.Create(path)
	if err != nil {
		return dberrors.Database("failed to create dump file", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := writeDumpHeader(writer, targets); err != nil {
		return err
	}

	for _, t := range targets {
		ddl := GenerateDDL(t.Schema, t.Table, t.Columns, t.Indexes, t.ForeignKeys)
		if _, err := writer.WriteString(ddl); err != nil {
			return dberrors.Database("failed to write DDL", err)
		}
		if _, err := writer.WriteString("\n"); err != nil {
			return dberrors.Database("failed to write DDL", err)
		}
	}

	for i, t := range targets {
		rowsDumped, err := writeTableInserts(ctx, writer, sql, t.Schema, t.Table)
		if err != nil {
			return err
		}

		if onProgress != nil {
			onProgress(DumpProgress{
				Schema:      t.Schema,
				Table:       t.Table,
				TablesDone:  i + 1,
				TablesTotal: len(targets),
				RowsDumped:  rowsDumped,
			})
		}
	}

	if err := writer.Flush(); err != nil {
		return dberrors.Database("failed to flush dump file", err)
	}
	return nil
}

func writeDumpHeader(writer *bufio.Writer, targets []DumpTarget) error {
	schemas := uniqueSchemas(targets)
	header := fmt.Sprintf("-- QueryArk dump\n-- generated %s\n-- schemas: %s\n-- mode: schema+data\n\n",
		time.Now().UTC().Format(time.RFC3339), joinSchemas(schemas))
	_, err := writer.WriteString(header)
	if err != nil {
		return dberrors.Database("failed to write dump header", err)
	}
	return nil
}

func uniqueSchemas(targets []DumpTarget) []string {
	seen := make(map[string]bool)
	var schemas []string
	for _, t := range targets {
		if !seen[t.Schema] {
			seen[t.Schema] = true
			schemas = append(schemas, t.Schema)
		}
	}
	return schemas
}

func joinSchemas(schemas []string) string {
	if len(schemas) == 0 {
		return "(none)"
	}
	out := schemas[0]
	for _, s := range schemas[1:] {
		out += ", " + s
	}
	return out
}
