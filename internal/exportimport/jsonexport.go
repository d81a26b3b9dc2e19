package exportimport

import (
	"bufio"
	"context"
	"encoding/json"
	"os"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
)

// ExportJSON streams schema.table to path as a pretty-printed JSON array,
// one object per row keyed by column name, per §4.9 "JSON export".
func ExportJSON(ctx context.Context, sql driver.Sql, schema, table, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, dberrors.Database("failed to create export file", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.WriteString("[\n"); err != nil {
		return 0, dberrors.Database("failed to write JSON export", err)
	}

	var offset int64
	first := true
	for {
		page, err := sql.GetTableData(ctx, schema, table, PageSize, offset)
		if err != nil {
			return 0, err
		}
		for _, row := range page.Rows {
			obj := make(map[string]interface{}, len(page.Columns))
			for i, col := range page.Columns {
				if i < len(row) {
					obj[col.Name] = jsonCellValue(row[i])
				}
			}
			encoded, err := json.MarshalIndent(obj, "", "  ")
			if err != nil {
				return 0, dberrors.Serialization("failed to encode JSON row", err)
			}
			if !first {
				if _, err := writer.WriteString(",\n"); err != nil {
					return 0, dberrors.Database("failed to write JSON export", err)
				}
			}
			first = false
			if _, err := writer.Write(encoded); err != nil {
				return 0, dberrors.Database("failed to write JSON export", err)
			}
		}
		if len(page.Rows) < PageSize {
			break
		}
		offset += PageSize
	}

	if _, err := writer.WriteString("\n]\n"); err != nil {
		return 0, dberrors.Database("failed to write JSON export", err)
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
