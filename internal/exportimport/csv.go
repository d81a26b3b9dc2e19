package exportimport

import (
	"bufio"
	"context"
	"encoding/csv"
	"os"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
)

// ExportCSV streams schema.table to path as CSV, paging PageSize rows at a
// time through sql's GetTableData, and returns the file size written.
func ExportCSV(ctx context.Context, sql driver.Sql, schema, table, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, dberrors.Database("failed to create export file", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	csvWriter := csv.NewWriter(writer)

	var offset int64
	headerWritten := false
	for {
		page, err := sql.GetTableData(ctx, schema, table, PageSize, offset)
		if err != nil {
			return 0, err
		}
		if !headerWritten {
			header := make([]string, len(page.Columns))
			for i, col := range page.Columns {
				header[i] = col.Name
			}
			if err := csvWriter.Write(header); err != nil {
				return 0, dberrors.Database("failed to write CSV header", err)
			}
			headerWritten = true
		}
		for _, row := range page.Rows {
			record := make([]string, len(row))
			for i, cell := range row {
				record[i] = renderCSVCell(cell)
			}
			if err := csvWriter.Write(record); err != nil {
				return 0, dberrors.Database("failed to write CSV row", err)
			}
		}
		if len(page.Rows) < PageSize {
			break
		}
		offset += PageSize
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return 0, dberrors.Database("failed to flush CSV writer", err)
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
