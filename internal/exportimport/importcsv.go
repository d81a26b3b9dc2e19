package exportimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
)

// maxRetainedErrors caps the per-row error strings ImportCSV keeps, per
// §4.9 "CSV import".
const maxRetainedErrors = 10

// ImportResult tallies the outcome of ImportCSV.
type ImportResult struct {
	RowsImported int
	RowsFailed   int
	Errors       []string
}

// ImportCSV reads path and calls sql.InsertRow once per data row, pairing
// the first min(len(columns), len(row)) values with the resolved column
// names. When hasHeader is false, column names are fetched from the live
// schema instead of the file's first line.
func ImportCSV(ctx context.Context, sql driver.Sql, schema, table, path string, hasHeader bool) (*ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, dberrors.Database("failed to open import file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var columns []string
	if hasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, dberrors.Database("failed to read CSV header", err)
		}
		columns = header
	} else {
		cols, err := sql.GetColumns(ctx, schema, table)
		if err != nil {
			return nil, err
		}
		columns = make([]string, len(cols))
		for i, c := range cols {
			columns[i] = c.Name
		}
	}

	result := &ImportResult{}
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.RowsFailed++
			result.appendError(fmt.Sprintf("row %d: %v", rowNum, err))
			rowNum++
			continue
		}

		n := len(columns)
		if len(record) < n {
			n = len(record)
		}
		if err := sql.InsertRow(ctx, schema, table, columns[:n], record[:n]); err != nil {
			result.RowsFailed++
			result.appendError(fmt.Sprintf("row %d: %v", rowNum, err))
		} else {
			result.RowsImported++
		}
		rowNum++
	}

	return result, nil
}

func (r *ImportResult) appendError(msg string) {
	if len(r.Errors) < maxRetainedErrors {
		r.Errors = append(r.Errors, msg)
	}
}
