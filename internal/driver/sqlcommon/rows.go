package sqlcommon

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/berbicanes/queryark/internal/model"
)

// RowsToResponse drains rows into a QueryResponse, converting each column
// generically via database/sql's Scan-into-interface{} plus a Go-kind
// switch — the database/sql analogue of the reference drivers' per-engine
// row-to-cell conversion, since Go's driver interface already normalizes
// wire types the way each engine's client library chooses to.
func RowsToResponse(rows *sql.Rows) (*model.QueryResponse, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]model.ColumnDef, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = model.ColumnDef{Name: ct.Name(), DataType: ct.DatabaseTypeName()}
	}

	var result [][]model.CellValue
	scanTargets := make([]interface{}, len(colTypes))
	scanValues := make([]interface{}, len(colTypes))
	for i := range scanTargets {
		scanTargets[i] = &scanValues[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}
		row := make([]model.CellValue, len(colTypes))
		for i, v := range scanValues {
			row[i] = goValueToCell(v)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &model.QueryResponse{
		Columns:  columns,
		Rows:     result,
		RowCount: len(result),
	}, nil
}

func goValueToCell(v interface{}) model.CellValue {
	switch val := v.(type) {
	case nil:
		return model.Null()
	case bool:
		return model.BoolValue(val)
	case int64:
		return model.IntValue(val)
	case int:
		return model.IntValue(int64(val))
	case float64:
		return model.FloatValue(val)
	case float32:
		return model.FloatValue(float64(val))
	case []byte:
		if looksLikeJSON(val) {
			return model.JsonValue(string(val))
		}
		return model.TextValue(string(val))
	case string:
		return model.TextValue(val)
	case time.Time:
		return model.TimestampValue(val.UTC().Format(time.RFC3339Nano))
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return model.Null()
		}
		return model.JsonValue(string(encoded))
	}
}

func looksLikeJSON(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}
