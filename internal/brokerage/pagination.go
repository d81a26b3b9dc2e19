package brokerage

import (
	"fmt"
	"strings"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/model"
)

var paginatablePrefixes = []string{"SELECT", "WITH", "TABLE", "VALUES"}

// IsPaginatable reports whether sqlText's leading keyword (case-folded,
// trimmed, trailing semicolon stripped) is one of SELECT/WITH/TABLE/VALUES
// (§4.7(d), glossary "Paginatable").
func IsPaginatable(sqlText string) bool {
	return leadingKeyword(sqlText) != ""
}

func leadingKeyword(sqlText string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(sqlText), ";")
	trimmed = strings.TrimSpace(trimmed)
	upper := strings.ToUpper(trimmed)
	for _, p := range paginatablePrefixes {
		if upper == p || strings.HasPrefix(upper, p+" ") || strings.HasPrefix(upper, p+"\n") || strings.HasPrefix(upper, p+"\t") {
			return p
		}
	}
	return ""
}

// WrapPage rewrites sqlText into a page query per §4.7(d): optional ORDER BY
// columns are appended inside the body before wrapping; MSSQL gets its
// native OFFSET/FETCH form, every other dialect gets the SELECT * FROM
// (...) AS _df_page LIMIT/OFFSET wrapper.
func WrapPage(dbType model.DatabaseType, sqlText string, limit, offset int64, sortColumns []model.SortColumn) (string, error) {
	if !IsPaginatable(sqlText) {
		return "", dberrors.InvalidConfig("query is not paginatable")
	}

	body := strings.TrimSuffix(strings.TrimSpace(sqlText), ";")
	body = appendSortColumns(body, sortColumns)

	if dbType == model.MSSQL {
		if !strings.Contains(strings.ToUpper(body), "ORDER BY") {
			body += " ORDER BY (SELECT NULL)"
		}
		return fmt.Sprintf("%s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", body, offset, limit), nil
	}

	return fmt.Sprintf("SELECT * FROM (%s) AS _df_page LIMIT %d OFFSET %d", body, limit, offset), nil
}

func appendSortColumns(body string, sortColumns []model.SortColumn) string {
	if len(sortColumns) == 0 {
		return body
	}
	var terms []string
	for _, s := range sortColumns {
		dir := model.Ascending
		if s.Direction == model.Descending {
			dir = model.Descending
		}
		terms = append(terms, fmt.Sprintf(`"%s" %s`, strings.ReplaceAll(s.Column, `"`, `""`), dir))
	}
	return body + " ORDER BY " + strings.Join(terms, ", ")
}

// WrapCount rewrites sqlText into a row-count query, the companion to
// WrapPage used by count_query_rows. Non-paginatable bodies fail with
// InvalidConfig per §4.7(d).
func WrapCount(sqlText string) (string, error) {
	if !IsPaginatable(sqlText) {
		return "", dberrors.InvalidConfig("query is not paginatable")
	}
	body := strings.TrimSuffix(strings.TrimSpace(sqlText), ";")
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS _df_cnt", body), nil
}

// WrapFullCell rewrites sqlText into a single-column, single-row query that
// fetches the untruncated value of column at rowOffset, the engine behind
// fetch_full_cell.
func WrapFullCell(dbType model.DatabaseType, sqlText, column string, rowOffset int64) (string, error) {
	if !IsPaginatable(sqlText) {
		return "", dberrors.InvalidConfig("query is not paginatable")
	}
	body := strings.TrimSuffix(strings.TrimSpace(sqlText), ";")
	quotedCol := `"` + strings.ReplaceAll(column, `"`, `""`) + `"`
	projected := fmt.Sprintf("SELECT %s FROM (%s) AS _df_cell", quotedCol, body)
	return WrapPage(dbType, projected, 1, rowOffset, nil)
}
