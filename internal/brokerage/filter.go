package brokerage

import (
	"fmt"
	"strings"

	"github.com/berbicanes/queryark/internal/model"
)

// BuildWhereClause renders filters as a " WHERE ..." suffix (including the
// leading space), per §4.7(e) and the §8 boundary scenario. Operators
// outside the closed set are silently dropped (invariant 5); contains/
// starts_with become LIKE with %-escaping; is_null/is_not_null ignore the
// value. Returns "" when no filter survives.
func BuildWhereClause(filters []model.FilterCondition) string {
	var clauses []string
	for _, f := range filters {
		clause, ok := renderFilter(f)
		if ok {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func renderFilter(f model.FilterCondition) (string, bool) {
	col := quoteColumn(f.Column)

	switch f.Operator {
	case model.OpEq:
		return fmt.Sprintf("%s = '%s'", col, escape(f.Value)), true
	case model.OpNeq:
		return fmt.Sprintf("%s != '%s'", col, escape(f.Value)), true
	case model.OpGt:
		return fmt.Sprintf("%s > '%s'", col, escape(f.Value)), true
	case model.OpGte:
		return fmt.Sprintf("%s >= '%s'", col, escape(f.Value)), true
	case model.OpLt:
		return fmt.Sprintf("%s < '%s'", col, escape(f.Value)), true
	case model.OpLte:
		return fmt.Sprintf("%s <= '%s'", col, escape(f.Value)), true
	case model.OpContains:
		return fmt.Sprintf("%s LIKE '%%%s%%'", col, escapeLike(f.Value)), true
	case model.OpStartsWith:
		return fmt.Sprintf("%s LIKE '%s%%'", col, escapeLike(f.Value)), true
	case model.OpIsNull:
		return fmt.Sprintf("%s IS NULL", col), true
	case model.OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", col), true
	default:
		return "", false
	}
}

// quoteColumn applies the ANSI double-quote convention the filter
// translator uses regardless of target dialect; the SQL body it's spliced
// into is still subject to the driver's own dialect at execution time.
func quoteColumn(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// escape doubles embedded single quotes, the minimal literal-escaping the
// §8 boundary scenario (`o'b` → `o''b`) exercises.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// escapeLike escapes the LIKE wildcard characters in addition to the quote,
// so a literal "%"/"_" in a contains/starts_with value isn't treated as a
// wildcard by the engine.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return escape(s)
}
