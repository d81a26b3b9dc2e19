package brokerage

import "github.com/berbicanes/queryark/internal/model"

// DefaultMaxRows is the row cap applied when execute_query's caller omits
// max_rows (§4.7(c)).
const DefaultMaxRows = 10000

// ApplyRowCap truncates resp in place to maxRows rows when the driver
// returned more: Truncated is set, MaxRowsLimit records the cap applied, and
// RowCount is rewritten to the cap (invariant 3, §8).
func ApplyRowCap(resp *model.QueryResponse, maxRows int) {
	if maxRows <= 0 || len(resp.Rows) <= maxRows {
		return
	}
	resp.Rows = resp.Rows[:maxRows]
	resp.RowCount = maxRows
	resp.Truncated = true
	limit := maxRows
	resp.MaxRowsLimit = &limit
}
