package brokerage

import "github.com/berbicanes/queryark/internal/model"

// ApplyCellSizeCap rewrites every Text/Json/Binary cell in resp whose length
// exceeds maxCellSize into its Large* counterpart, carrying the original
// length and a preview (first maxCellSize characters for text/json, just
// the length metadata for binary), per §4.7(c).
func ApplyCellSizeCap(resp *model.QueryResponse, maxCellSize int) {
	if maxCellSize <= 0 {
		return
	}
	for _, row := range resp.Rows {
		for i := range row {
			row[i] = capCell(row[i], maxCellSize)
		}
	}
}

func capCell(c model.CellValue, maxCellSize int) model.CellValue {
	switch c.Kind {
	case model.KindText:
		if len(c.Text) > maxCellSize {
			return model.LargeText(preview(c.Text, maxCellSize), len(c.Text))
		}
	case model.KindJson:
		if len(c.Text) > maxCellSize {
			return model.LargeJson(preview(c.Text, maxCellSize), len(c.Text))
		}
	case model.KindBinary:
		if len(c.Binary) > maxCellSize {
			return model.LargeBinary(maxCellSize, len(c.Binary))
		}
	}
	return c
}

// preview returns the first n characters (runes) of s.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
