package brokerage_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/berbicanes/queryark/internal/brokerage"
	"github.com/berbicanes/queryark/internal/model"
)

func TestApplyCellSizeCapRewritesOversizedText(t *testing.T) {
	text := strings.Repeat("a", 4099)
	resp := &model.QueryResponse{Rows: [][]model.CellValue{{model.TextValue(text)}}}

	brokerage.ApplyCellSizeCap(resp, 4096)

	cell := resp.Rows[0][0]
	assert.Equal(t, model.KindLargeText, cell.Kind)
	assert.Equal(t, strings.Repeat("a", 4096), cell.Preview)
	assert.Equal(t, 4099, cell.FullLen)
}

func TestApplyCellSizeCapLeavesSmallCellsAlone(t *testing.T) {
	resp := &model.QueryResponse{Rows: [][]model.CellValue{{model.TextValue("short")}}}

	brokerage.ApplyCellSizeCap(resp, 4096)

	assert.Equal(t, model.KindText, resp.Rows[0][0].Kind)
	assert.Equal(t, "short", resp.Rows[0][0].Text)
}

func TestApplyCellSizeCapRewritesBinaryWithoutPreviewBytes(t *testing.T) {
	resp := &model.QueryResponse{Rows: [][]model.CellValue{{model.BinaryValue(make([]byte, 100))}}}

	brokerage.ApplyCellSizeCap(resp, 50)

	cell := resp.Rows[0][0]
	assert.Equal(t, model.KindLargeBinary, cell.Kind)
	assert.Equal(t, 50, cell.PreviewLn)
	assert.Equal(t, 100, cell.FullLen)
}

func TestApplyCellSizeCapDisabledWhenZero(t *testing.T) {
	text := strings.Repeat("a", 10000)
	resp := &model.QueryResponse{Rows: [][]model.CellValue{{model.TextValue(text)}}}

	brokerage.ApplyCellSizeCap(resp, 0)

	assert.Equal(t, model.KindText, resp.Rows[0][0].Kind)
}
