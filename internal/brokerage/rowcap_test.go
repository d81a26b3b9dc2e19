package brokerage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berbicanes/queryark/internal/brokerage"
	"github.com/berbicanes/queryark/internal/model"
)

func TestApplyRowCapTruncates(t *testing.T) {
	resp := &model.QueryResponse{
		Rows:     make([][]model.CellValue, 12),
		RowCount: 12,
	}

	brokerage.ApplyRowCap(resp, 10)

	assert.Len(t, resp.Rows, 10)
	assert.Equal(t, 10, resp.RowCount)
	assert.True(t, resp.Truncated)
	require.NotNil(t, resp.MaxRowsLimit)
	assert.Equal(t, 10, *resp.MaxRowsLimit)
}

func TestApplyRowCapNoopWhenUnderLimit(t *testing.T) {
	resp := &model.QueryResponse{
		Rows:     make([][]model.CellValue, 3),
		RowCount: 3,
	}

	brokerage.ApplyRowCap(resp, brokerage.DefaultMaxRows)

	assert.Len(t, resp.Rows, 3)
	assert.False(t, resp.Truncated)
	assert.Nil(t, resp.MaxRowsLimit)
}
