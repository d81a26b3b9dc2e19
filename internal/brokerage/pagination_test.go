package brokerage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berbicanes/queryark/internal/brokerage"
	"github.com/berbicanes/queryark/internal/model"
)

func TestIsPaginatable(t *testing.T) {
	assert.True(t, brokerage.IsPaginatable("SELECT * FROM users"))
	assert.True(t, brokerage.IsPaginatable("  select * from users;  "))
	assert.True(t, brokerage.IsPaginatable("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.True(t, brokerage.IsPaginatable("TABLE users"))
	assert.True(t, brokerage.IsPaginatable("VALUES (1), (2)"))
	assert.False(t, brokerage.IsPaginatable("UPDATE users SET x = 1"))
	assert.False(t, brokerage.IsPaginatable("DELETE FROM users"))
	assert.False(t, brokerage.IsPaginatable(""))
}

func TestWrapPageNonMSSQL(t *testing.T) {
	out, err := brokerage.WrapPage(model.PostgreSQL, "SELECT * FROM users", 50, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM users) AS _df_page LIMIT 50 OFFSET 100", out)
}

func TestWrapPageMSSQLWithoutOrderBy(t *testing.T) {
	out, err := brokerage.WrapPage(model.MSSQL, "SELECT * FROM users", 50, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users ORDER BY (SELECT NULL) OFFSET 100 ROWS FETCH NEXT 50 ROWS ONLY", out)
}

func TestWrapPageMSSQLPreservesExistingOrderBy(t *testing.T) {
	out, err := brokerage.WrapPage(model.MSSQL, "SELECT * FROM users ORDER BY id", 50, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users ORDER BY id OFFSET 100 ROWS FETCH NEXT 50 ROWS ONLY", out)
}

func TestWrapPageWithSortColumns(t *testing.T) {
	sorts := []model.SortColumn{{Column: "name", Direction: model.Descending}}
	out, err := brokerage.WrapPage(model.PostgreSQL, "SELECT * FROM users", 10, 0, sorts)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (SELECT * FROM users ORDER BY "name" DESC) AS _df_page LIMIT 10 OFFSET 0`, out)
}

func TestWrapPageRejectsNonPaginatable(t *testing.T) {
	_, err := brokerage.WrapPage(model.PostgreSQL, "DELETE FROM users", 10, 0, nil)
	assert.Error(t, err)
}

func TestWrapCount(t *testing.T) {
	out, err := brokerage.WrapCount("SELECT * FROM users WHERE active = true")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM users WHERE active = true) AS _df_cnt", out)
}

func TestWrapCountRejectsNonPaginatable(t *testing.T) {
	_, err := brokerage.WrapCount("INSERT INTO users VALUES (1)")
	assert.Error(t, err)
}
