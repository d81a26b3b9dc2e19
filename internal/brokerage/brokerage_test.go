package brokerage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berbicanes/queryark/internal/brokerage"
	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/model"
)

// fakeBase is a minimal driver.Base stand-in letting ExecuteRaw be
// controlled per test without standing up a real engine.
type fakeBase struct {
	execute func(ctx context.Context, query string) (*model.QueryResponse, error)
}

func (f *fakeBase) Category() model.DatabaseCategory { return model.CategoryRelational }
func (f *fakeBase) ExecuteRaw(ctx context.Context, query string) (*model.QueryResponse, error) {
	return f.execute(ctx, query)
}
func (f *fakeBase) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) { return nil, nil }
func (f *fakeBase) GetItems(ctx context.Context, container string) ([]model.ItemInfo, error) {
	return nil, nil
}
func (f *fakeBase) GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error) {
	return nil, nil
}
func (f *fakeBase) GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	return nil, nil
}
func (f *fakeBase) GetItemCount(ctx context.Context, container, item string) (int64, error) {
	return 0, nil
}
func (f *fakeBase) Close(ctx context.Context) error { return nil }

var _ driver.Base = (*fakeBase)(nil)

func TestExecuteQueryAppliesRowCap(t *testing.T) {
	rows := make([][]model.CellValue, 5)
	for i := range rows {
		rows[i] = []model.CellValue{model.IntValue(int64(i))}
	}
	base := &fakeBase{execute: func(ctx context.Context, query string) (*model.QueryResponse, error) {
		return &model.QueryResponse{Rows: rows, RowCount: len(rows)}, nil
	}}

	b := brokerage.New(driver.NewCancelRegistry(), nil)
	resp, err := b.ExecuteQuery(context.Background(), base, "SELECT * FROM t", brokerage.ExecuteOptions{MaxRows: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Rows, 3)
	assert.True(t, resp.Truncated)
}

func TestExecuteQueryTimesOut(t *testing.T) {
	base := &fakeBase{execute: func(ctx context.Context, query string) (*model.QueryResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	b := brokerage.New(driver.NewCancelRegistry(), nil)
	_, err := b.ExecuteQuery(context.Background(), base, "SELECT 1", brokerage.ExecuteOptions{TimeoutSecs: 1})
	require.Error(t, err)
	dbErr, ok := dberrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dberrors.CodeQueryTimeout, dbErr.Code)
}

func TestExecuteQueryCancellation(t *testing.T) {
	release := make(chan struct{})
	base := &fakeBase{execute: func(ctx context.Context, query string) (*model.QueryResponse, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return &model.QueryResponse{}, nil
		}
	}}

	cancels := driver.NewCancelRegistry()
	b := brokerage.New(cancels, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := b.ExecuteQuery(context.Background(), base, "SELECT 1", brokerage.ExecuteOptions{TimeoutSecs: 30, QueryID: "q1"})
		errCh <- err
	}()

	require.Eventually(t, func() bool { return cancels.Cancel("q1") }, time.Second, time.Millisecond)

	err := <-errCh
	require.Error(t, err)
	dbErr, ok := dberrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dberrors.CodeQueryCancelled, dbErr.Code)
	close(release)
}

func TestCountQueryRows(t *testing.T) {
	base := &fakeBase{execute: func(ctx context.Context, query string) (*model.QueryResponse, error) {
		assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM t) AS _df_cnt", query)
		return &model.QueryResponse{Rows: [][]model.CellValue{{model.IntValue(42)}}}, nil
	}}

	b := brokerage.New(driver.NewCancelRegistry(), nil)
	count, err := b.CountQueryRows(context.Background(), base, "SELECT * FROM t")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestFetchFullCell(t *testing.T) {
	base := &fakeBase{execute: func(ctx context.Context, query string) (*model.QueryResponse, error) {
		return &model.QueryResponse{Rows: [][]model.CellValue{{model.TextValue("full value")}}}, nil
	}}

	b := brokerage.New(driver.NewCancelRegistry(), nil)
	cell, err := b.FetchFullCell(context.Background(), base, model.PostgreSQL, "SELECT * FROM t", "description", 7)
	require.NoError(t, err)
	assert.Equal(t, "full value", cell.Text)
}

func TestCancelQueryUnknownIDIsNoop(t *testing.T) {
	b := brokerage.New(driver.NewCancelRegistry(), nil)
	assert.False(t, b.CancelQuery("does-not-exist"))
}
