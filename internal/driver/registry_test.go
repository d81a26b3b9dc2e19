package driver

import (
	"context"
	"testing"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSql struct{ Sql }

func (stubSql) Category() model.DatabaseCategory { return model.CategoryRelational }
func (stubSql) Close(ctx context.Context) error  { return nil }

func TestRegistryAddGet(t *testing.T) {
	r := NewRegistry()
	h := NewSqlHandle(stubSql{})
	r.Add("conn-1", h)

	got, err := r.Get("conn-1")
	require.NoError(t, err)
	assert.Equal(t, HandleSql, got.Kind)
}

func TestRegistryGetMissingReportsConnectionNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	require.Error(t, err)
	dbErr, ok := dberrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dberrors.CodeConnectionNotFound, dbErr.Code)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Add("conn-1", NewSqlHandle(stubSql{}))
	require.NoError(t, r.Remove("conn-1"))
	assert.Equal(t, 0, r.Len())

	err := r.Remove("conn-1")
	require.Error(t, err)
}

func TestHandleAsSqlRejectsWrongFamily(t *testing.T) {
	h := NewKeyValueHandle(nil)
	_, err := h.AsSql()
	require.Error(t, err)
	dbErr, ok := dberrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dberrors.CodeUnsupportedOperation, dbErr.Code)
}

func TestCancelRegistryRegisterAndCancel(t *testing.T) {
	c := NewCancelRegistry()
	cancelled := false
	_, cancel := context.WithCancel(context.Background())
	cleanup := c.Register("q-1", func() { cancelled = true; cancel() })
	defer cleanup()

	ok := c.Cancel("q-1")
	assert.True(t, ok)
	assert.True(t, cancelled)
}

func TestCancelRegistryCancelUnknownIsNoop(t *testing.T) {
	c := NewCancelRegistry()
	assert.False(t, c.Cancel("missing"))
}

func TestCancelRegistryCleanupRemovesEntry(t *testing.T) {
	c := NewCancelRegistry()
	cleanup := c.Register("q-2", func() {})
	cleanup()
	assert.False(t, c.Cancel("q-2"))
}
