// Package scylladb wraps internal/driver/cassandra, since ScyllaDB is
// wire-compatible with Cassandra's CQL protocol and system_schema catalog.
package scylladb

import (
	"context"

	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/driver/cassandra"
	"github.com/berbicanes/queryark/internal/model"
)

type Driver struct {
	driver.Sql
}

var _ driver.Sql = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	inner, err := cassandra.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Driver{Sql: inner}, nil
}
