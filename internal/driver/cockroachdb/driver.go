// Package cockroachdb wraps internal/driver/postgres, since CockroachDB
// speaks the Postgres wire protocol and exposes the same information_schema
// views (see cockroachdb.rs's equivalent wrapper in the original).
package cockroachdb

import (
	"context"

	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/driver/postgres"
	"github.com/berbicanes/queryark/internal/model"
)

type Driver struct {
	driver.Sql
}

var _ driver.Sql = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	inner, err := postgres.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Driver{Sql: inner}, nil
}
