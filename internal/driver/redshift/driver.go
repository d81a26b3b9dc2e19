// Package redshift wraps internal/driver/postgres, since Redshift speaks the
// Postgres wire protocol and exposes an information_schema compatible
// enough for this interface (see redshift.rs's equivalent wrapper).
package redshift

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

// Category reports Redshift as an analytics engine; every other call is
// delegated to the Postgres driver.
func (d *Driver) Category() model.DatabaseCategory { return model.CategoryAnalytics }
