// Package mariadb wraps internal/driver/mysql, since MariaDB is
// wire-compatible with MySQL for everything the Sql interface needs (see
// mariadb.rs's equivalent MariaDbDriver wrapper). Embedding driver.Sql as
// an interface field promotes every method automatically — there is no
// forwarding boilerplate to hand-write the way the Rust trait impl needs.
package mariadb

import (
	"context"

	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/driver/mysql"
	"github.com/berbicanes/queryark/internal/model"
)

type Driver struct {
	driver.Sql
}

var _ driver.Sql = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	inner, err := mysql.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Driver{Sql: inner}, nil
}
