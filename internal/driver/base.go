// Package driver defines the capability-interface surface every database
// engine implements: one Base interface required of all seventeen drivers,
// plus the four family extensions (Sql, Document, KeyValue, Graph) that a
// concrete driver layers on top of Base according to its DatabaseCategory.
package driver

import (
	"context"

	"github.com/berbicanes/queryark/internal/model"
)

// Base is implemented by every one of the seventeen drivers. It covers the
// generic container/item addressing scheme that lets the brokerage surface
// a uniform "browse" UX across relational schemas, document collections,
// key-value namespaces, and graph labels alike.
type Base interface {
	Category() model.DatabaseCategory

	ExecuteRaw(ctx context.Context, query string) (*model.QueryResponse, error)

	GetContainers(ctx context.Context) ([]model.ContainerInfo, error)
	GetItems(ctx context.Context, container string) ([]model.ItemInfo, error)
	GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error)
	GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error)
	GetItemCount(ctx context.Context, container, item string) (int64, error)

	// Close releases the underlying connection/pool. Idempotent.
	Close(ctx context.Context) error
}
