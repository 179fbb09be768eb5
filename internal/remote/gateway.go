// Package remote abstracts the backend document store. The engine only
// talks to it when the probe reports online; everything here must
// tolerate being called against a backend that just went away.
package remote

import (
	"context"

	"kapesync/internal/model"
)

// Collection names on the remote store.
const (
	CollectionItems      = "items"
	CollectionCategories = "categories"
	CollectionCups       = "cups"
	CollectionOrders     = "orders"
)

// Gateway is the client-side contract the sync engine requires of the
// remote document store.
//
// Create* calls are upserts keyed by the client-generated id, so a
// replayed mutation whose document already exists (a prior attempt
// partially succeeded) never creates a duplicate. They return the
// remote-assigned document id, which the coordinator backfills into
// the local record.
//
// Every call carries a bounded timeout; a timeout is reported the same
// way as any other network error.
type Gateway interface {
	// Ping reports whether the backend is reachable right now.
	Ping(ctx context.Context) error

	CreateItem(ctx context.Context, it model.CatalogItem) (string, error)
	UpdateItem(ctx context.Context, it model.CatalogItem) error
	DeleteItem(ctx context.Context, id string) error
	// ActiveItems returns items where status = true.
	ActiveItems(ctx context.Context) ([]model.CatalogItem, error)

	CreateCategory(ctx context.Context, c model.Category) (string, error)
	UpdateCategory(ctx context.Context, c model.Category) error
	DeleteCategory(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]model.Category, error)

	CreateCup(ctx context.Context, c model.CupType) (string, error)
	UpdateCup(ctx context.Context, c model.CupType) error
	DeleteCup(ctx context.Context, id string) error
	Cups(ctx context.Context) ([]model.CupType, error)

	CreateOrder(ctx context.Context, o model.Order) (string, error)
	UpdateOrder(ctx context.Context, o model.Order) error
	// OrdersByStatus returns orders whose status is any of the given
	// values, oldest first.
	OrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error)
}
