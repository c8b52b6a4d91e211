package icatalogrepo

import (
	"context"

	"github.com/tableside/order/internal/service/models/catalog"
)

// ICatalogRepository is the catalog lookup contract consumed by the cart
// and order services.
type ICatalogRepository interface {
	// Lookup returns a single menu item regardless of restaurant, so
	// callers can distinguish a deleted item from a cross-restaurant
	// reference. Returns errs.ErrItemUnavailable when the item does not
	// exist.
	Lookup(ctx context.Context, menuItemID int64) (catalog.Item, error)

	// Resolve returns current price and availability for the given menu
	// items of one restaurant. Ids that do not resolve are simply absent
	// from the result, not an error.
	Resolve(ctx context.Context, restaurantID int64, menuItemIDs []int64) (map[int64]catalog.Item, error)
}
