package icartrepo

import (
	"context"

	"github.com/tableside/order/internal/service/models/cart"
)

// ICartRepository is the interface for cart storage.
type ICartRepository interface {
	// GetByTable loads the cart for (tableNumber, restaurantID) with its
	// lines. Returns errs.ErrCartNotFound when no cart row exists.
	GetByTable(ctx context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error)

	// GetOrCreate loads the cart, creating an empty row first if none
	// exists. At most one cart per (tableNumber, restaurantID) survives
	// concurrent creation.
	GetOrCreate(ctx context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error)

	// Save replaces the cart's lines and cached total in one atomic write
	// and bumps the cart version.
	Save(ctx context.Context, c *cart.Cart) error

	// ClearLines empties the cart keeping the row, guarded by the version
	// the caller loaded. Returns errs.ErrCartNotFound when the version
	// moved underneath the caller.
	ClearLines(ctx context.Context, cartID int64, fromVersion int64) error
}
