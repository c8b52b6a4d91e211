package iorderrepo

import (
	"context"

	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/service/models/status"
)

// IOrderRepository is the interface for order storage.
type IOrderRepository interface {
	// Insert persists a new order with its lines and returns it with
	// generated ids and timestamps. Returns errs.ErrDuplicateOrder when
	// the idempotency key is already taken.
	Insert(ctx context.Context, o order.Order) (*order.Order, error)

	// GetByID loads an order scoped to a restaurant. Returns
	// errs.ErrNotFound on a miss or a cross-restaurant id.
	GetByID(ctx context.Context, orderID int64, restaurantID int64) (*order.Order, error)

	// GetByIdempotencyKey returns the order previously created under key,
	// if any.
	GetByIdempotencyKey(ctx context.Context, key string) (*order.Order, bool, error)

	// ListByRestaurant returns all orders for a restaurant, newest first.
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]order.Order, error)

	// ListByTable returns all orders for one table at a restaurant,
	// newest first.
	ListByTable(ctx context.Context, tableNumber int, restaurantID int64) ([]order.Order, error)

	// UpdateStatus persists a new status for an order belonging to
	// restaurantID and returns the updated order with lines. Returns
	// errs.ErrNotFound when the order is missing or owned by another
	// restaurant.
	UpdateStatus(ctx context.Context, orderID int64, restaurantID int64, newStatus status.Status) (*order.Order, error)
}
