package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tableside/order/internal/dal/interfaces/icartrepo"
	"github.com/tableside/order/internal/dal/interfaces/icatalogrepo"
	"github.com/tableside/order/internal/dal/interfaces/iorderrepo"
	"github.com/tableside/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/tableside/order/internal/dal/postgres"
	"github.com/tableside/order/internal/dal/uow"
	"github.com/tableside/order/internal/realtime"
	"github.com/tableside/order/internal/service/cartlock"
	"github.com/tableside/order/internal/service/errs"
	"github.com/tableside/order/internal/service/models/event"
	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/service/models/orderline"
	"github.com/tableside/order/internal/service/models/outbox"
	"github.com/tableside/order/internal/service/models/status"
)

// broadcaster is the only capability the order service needs from the
// real-time layer: fan an event out to a group, best effort.
type broadcaster interface {
	Broadcast(group realtime.Group, eventName string, payload any) int
}

// unitOfWork is the transactional boundary of order placement and status
// updates.
type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CartRepository() icartrepo.ICartRepository
	OrderRepository() iorderrepo.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// OrderService converts carts into immutable order snapshots, manages
// their lifecycle status and triggers notification fan-out.
type OrderService struct {
	uowFactory  func() unitOfWork
	orders      iorderrepo.IOrderRepository
	catalog     icatalogrepo.ICatalogRepository
	broadcaster broadcaster
	locks       *cartlock.Locker
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		locks: cartlock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.uowFactory == nil || s.orders == nil || s.catalog == nil || s.broadcaster == nil {
		panic("ordersvc: unit of work, order and catalog repositories, and broadcaster are required")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.uowFactory = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory overrides the unit-of-work factory, used by tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.uowFactory = factory
	}
}

// WithOrderRepository sets the repository used for reads outside a
// transaction.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(orders iorderrepo.IOrderRepository) option {
	return func(s *OrderService) {
		s.orders = orders
	}
}

// WithCatalogRepository sets the catalog repository for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCatalogRepository(catalog icatalogrepo.ICatalogRepository) option {
	return func(s *OrderService) {
		s.catalog = catalog
	}
}

// WithBroadcaster sets the real-time broadcaster for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBroadcaster(b broadcaster) option {
	return func(s *OrderService) {
		s.broadcaster = b
	}
}

// WithCartLocker sets the per-cart locker shared with the cart service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCartLocker(locks *cartlock.Locker) option {
	return func(s *OrderService) {
		s.locks = locks
	}
}

// PlaceOrder converts the cart for (tableNumber, restaurantID) into an
// immutable order. Every line's price is re-resolved from the catalog at
// this moment; the cart's cached total is deliberately not trusted. The
// order insert, the cart clear and the outbox write commit in one
// transaction, so either the order exists and the cart is empty, or
// neither. A repeated idempotencyKey returns the originally created order
// instead of placing a duplicate.
func (s *OrderService) PlaceOrder(
	ctx context.Context,
	tableNumber int,
	restaurantID int64,
	idempotencyKey string,
) (*order.Order, error) {
	if tableNumber <= 0 {
		return nil, fmt.Errorf("%w: a numeric table number is required", errs.ErrValidation)
	}
	if restaurantID <= 0 {
		return nil, fmt.Errorf("%w: restaurant id is required", errs.ErrValidation)
	}

	if idempotencyKey != "" {
		if existing, found, err := s.orders.GetByIdempotencyKey(ctx, idempotencyKey); err != nil {
			return nil, err
		} else if found {
			return existing, nil
		}
	}

	unlock := s.locks.Lock(cartlock.Key{TableNumber: tableNumber, RestaurantID: restaurantID})
	defer unlock()

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = work.Rollback()
	}()

	c, err := work.CartRepository().GetByTable(ctx, tableNumber, restaurantID)
	if errors.Is(err, errs.ErrCartNotFound) {
		return nil, errs.ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, errs.ErrEmptyCart
	}

	itemIDs := make([]int64, 0, len(c.Lines))
	for _, line := range c.Lines {
		itemIDs = append(itemIDs, line.MenuItemID)
	}
	resolved, err := s.catalog.Resolve(ctx, restaurantID, itemIDs)
	if err != nil {
		return nil, err
	}

	// Placement is strict: a vanished item must not silently disappear
	// from a placed order the way it is zeroed out of the live total.
	lines := make([]orderline.OrderLine, 0, len(c.Lines))
	var total int64
	for _, line := range c.Lines {
		item, ok := resolved[line.MenuItemID]
		if !ok {
			return nil, fmt.Errorf("%w: menu item %d", errs.ErrStaleCartItem, line.MenuItemID)
		}
		lines = append(lines, orderline.OrderLine{
			MenuItemID:        line.MenuItemID,
			Name:              item.Name,
			Quantity:          line.Quantity,
			Notes:             line.Notes,
			PriceAtOrderCents: item.PriceCents,
		})
		total += item.PriceCents * int64(line.Quantity)
	}

	placed, err := work.OrderRepository().Insert(ctx, order.Order{
		TableNumber:     tableNumber,
		RestaurantID:    restaurantID,
		TotalPriceCents: total,
		Status:          status.StatusPending,
		IdempotencyKey:  idempotencyKey,
		Lines:           lines,
	})
	if errors.Is(err, errs.ErrDuplicateOrder) && idempotencyKey != "" {
		// A concurrent placement with the same key won the race; return
		// its order so the retry observes a single placement.
		_ = work.Rollback()
		existing, found, lookupErr := s.orders.GetByIdempotencyKey(ctx, idempotencyKey)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if found {
			return existing, nil
		}

		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err := work.CartRepository().ClearLines(ctx, c.ID, c.Version); err != nil {
		return nil, err
	}

	if err := s.enqueueEvent(ctx, work, event.NewOrder, event.RoutingKeyCreated, placed); err != nil {
		return nil, err
	}

	if err := work.Commit(); err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(realtime.AdminGroup(restaurantID), event.NewOrder, placed)

	return placed, nil
}

// ListOrders returns all orders for a restaurant, newest first.
func (s *OrderService) ListOrders(ctx context.Context, restaurantID int64) ([]order.Order, error) {
	if restaurantID <= 0 {
		return nil, fmt.Errorf("%w: restaurant id is required", errs.ErrValidation)
	}

	return s.orders.ListByRestaurant(ctx, restaurantID)
}

// ListOrdersByTable returns all orders for one table at a restaurant,
// newest first.
func (s *OrderService) ListOrdersByTable(
	ctx context.Context,
	tableNumber int,
	restaurantID int64,
) ([]order.Order, error) {
	if tableNumber <= 0 {
		return nil, fmt.Errorf("%w: a numeric table number is required", errs.ErrValidation)
	}
	if restaurantID <= 0 {
		return nil, fmt.Errorf("%w: restaurant id is required", errs.ErrValidation)
	}

	return s.orders.ListByTable(ctx, tableNumber, restaurantID)
}

// UpdateStatus persists a new lifecycle status for an order belonging to
// restaurantID and notifies the table that placed it. Any enumerated
// status may follow any other: the dashboard allows free reassignment, so
// no forward-only progression is enforced here.
func (s *OrderService) UpdateStatus(
	ctx context.Context,
	orderID int64,
	restaurantID int64,
	rawStatus string,
) (*order.Order, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("%w: order id is required", errs.ErrValidation)
	}
	if restaurantID <= 0 {
		return nil, fmt.Errorf("%w: restaurant id is required", errs.ErrValidation)
	}

	newStatus, err := status.ParseStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, err)
	}

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = work.Rollback()
	}()

	updated, err := work.OrderRepository().UpdateStatus(ctx, orderID, restaurantID, newStatus)
	if err != nil {
		return nil, err
	}

	if err := s.enqueueEvent(ctx, work, event.OrderStatusUpdated, event.RoutingKeyStatusMoved, updated); err != nil {
		return nil, err
	}

	if err := work.Commit(); err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(
		realtime.TableGroup(updated.TableNumber, updated.RestaurantID),
		event.OrderStatusUpdated,
		updated,
	)

	return updated, nil
}

// enqueueEvent writes the order event to the outbox inside the current
// transaction for durable publication to RabbitMQ.
func (s *OrderService) enqueueEvent(
	ctx context.Context,
	work unitOfWork,
	eventName string,
	routingKey string,
	o *order.Order,
) error {
	payload, err := json.Marshal(event.Envelope{
		Event:      eventName,
		OccurredAt: time.Now(),
		Payload:    o,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventName, err)
	}

	now := time.Now()
	err = work.OutboxRepository().Insert(ctx, outbox.OutboxMessage{
		ExchangeName: event.Exchange,
		RoutingKey:   routingKey,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   10,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	})
	if err != nil {
		slog.Error("Failed to enqueue order event", "event", eventName, "order_id", o.ID, "error", err)

		return err
	}

	return nil
}
