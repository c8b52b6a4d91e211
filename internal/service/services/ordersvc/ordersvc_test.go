package ordersvc

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableside/order/internal/dal/interfaces/icartrepo"
	"github.com/tableside/order/internal/dal/interfaces/iorderrepo"
	"github.com/tableside/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/tableside/order/internal/realtime"
	"github.com/tableside/order/internal/service/cartlock"
	"github.com/tableside/order/internal/service/errs"
	"github.com/tableside/order/internal/service/models/cart"
	"github.com/tableside/order/internal/service/models/cartline"
	"github.com/tableside/order/internal/service/models/catalog"
	"github.com/tableside/order/internal/service/models/event"
	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/service/models/outbox"
	"github.com/tableside/order/internal/service/models/status"
)

type memCatalog struct {
	mu    sync.Mutex
	items map[int64]catalog.Item
}

func (m *memCatalog) Lookup(_ context.Context, menuItemID int64) (catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[menuItemID]
	if !ok {
		return catalog.Item{}, errs.ErrItemUnavailable
	}

	return item, nil
}

func (m *memCatalog) Resolve(
	_ context.Context,
	restaurantID int64,
	menuItemIDs []int64,
) (map[int64]catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[int64]catalog.Item, len(menuItemIDs))
	for _, id := range menuItemIDs {
		if item, ok := m.items[id]; ok && item.RestaurantID == restaurantID {
			result[id] = item
		}
	}

	return result, nil
}

func (m *memCatalog) setPrice(menuItemID int64, priceCents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.items[menuItemID]
	item.PriceCents = priceCents
	m.items[menuItemID] = item
}

type tableKey struct {
	table      int
	restaurant int64
}

type memCartRepo struct {
	mu     sync.Mutex
	nextID int64
	carts  map[tableKey]*cart.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[tableKey]*cart.Cart)}
}

func copyCart(c *cart.Cart) *cart.Cart {
	clone := *c
	clone.Lines = append(c.Lines[:0:0], c.Lines...)

	return &clone
}

func (m *memCartRepo) seed(tableNumber int, restaurantID int64, lines ...cartline.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.carts[tableKey{table: tableNumber, restaurant: restaurantID}] = &cart.Cart{
		ID:           m.nextID,
		TableNumber:  tableNumber,
		RestaurantID: restaurantID,
		Lines:        lines,
	}
}

func (m *memCartRepo) lines(tableNumber int, restaurantID int64) []cartline.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.carts[tableKey{table: tableNumber, restaurant: restaurantID}]
	if !ok {
		return nil
	}

	return append(stored.Lines[:0:0], stored.Lines...)
}

func (m *memCartRepo) GetByTable(_ context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.carts[tableKey{table: tableNumber, restaurant: restaurantID}]
	if !ok {
		return nil, errs.ErrCartNotFound
	}

	return copyCart(stored), nil
}

func (m *memCartRepo) GetOrCreate(_ context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error) {
	if c, err := m.GetByTable(context.Background(), tableNumber, restaurantID); err == nil {
		return c, nil
	}
	m.seed(tableNumber, restaurantID)

	return m.GetByTable(context.Background(), tableNumber, restaurantID)
}

func (m *memCartRepo) Save(_ context.Context, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tableKey{table: c.TableNumber, restaurant: c.RestaurantID}
	stored, ok := m.carts[key]
	if !ok {
		return errs.ErrCartNotFound
	}

	c.Version = stored.Version + 1
	m.carts[key] = copyCart(c)

	return nil
}

func (m *memCartRepo) ClearLines(_ context.Context, cartID int64, fromVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, stored := range m.carts {
		if stored.ID != cartID {
			continue
		}
		if stored.Version != fromVersion {
			return fmt.Errorf("%w: cart version moved", errs.ErrCartNotFound)
		}
		stored.Lines = nil
		stored.TotalPriceCents = 0
		stored.Version++

		return nil
	}

	return errs.ErrCartNotFound
}

type memOrderRepo struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]*order.Order
	created []int64
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[int64]*order.Order)}
}

func copyOrder(o *order.Order) *order.Order {
	clone := *o
	clone.Lines = append(o.Lines[:0:0], o.Lines...)

	return &clone
}

func (m *memOrderRepo) Insert(_ context.Context, o order.Order) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.IdempotencyKey != "" {
		for _, existing := range m.orders {
			if existing.IdempotencyKey == o.IdempotencyKey {
				return nil, errs.ErrDuplicateOrder
			}
		}
	}

	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Lines {
		o.Lines[i].ID = int64(i + 1)
		o.Lines[i].OrderID = o.ID
	}

	m.orders[o.ID] = copyOrder(&o)
	m.created = append(m.created, o.ID)

	return copyOrder(&o), nil
}

func (m *memOrderRepo) GetByID(_ context.Context, orderID int64, restaurantID int64) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[orderID]
	if !ok || stored.RestaurantID != restaurantID {
		return nil, errs.ErrNotFound
	}

	return copyOrder(stored), nil
}

func (m *memOrderRepo) GetByIdempotencyKey(_ context.Context, key string) (*order.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, stored := range m.orders {
		if stored.IdempotencyKey == key {
			return copyOrder(stored), true, nil
		}
	}

	return nil, false, nil
}

func (m *memOrderRepo) ListByRestaurant(_ context.Context, restaurantID int64) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []order.Order
	for i := len(m.created) - 1; i >= 0; i-- {
		if stored := m.orders[m.created[i]]; stored.RestaurantID == restaurantID {
			result = append(result, *copyOrder(stored))
		}
	}

	return result, nil
}

func (m *memOrderRepo) ListByTable(_ context.Context, tableNumber int, restaurantID int64) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []order.Order
	for i := len(m.created) - 1; i >= 0; i-- {
		stored := m.orders[m.created[i]]
		if stored.RestaurantID == restaurantID && stored.TableNumber == tableNumber {
			result = append(result, *copyOrder(stored))
		}
	}

	return result, nil
}

func (m *memOrderRepo) UpdateStatus(
	_ context.Context,
	orderID int64,
	restaurantID int64,
	newStatus status.Status,
) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[orderID]
	if !ok || stored.RestaurantID != restaurantID {
		return nil, errs.ErrNotFound
	}
	stored.Status = newStatus
	stored.UpdatedAt = time.Now()

	return copyOrder(stored), nil
}

type memOutbox struct {
	mu       sync.Mutex
	messages []outbox.OutboxMessage
}

func (m *memOutbox) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)

	return nil
}

func (m *memOutbox) GetPendingMessages(_ context.Context, _ int) ([]outbox.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append(m.messages[:0:0], m.messages...), nil
}

func (m *memOutbox) Delete(_ context.Context, _ int64) error { return nil }

func (m *memOutbox) UpdateRetry(_ context.Context, _ int64, _ int, _ string, _ time.Time) error {
	return nil
}

type broadcastCall struct {
	group realtime.Group
	event string
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *recordingBroadcaster) Broadcast(group realtime.Group, eventName string, _ any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{group: group, event: eventName})

	return 0
}

type fakeUnitOfWork struct {
	carts  *memCartRepo
	orders *memOrderRepo
	outbox *memOutbox

	committed  bool
	rolledBack bool
}

func (f *fakeUnitOfWork) Begin(_ context.Context) error { return nil }

func (f *fakeUnitOfWork) Commit() error {
	f.committed = true

	return nil
}

func (f *fakeUnitOfWork) Rollback() error {
	if !f.committed {
		f.rolledBack = true
	}

	return nil
}

func (f *fakeUnitOfWork) CartRepository() icartrepo.ICartRepository {
	return f.carts
}

func (f *fakeUnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return f.orders
}

func (f *fakeUnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return f.outbox
}

type fixture struct {
	svc     *OrderService
	carts   *memCartRepo
	orders  *memOrderRepo
	outbox  *memOutbox
	menu    *memCatalog
	bcast   *recordingBroadcaster
	lastUow *fakeUnitOfWork
}

func newFixture() *fixture {
	f := &fixture{
		carts:  newMemCartRepo(),
		orders: newMemOrderRepo(),
		outbox: &memOutbox{},
		bcast:  &recordingBroadcaster{},
		menu: &memCatalog{items: map[int64]catalog.Item{
			1: {ID: 1, RestaurantID: 1, Name: "Margherita", PriceCents: 10, IsAvailable: true},
			2: {ID: 2, RestaurantID: 1, Name: "Espresso", PriceCents: 5, IsAvailable: true},
		}},
	}

	f.svc = MustNewOrderService(
		WithUnitOfWorkFactory(func() unitOfWork {
			f.lastUow = &fakeUnitOfWork{carts: f.carts, orders: f.orders, outbox: f.outbox}

			return f.lastUow
		}),
		WithOrderRepository(f.orders),
		WithCatalogRepository(f.menu),
		WithBroadcaster(f.bcast),
		WithCartLocker(cartlock.New()),
	)

	return f
}

func TestPlaceOrderSnapshotsCartAndClearsIt(t *testing.T) {
	f := newFixture()
	f.carts.seed(4, 1,
		cartline.CartLine{MenuItemID: 1, Quantity: 2, Notes: "no basil"},
		cartline.CartLine{MenuItemID: 2, Quantity: 1},
	)

	placed, err := f.svc.PlaceOrder(context.Background(), 4, 1, "")

	require.NoError(t, err)
	assert.Equal(t, status.StatusPending, placed.Status)
	assert.Equal(t, int64(25), placed.TotalPriceCents)
	require.Len(t, placed.Lines, 2)
	assert.Equal(t, int64(10), placed.Lines[0].PriceAtOrderCents)
	assert.Equal(t, "Margherita", placed.Lines[0].Name)
	assert.Equal(t, "no basil", placed.Lines[0].Notes)
	assert.Equal(t, int64(5), placed.Lines[1].PriceAtOrderCents)

	assert.Empty(t, f.carts.lines(4, 1), "placement must empty the cart")
	assert.True(t, f.lastUow.committed)

	require.Len(t, f.outbox.messages, 1)
	assert.Equal(t, event.Exchange, f.outbox.messages[0].ExchangeName)
	assert.Equal(t, event.RoutingKeyCreated, f.outbox.messages[0].RoutingKey)

	require.Len(t, f.bcast.calls, 1)
	assert.Equal(t, realtime.AdminGroup(1), f.bcast.calls[0].group)
	assert.Equal(t, event.NewOrder, f.bcast.calls[0].event)
}

func TestPlaceOrderValidatesKey(t *testing.T) {
	f := newFixture()

	_, err := f.svc.PlaceOrder(context.Background(), 0, 1, "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.PlaceOrder(context.Background(), 4, 0, "")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.PlaceOrder(context.Background(), 4, 1, "")
	assert.ErrorIs(t, err, errs.ErrEmptyCart, "missing cart row counts as empty")

	f.carts.seed(5, 1)
	_, err = f.svc.PlaceOrder(context.Background(), 5, 1, "")
	assert.ErrorIs(t, err, errs.ErrEmptyCart)
}

func TestPlaceOrderRejectsStaleCartItem(t *testing.T) {
	f := newFixture()
	f.carts.seed(4, 1,
		cartline.CartLine{MenuItemID: 1, Quantity: 1},
		cartline.CartLine{MenuItemID: 999, Quantity: 1},
	)

	_, err := f.svc.PlaceOrder(context.Background(), 4, 1, "")

	assert.ErrorIs(t, err, errs.ErrStaleCartItem)
	assert.False(t, f.lastUow.committed)
	assert.True(t, f.lastUow.rolledBack)
	assert.Len(t, f.carts.lines(4, 1), 2, "a failed placement must leave the cart intact")
	orders, listErr := f.orders.ListByRestaurant(context.Background(), 1)
	require.NoError(t, listErr)
	assert.Empty(t, orders)
}

func TestPlacedOrderIsImmuneToLaterPriceChanges(t *testing.T) {
	f := newFixture()
	f.carts.seed(4, 1, cartline.CartLine{MenuItemID: 1, Quantity: 2})

	placed, err := f.svc.PlaceOrder(context.Background(), 4, 1, "")
	require.NoError(t, err)

	f.menu.setPrice(1, 9900)

	reread, err := f.orders.GetByID(context.Background(), placed.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), reread.TotalPriceCents)
	assert.Equal(t, int64(10), reread.Lines[0].PriceAtOrderCents)
}

func TestPlaceOrderIdempotentReplay(t *testing.T) {
	f := newFixture()
	f.carts.seed(4, 1, cartline.CartLine{MenuItemID: 1, Quantity: 1})

	first, err := f.svc.PlaceOrder(context.Background(), 4, 1, "req-abc")
	require.NoError(t, err)

	second, err := f.svc.PlaceOrder(context.Background(), 4, 1, "req-abc")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	orders, err := f.orders.ListByRestaurant(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, orders, 1, "a replayed key must not place a second order")
	assert.Len(t, f.outbox.messages, 1)
	assert.Len(t, f.bcast.calls, 1)
}

func TestListOrdersNewestFirst(t *testing.T) {
	f := newFixture()

	for i := range 3 {
		f.carts.seed(i+1, 1, cartline.CartLine{MenuItemID: 1, Quantity: 1})
		_, err := f.svc.PlaceOrder(context.Background(), i+1, 1, "")
		require.NoError(t, err)
	}

	orders, err := f.svc.ListOrders(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, 3, orders[0].TableNumber)
	assert.Equal(t, 1, orders[2].TableNumber)

	tableOrders, err := f.svc.ListOrdersByTable(context.Background(), 2, 1)
	require.NoError(t, err)
	require.Len(t, tableOrders, 1)
	assert.Equal(t, 2, tableOrders[0].TableNumber)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	f.carts.seed(4, 1, cartline.CartLine{MenuItemID: 1, Quantity: 1})
	placed, err := f.svc.PlaceOrder(context.Background(), 4, 1, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), placed.ID, 1, "Delivered")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestUpdateStatusIsRestaurantScoped(t *testing.T) {
	f := newFixture()
	f.carts.seed(4, 1, cartline.CartLine{MenuItemID: 1, Quantity: 1})
	placed, err := f.svc.PlaceOrder(context.Background(), 4, 1, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), placed.ID, 2, status.StatusReady.String())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateStatusNotifiesTheTable(t *testing.T) {
	f := newFixture()
	f.carts.seed(4, 1, cartline.CartLine{MenuItemID: 1, Quantity: 1})
	placed, err := f.svc.PlaceOrder(context.Background(), 4, 1, "")
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), placed.ID, 1, status.StatusPreparing.String())

	require.NoError(t, err)
	assert.Equal(t, status.StatusPreparing, updated.Status)

	require.Len(t, f.outbox.messages, 2)
	assert.Equal(t, event.RoutingKeyStatusMoved, f.outbox.messages[1].RoutingKey)

	require.Len(t, f.bcast.calls, 2)
	assert.Equal(t, realtime.TableGroup(4, 1), f.bcast.calls[1].group)
	assert.Equal(t, event.OrderStatusUpdated, f.bcast.calls[1].event)
}
