package cartsvc_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tableside/order/internal/service/cartlock"
	"github.com/tableside/order/internal/service/errs"
	"github.com/tableside/order/internal/service/models/cart"
	"github.com/tableside/order/internal/service/models/catalog"
	"github.com/tableside/order/internal/service/services/cartsvc"
)

type fakeCatalog struct {
	mu    sync.Mutex
	items map[int64]catalog.Item
}

func (f *fakeCatalog) Lookup(_ context.Context, menuItemID int64) (catalog.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[menuItemID]
	if !ok {
		return catalog.Item{}, errs.ErrItemUnavailable
	}

	return item, nil
}

func (f *fakeCatalog) Resolve(
	_ context.Context,
	restaurantID int64,
	menuItemIDs []int64,
) (map[int64]catalog.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[int64]catalog.Item, len(menuItemIDs))
	for _, id := range menuItemIDs {
		if item, ok := f.items[id]; ok && item.RestaurantID == restaurantID {
			result[id] = item
		}
	}

	return result, nil
}

func (f *fakeCatalog) remove(menuItemID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, menuItemID)
}

type cartKey struct {
	table      int
	restaurant int64
}

type fakeCartRepo struct {
	mu      sync.Mutex
	nextID  int64
	carts   map[cartKey]*cart.Cart
	readErr error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[cartKey]*cart.Cart)}
}

func cloneCart(c *cart.Cart) *cart.Cart {
	clone := *c
	clone.Lines = append(c.Lines[:0:0], c.Lines...)

	return &clone
}

func (f *fakeCartRepo) GetByTable(_ context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return nil, f.readErr
	}

	stored, ok := f.carts[cartKey{table: tableNumber, restaurant: restaurantID}]
	if !ok {
		return nil, errs.ErrCartNotFound
	}

	return cloneCart(stored), nil
}

func (f *fakeCartRepo) GetOrCreate(_ context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := cartKey{table: tableNumber, restaurant: restaurantID}
	if stored, ok := f.carts[key]; ok {
		return cloneCart(stored), nil
	}

	f.nextID++
	created := &cart.Cart{
		ID:           f.nextID,
		TableNumber:  tableNumber,
		RestaurantID: restaurantID,
	}
	f.carts[key] = created

	return cloneCart(created), nil
}

func (f *fakeCartRepo) Save(_ context.Context, c *cart.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := cartKey{table: c.TableNumber, restaurant: c.RestaurantID}
	stored, ok := f.carts[key]
	if !ok {
		return errs.ErrCartNotFound
	}

	c.Version = stored.Version + 1
	f.carts[key] = cloneCart(c)

	return nil
}

func (f *fakeCartRepo) ClearLines(_ context.Context, cartID int64, fromVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, stored := range f.carts {
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

func newTestService() (*cartsvc.CartService, *fakeCartRepo, *fakeCatalog) {
	carts := newFakeCartRepo()
	menu := &fakeCatalog{items: map[int64]catalog.Item{
		1: {ID: 1, RestaurantID: 1, Name: "Margherita", PriceCents: 1000, IsAvailable: true},
		2: {ID: 2, RestaurantID: 1, Name: "Espresso", PriceCents: 500, IsAvailable: true},
		3: {ID: 3, RestaurantID: 1, Name: "Calzone", PriceCents: 1200, IsAvailable: false},
		4: {ID: 4, RestaurantID: 2, Name: "Ramen", PriceCents: 1500, IsAvailable: true},
	}}

	svc := cartsvc.MustNewCartService(
		cartsvc.WithCartRepository(carts),
		cartsvc.WithCatalogRepository(menu),
		cartsvc.WithCartLocker(cartlock.New()),
	)

	return svc, carts, menu
}

func TestAddItemCreatesCartAndRecomputesTotal(t *testing.T) {
	svc, _, _ := newTestService()

	c, err := svc.AddItem(context.Background(), cartsvc.AddItemInput{
		TableNumber:  4,
		RestaurantID: 1,
		MenuItemID:   1,
		Quantity:     2,
		Notes:        "no basil",
	})

	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(1), c.Lines[0].MenuItemID)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.Equal(t, "no basil", c.Lines[0].Notes)
	assert.Equal(t, int64(2000), c.TotalPriceCents)
}

func TestAddItemMergesExistingLine(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 2})
	require.NoError(t, err)

	c, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 1, Notes: "extra cheese"})
	require.NoError(t, err)

	require.Len(t, c.Lines, 1, "same item must merge, not duplicate")
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Equal(t, "extra cheese", c.Lines[0].Notes)
	assert.Equal(t, int64(3000), c.TotalPriceCents)
}

func TestAddItemRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []cartsvc.AddItemInput{
		{TableNumber: 0, RestaurantID: 1, MenuItemID: 1, Quantity: 1},
		{TableNumber: 4, RestaurantID: 0, MenuItemID: 1, Quantity: 1},
		{TableNumber: 4, RestaurantID: 1, MenuItemID: 0, Quantity: 1},
		{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 0},
	}
	for _, in := range cases {
		_, err := svc.AddItem(ctx, in)
		assert.ErrorIs(t, err, errs.ErrValidation, "input=%+v", in)
	}
}

func TestAddItemRejectsUnavailableAndForeignItems(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 999, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrItemUnavailable)

	_, err = svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 3, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrItemUnavailable)

	_, err = svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 4, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrScopeMismatch)
}

func TestUpdateQuantityRecomputesTotal(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 2})
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(ctx, 4, 1, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Lines[0].Quantity)
	assert.Equal(t, int64(5000), c.TotalPriceCents)
}

func TestUpdateQuantityMissingLine(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.UpdateQuantity(ctx, 4, 1, 1, 2)
	assert.ErrorIs(t, err, errs.ErrCartNotFound)

	_, err = svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, 4, 1, 2, 2)
	assert.ErrorIs(t, err, errs.ErrItemNotInCart)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 2, Quantity: 1})
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, 4, 1, 1)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(500), c.TotalPriceCents)

	// Retried removal of an already-gone line must not fail.
	c, err = svc.RemoveItem(ctx, 4, 1, 1)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
}

func TestGetCartSynthesizesEmptyCart(t *testing.T) {
	svc, _, _ := newTestService()

	c, err := svc.GetCart(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.Zero(t, c.ID)
	assert.Equal(t, 9, c.TableNumber)
	assert.Equal(t, int64(1), c.RestaurantID)
	assert.Empty(t, c.Lines)
	assert.Zero(t, c.TotalPriceCents)
}

func TestGetCartPopulatesDisplayFields(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 2})
	require.NoError(t, err)

	c, err := svc.GetCart(ctx, 4, 1)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "Margherita", c.Lines[0].Name)
	assert.Equal(t, int64(1000), c.Lines[0].PriceCents)
}

func TestVanishedItemContributesZeroToLiveTotal(t *testing.T) {
	svc, _, menu := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 2, Quantity: 1})
	require.NoError(t, err)

	menu.remove(1)

	c, err := svc.UpdateQuantity(ctx, 4, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.TotalPriceCents, "removed catalog item must count as zero")
	assert.Len(t, c.Lines, 2, "the stale line itself stays in the cart")
}

func TestClearCartEmptiesLinesAndTotal(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 3})
	require.NoError(t, err)

	c, err := svc.ClearCart(ctx, 4, 1)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
	assert.Zero(t, c.TotalPriceCents)
}

func TestGetCartSurfacesUpstreamTimeout(t *testing.T) {
	svc, carts, _ := newTestService()
	carts.readErr = fmt.Errorf("%w: context deadline exceeded", errs.ErrUpstreamTimeout)

	_, err := svc.GetCart(context.Background(), 4, 1)

	assert.ErrorIs(t, err, errs.ErrUpstreamTimeout, "a timed-out read must not masquerade as an empty cart")
}

func TestConcurrentAddsBothLand(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	var eg errgroup.Group
	eg.Go(func() error {
		_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 1, Quantity: 1})

		return err
	})
	eg.Go(func() error {
		_, err := svc.AddItem(ctx, cartsvc.AddItemInput{TableNumber: 4, RestaurantID: 1, MenuItemID: 2, Quantity: 1})

		return err
	})
	require.NoError(t, eg.Wait())

	c, err := svc.GetCart(ctx, 4, 1)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2, "neither concurrent add may overwrite the other")
	assert.Equal(t, int64(1500), c.TotalPriceCents)
}
