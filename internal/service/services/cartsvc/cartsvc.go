package cartsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/tableside/order/internal/dal/interfaces/icartrepo"
	"github.com/tableside/order/internal/dal/interfaces/icatalogrepo"
	"github.com/tableside/order/internal/service/cartlock"
	"github.com/tableside/order/internal/service/errs"
	"github.com/tableside/order/internal/service/models/cart"
	"github.com/tableside/order/internal/service/models/cartline"
)

// CartService owns the per-table, per-restaurant cart: it mutates line
// items and keeps the cached total in sync with live catalog prices.
type CartService struct {
	carts   icartrepo.ICartRepository
	catalog icatalogrepo.ICatalogRepository
	locks   *cartlock.Locker
}

// option is a function that configures the CartService.
type option func(*CartService)

// MustNewCartService creates a new CartService.
func MustNewCartService(opts ...option) *CartService {
	s := &CartService{
		locks: cartlock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.carts == nil || s.catalog == nil {
		panic("cartsvc: cart and catalog repositories are required")
	}

	return s
}

// WithCartRepository sets the cart repository for the CartService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCartRepository(carts icartrepo.ICartRepository) option {
	return func(s *CartService) {
		s.carts = carts
	}
}

// WithCatalogRepository sets the catalog repository for the CartService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCatalogRepository(catalog icatalogrepo.ICatalogRepository) option {
	return func(s *CartService) {
		s.catalog = catalog
	}
}

// WithCartLocker sets the per-cart locker, shared with the order service so
// placement and cart mutations serialize on the same keys.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCartLocker(locks *cartlock.Locker) option {
	return func(s *CartService) {
		s.locks = locks
	}
}

// AddItemInput is the request to add a menu item to a table's cart.
type AddItemInput struct {
	TableNumber  int
	RestaurantID int64
	MenuItemID   int64
	Quantity     int
	Notes        string
}

// AddItem locates or creates the cart for the table and adds the item. A
// line already referencing the same item is merged: its quantity grows by
// the given amount and its notes are overwritten when new notes are given.
func (s *CartService) AddItem(ctx context.Context, in AddItemInput) (*cart.Cart, error) {
	if err := validateKey(in.TableNumber, in.RestaurantID); err != nil {
		return nil, err
	}
	if in.MenuItemID <= 0 {
		return nil, fmt.Errorf("%w: menu item id is required", errs.ErrValidation)
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", errs.ErrValidation)
	}

	item, err := s.catalog.Lookup(ctx, in.MenuItemID)
	if err != nil {
		return nil, err
	}
	if item.RestaurantID != in.RestaurantID {
		return nil, errs.ErrScopeMismatch
	}
	if !item.IsAvailable {
		return nil, errs.ErrItemUnavailable
	}

	unlock := s.locks.Lock(cartlock.Key{TableNumber: in.TableNumber, RestaurantID: in.RestaurantID})
	defer unlock()

	c, err := s.carts.GetOrCreate(ctx, in.TableNumber, in.RestaurantID)
	if err != nil {
		return nil, err
	}

	if line := c.FindLine(in.MenuItemID); line != nil {
		line.Quantity += in.Quantity
		if in.Notes != "" {
			line.Notes = in.Notes
		}
	} else {
		c.Lines = append(c.Lines, cartline.CartLine{
			CartID:     c.ID,
			MenuItemID: in.MenuItemID,
			Quantity:   in.Quantity,
			Notes:      in.Notes,
		})
	}

	return s.saveRecomputed(ctx, c)
}

// UpdateQuantity sets the quantity of an existing cart line. Use RemoveItem
// to delete a line; quantities below 1 are rejected.
func (s *CartService) UpdateQuantity(
	ctx context.Context,
	tableNumber int,
	restaurantID int64,
	menuItemID int64,
	newQuantity int,
) (*cart.Cart, error) {
	if err := validateKey(tableNumber, restaurantID); err != nil {
		return nil, err
	}
	if menuItemID <= 0 {
		return nil, fmt.Errorf("%w: menu item id is required", errs.ErrValidation)
	}
	if newQuantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", errs.ErrValidation)
	}

	unlock := s.locks.Lock(cartlock.Key{TableNumber: tableNumber, RestaurantID: restaurantID})
	defer unlock()

	c, err := s.carts.GetByTable(ctx, tableNumber, restaurantID)
	if err != nil {
		return nil, err
	}

	line := c.FindLine(menuItemID)
	if line == nil {
		return nil, errs.ErrItemNotInCart
	}
	line.Quantity = newQuantity

	return s.saveRecomputed(ctx, c)
}

// RemoveItem drops the matching line if present. Removing an item that is
// not in the cart is a no-op, so retried removals stay idempotent.
func (s *CartService) RemoveItem(
	ctx context.Context,
	tableNumber int,
	restaurantID int64,
	menuItemID int64,
) (*cart.Cart, error) {
	if err := validateKey(tableNumber, restaurantID); err != nil {
		return nil, err
	}
	if menuItemID <= 0 {
		return nil, fmt.Errorf("%w: menu item id is required", errs.ErrValidation)
	}

	unlock := s.locks.Lock(cartlock.Key{TableNumber: tableNumber, RestaurantID: restaurantID})
	defer unlock()

	c, err := s.carts.GetByTable(ctx, tableNumber, restaurantID)
	if err != nil {
		return nil, err
	}

	kept := c.Lines[:0]
	for _, line := range c.Lines {
		if line.MenuItemID != menuItemID {
			kept = append(kept, line)
		}
	}
	c.Lines = kept

	return s.saveRecomputed(ctx, c)
}

// GetCart returns the cart with lines populated with live catalog data for
// display. When no cart row exists the result is a synthesized empty cart,
// not an error: an empty table is a normal read, not a miss.
func (s *CartService) GetCart(ctx context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error) {
	if err := validateKey(tableNumber, restaurantID); err != nil {
		return nil, err
	}

	c, err := s.carts.GetByTable(ctx, tableNumber, restaurantID)
	if err != nil {
		if errors.Is(err, errs.ErrCartNotFound) {
			return &cart.Cart{
				TableNumber:  tableNumber,
				RestaurantID: restaurantID,
				Lines:        []cartline.CartLine{},
			}, nil
		}

		return nil, err
	}

	resolved, err := s.catalog.Resolve(ctx, restaurantID, distinctItemIDs(c))
	if err != nil {
		return nil, err
	}
	for i := range c.Lines {
		if item, ok := resolved[c.Lines[i].MenuItemID]; ok {
			c.Lines[i].Name = item.Name
			c.Lines[i].PriceCents = item.PriceCents
			c.Lines[i].ImageURL = item.ImageURL
		}
	}

	return c, nil
}

// ClearCart empties all lines and resets the total to zero.
func (s *CartService) ClearCart(ctx context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error) {
	if err := validateKey(tableNumber, restaurantID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(cartlock.Key{TableNumber: tableNumber, RestaurantID: restaurantID})
	defer unlock()

	c, err := s.carts.GetByTable(ctx, tableNumber, restaurantID)
	if err != nil {
		return nil, err
	}

	c.Lines = c.Lines[:0]

	return s.saveRecomputed(ctx, c)
}

// saveRecomputed recomputes the cached total from live catalog prices and
// persists the cart. A line whose item vanished from the catalog
// contributes zero instead of failing the recompute, so one stale
// reference cannot block the whole cart; order placement re-resolves
// strictly and catches it there.
func (s *CartService) saveRecomputed(ctx context.Context, c *cart.Cart) (*cart.Cart, error) {
	resolved, err := s.catalog.Resolve(ctx, c.RestaurantID, distinctItemIDs(c))
	if err != nil {
		return nil, err
	}

	var total int64
	for _, line := range c.Lines {
		if item, ok := resolved[line.MenuItemID]; ok {
			total += item.PriceCents * int64(line.Quantity)
		}
	}
	c.TotalPriceCents = total

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func distinctItemIDs(c *cart.Cart) []int64 {
	seen := make(map[int64]struct{}, len(c.Lines))
	ids := make([]int64, 0, len(c.Lines))
	for _, line := range c.Lines {
		if _, ok := seen[line.MenuItemID]; ok {
			continue
		}
		seen[line.MenuItemID] = struct{}{}
		ids = append(ids, line.MenuItemID)
	}

	return ids
}

func validateKey(tableNumber int, restaurantID int64) error {
	if tableNumber <= 0 {
		return fmt.Errorf("%w: a numeric table number is required", errs.ErrValidation)
	}
	if restaurantID <= 0 {
		return fmt.Errorf("%w: restaurant id is required", errs.ErrValidation)
	}

	return nil
}
