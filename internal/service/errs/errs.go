package errs

import "errors"

// Sentinel errors for the cart and order services. Transport layers map
// these to stable response kinds; services wrap them with context via
// fmt.Errorf("%w: ...").
var (
	ErrValidation      = errors.New("validation failed")
	ErrScopeMismatch   = errors.New("item does not belong to this restaurant")
	ErrItemUnavailable = errors.New("menu item is invalid or unavailable")
	ErrCartNotFound    = errors.New("cart not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrItemNotInCart   = errors.New("item is not in cart")
	ErrStaleCartItem   = errors.New("cart references a menu item that no longer exists")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateOrder  = errors.New("order already placed with this idempotency key")
	ErrUpstreamTimeout = errors.New("upstream call timed out")
)
