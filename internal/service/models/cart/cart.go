package cart

import (
	"time"

	"github.com/tableside/order/internal/service/models/cartline"
)

// Cart is the per-table, per-restaurant collection of pending line items.
// At most one cart exists per (TableNumber, RestaurantID). TotalPriceCents
// is a cached value recomputed from live catalog prices after every
// mutation and never trusted as authoritative input.
type Cart struct {
	ID              int64               `json:"id"`
	TableNumber     int                 `json:"tableNumber"`
	RestaurantID    int64               `json:"restaurantId"`
	TotalPriceCents int64               `json:"totalPriceCents"`
	Version         int64               `json:"-"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	Lines           []cartline.CartLine `json:"lines"`
}

// FindLine returns the line referencing menuItemID, or nil.
func (c *Cart) FindLine(menuItemID int64) *cartline.CartLine {
	for i := range c.Lines {
		if c.Lines[i].MenuItemID == menuItemID {
			return &c.Lines[i]
		}
	}

	return nil
}
