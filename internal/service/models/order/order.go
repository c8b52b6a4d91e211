package order

import (
	"time"

	"github.com/tableside/order/internal/service/models/orderline"
	"github.com/tableside/order/internal/service/models/status"
)

// Order is an immutable snapshot of a cart at placement time. Only Status
// ever changes after creation; lines and totals are frozen forever.
type Order struct {
	ID              int64                 `json:"id"`
	TableNumber     int                   `json:"tableNumber"`
	RestaurantID    int64                 `json:"restaurantId"`
	TotalPriceCents int64                 `json:"totalPriceCents"`
	Status          status.Status         `json:"status"`
	IdempotencyKey  string                `json:"-"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	Lines           []orderline.OrderLine `json:"lines"`
}
