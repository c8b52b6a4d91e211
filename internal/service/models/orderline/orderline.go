package orderline

// OrderLine is a frozen copy of a cart line at order-placement time. Name
// and PriceAtOrderCents are snapshots of the catalog at that moment; later
// catalog changes never alter them.
type OrderLine struct {
	ID                int64  `json:"id"`
	OrderID           int64  `json:"orderId"`
	MenuItemID        int64  `json:"menuItemId"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	Notes             string `json:"notes,omitempty"`
	PriceAtOrderCents int64  `json:"priceAtOrderCents"`
}
