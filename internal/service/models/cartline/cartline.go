package cartline

// CartLine is one pending menu item in a cart. Name, PriceCents and
// ImageURL are display fields populated from the live catalog on reads;
// they are never persisted with the line.
type CartLine struct {
	ID         int64  `json:"id"`
	CartID     int64  `json:"cartId"`
	MenuItemID int64  `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`

	Name       string `json:"name,omitempty"`
	PriceCents int64  `json:"priceCents,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}
