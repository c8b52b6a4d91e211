package catalog

// Item is a menu entry as seen by the cart and order services: the current
// price and availability of a dish owned by exactly one restaurant.
type Item struct {
	ID           int64  `json:"id"`
	RestaurantID int64  `json:"restaurantId"`
	Name         string `json:"name"`
	PriceCents   int64  `json:"priceCents"`
	ImageURL     string `json:"imageUrl"`
	IsAvailable  bool   `json:"isAvailable"`
}
