package addtocart

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tableside/order/internal/service/models/cart"
	"github.com/tableside/order/internal/service/services/cartsvc"
	"github.com/tableside/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	AddItem(ctx context.Context, in cartsvc.AddItemInput) (*cart.Cart, error)
}

type addToCartRequest struct {
	TableNumber  int    `json:"tableNumber"`
	RestaurantID int64  `json:"restaurantId"`
	MenuItemID   int64  `json:"menuItemId"`
	Quantity     int    `json:"quantity"`
	Notes        string `json:"notes"`
}

// AddToCart handles the add-to-cart request.
func AddToCart(w http.ResponseWriter, r *http.Request, service service) {
	var req addToCartRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for add to cart", "error", err)

		return
	}

	c, err := service.AddItem(r.Context(), cartsvc.AddItemInput{
		TableNumber:  req.TableNumber,
		RestaurantID: req.RestaurantID,
		MenuItemID:   req.MenuItemID,
		Quantity:     req.Quantity,
		Notes:        req.Notes,
	})
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.WriteJSON(w, http.StatusOK, c)
}
