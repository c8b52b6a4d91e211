package updatecartitem

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tableside/order/internal/service/models/cart"
	"github.com/tableside/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	UpdateQuantity(ctx context.Context, tableNumber int, restaurantID int64, menuItemID int64, newQuantity int) (*cart.Cart, error)
}

type updateCartItemRequest struct {
	TableNumber  int   `json:"tableNumber"`
	RestaurantID int64 `json:"restaurantId"`
	MenuItemID   int64 `json:"menuItemId"`
	Quantity     int   `json:"quantity"`
}

// UpdateCartItem handles the update-quantity request.
func UpdateCartItem(w http.ResponseWriter, r *http.Request, service service) {
	var req updateCartItemRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for update cart item", "error", err)

		return
	}

	c, err := service.UpdateQuantity(r.Context(), req.TableNumber, req.RestaurantID, req.MenuItemID, req.Quantity)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.WriteJSON(w, http.StatusOK, c)
}
