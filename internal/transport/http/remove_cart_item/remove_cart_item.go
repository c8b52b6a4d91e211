package removecartitem

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
	RemoveItem(ctx context.Context, tableNumber int, restaurantID int64, menuItemID int64) (*cart.Cart, error)
}

type removeCartItemRequest struct {
	TableNumber  int   `json:"tableNumber"`
	RestaurantID int64 `json:"restaurantId"`
	MenuItemID   int64 `json:"menuItemId"`
}

// RemoveCartItem handles the remove-from-cart request.
func RemoveCartItem(w http.ResponseWriter, r *http.Request, service service) {
	var req removeCartItemRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for remove cart item", "error", err)

		return
	}

	c, err := service.RemoveItem(r.Context(), req.TableNumber, req.RestaurantID, req.MenuItemID)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.WriteJSON(w, http.StatusOK, c)
}
