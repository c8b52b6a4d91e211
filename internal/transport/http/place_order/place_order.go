package placeorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	PlaceOrder(ctx context.Context, tableNumber int, restaurantID int64, idempotencyKey string) (*order.Order, error)
}

type placeOrderRequest struct {
	TableNumber  int   `json:"tableNumber"`
	RestaurantID int64 `json:"restaurantId"`
}

// PlaceOrder handles order placement. An optional Idempotency-Key header
// makes a network retry return the originally created order instead of
// placing a second one.
func PlaceOrder(w http.ResponseWriter, r *http.Request, service service) {
	var req placeOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for place order", "error", err)

		return
	}

	o, err := service.PlaceOrder(r.Context(), req.TableNumber, req.RestaurantID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.WriteJSON(w, http.StatusCreated, o)
}
