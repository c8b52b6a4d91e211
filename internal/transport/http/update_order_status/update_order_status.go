package updateorderstatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/transport/http/httperr"
	"github.com/tableside/order/pkg/http/middleware/identity"
)

// service is an interface for the service layer.
type service interface {
	UpdateStatus(ctx context.Context, orderID int64, restaurantID int64, rawStatus string) (*order.Order, error)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus handles a staff status change. Orders of other
// restaurants are invisible to the caller: a cross-restaurant id yields
// the same not-found as a miss.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "staff access required", http.StatusForbidden)

		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)

		return
	}

	var req updateStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for status update", "error", err)

		return
	}

	o, err := service.UpdateStatus(r.Context(), orderID, id.RestaurantID, req.Status)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.WriteJSON(w, http.StatusOK, o)
}
