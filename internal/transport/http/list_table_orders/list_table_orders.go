package listtableorders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	ListOrdersByTable(ctx context.Context, tableNumber int, restaurantID int64) ([]order.Order, error)
}

type listTableOrdersQuery struct {
	RestaurantID int64 `schema:"restaurant_id"`
}

// ListTableOrders handles the customer-facing order listing for one table.
func ListTableOrders(w http.ResponseWriter, r *http.Request, service service) {
	tableNumber, err := strconv.Atoi(chi.URLParam(r, "tableNumber"))
	if err != nil {
		http.Error(w, "Invalid table number", http.StatusBadRequest)

		return
	}

	decoder := schema.NewDecoder()
	query := &listTableOrdersQuery{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	orders, err := service.ListOrdersByTable(r.Context(), tableNumber, query.RestaurantID)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.WriteJSON(w, http.StatusOK, orders)
}
