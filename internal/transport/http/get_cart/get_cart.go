package getcart

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/tableside/order/internal/service/models/cart"
	"github.com/tableside/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	GetCart(ctx context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error)
}

type getCartQuery struct {
	RestaurantID int64 `schema:"restaurant_id"`
}

// GetCart handles the cart read for one table, lines populated with live
// catalog display data.
func GetCart(w http.ResponseWriter, r *http.Request, service service) {
	tableNumber, err := strconv.Atoi(chi.URLParam(r, "tableNumber"))
	if err != nil {
		http.Error(w, "Invalid table number", http.StatusBadRequest)

		return
	}

	decoder := schema.NewDecoder()
	query := &getCartQuery{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	c, err := service.GetCart(r.Context(), tableNumber, query.RestaurantID)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.WriteJSON(w, http.StatusOK, c)
}
