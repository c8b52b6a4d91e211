package listorders

import (
	"context"
	"net/http"

	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/transport/http/httperr"
	"github.com/tableside/order/pkg/http/middleware/identity"
)

// service is an interface for the service layer.
type service interface {
	ListOrders(ctx context.Context, restaurantID int64) ([]order.Order, error)
}

// ListOrders handles the staff dashboard order listing. The restaurant
// scope comes from the verified caller identity, never from the request.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "staff access required", http.StatusForbidden)

		return
	}

	orders, err := service.ListOrders(r.Context(), id.RestaurantID)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	httperr.WriteJSON(w, http.StatusOK, orders)
}
