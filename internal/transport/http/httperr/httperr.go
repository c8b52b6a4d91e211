package httperr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tableside/order/internal/service/errs"
)

// Body is the error response shape: a stable machine-readable kind plus a
// human-readable message.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type mapping struct {
	sentinel error
	status   int
	kind     string
}

var mappings = []mapping{
	{errs.ErrValidation, http.StatusBadRequest, "validation_error"},
	{errs.ErrScopeMismatch, http.StatusBadRequest, "scope_mismatch"},
	{errs.ErrItemUnavailable, http.StatusBadRequest, "item_unavailable"},
	{errs.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
	{errs.ErrCartNotFound, http.StatusNotFound, "cart_not_found"},
	{errs.ErrItemNotInCart, http.StatusNotFound, "item_not_in_cart"},
	{errs.ErrNotFound, http.StatusNotFound, "not_found"},
	{errs.ErrStaleCartItem, http.StatusConflict, "stale_cart_item"},
	{errs.ErrDuplicateOrder, http.StatusConflict, "duplicate_order"},
	{errs.ErrUpstreamTimeout, http.StatusGatewayTimeout, "upstream_timeout"},
}

// Write maps a service error to its HTTP status and stable kind. Unmapped
// errors become an opaque 500.
func Write(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := Body{Error: "internal", Message: "internal server error"}

	for _, m := range mappings {
		if errors.Is(err, m.sentinel) {
			status = m.status
			body = Body{Error: m.kind, Message: err.Error()}

			break
		}
	}

	if status == http.StatusInternalServerError {
		slog.Error("Unhandled service error", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON writes a success payload.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
