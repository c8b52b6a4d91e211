package httperr_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableside/order/internal/service/errs"
	"github.com/tableside/order/internal/transport/http/httperr"
)

func TestWriteMapsSentinelsToStatusAndKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
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

	for _, tc := range cases {
		rec := httptest.NewRecorder()

		httperr.Write(rec, fmt.Errorf("%w: details", tc.err))

		assert.Equal(t, tc.status, rec.Code, "err=%v", tc.err)
		var body httperr.Body
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.kind, body.Error)
		assert.NotEmpty(t, body.Message)
	}
}

func TestWriteHidesUnmappedErrors(t *testing.T) {
	rec := httptest.NewRecorder()

	httperr.Write(rec, errors.New("pq: connection refused to 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body httperr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal", body.Error)
	assert.NotContains(t, body.Message, "10.0.0.3", "internal details must not leak")
}
