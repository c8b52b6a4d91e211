package identity

import (
	"context"
	"net/http"
	"strconv"
)

// Identity is the opaque caller identity supplied by the external identity
// provider. The service trusts these headers as already verified upstream.
type Identity struct {
	CallerID     string
	Role         string
	RestaurantID int64
}

const (
	headerCallerID     = "X-Caller-Id"
	headerCallerRole   = "X-Caller-Role"
	headerRestaurantID = "X-Restaurant-Id"

	RoleAdmin = "admin"
)

type contextKey struct{}

// FromContext returns the caller identity stored by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)

	return id, ok
}

// NewIdentityMiddleware copies the verified caller identity from request
// headers into the context.
func NewIdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			CallerID: r.Header.Get(headerCallerID),
			Role:     r.Header.Get(headerCallerRole),
		}
		if raw := r.Header.Get(headerRestaurantID); raw != "" {
			if restaurantID, err := strconv.ParseInt(raw, 10, 64); err == nil {
				id.RestaurantID = restaurantID
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, id)))
	})
}

// RequireAdmin rejects requests whose caller is not restaurant staff.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok || id.Role != RoleAdmin || id.RestaurantID <= 0 {
			http.Error(w, "staff access required", http.StatusForbidden)

			return
		}

		next.ServeHTTP(w, r)
	})
}
