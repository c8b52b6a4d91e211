package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/tableside/order/internal/service/models/cart"
	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/service/services/cartsvc"
	addtocart "github.com/tableside/order/internal/transport/http/add_to_cart"
	clearcart "github.com/tableside/order/internal/transport/http/clear_cart"
	getcart "github.com/tableside/order/internal/transport/http/get_cart"
	listorders "github.com/tableside/order/internal/transport/http/list_orders"
	listtableorders "github.com/tableside/order/internal/transport/http/list_table_orders"
	placeorder "github.com/tableside/order/internal/transport/http/place_order"
	removecartitem "github.com/tableside/order/internal/transport/http/remove_cart_item"
	updatecartitem "github.com/tableside/order/internal/transport/http/update_cart_item"
	updateorderstatus "github.com/tableside/order/internal/transport/http/update_order_status"
	"github.com/tableside/order/internal/transport/ws"
	"github.com/tableside/order/pkg/http/middleware/identity"
	"github.com/tableside/order/pkg/http/middleware/trace"
	"github.com/tableside/order/pkg/logger"
)

type cartService interface {
	AddItem(ctx context.Context, in cartsvc.AddItemInput) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, tableNumber int, restaurantID int64, menuItemID int64, newQuantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, tableNumber int, restaurantID int64, menuItemID int64) (*cart.Cart, error)
	GetCart(ctx context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error)
	ClearCart(ctx context.Context, tableNumber int, restaurantID int64) (*cart.Cart, error)
}

type orderService interface {
	PlaceOrder(ctx context.Context, tableNumber int, restaurantID int64, idempotencyKey string) (*order.Order, error)
	ListOrders(ctx context.Context, restaurantID int64) ([]order.Order, error)
	ListOrdersByTable(ctx context.Context, tableNumber int, restaurantID int64) ([]order.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, restaurantID int64, rawStatus string) (*order.Order, error)
}

type HTTPTransport struct {
	server    *http.Server
	router    *chi.Mux
	cartSvc   cartService
	orderSvc  orderService
	wsHandler *ws.Handler
}

func NewHTTPTransport(cartSvc cartService, orderSvc orderService, wsHandler *ws.Handler) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:    server,
		router:    router,
		cartSvc:   cartSvc,
		orderSvc:  orderSvc,
		wsHandler: wsHandler,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		// Bounds every downstream catalog/persistence call; an expired
		// deadline surfaces as upstream_timeout instead of a hung request.
		// The websocket route stays outside: its connections are long-lived.
		r.Use(middleware.Timeout(requestTimeout()))

		r.Route("/cart", func(r chi.Router) {
			r.Post("/items", h.addToCart)
			r.Put("/items", h.updateCartItem)
			r.Delete("/items", h.removeCartItem)
			r.Get("/{tableNumber}", h.getCart)
			r.Delete("/{tableNumber}", h.clearCart)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.placeOrder)
			r.Get("/table/{tableNumber}", h.listTableOrders)
			r.With(identity.RequireAdmin).Get("/", h.listOrders)
			r.With(identity.RequireAdmin).Patch("/{id}/status", h.updateOrderStatus)
		})
	})
	h.router.Get("/ws", h.wsHandler.Handle)
}

func (h *HTTPTransport) addToCart(w http.ResponseWriter, r *http.Request) {
	addtocart.AddToCart(w, r, h.cartSvc)
}

func (h *HTTPTransport) updateCartItem(w http.ResponseWriter, r *http.Request) {
	updatecartitem.UpdateCartItem(w, r, h.cartSvc)
}

func (h *HTTPTransport) removeCartItem(w http.ResponseWriter, r *http.Request) {
	removecartitem.RemoveCartItem(w, r, h.cartSvc)
}

func (h *HTTPTransport) getCart(w http.ResponseWriter, r *http.Request) {
	getcart.GetCart(w, r, h.cartSvc)
}

func (h *HTTPTransport) clearCart(w http.ResponseWriter, r *http.Request) {
	clearcart.ClearCart(w, r, h.cartSvc)
}

func (h *HTTPTransport) placeOrder(w http.ResponseWriter, r *http.Request) {
	placeorder.PlaceOrder(w, r, h.orderSvc)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orderSvc)
}

func (h *HTTPTransport) listTableOrders(w http.ResponseWriter, r *http.Request) {
	listtableorders.ListTableOrders(w, r, h.orderSvc)
}

func (h *HTTPTransport) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	updateorderstatus.UpdateOrderStatus(w, r, h.orderSvc)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)
	router.Use(identity.NewIdentityMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func requestTimeout() time.Duration {
	seconds := viper.GetInt("server.http.request_timeout_seconds")
	if seconds == 0 {
		seconds = 5
	}

	return time.Duration(seconds) * time.Second
}

func newServer(router http.Handler) *http.Server {
	// No Read/WriteTimeout: those deadlines survive the websocket hijack
	// and would kill live connections; per-request bounding is done by the
	// timeout middleware on /api.
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
