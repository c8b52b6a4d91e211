package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tableside/order/internal/dal/postgres"
	"github.com/tableside/order/internal/dal/rabbitmq"
	cartrepo "github.com/tableside/order/internal/dal/repositories/cart/postgres"
	catalogrepo "github.com/tableside/order/internal/dal/repositories/catalog/postgres"
	orderrepo "github.com/tableside/order/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/tableside/order/internal/dal/repositories/outbox/postgres"
	"github.com/tableside/order/internal/jaeger"
	"github.com/tableside/order/internal/realtime"
	"github.com/tableside/order/internal/service/cartlock"
	"github.com/tableside/order/internal/service/models/event"
	"github.com/tableside/order/internal/service/services/cartsvc"
	"github.com/tableside/order/internal/service/services/ordersvc"
	httptransport "github.com/tableside/order/internal/transport/http"
	"github.com/tableside/order/internal/transport/ws"
	"github.com/tableside/order/internal/worker/outbox"
)

// App represents the application.
type App struct {
	cartSvc        *cartsvc.CartService
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	registry       *realtime.Registry
	outboxWorker   *outbox.Worker
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	traceShutdown  func(ctx context.Context) error
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	traceShutdown := jaeger.MustInit()

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	if err := rabbitClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    event.Exchange,
		Kind:    "topic",
		Durable: true,
	}); err != nil {
		panic(err)
	}

	registry := realtime.NewRegistry()
	locks := cartlock.New()

	catalogRepository := catalogrepo.NewCatalogRepository(postgresClient.Pool())
	cartRepository := cartrepo.NewCartRepository(postgresClient.Pool())
	orderRepository := orderrepo.NewOrderRepository(postgresClient.Pool())
	outboxRepository := outboxrepo.NewOutboxRepository(postgresClient.Pool())

	cartSvc := cartsvc.MustNewCartService(
		cartsvc.WithCartRepository(cartRepository),
		cartsvc.WithCatalogRepository(catalogRepository),
		cartsvc.WithCartLocker(locks),
	)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithOrderRepository(orderRepository),
		ordersvc.WithCatalogRepository(catalogRepository),
		ordersvc.WithBroadcaster(registry),
		ordersvc.WithCartLocker(locks),
	)

	outboxWorker := outbox.NewWorker(outboxRepository, rabbitClient)

	transport := httptransport.NewHTTPTransport(cartSvc, orderSvc, ws.NewHandler(registry))
	transport.RegisterRoutes()

	return &App{
		cartSvc:        cartSvc,
		orderSvc:       orderSvc,
		transport:      transport,
		registry:       registry,
		outboxWorker:   outboxWorker,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		traceShutdown:  traceShutdown,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go a.outboxWorker.Start(context.Background())

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.outboxWorker.Stop()
	a.registry.Close()

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if err := a.traceShutdown(ctx); err != nil {
		slog.Error("Tracer shutdown error", "error", err)
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	slog.Info("Application shutdown complete")
}
