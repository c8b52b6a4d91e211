package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tableside/order/internal/dal/interfaces/icartrepo"
	"github.com/tableside/order/internal/dal/interfaces/iorderrepo"
	"github.com/tableside/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/tableside/order/internal/dal/postgres"
	cartrepo "github.com/tableside/order/internal/dal/repositories/cart/postgres"
	orderrepo "github.com/tableside/order/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/tableside/order/internal/dal/repositories/outbox/postgres"
)

// unitOfWork binds the cart, order and outbox repositories to one pgx
// transaction so order placement can snapshot the cart, write the order,
// clear the cart and enqueue the event atomically.
type unitOfWork struct {
	client *postgres.Client
	tx     pgx.Tx
	ctx    context.Context

	cartRepo   icartrepo.ICartRepository
	orderRepo  iorderrepo.IOrderRepository
	outboxRepo ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	return &unitOfWork{
		client:     client,
		cartRepo:   cartrepo.NewCartRepository(client.Pool()),
		orderRepo:  orderrepo.NewOrderRepository(client.Pool()),
		outboxRepo: outboxrepo.NewOutboxRepository(client.Pool()),
	}
}

func (u *unitOfWork) CartRepository() icartrepo.ICartRepository {
	return u.cartRepo
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return postgres.MapError(err)
	}

	u.tx = tx
	u.ctx = ctx
	// Rebind repositories to the transaction
	u.cartRepo = cartrepo.NewCartRepository(tx)
	u.orderRepo = orderrepo.NewOrderRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(u.ctx)
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(u.ctx)
}
