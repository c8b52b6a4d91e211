package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tableside/order/internal/dal/postgres"
	"github.com/tableside/order/internal/service/errs"
	"github.com/tableside/order/internal/service/models/order"
	"github.com/tableside/order/internal/service/models/orderline"
	"github.com/tableside/order/internal/service/models/status"
)

const pgUniqueViolation = "23505"

var orderColumns = []string{
	"id",
	"table_number",
	"restaurant_id",
	"total_price_cents",
	"status",
	"coalesce(idempotency_key, '')",
	"created_at",
	"updated_at",
}

// OrderRepository implements order storage for PostgreSQL. Orders are
// written once; only the status column is ever updated afterwards.
type OrderRepository struct {
	conn postgres.Querier
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(conn postgres.Querier) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

// Insert persists a new order with its lines.
func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (*order.Order, error) {
	now := time.Now()

	var key any
	if o.IdempotencyKey != "" {
		key = o.IdempotencyKey
	}

	query, args, err := sq.Insert("orders").
		Columns("table_number", "restaurant_id", "total_price_cents", "status", "idempotency_key", "created_at", "updated_at").
		Values(o.TableNumber, o.RestaurantID, o.TotalPriceCents, o.Status, key, now, now).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order insert query: %w", err)
	}

	err = r.conn.QueryRow(ctx, query, args...).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, errs.ErrDuplicateOrder
		}

		return nil, postgres.MapError(fmt.Errorf("failed to insert order: %w", err))
	}

	if len(o.Lines) > 0 {
		builder := sq.Insert("order_lines").
			Columns("order_id", "menu_item_id", "name", "quantity", "notes", "price_at_order_cents").
			Suffix("RETURNING id").
			PlaceholderFormat(sq.Dollar)
		for _, line := range o.Lines {
			builder = builder.Values(o.ID, line.MenuItemID, line.Name, line.Quantity, line.Notes, line.PriceAtOrderCents)
		}

		query, args, err = builder.ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build order lines insert query: %w", err)
		}

		rows, err := r.conn.Query(ctx, query, args...)
		if err != nil {
			return nil, postgres.MapError(fmt.Errorf("failed to insert order lines: %w", err))
		}
		defer rows.Close()

		i := 0
		for rows.Next() {
			if err := rows.Scan(&o.Lines[i].ID); err != nil {
				return nil, fmt.Errorf("failed to scan order line id: %w", err)
			}
			o.Lines[i].OrderID = o.ID
			i++
		}
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("rows iteration error: %w", err)
		}
	}

	return &o, nil
}

// GetByID loads an order scoped to a restaurant.
func (r *OrderRepository) GetByID(ctx context.Context, orderID int64, restaurantID int64) (*order.Order, error) {
	return r.getOne(ctx, sq.Eq{"id": orderID, "restaurant_id": restaurantID})
}

// GetByIdempotencyKey returns the order previously created under key.
func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*order.Order, bool, error) {
	o, err := r.getOne(ctx, sq.Eq{"idempotency_key": key})
	if errors.Is(err, errs.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return o, true, nil
}

// ListByRestaurant returns all orders for a restaurant, newest first.
func (r *OrderRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]order.Order, error) {
	return r.list(ctx, sq.Eq{"restaurant_id": restaurantID})
}

// ListByTable returns all orders for one table at a restaurant, newest first.
func (r *OrderRepository) ListByTable(ctx context.Context, tableNumber int, restaurantID int64) ([]order.Order, error) {
	return r.list(ctx, sq.Eq{"table_number": tableNumber, "restaurant_id": restaurantID})
}

// UpdateStatus persists a new status for an order belonging to restaurantID.
func (r *OrderRepository) UpdateStatus(
	ctx context.Context,
	orderID int64,
	restaurantID int64,
	newStatus status.Status,
) (*order.Order, error) {
	query, args, err := sq.Update("orders").
		Set("status", newStatus).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": orderID, "restaurant_id": restaurantID}).
		Suffix("RETURNING " + joinColumns()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build status update query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("failed to update order status: %w", err))
	}

	lines, err := r.queryLines(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]

	return o, nil
}

func (r *OrderRepository) getOne(ctx context.Context, where sq.Eq) (*order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(where).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("failed to query order: %w", err))
	}

	lines, err := r.queryLines(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]

	return o, nil
}

func (r *OrderRepository) list(ctx context.Context, where sq.Eq) ([]order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("failed to query orders: %w", err))
	}
	defer rows.Close()

	orders := make([]order.Order, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.queryLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}

	return orders, nil
}

func (r *OrderRepository) queryLines(ctx context.Context, orderIDs []int64) (map[int64][]orderline.OrderLine, error) {
	query, args, err := sq.Select("id", "order_id", "menu_item_id", "name", "quantity", "notes", "price_at_order_cents").
		From("order_lines").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order lines query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("failed to query order lines: %w", err))
	}
	defer rows.Close()

	result := make(map[int64][]orderline.OrderLine, len(orderIDs))
	for rows.Next() {
		var line orderline.OrderLine
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.MenuItemID,
			&line.Name,
			&line.Quantity,
			&line.Notes,
			&line.PriceAtOrderCents,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		result[line.OrderID] = append(result[line.OrderID], line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func joinColumns() string {
	cols := ""
	for i, c := range orderColumns {
		if i > 0 {
			cols += ", "
		}
		cols += c
	}

	return cols
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o   order.Order
		raw string
	)
	err := row.Scan(
		&o.ID,
		&o.TableNumber,
		&o.RestaurantID,
		&o.TotalPriceCents,
		&raw,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status, err = status.ParseStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", o.ID, err)
	}

	return &o, nil
}
