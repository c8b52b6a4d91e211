package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tableside/order/internal/dal/postgres"
	"github.com/tableside/order/internal/service/errs"
	"github.com/tableside/order/internal/service/models/cart"
	"github.com/tableside/order/internal/service/models/cartline"
)

// CartRepository implements cart storage for PostgreSQL. A cart is one row
// in carts plus its cart_lines; Save rewrites the lines as a whole, which
// keeps the merge-by-item invariant enforceable in one place.
type CartRepository struct {
	conn postgres.Querier
}

// NewCartRepository creates a new cart repository.
func NewCartRepository(conn postgres.Querier) *CartRepository {
	return &CartRepository{
		conn: conn,
	}
}

// GetByTable loads the cart for (tableNumber, restaurantID) with its lines.
func (r *CartRepository) GetByTable(
	ctx context.Context,
	tableNumber int,
	restaurantID int64,
) (*cart.Cart, error) {
	query, args, err := sq.Select(
		"id",
		"table_number",
		"restaurant_id",
		"total_price_cents",
		"version",
		"created_at",
		"updated_at",
	).
		From("carts").
		Where(sq.Eq{"table_number": tableNumber, "restaurant_id": restaurantID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build cart query: %w", err)
	}

	var c cart.Cart
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&c.ID,
		&c.TableNumber,
		&c.RestaurantID,
		&c.TotalPriceCents,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrCartNotFound
	}
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("failed to query cart: %w", err))
	}

	c.Lines, err = r.queryLines(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// GetOrCreate loads the cart, lazily creating the row on first use. The
// unique index on (table_number, restaurant_id) collapses concurrent
// creations into one row.
func (r *CartRepository) GetOrCreate(
	ctx context.Context,
	tableNumber int,
	restaurantID int64,
) (*cart.Cart, error) {
	now := time.Now()

	query, args, err := sq.Insert("carts").
		Columns("table_number", "restaurant_id", "total_price_cents", "version", "created_at", "updated_at").
		Values(tableNumber, restaurantID, 0, 0, now, now).
		Suffix("ON CONFLICT (table_number, restaurant_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build cart insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("failed to create cart: %w", err))
	}

	return r.GetByTable(ctx, tableNumber, restaurantID)
}

// Save replaces the cart's lines and cached total and bumps the version.
// The rewrite is a header update plus a delete-and-reinsert of the lines,
// so it always runs transactionally: in its own transaction when the
// repository is bound to the pool, as a savepoint when already inside one.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	db, ok := r.conn.(interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	})
	if !ok {
		return r.save(ctx, r.conn, c)
	}

	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		return r.save(ctx, tx, c)
	})
	if err != nil {
		return postgres.MapError(err)
	}

	return nil
}

func (r *CartRepository) save(ctx context.Context, conn postgres.Querier, c *cart.Cart) error {
	query, args, err := sq.Update("carts").
		Set("total_price_cents", c.TotalPriceCents).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": c.ID}).
		Suffix("RETURNING version, updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cart update query: %w", err)
	}

	err = conn.QueryRow(ctx, query, args...).Scan(&c.Version, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrCartNotFound
	}
	if err != nil {
		return postgres.MapError(fmt.Errorf("failed to update cart: %w", err))
	}

	if err := r.deleteLines(ctx, conn, c.ID); err != nil {
		return err
	}

	if len(c.Lines) == 0 {
		return nil
	}

	builder := sq.Insert("cart_lines").
		Columns("cart_id", "menu_item_id", "quantity", "notes").
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar)
	for _, line := range c.Lines {
		builder = builder.Values(c.ID, line.MenuItemID, line.Quantity, line.Notes)
	}

	query, args, err = builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cart lines insert query: %w", err)
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("failed to insert cart lines: %w", err))
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if err := rows.Scan(&c.Lines[i].ID); err != nil {
			return fmt.Errorf("failed to scan cart line id: %w", err)
		}
		c.Lines[i].CartID = c.ID
		i++
	}

	return rows.Err()
}

// ClearLines empties the cart keeping the row. The version guard rejects a
// clear racing against a mutation the caller has not seen.
func (r *CartRepository) ClearLines(ctx context.Context, cartID int64, fromVersion int64) error {
	query, args, err := sq.Update("carts").
		Set("total_price_cents", 0).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": cartID, "version": fromVersion}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cart clear query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("failed to clear cart: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart %d changed since it was loaded (version %d)", cartID, fromVersion)
	}

	return r.deleteLines(ctx, r.conn, cartID)
}

func (r *CartRepository) deleteLines(ctx context.Context, conn postgres.Querier, cartID int64) error {
	query, args, err := sq.Delete("cart_lines").
		Where(sq.Eq{"cart_id": cartID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cart lines delete query: %w", err)
	}

	if _, err := conn.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(fmt.Errorf("failed to delete cart lines: %w", err))
	}

	return nil
}

func (r *CartRepository) queryLines(ctx context.Context, cartID int64) ([]cartline.CartLine, error) {
	query, args, err := sq.Select("id", "cart_id", "menu_item_id", "quantity", "notes").
		From("cart_lines").
		Where(sq.Eq{"cart_id": cartID}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build cart lines query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("failed to query cart lines: %w", err))
	}
	defer rows.Close()

	lines := make([]cartline.CartLine, 0)
	for rows.Next() {
		var line cartline.CartLine
		if err := rows.Scan(&line.ID, &line.CartID, &line.MenuItemID, &line.Quantity, &line.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return lines, nil
}
