package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/tableside/order/internal/dal/postgres"
	"github.com/tableside/order/internal/service/errs"
	"github.com/tableside/order/internal/service/models/catalog"
)

// CatalogRepository reads menu items from PostgreSQL. Menu CRUD itself is
// owned by the catalog service; this repository only resolves price,
// availability and display data.
type CatalogRepository struct {
	conn postgres.Querier
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(conn postgres.Querier) *CatalogRepository {
	return &CatalogRepository{
		conn: conn,
	}
}

// Lookup returns one menu item by id regardless of owning restaurant.
func (r *CatalogRepository) Lookup(ctx context.Context, menuItemID int64) (catalog.Item, error) {
	query, args, err := sq.Select(
		"id",
		"restaurant_id",
		"name",
		"price_cents",
		"image_url",
		"is_available",
	).
		From("menu_items").
		Where(sq.Eq{"id": menuItemID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return catalog.Item{}, fmt.Errorf("failed to build lookup query: %w", err)
	}

	var item catalog.Item
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&item.ID,
		&item.RestaurantID,
		&item.Name,
		&item.PriceCents,
		&item.ImageURL,
		&item.IsAvailable,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Item{}, errs.ErrItemUnavailable
	}
	if err != nil {
		return catalog.Item{}, postgres.MapError(fmt.Errorf("failed to lookup menu item: %w", err))
	}

	return item, nil
}

// Resolve returns current data for the given menu items of one restaurant
// in a single batched query. Missing ids are absent from the result.
func (r *CatalogRepository) Resolve(
	ctx context.Context,
	restaurantID int64,
	menuItemIDs []int64,
) (map[int64]catalog.Item, error) {
	result := make(map[int64]catalog.Item, len(menuItemIDs))
	if len(menuItemIDs) == 0 {
		return result, nil
	}

	query, args, err := sq.Select(
		"id",
		"restaurant_id",
		"name",
		"price_cents",
		"image_url",
		"is_available",
	).
		From("menu_items").
		Where(sq.Eq{"restaurant_id": restaurantID}).
		Where(sq.Eq{"id": menuItemIDs}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build resolve query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("failed to resolve menu items: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var item catalog.Item
		err := rows.Scan(
			&item.ID,
			&item.RestaurantID,
			&item.Name,
			&item.PriceCents,
			&item.ImageURL,
			&item.IsAvailable,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		result[item.ID] = item
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
