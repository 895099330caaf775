package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// ListByUser returns the user's cart rows joined with live product data.
func (r *cartRepository) ListByUser(ctx context.Context, userID string) ([]model.CartLine, error) {
	query := `
		SELECT ci.id, ci.product_id, p.name, COALESCE(p.images[1], ''), ci.price,
			ci.quantity, p.stock_quantity, p.active, ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		err := rows.Scan(&l.ID, &l.ProductID, &l.Name, &l.Image, &l.Price,
			&l.Quantity, &l.Stock, &l.Active, &l.AddedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return lines, nil
}

// GetForUpdate locks and returns the (user, product) row.
func (r *cartRepository) GetForUpdate(ctx context.Context, userID, productID string) (*model.CartItem, error) {
	query := `
		SELECT id, user_id, product_id, quantity, price, created_at, updated_at
		FROM cart_items
		WHERE user_id = $1 AND product_id = $2
		FOR UPDATE
	`

	var item model.CartItem
	err := conn(ctx, r.pool).QueryRow(ctx, query, userID, productID).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.Price,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).
			Str("user_id", userID).
			Str("product_id", productID).
			Msg("failed to query cart item")
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}

	return &item, nil
}

// Insert adds a row unless one already exists for the same (user, product).
func (r *cartRepository) Insert(ctx context.Context, item *model.CartItem) (bool, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, product_id) DO NOTHING
		RETURNING id
	`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		item.UserID, item.ProductID, item.Quantity, item.Price, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		r.logger.Error().Err(err).
			Str("user_id", item.UserID).
			Str("product_id", item.ProductID).
			Msg("failed to insert cart item")
		return false, fmt.Errorf("failed to insert cart item: %w", err)
	}

	return true, nil
}

// UpdateQuantity sets the quantity of an existing row.
func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $3, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2
	`

	if _, err := conn(ctx, r.pool).Exec(ctx, query, userID, productID, quantity); err != nil {
		r.logger.Error().Err(err).
			Str("user_id", userID).
			Str("product_id", productID).
			Msg("failed to update cart item")
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return nil
}

// Delete removes one row.
func (r *cartRepository) Delete(ctx context.Context, userID, productID string) (bool, error) {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	tag, err := conn(ctx, r.pool).Exec(ctx, query, userID, productID)
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", userID).
			Str("product_id", productID).
			Msg("failed to delete cart item")
		return false, fmt.Errorf("failed to delete cart item: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// DeleteByUser empties the user's cart.
func (r *cartRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM cart_items WHERE user_id = $1`

	tag, err := conn(ctx, r.pool).Exec(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to clear cart")
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	return tag.RowsAffected(), nil
}
