package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `
	p.id, p.name, p.description, p.price, p.stock_quantity, p.category_id,
	COALESCE(c.name, ''), p.images, p.featured, p.active, p.created_at, p.updated_at
`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// productWhere builds the WHERE clause for a catalogue filter. User input is
// only ever bound as a parameter.
func productWhere(filter model.ProductFilter) (string, []any) {
	var conds []string
	switch filter.Status {
	case model.ProductStatusAll:
	case model.ProductStatusInactive:
		conds = append(conds, "p.active = FALSE")
	default:
		conds = append(conds, "p.active = TRUE")
	}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if category := strings.TrimSpace(filter.Category); category != "" {
		if id, err := strconv.ParseInt(category, 10, 64); err == nil {
			conds = append(conds, "p.category_id = "+next(id))
		} else {
			conds = append(conds, "LOWER(c.name) = LOWER("+next(category)+")")
		}
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		ph := next("%" + escapeLike(search) + "%")
		conds = append(conds, fmt.Sprintf("(p.name ILIKE %s OR p.description ILIKE %s)", ph, ph))
	}

	if filter.MinPrice != nil {
		conds = append(conds, "p.price >= "+next(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "p.price <= "+next(*filter.MaxPrice))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// productOrderBy maps the requested sort onto a whitelisted column.
func productOrderBy(sortBy, sortOrder string) string {
	column, ok := model.ProductSortColumns[strings.ToLower(sortBy)]
	if !ok {
		column = "p.created_at"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "ASC") {
		direction = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, p.id", column, direction)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns one page of products matching the filter.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	where, args := productWhere(filter)
	db := conn(ctx, r.pool)

	countQuery := `
		SELECT COUNT(*)
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		` + where

	var total int
	if err := db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count products")
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	limit := filter.Limit
	offset := (filter.Page - 1) * filter.Limit
	if offset < 0 {
		offset = 0
	}
	pageArgs := append(append([]any{}, args...), limit, offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		%s
		%s
		LIMIT $%d OFFSET $%d
	`, productColumns, where, productOrderBy(filter.SortBy, filter.SortOrder), len(args)+1, len(args)+2)

	rows, err := db.Query(ctx, query, pageArgs...)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}

	products, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListFeatured returns active featured products, newest first.
func (r *productRepository) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.active = TRUE AND p.featured = TRUE
		ORDER BY p.created_at DESC, p.id
		LIMIT $1
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, limit)
	if err != nil {
		r.logger.Error().Err(err).Int("limit", limit).Msg("failed to query featured products")
		return nil, fmt.Errorf("failed to query featured products: %w", err)
	}
	return r.collect(rows)
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	p, err := scanProduct(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

// Create inserts a new product.
func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, stock_quantity, category_id,
			images, featured, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CategoryID,
		nonNilImages(p.Images), p.Featured, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update overwrites every mutable column of an existing product.
func (r *productRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock_quantity = $5, category_id = $6,
			images = $7, featured = $8, active = $9, updated_at = $10
		WHERE id = $1
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CategoryID,
		nonNilImages(p.Images), p.Featured, p.Active, p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID).Msg("failed to update product")
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Upsert inserts a product or replaces it when the id already exists.
func (r *productRepository) Upsert(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, stock_quantity, category_id,
			images, featured, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			category_id = EXCLUDED.category_id,
			images = EXCLUDED.images,
			featured = EXCLUDED.featured,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CategoryID,
		nonNilImages(p.Images), p.Featured, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID).Msg("failed to upsert product")
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// Deactivate soft-deletes a product so order history keeps its reference.
func (r *productRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE products
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to deactivate product")
		return false, fmt.Errorf("failed to deactivate product: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListCategories returns active categories with their active product counts.
func (r *productRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	query := `
		SELECT c.id, c.name, c.description, c.active, COUNT(p.id)
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id AND p.active = TRUE
		WHERE c.active = TRUE
		GROUP BY c.id, c.name, c.description, c.active
		ORDER BY c.name
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.ProductCount); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan category row")
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating category rows")
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// GetCategory retrieves a category by id.
func (r *productRepository) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	query := `
		SELECT id, name, description, active
		FROM categories
		WHERE id = $1
	`

	var c model.Category
	err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.Active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("category_id", id).Msg("failed to query category")
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &c, nil
}

func (r *productRepository) collect(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.CategoryID,
		&p.CategoryName,
		&p.Images,
		&p.Featured,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
