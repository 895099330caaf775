package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const orderColumns = `
	id, order_number, user_id, status, payment_status, payment_method, payment_id,
	subtotal, tax_amount, shipping_amount, total, shipping_address,
	created_at, updated_at, shipped_at, delivered_at, cancelled_at
`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create inserts the order row.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (id, order_number, user_id, status, payment_status, payment_method,
			payment_id, subtotal, tax_amount, shipping_amount, total, shipping_address,
			created_at, updated_at, shipped_at, delivered_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.Status,
		order.PaymentStatus,
		order.PaymentMethod,
		order.PaymentID,
		order.Subtotal,
		order.TaxAmount,
		order.ShippingAmount,
		order.Total,
		order.ShippingAddress,
		order.CreatedAt,
		order.UpdatedAt,
		order.ShippedAt,
		order.DeliveredAt,
		order.CancelledAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateItems inserts multiple order items in one batch.
func (r *orderRepository) CreateItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_image, quantity, price, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Name, item.Image,
			item.Quantity, item.Price, item.Total)
	}

	results := conn(ctx, r.pool).SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the order row until the surrounding transaction ends.
// All item mutations lock the order first, so the items are covered too.
func (r *orderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.get(ctx, id, true)
}

func (r *orderRepository) get(ctx context.Context, id uuid.UUID, lock bool) (*model.Order, error) {
	orderQuery := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		orderQuery += ` FOR UPDATE`
	}

	db := conn(ctx, r.pool)

	var order model.Order
	err := db.QueryRow(ctx, orderQuery, id).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.PaymentID,
		&order.Subtotal,
		&order.TaxAmount,
		&order.ShippingAmount,
		&order.Total,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ShippedAt,
		&order.DeliveredAt,
		&order.CancelledAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, product_name, product_image, quantity, price, total
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, product_id
	`

	rows, err := db.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	order.Items = []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Image,
			&item.Quantity, &item.Price, &item.Total)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return &order, nil
}

// InsertItem adds a line to an order.
func (r *orderRepository) InsertItem(ctx context.Context, item *model.OrderItem) error {
	return r.CreateItems(ctx, []model.OrderItem{*item})
}

// UpdateItem saves quantity, price and total of an existing line.
func (r *orderRepository) UpdateItem(ctx context.Context, item *model.OrderItem) error {
	query := `
		UPDATE order_items
		SET quantity = $3, price = $4, total = $5
		WHERE order_id = $1 AND product_id = $2
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query, item.OrderID, item.ProductID, item.Quantity, item.Price, item.Total)
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", item.OrderID.String()).
			Str("product_id", item.ProductID).
			Msg("failed to update order item")
		return fmt.Errorf("failed to update order item: %w", err)
	}

	return nil
}

// DeleteItem removes a line from an order.
func (r *orderRepository) DeleteItem(ctx context.Context, orderID uuid.UUID, productID string) error {
	query := `DELETE FROM order_items WHERE order_id = $1 AND product_id = $2`

	if _, err := conn(ctx, r.pool).Exec(ctx, query, orderID, productID); err != nil {
		r.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Str("product_id", productID).
			Msg("failed to delete order item")
		return fmt.Errorf("failed to delete order item: %w", err)
	}

	return nil
}

// SumItemTotals returns the sum of the persisted line totals, zero when the
// order has no lines.
func (r *orderRepository) SumItemTotals(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(total), 0) FROM order_items WHERE order_id = $1`

	var sum decimal.Decimal
	if err := conn(ctx, r.pool).QueryRow(ctx, query, orderID).Scan(&sum); err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to sum order items")
		return decimal.Zero, fmt.Errorf("failed to sum order items: %w", err)
	}

	return sum, nil
}

// UpdateTotals saves the monetary breakdown of an order.
func (r *orderRepository) UpdateTotals(ctx context.Context, orderID uuid.UUID, totals model.Totals, updatedAt time.Time) error {
	query := `
		UPDATE orders
		SET subtotal = $2, shipping_amount = $3, tax_amount = $4, total = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query, orderID, totals.Subtotal, totals.Shipping, totals.Tax, totals.Total, updatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to update order totals")
		return fmt.Errorf("failed to update order totals: %w", err)
	}

	return nil
}

// UpdateStatus saves status, updated_at and the lifecycle timestamps.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *model.Order) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = $3, shipped_at = $4, delivered_at = $5, cancelled_at = $6
		WHERE id = $1
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		order.ID, order.Status, order.UpdatedAt, order.ShippedAt, order.DeliveredAt, order.CancelledAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Str("status", string(order.Status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

// List returns one page of order summaries, newest first.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.OrderSummary, int, error) {
	var conds []string
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, "o.user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "o.status = $"+strconv.Itoa(len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	db := conn(ctx, r.pool)

	var total int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM orders o "+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	if offset < 0 {
		offset = 0
	}
	pageArgs := append(append([]any{}, args...), filter.Limit, offset)

	query := fmt.Sprintf(`
		SELECT o.id, o.order_number, o.user_id, o.status, o.payment_status, o.payment_method,
			o.subtotal, o.tax_amount, o.shipping_amount, o.total,
			(SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id),
			o.created_at, o.updated_at, o.shipped_at, o.delivered_at
		FROM orders o
		%s
		ORDER BY o.created_at DESC, o.id
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	rows, err := db.Query(ctx, query, pageArgs...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	summaries := []model.OrderSummary{}
	for rows.Next() {
		var s model.OrderSummary
		err := rows.Scan(&s.ID, &s.OrderNumber, &s.UserID, &s.Status, &s.PaymentStatus, &s.PaymentMethod,
			&s.Subtotal, &s.TaxAmount, &s.ShippingAmount, &s.Total, &s.ItemCount,
			&s.CreatedAt, &s.UpdatedAt, &s.ShippedAt, &s.DeliveredAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return summaries, total, nil
}
