package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Every repository method runs on the transaction carried by ctx when there
// is one (see Transactor), otherwise directly on the pool. Lookups return
// nil, nil when the row does not exist.

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List returns one page of products matching the filter and the total
	// number of matches. Only active products match unless filter.Status says
	// otherwise.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error)

	// ListFeatured returns active featured products, newest first.
	ListFeatured(ctx context.Context, limit int) ([]model.Product, error)

	// GetByID retrieves a single product regardless of its active flag.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// Create inserts a new product.
	Create(ctx context.Context, product *model.Product) error

	// Update overwrites every mutable column of an existing product.
	Update(ctx context.Context, product *model.Product) error

	// Upsert inserts a product or replaces it when the id already exists.
	Upsert(ctx context.Context, product *model.Product) error

	// Deactivate soft-deletes a product. It reports false when no row matched.
	Deactivate(ctx context.Context, id string) (bool, error)

	// ListCategories returns active categories with their active product counts.
	ListCategories(ctx context.Context) ([]model.Category, error)

	// GetCategory retrieves a category by id.
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
}

// CartRepository defines the interface for cart data access operations.
type CartRepository interface {
	// ListByUser returns the user's cart rows joined with live product data,
	// oldest first.
	ListByUser(ctx context.Context, userID string) ([]model.CartLine, error)

	// GetForUpdate locks and returns the (user, product) row.
	GetForUpdate(ctx context.Context, userID, productID string) (*model.CartItem, error)

	// Insert adds a row. It reports false, without error, when a row for the
	// same (user, product) already exists.
	Insert(ctx context.Context, item *model.CartItem) (bool, error)

	// UpdateQuantity sets the quantity of an existing row.
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error

	// Delete removes one row. It reports false when no row matched.
	Delete(ctx context.Context, userID, productID string) (bool, error)

	// DeleteByUser empties the user's cart.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts the order row.
	Create(ctx context.Context, order *model.Order) error

	// CreateItems inserts order items in one batch.
	CreateItems(ctx context.Context, items []model.OrderItem) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForUpdate locks the order row for the rest of the transaction and
	// returns it with its items.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// InsertItem adds a line to an order.
	InsertItem(ctx context.Context, item *model.OrderItem) error

	// UpdateItem saves quantity, price and total of an existing line.
	UpdateItem(ctx context.Context, item *model.OrderItem) error

	// DeleteItem removes a line from an order.
	DeleteItem(ctx context.Context, orderID uuid.UUID, productID string) error

	// SumItemTotals returns the sum of the persisted line totals.
	SumItemTotals(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)

	// UpdateTotals saves the monetary breakdown of an order.
	UpdateTotals(ctx context.Context, orderID uuid.UUID, totals model.Totals, updatedAt time.Time) error

	// UpdateStatus saves status, updated_at and the lifecycle timestamps.
	UpdateStatus(ctx context.Context, order *model.Order) error

	// List returns one page of order summaries, newest first, and the total
	// number of matches.
	List(ctx context.Context, filter model.OrderFilter) ([]model.OrderSummary, int, error)
}
