package service

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for the product catalogue.
type ProductService interface {
	// List returns one page of active products matching the filter.
	List(ctx context.Context, filter model.ProductFilter) (*model.ProductPage, error)

	// Featured returns up to limit active featured products.
	Featured(ctx context.Context, limit int) ([]model.Product, error)

	// GetByID retrieves an active product.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// AdminList returns one page of products of any status matching the filter.
	AdminList(ctx context.Context, filter model.ProductFilter) (*model.ProductPage, error)

	// AdminGet retrieves a product whatever its active flag.
	AdminGet(ctx context.Context, id string) (*model.Product, error)

	// Categories lists active categories with product counts.
	Categories(ctx context.Context) ([]model.Category, error)

	// Create adds a product to the catalogue.
	Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error)

	// Update applies the non-nil fields of req to an existing product.
	Update(ctx context.Context, id string, req *model.ProductRequest) (*model.Product, error)

	// Delete soft-deletes a product.
	Delete(ctx context.Context, id string) error
}

// CartService defines operations on a customer's cart.
type CartService interface {
	// GetCart returns the cart with its snapshot total.
	GetCart(ctx context.Context, userID string) (*model.Cart, error)

	// AddItem adds quantity of a product, merging with an existing line.
	AddItem(ctx context.Context, userID string, req *model.CartItemRequest) (*model.Cart, error)

	// UpdateItem sets a line's quantity. Zero removes the line.
	UpdateItem(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error)

	// RemoveItem deletes a line.
	RemoveItem(ctx context.Context, userID, productID string) (*model.Cart, error)

	// Clear empties the cart.
	Clear(ctx context.Context, userID string) error

	// Checkout validates every line against live stock and prices the cart.
	Checkout(ctx context.Context, userID string) (*model.CheckoutSummary, error)
}

// OrderService defines operations for the order lifecycle.
type OrderService interface {
	// CreateOrder authorises payment and persists the order with its items.
	// A declined payment still creates the order, cancelled.
	CreateOrder(ctx context.Context, userID string, req *model.OrderRequest) (*model.OrderResult, error)

	// ListOrders returns one page of orders. An empty filter.UserID lists all customers.
	ListOrders(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error)

	// GetOrder retrieves an order owned by userID.
	GetOrder(ctx context.Context, userID string, id uuid.UUID) (*model.Order, error)

	// Tracking builds the fulfilment timeline of an order owned by userID.
	Tracking(ctx context.Context, userID string, id uuid.UUID) (*model.Tracking, error)

	// CancelOrder cancels a processing order owned by userID.
	CancelOrder(ctx context.Context, userID string, id uuid.UUID) (*model.Order, error)

	// SetStatus sets any known status as an administrative override.
	SetStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	// AddItem adds a line to an open order, merging quantities on the same product.
	AddItem(ctx context.Context, id uuid.UUID, req *model.OrderItemRequest) (*model.Order, error)

	// UpdateItem changes quantity and/or price of a line on an open order.
	UpdateItem(ctx context.Context, id uuid.UUID, productID string, req *model.UpdateOrderItemRequest) (*model.Order, error)

	// RemoveItem deletes a line from an open order. The last line cannot be removed.
	RemoveItem(ctx context.Context, id uuid.UUID, productID string) (*model.Order, error)
}
