package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one persisted cart row. Price is the product price at the
// moment the row was first added and is not re-synced afterwards.
type CartItem struct {
	ID        int64           `json:"id" db:"id"`
	UserID    string          `json:"-" db:"user_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"addedAt" db:"created_at"`
	UpdatedAt time.Time       `json:"-" db:"updated_at"`
}

// CartLine is a cart row joined with the live product it refers to.
type CartLine struct {
	ID        int64           `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
	Active    bool            `json:"-"`
	AddedAt   time.Time       `json:"addedAt"`
}

// LineTotal is the snapshot price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the customer's cart view.
type Cart struct {
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// CheckoutLine is a cart line as presented at checkout.
type CheckoutLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CheckoutSummary is a stock-validated cart with computed totals.
type CheckoutSummary struct {
	Items     []CheckoutLine `json:"items"`
	Totals    Totals         `json:"totals"`
	ItemCount int            `json:"itemCount"`
}

// CartItemRequest represents the request payload for adding to the cart.
type CartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// CartQuantityRequest represents the request payload for changing a cart line.
type CartQuantityRequest struct {
	Quantity *int `json:"quantity"`
}
