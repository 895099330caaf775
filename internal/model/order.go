package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus records the outcome of payment authorisation for an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Totals is the monetary breakdown of a set of line items.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ShippingAddress is stored as a JSON document on the order row.
type ShippingAddress struct {
	Name    string `json:"name,omitempty"`
	Street  string `json:"street,omitempty"`
	Address string `json:"address,omitempty"`
	Number  string `json:"number,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// Complete reports whether the address has a first line and a city.
func (a *ShippingAddress) Complete() bool {
	if a == nil {
		return false
	}
	line := strings.TrimSpace(a.Street)
	if line == "" {
		line = strings.TrimSpace(a.Address)
	}
	return line != "" && strings.TrimSpace(a.City) != ""
}

// Order represents a customer order.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	UserID          string          `json:"userId" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	PaymentMethod   string          `json:"paymentMethod" db:"payment_method"`
	PaymentID       *string         `json:"paymentId" db:"payment_id"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxAmount       decimal.Decimal `json:"taxAmount" db:"tax_amount"`
	ShippingAmount  decimal.Decimal `json:"shippingAmount" db:"shipping_amount"`
	Total           decimal.Decimal `json:"total" db:"total"`
	ShippingAddress ShippingAddress `json:"shippingAddress" db:"shipping_address"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	ShippedAt       *time.Time      `json:"shippedAt" db:"shipped_at"`
	DeliveredAt     *time.Time      `json:"deliveredAt" db:"delivered_at"`
	CancelledAt     *time.Time      `json:"cancelledAt" db:"cancelled_at"`
}

// ApplyTotals copies a computed breakdown onto the order.
func (o *Order) ApplyTotals(t Totals) {
	o.Subtotal = t.Subtotal
	o.ShippingAmount = t.Shipping
	o.TaxAmount = t.Tax
	o.Total = t.Total
}

// Item returns the line for productID, or nil.
func (o *Order) Item(productID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID        uuid.UUID       `json:"-" db:"id"`
	OrderID   uuid.UUID       `json:"-" db:"order_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Name      string          `json:"name" db:"product_name"`
	Image     string          `json:"image" db:"product_image"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Total     decimal.Decimal `json:"total" db:"total"`
}

// WholeCents reports whether price has no more than two decimal places.
func WholeCents(price decimal.Decimal) bool {
	return price.Equal(price.Truncate(2))
}

// Recalculate sets the line total from price and quantity.
func (i *OrderItem) Recalculate() {
	i.Total = i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// OrderSummary is an order row as shown in list views.
type OrderSummary struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	UserID         string          `json:"userId"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	PaymentMethod  string          `json:"paymentMethod"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	ShippingAmount decimal.Decimal `json:"shippingAmount"`
	Total          decimal.Decimal `json:"total"`
	ItemCount      int             `json:"itemCount"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	ShippedAt      *time.Time      `json:"shippedAt"`
	DeliveredAt    *time.Time      `json:"deliveredAt"`
}

// OrderFilter narrows order listings. An empty UserID lists every customer.
type OrderFilter struct {
	Page   int
	Limit  int
	Status OrderStatus
	UserID string
}

// OrderPage is one page of order summaries.
type OrderPage struct {
	Orders []OrderSummary
	Total  int
	Page   int
	Limit  int
}

// OrderRequest represents the request payload for creating an order.
// Line prices are taken from the client as-is.
type OrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	Total           *decimal.Decimal   `json:"total"`
	ShippingAddress *ShippingAddress   `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	PaymentDetails  map[string]any     `json:"paymentDetails,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// UpdateOrderItemRequest changes quantity, price or both on an existing line.
type UpdateOrderItemRequest struct {
	Quantity *int             `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

// StatusUpdateRequest is the admin payload for setting an order status.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

// OrderResult is a created order plus the payment outcome.
type OrderResult struct {
	Order            *Order
	PaymentSucceeded bool
	PaymentMessage   string
}
