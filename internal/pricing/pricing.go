// Package pricing derives order totals from line items.
package pricing

import (
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Config holds the shipping and tax parameters.
type Config struct {
	// Subtotals strictly above this ship free.
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultConfig returns the storefront's standard rates.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(200),
		FlatShipping:          decimal.RequireFromString("15.99"),
		TaxRate:               decimal.RequireFromString("0.10"),
	}
}

// Line is a unit price and quantity pair.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Calculator computes totals. It holds no state beyond its configuration
// and is safe for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a new calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute sums price times quantity over the lines, rounds the sum once and
// derives shipping, tax and total. An empty list yields a zero subtotal with
// flat shipping; callers never create empty orders.
func (c *Calculator) Compute(lines []Line) model.Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return c.FromSubtotal(subtotal)
}

// FromSubtotal derives shipping, tax and total from an already summed
// subtotal, such as the persisted sum of an order's line totals.
func (c *Calculator) FromSubtotal(subtotal decimal.Decimal) model.Totals {
	subtotal = subtotal.Round(2)

	shipping := c.cfg.FlatShipping
	if subtotal.GreaterThan(c.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(c.cfg.TaxRate).Round(2)

	return model.Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// OrderLines adapts order items to calculator lines.
func OrderLines(items []model.OrderItem) []Line {
	lines := make([]Line, len(items))
	for i, item := range items {
		lines[i] = Line{UnitPrice: item.Price, Quantity: item.Quantity}
	}
	return lines
}

// CartLines adapts cart lines to calculator lines.
func CartLines(items []model.CartLine) []Line {
	lines := make([]Line, len(items))
	for i, item := range items {
		lines[i] = Line{UnitPrice: item.Price, Quantity: item.Quantity}
	}
	return lines
}
