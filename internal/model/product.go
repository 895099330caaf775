package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents an item in the catalogue.
type Product struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Stock        int             `json:"stock" db:"stock_quantity"`
	CategoryID   *int64          `json:"categoryId,omitempty" db:"category_id"`
	CategoryName string          `json:"categoryName,omitempty" db:"category_name"`
	Images       []string        `json:"images" db:"images"`
	Featured     bool            `json:"featured" db:"featured"`
	Active       bool            `json:"active" db:"active"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// PrimaryImage is the first image, or empty when the product has none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Category groups products in the catalogue.
type Category struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Description  string `json:"description" db:"description"`
	Active       bool   `json:"active" db:"active"`
	ProductCount int    `json:"productCount" db:"product_count"`
}

// Sortable product columns. Anything else falls back to created_at.
var ProductSortColumns = map[string]string{
	"name":       "p.name",
	"price":      "p.price",
	"stock":      "p.stock",
	"created_at": "p.created_at",
	"updated_at": "p.updated_at",
}

// ProductStatus selects products by their active flag. The zero value
// matches active products only.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusAll      ProductStatus = "all"
)

// ParseProductStatus parses the admin status filter. An empty value means all.
func ParseProductStatus(raw string) (ProductStatus, error) {
	switch s := ProductStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return ProductStatusAll, nil
	case ProductStatusActive, ProductStatusInactive, ProductStatusAll:
		return s, nil
	default:
		return "", NewValidationError("Status must be one of: active, inactive, all")
	}
}

// ProductFilter holds the catalogue query parameters.
type ProductFilter struct {
	Page      int
	Limit     int
	Category  string
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortBy    string
	SortOrder string
	Status    ProductStatus
}

// ProductPage is one page of catalogue results.
type ProductPage struct {
	Products []Product
	Total    int
	Page     int
	Limit    int
}

// ProductRequest is the admin payload for creating or updating a product.
// Nil fields are left untouched on update.
type ProductRequest struct {
	ID          string           `json:"id,omitempty"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *int64           `json:"categoryId"`
	Stock       *int             `json:"stock"`
	Images      []string         `json:"images"`
	Featured    *bool            `json:"featured"`
	Active      *bool            `json:"active"`
}
