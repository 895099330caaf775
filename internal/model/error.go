package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure so the transport layer can map it to a status code.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindStateConflict
	KindStock
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindStock:
		return "stock"
	default:
		return "unknown"
	}
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeOrderItemNotFound  = "ORDER_ITEM_NOT_FOUND"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	ErrCodeCartItemNotFound   = "CART_ITEM_NOT_FOUND"
	ErrCodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	ErrCodeOrderFinalized     = "ORDER_FINALIZED"
	ErrCodeOrderNotCancelable = "ORDER_NOT_CANCELLABLE"
	ErrCodeLastOrderItem      = "LAST_ORDER_ITEM"
	ErrCodeInsufficientStock  = "INSUFFICIENT_STOCK"
	ErrCodeCartEmpty          = "CART_EMPTY"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// StockIssue describes one line whose requested quantity exceeds live stock.
type StockIssue struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// DomainError is a business rule failure. Anything that is not a DomainError is
// treated by the handlers as an internal failure.
type DomainError struct {
	Kind        ErrorKind
	Code        string
	Message     string
	Errors      []string
	StockIssues []StockIssue
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports malformed input. Field level problems go in errs.
func NewValidationError(message string, errs ...string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    ErrCodeValidation,
		Message: message,
		Errors:  errs,
	}
}

func NewNotFoundError(code, message string) *DomainError {
	return NewDomainError(KindNotFound, code, message)
}

func NewStateConflictError(code, message string) *DomainError {
	return NewDomainError(KindStateConflict, code, message)
}

// NewStockError reports requested quantities that exceed availability.
func NewStockError(message string, issues ...StockIssue) *DomainError {
	return &DomainError{
		Kind:        KindStock,
		Code:        ErrCodeInsufficientStock,
		Message:     message,
		StockIssues: issues,
	}
}

// NewInsufficientStockError is the single-line form used by cart mutations.
func NewInsufficientStockError(issue StockIssue) *DomainError {
	return NewStockError(fmt.Sprintf("Only %d items available in stock", issue.Available), issue)
}

// AsDomainError unwraps err into a DomainError when it carries one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	de, ok := AsDomainError(err)
	return ok && de.Kind == kind
}

// Common domain errors
var (
	ErrOrderNotFound       = NewNotFoundError(ErrCodeOrderNotFound, "Order not found")
	ErrOrderItemNotFound   = NewNotFoundError(ErrCodeOrderItemNotFound, "Item not found in order")
	ErrProductNotFound     = NewNotFoundError(ErrCodeProductNotFound, "Product not found")
	ErrProductUnavailable  = NewNotFoundError(ErrCodeProductNotFound, "Product not found or inactive")
	ErrCategoryNotFound    = NewDomainError(KindValidation, ErrCodeCategoryNotFound, "Category not found or inactive")
	ErrCartItemNotFound    = NewNotFoundError(ErrCodeCartItemNotFound, "Item not found in cart")
	ErrOrderFinalized      = NewStateConflictError(ErrCodeOrderFinalized, "Cannot modify items of delivered or cancelled orders")
	ErrOrderNotCancellable = NewStateConflictError(ErrCodeOrderNotCancelable, "Order cannot be cancelled at this stage")
	ErrLastOrderItem       = NewStateConflictError(ErrCodeLastOrderItem, "Cannot remove the last item from order. Cancel the order instead.")
	ErrCartEmpty           = NewDomainError(KindValidation, ErrCodeCartEmpty, "Cart is empty")
)
