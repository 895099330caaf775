// Package payment authorises order payments.
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Request is a single authorisation attempt.
type Request struct {
	OrderNumber string
	Amount      decimal.Decimal
	Method      string
	Details     map[string]any
}

// Result is the processor's answer. A declined payment is a Result with
// Success false, not an error.
type Result struct {
	Success       bool
	TransactionID string
	Message       string
	ProcessedAt   time.Time
}

// Authorizer charges a customer for an order. Implementations must honour
// ctx cancellation.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (*Result, error)
}

// Policy decides the outcome of the mock processor.
type Policy string

const (
	PolicyAlways Policy = "always"
	PolicyNever  Policy = "never"
	PolicyRandom Policy = "random"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case PolicyAlways, PolicyNever, PolicyRandom:
		return p, nil
	default:
		return "", fmt.Errorf("unknown payment policy %q", raw)
	}
}
