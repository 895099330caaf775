package model

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ErrMsgInvalidStatus is returned when a status value is not recognised.
var ErrMsgInvalidStatus = "Valid status is required. Valid options: " + joinStatuses(orderStatuses)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Finalized reports whether line items of an order in this status are frozen.
func (s OrderStatus) Finalized() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", NewValidationError(ErrMsgInvalidStatus)
	}
	return s, nil
}

// ApplyStatus moves the order to next and stamps the matching timestamp the
// first time the order enters shipped, delivered or cancelled.
//
// Without force the transition table is enforced and re-applying the current
// status is rejected. With force any known status is accepted; re-applying
// the current status is then a no-op and changed is false.
func (o *Order) ApplyStatus(next OrderStatus, force bool, now time.Time) (changed bool, err error) {
	if !next.Valid() {
		return false, NewValidationError(ErrMsgInvalidStatus)
	}
	if o.Status == next {
		if force {
			return false, nil
		}
		return false, NewStateConflictError(ErrCodeInvalidTransition,
			fmt.Sprintf("Order is already %s", next))
	}
	if !force && !o.Status.CanTransitionTo(next) {
		allowed := "none"
		if len(orderTransitions[o.Status]) > 0 {
			allowed = joinStatuses(orderTransitions[o.Status])
		}
		return false, NewStateConflictError(ErrCodeInvalidTransition,
			fmt.Sprintf("Cannot change order status from %s to %s. Valid transitions: %s", o.Status, next, allowed))
	}

	o.Status = next
	o.UpdatedAt = now
	switch next {
	case StatusShipped:
		o.ShippedAt = stampOnce(o.ShippedAt, now)
	case StatusDelivered:
		o.DeliveredAt = stampOnce(o.DeliveredAt, now)
	case StatusCancelled:
		o.CancelledAt = stampOnce(o.CancelledAt, now)
	}
	return true, nil
}

func stampOnce(current *time.Time, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	t := now
	return &t
}

func joinStatuses(statuses []OrderStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
