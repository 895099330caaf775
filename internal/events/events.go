// Package events publishes order lifecycle notifications.
package events

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order event types
const (
	TypeOrderCreated       = "order.created"
	TypeOrderItemsChanged  = "order.items_changed"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload written for every committed order change.
type OrderEvent struct {
	EventID       string              `json:"eventId"`
	Type          string              `json:"type"`
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	UserID        string              `json:"userId"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	Total         decimal.Decimal     `json:"total"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

// NewOrderEvent snapshots an order into an event of the given type.
func NewOrderEvent(eventType string, order *model.Order, at time.Time) OrderEvent {
	return OrderEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		OccurredAt:    at,
	}
}

// Publisher delivers order events. Delivery is best-effort: callers log a
// failed publish and carry on.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

type nopPublisher struct{}

// NewNopPublisher returns a publisher that drops every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (nopPublisher) Close() error { return nil }
