package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryWindow is how long after placement an order is expected to arrive.
const DeliveryWindow = 7 * 24 * time.Hour

// TrackingStep is one stage of the fulfilment timeline.
type TrackingStep struct {
	Status      string     `json:"status"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Timestamp   *time.Time `json:"timestamp"`
	Completed   bool       `json:"completed"`
}

// TrackingOrder is the order header shown alongside the timeline.
type TrackingOrder struct {
	ID                uuid.UUID   `json:"id"`
	OrderNumber       string      `json:"orderNumber"`
	Status            OrderStatus `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
	EstimatedDelivery *time.Time  `json:"estimatedDelivery"`
}

// Tracking is a read-only view derived from an order's status and timestamps.
type Tracking struct {
	Order       TrackingOrder  `json:"order"`
	Steps       []TrackingStep `json:"tracking"`
	CurrentStep int            `json:"currentStep"`
}

// Tracking builds the fulfilment timeline. Nothing here is persisted.
func (o *Order) Tracking() *Tracking {
	reached := func(statuses ...OrderStatus) bool {
		for _, s := range statuses {
			if o.Status == s {
				return true
			}
		}
		return false
	}

	created := o.CreatedAt
	var processingAt *time.Time
	if reached(StatusProcessing, StatusShipped, StatusDelivered) {
		processingAt = &created
	}
	shippedAt := o.ShippedAt
	if shippedAt == nil && reached(StatusShipped, StatusDelivered) {
		updated := o.UpdatedAt
		shippedAt = &updated
	}

	steps := []TrackingStep{
		{
			Status:      "confirmed",
			Title:       "Order confirmed",
			Description: "Your order has been confirmed and is being prepared",
			Timestamp:   &created,
			Completed:   true,
		},
		{
			Status:      string(StatusProcessing),
			Title:       "Preparing shipment",
			Description: "Items are being picked and packed",
			Timestamp:   processingAt,
			Completed:   reached(StatusProcessing, StatusShipped, StatusDelivered),
		},
		{
			Status:      string(StatusShipped),
			Title:       "Shipped",
			Description: "Your order is on its way",
			Timestamp:   shippedAt,
			Completed:   reached(StatusShipped, StatusDelivered),
		},
		{
			Status:      string(StatusDelivered),
			Title:       "Delivered",
			Description: "Your order has been delivered",
			Timestamp:   o.DeliveredAt,
			Completed:   reached(StatusDelivered),
		},
	}

	current := -1
	for i, step := range steps {
		if step.Status == string(o.Status) {
			current = i
			break
		}
	}

	var eta *time.Time
	switch o.Status {
	case StatusCancelled:
	case StatusDelivered:
		eta = o.DeliveredAt
	default:
		t := o.CreatedAt.Add(DeliveryWindow)
		eta = &t
	}

	return &Tracking{
		Order: TrackingOrder{
			ID:                o.ID,
			OrderNumber:       o.OrderNumber,
			Status:            o.Status,
			CreatedAt:         o.CreatedAt,
			EstimatedDelivery: eta,
		},
		Steps:       steps,
		CurrentStep: current,
	}
}
