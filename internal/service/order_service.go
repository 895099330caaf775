package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	msgOrderCreated   = "Order created successfully"
	msgPaymentFailed  = "Order created but payment failed"
	msgPricePrecision = "Price must have at most two decimal places"

	defaultOrderLimit = 10
	maxOrderLimit     = 100
)

// orderService implements OrderService.
type orderService struct {
	tx             repository.Transactor
	orderRepo      repository.OrderRepository
	cartRepo       repository.CartRepository
	calculator     *pricing.Calculator
	authorizer     payment.Authorizer
	publisher      events.Publisher
	paymentTimeout time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	tx repository.Transactor,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	calculator *pricing.Calculator,
	authorizer payment.Authorizer,
	publisher events.Publisher,
	paymentTimeout time.Duration,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		tx:             tx,
		orderRepo:      orderRepo,
		cartRepo:       cartRepo,
		calculator:     calculator,
		authorizer:     authorizer,
		publisher:      publisher,
		paymentTimeout: paymentTimeout,
		now:            time.Now,
		logger:         logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder validates the request, authorises payment for the computed
// total and persists the order with its items in one transaction.
func (s *orderService) CreateOrder(ctx context.Context, userID string, req *model.OrderRequest) (*model.OrderResult, error) {
	if err := validateOrderRequest(req); err != nil {
		s.logger.Warn().Str("user_id", userID).Err(err).Msg("invalid order request")
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		ID:              uuid.New(),
		OrderNumber:     newOrderNumber(now),
		UserID:          userID,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: *req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Line prices come from the client and are not re-derived from the
	// catalogue. Only the totals are computed here.
	order.Items = make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		order.Items[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
		order.Items[i].Recalculate()
	}
	order.ApplyTotals(s.calculator.Compute(pricing.OrderLines(order.Items)))

	result := s.authorize(ctx, order, req.PaymentDetails)
	if result.Success {
		txnID := result.TransactionID
		order.PaymentID = &txnID
		order.PaymentStatus = model.PaymentPaid
		order.Status = model.StatusProcessing
	} else {
		order.PaymentStatus = model.PaymentFailed
		order.Status = model.StatusCancelled
		cancelledAt := now
		order.CancelledAt = &cancelledAt
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		return s.orderRepo.CreateItems(ctx, order.Items)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to persist order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if result.Success {
		if _, err := s.cartRepo.DeleteByUser(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("order_id", order.ID.String()).
				Msg("failed to clear cart after order")
		}
	}

	s.publish(ctx, events.TypeOrderCreated, order)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("payment_status", string(order.PaymentStatus)).
		Str("total", order.Total.StringFixed(2)).
		Int("item_count", len(order.Items)).
		Msg("order created")

	created := s.reload(ctx, order)
	msg := msgOrderCreated
	if !result.Success {
		msg = msgPaymentFailed
	}
	return &model.OrderResult{Order: created, PaymentSucceeded: result.Success, PaymentMessage: msg}, nil
}

// authorize charges the order total. A processor error or timeout counts as
// a decline.
func (s *orderService) authorize(ctx context.Context, order *model.Order, details map[string]any) *payment.Result {
	if s.paymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.paymentTimeout)
		defer cancel()
	}

	result, err := s.authorizer.Authorize(ctx, payment.Request{
		OrderNumber: order.OrderNumber,
		Amount:      order.Total,
		Method:      order.PaymentMethod,
		Details:     details,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("payment authorisation failed")
		return &payment.Result{Success: false, Message: err.Error()}
	}
	if !result.Success {
		s.logger.Info().Str("order_number", order.OrderNumber).Str("reason", result.Message).Msg("payment declined")
	}
	return result
}

// reload re-reads a committed order so the caller sees persisted state.
func (s *orderService) reload(ctx context.Context, order *model.Order) *model.Order {
	fresh, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil || fresh == nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to reload order")
		return order
	}
	return fresh
}

// ListOrders returns one page of order summaries.
func (s *orderService) ListOrders(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.NewValidationError(model.ErrMsgInvalidStatus)
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultOrderLimit
	}
	if filter.Limit > maxOrderLimit {
		filter.Limit = maxOrderLimit
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", filter.UserID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &model.OrderPage{Orders: orders, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// GetOrder retrieves an order owned by userID. Orders of other customers are
// reported as not found.
func (s *orderService) GetOrder(ctx context.Context, userID string, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// Tracking builds the fulfilment timeline of an order owned by userID.
func (s *orderService) Tracking(ctx context.Context, userID string, id uuid.UUID) (*model.Tracking, error) {
	order, err := s.GetOrder(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return order.Tracking(), nil
}

// CancelOrder cancels an order the customer owns while it is still processing.
func (s *orderService) CancelOrder(ctx context.Context, userID string, id uuid.UUID) (*model.Order, error) {
	var order *model.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orderRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order == nil || order.UserID != userID {
			return model.ErrOrderNotFound
		}
		if !order.Status.CanTransitionTo(model.StatusCancelled) {
			return model.ErrOrderNotCancellable
		}
		if _, err := order.ApplyStatus(model.StatusCancelled, false, s.now()); err != nil {
			return err
		}
		return s.orderRepo.UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, s.wrap(err, "failed to cancel order", id)
	}

	s.publish(ctx, events.TypeOrderStatusChanged, order)
	s.logger.Info().Str("order_id", id.String()).Str("user_id", userID).Msg("order cancelled")
	return order, nil
}

// SetStatus applies an administrative status override. Any known status is
// accepted; setting the current status again changes nothing.
func (s *orderService) SetStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, model.NewValidationError(model.ErrMsgInvalidStatus)
	}

	var (
		order   *model.Order
		changed bool
		from    model.OrderStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orderRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		from = order.Status
		changed, err = order.ApplyStatus(status, true, s.now())
		if err != nil || !changed {
			return err
		}
		return s.orderRepo.UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, s.wrap(err, "failed to update order status", id)
	}

	if changed {
		if !from.CanTransitionTo(status) {
			s.logger.Warn().Str("order_id", id.String()).Str("from", string(from)).Str("to", string(status)).
				Msg("status override outside the transition table")
		}
		s.publish(ctx, events.TypeOrderStatusChanged, order)
	}
	return order, nil
}

// AddItem adds a line to an open order. Adding a product already on the order
// increases its quantity and keeps the existing unit price.
func (s *orderService) AddItem(ctx context.Context, id uuid.UUID, req *model.OrderItemRequest) (*model.Order, error) {
	if req == nil || strings.TrimSpace(req.ProductID) == "" || strings.TrimSpace(req.Name) == "" ||
		req.Price.IsZero() || req.Quantity == 0 {
		return nil, model.NewValidationError("Product ID, name, price, and quantity are required")
	}
	if req.Quantity < 0 || req.Price.IsNegative() {
		return nil, model.NewValidationError("Quantity must be positive and price cannot be negative")
	}
	if !model.WholeCents(req.Price) {
		return nil, model.NewValidationError(msgPricePrecision)
	}

	return s.mutateItems(ctx, id, "failed to add order item", func(ctx context.Context, order *model.Order) error {
		if existing := order.Item(req.ProductID); existing != nil {
			existing.Quantity += req.Quantity
			existing.Recalculate()
			return s.orderRepo.UpdateItem(ctx, existing)
		}

		item := model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: req.ProductID,
			Name:      req.Name,
			Image:     req.Image,
			Quantity:  req.Quantity,
			Price:     req.Price,
		}
		item.Recalculate()
		if err := s.orderRepo.InsertItem(ctx, &item); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
		return nil
	})
}

// UpdateItem changes the quantity and/or unit price of a line.
func (s *orderService) UpdateItem(ctx context.Context, id uuid.UUID, productID string, req *model.UpdateOrderItemRequest) (*model.Order, error) {
	if req == nil || (req.Quantity == nil && req.Price == nil) {
		return nil, model.NewValidationError("Quantity or price must be provided")
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, model.NewValidationError("Quantity must be positive")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, model.NewValidationError("Price cannot be negative")
	}
	if req.Price != nil && !model.WholeCents(*req.Price) {
		return nil, model.NewValidationError(msgPricePrecision)
	}

	return s.mutateItems(ctx, id, "failed to update order item", func(ctx context.Context, order *model.Order) error {
		item := order.Item(productID)
		if item == nil {
			return model.ErrOrderItemNotFound
		}
		if req.Quantity != nil {
			item.Quantity = *req.Quantity
		}
		if req.Price != nil {
			item.Price = *req.Price
		}
		item.Recalculate()
		return s.orderRepo.UpdateItem(ctx, item)
	})
}

// RemoveItem deletes a line. The last line of an order cannot be removed.
func (s *orderService) RemoveItem(ctx context.Context, id uuid.UUID, productID string) (*model.Order, error) {
	return s.mutateItems(ctx, id, "failed to remove order item", func(ctx context.Context, order *model.Order) error {
		if order.Item(productID) == nil {
			return model.ErrOrderItemNotFound
		}
		if len(order.Items) <= 1 {
			return model.ErrLastOrderItem
		}
		if err := s.orderRepo.DeleteItem(ctx, order.ID, productID); err != nil {
			return err
		}
		kept := order.Items[:0]
		for _, it := range order.Items {
			if it.ProductID != productID {
				kept = append(kept, it)
			}
		}
		order.Items = kept
		return nil
	})
}

// mutateItems locks an open order, applies fn to its lines and recomputes the
// order totals from the persisted line totals, all in one transaction.
func (s *orderService) mutateItems(ctx context.Context, id uuid.UUID, action string,
	fn func(ctx context.Context, order *model.Order) error) (*model.Order, error) {
	var order *model.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orderRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if order.Status.Finalized() {
			return model.ErrOrderFinalized
		}
		if err := fn(ctx, order); err != nil {
			return err
		}

		subtotal, err := s.orderRepo.SumItemTotals(ctx, order.ID)
		if err != nil {
			return err
		}
		now := s.now()
		totals := s.calculator.FromSubtotal(subtotal)
		if err := s.orderRepo.UpdateTotals(ctx, order.ID, totals, now); err != nil {
			return err
		}
		order.ApplyTotals(totals)
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, action, id)
	}

	s.publish(ctx, events.TypeOrderItemsChanged, order)
	s.logger.Info().Str("order_id", id.String()).Str("total", order.Total.StringFixed(2)).Msg("order items changed")
	return order, nil
}

// wrap passes domain errors through and logs and wraps everything else.
func (s *orderService) wrap(err error, action string, id uuid.UUID) error {
	if _, ok := model.AsDomainError(err); ok {
		return err
	}
	s.logger.Error().Err(err).Str("order_id", id.String()).Msg(action)
	return fmt.Errorf("%s: %w", action, err)
}

func (s *orderService) publish(ctx context.Context, eventType string, order *model.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(eventType, order, s.now())); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Str("event_type", eventType).
			Msg("failed to publish order event")
	}
}

func validateOrderRequest(req *model.OrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return model.NewValidationError("Order items are required")
	}

	var errs []string
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			errs = append(errs, fmt.Sprintf("items[%d].productId is required", i))
		}
		if strings.TrimSpace(item.Name) == "" {
			errs = append(errs, fmt.Sprintf("items[%d].name is required", i))
		}
		if !item.Price.IsPositive() {
			errs = append(errs, fmt.Sprintf("items[%d].price must be positive", i))
		} else if !model.WholeCents(item.Price) {
			errs = append(errs, fmt.Sprintf("items[%d].price must have at most two decimal places", i))
		}
		if item.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
	}
	if len(errs) > 0 {
		return model.NewValidationError("Invalid order items", errs...)
	}

	if req.Total == nil || !req.Total.IsPositive() {
		return model.NewValidationError("Valid total amount is required")
	}
	if !req.ShippingAddress.Complete() {
		return model.NewValidationError("Complete shipping address is required")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return model.NewValidationError("Payment method is required")
	}
	return nil
}

// newOrderNumber returns ORD-<unix millis>-<9 upper-case alphanumerics>.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}
