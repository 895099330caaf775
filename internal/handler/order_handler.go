package handler

import (
	"net/http"
	"strings"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests. A declined payment still answers
// 201; the message and the order's payment status carry the outcome.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.OrderRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.CreateOrder(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusCreated, result.PaymentMessage, result.Order)
}

// List handles GET /api/orders requests for the calling customer.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.list(w, r, userID)
}

// ListAll handles GET /api/admin/orders requests across all customers.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, strings.TrimSpace(r.URL.Query().Get("userId")))
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request, userID string) {
	filter := model.OrderFilter{
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
		Status: model.OrderStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		UserID: userID,
	}

	page, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writePage(w, page.Orders, len(page.Orders), page.Total, page.Page, page.Limit)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, "", order)
}

// Tracking handles GET /api/orders/{id}/tracking requests.
func (h *OrderHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	tracking, err := h.service.Tracking(r.Context(), userID, orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, "", tracking)
}

// Cancel handles PUT /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), userID, orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, "Order cancelled successfully", order)
}

// SetStatus handles PUT /api/orders/{id}/status requests.
func (h *OrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.StatusUpdateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.SetStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, "Order status updated successfully", order)
}

// AddItem handles POST /api/orders/{id}/items requests.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.OrderItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.AddItem(r.Context(), orderID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, "Item added to order successfully", order)
}

// UpdateItem handles PUT /api/orders/{id}/items/{productId} requests.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.UpdateOrderItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.UpdateItem(r.Context(), orderID, r.PathValue("productId"), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, "Order item updated successfully", order)
}

// RemoveItem handles DELETE /api/orders/{id}/items/{productId} requests.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.RemoveItem(r.Context(), orderID, r.PathValue("productId"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, "Item removed from order successfully", order)
}

// orderID parses the {id} path segment. A malformed id cannot name an
// existing order, so it is reported as not found.
func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, model.ErrOrderNotFound, h.logger)
		return uuid.Nil, false
	}
	return id, true
}
