package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory stand-in for the Postgres repositories. WithinTx
// snapshots the whole store and restores it when fn fails, which is enough
// to observe all-or-nothing behaviour in single-goroutine tests.
type memStore struct {
	mu         sync.Mutex
	products   map[string]model.Product
	categories map[int64]model.Category
	cart       []model.CartItem
	orders     map[uuid.UUID]model.Order
	nextCartID int64

	// failures makes the named method return the error.
	failures map[string]error
	calls    []string
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[string]model.Product),
		categories: make(map[int64]model.Category),
		orders:     make(map[uuid.UUID]model.Order),
		failures:   make(map[string]error),
	}
}

func (m *memStore) record(method string) error {
	m.calls = append(m.calls, method)
	return m.failures[method]
}

func (m *memStore) called(method string) bool {
	return slices.Contains(m.calls, method)
}

func (m *memStore) addProduct(id, name, price string, stock int) {
	now := time.Now()
	m.products[id] = model.Product{
		ID: id, Name: name, Description: name, Price: decimal.RequireFromString(price),
		Stock: stock, Images: []string{"/img/" + id + ".jpg"}, Active: true, CreatedAt: now, UpdatedAt: now,
	}
}

func (m *memStore) addOrder(o model.Order) {
	m.orders[o.ID] = cloneOrder(o)
}

func (m *memStore) order(id uuid.UUID) model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneOrder(m.orders[id])
}

func (m *memStore) cartQuantity(userID, productID string) int {
	for _, c := range m.cart {
		if c.UserID == userID && c.ProductID == productID {
			return c.Quantity
		}
	}
	return 0
}

func cloneOrder(o model.Order) model.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Transactor

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	if err := m.record("WithinTx"); err != nil {
		return err
	}

	m.mu.Lock()
	products := make(map[string]model.Product, len(m.products))
	for k, v := range m.products {
		products[k] = v
	}
	cart := slices.Clone(m.cart)
	orders := make(map[uuid.UUID]model.Order, len(m.orders))
	for k, v := range m.orders {
		orders[k] = cloneOrder(v)
	}
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.products, m.cart, m.orders = products, cart, orders
		m.mu.Unlock()
		return err
	}
	return nil
}

// ProductRepository

type memProducts struct{ *memStore }

func (m memProducts) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ProductList"); err != nil {
		return nil, 0, err
	}
	var out []model.Product
	for _, p := range m.products {
		if productMatchesStatus(p, filter.Status) && (filter.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search))) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func productMatchesStatus(p model.Product, status model.ProductStatus) bool {
	switch status {
	case model.ProductStatusAll:
		return true
	case model.ProductStatusInactive:
		return !p.Active
	default:
		return p.Active
	}
}

func (m memProducts) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Product
	for _, p := range m.products {
		if p.Active && p.Featured && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, m.record("ListFeatured")
}

func (m memProducts) GetByID(ctx context.Context, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ProductGetByID"); err != nil {
		return nil, err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m memProducts) Create(ctx context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ProductCreate"); err != nil {
		return err
	}
	m.products[product.ID] = *product
	return nil
}

func (m memProducts) Update(ctx context.Context, product *model.Product) error {
	return m.Create(ctx, product)
}

func (m memProducts) Upsert(ctx context.Context, product *model.Product) error {
	return m.Create(ctx, product)
}

func (m memProducts) Deactivate(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return false, m.record("Deactivate")
	}
	p.Active = false
	m.products[id] = p
	return true, m.record("Deactivate")
}

func (m memProducts) ListCategories(ctx context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Category
	for _, c := range m.categories {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, m.record("ListCategories")
}

func (m memProducts) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, m.record("GetCategory")
	}
	return &c, m.record("GetCategory")
}

// CartRepository

type memCart struct{ *memStore }

func (m memCart) ListByUser(ctx context.Context, userID string) ([]model.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListByUser"); err != nil {
		return nil, err
	}
	var out []model.CartLine
	for _, c := range m.cart {
		if c.UserID != userID {
			continue
		}
		p := m.products[c.ProductID]
		out = append(out, model.CartLine{
			ID: c.ID, ProductID: c.ProductID, Name: p.Name, Image: p.PrimaryImage(), Price: c.Price,
			Quantity: c.Quantity, Stock: p.Stock, Active: p.Active, AddedAt: c.CreatedAt,
		})
	}
	return out, nil
}

func (m memCart) GetForUpdate(ctx context.Context, userID, productID string) (*model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CartGetForUpdate"); err != nil {
		return nil, err
	}
	for _, c := range m.cart {
		if c.UserID == userID && c.ProductID == productID {
			return &c, nil
		}
	}
	return nil, nil
}

func (m memCart) Insert(ctx context.Context, item *model.CartItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CartInsert"); err != nil {
		return false, err
	}
	for _, c := range m.cart {
		if c.UserID == item.UserID && c.ProductID == item.ProductID {
			return false, nil
		}
	}
	m.nextCartID++
	item.ID = m.nextCartID
	m.cart = append(m.cart, *item)
	return true, nil
}

func (m memCart) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateQuantity"); err != nil {
		return err
	}
	for i := range m.cart {
		if m.cart[i].UserID == userID && m.cart[i].ProductID == productID {
			m.cart[i].Quantity = quantity
		}
	}
	return nil
}

func (m memCart) Delete(ctx context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CartDelete"); err != nil {
		return false, err
	}
	before := len(m.cart)
	m.cart = slices.DeleteFunc(m.cart, func(c model.CartItem) bool {
		return c.UserID == userID && c.ProductID == productID
	})
	return len(m.cart) < before, nil
}

func (m memCart) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteByUser"); err != nil {
		return 0, err
	}
	before := len(m.cart)
	m.cart = slices.DeleteFunc(m.cart, func(c model.CartItem) bool { return c.UserID == userID })
	return int64(before - len(m.cart)), nil
}

// OrderRepository

type memOrders struct{ *memStore }

func (m memOrders) Create(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("OrderCreate"); err != nil {
		return err
	}
	o := cloneOrder(*order)
	o.Items = nil
	m.orders[order.ID] = o
	return nil
}

func (m memOrders) CreateItems(ctx context.Context, items []model.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateItems"); err != nil {
		return err
	}
	for _, it := range items {
		o := m.orders[it.OrderID]
		o.Items = append(o.Items, it)
		m.orders[it.OrderID] = o
	}
	return nil
}

func (m memOrders) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("OrderGetByID"); err != nil {
		return nil, err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m memOrders) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if err := m.record("OrderGetForUpdate"); err != nil {
		return nil, err
	}
	return m.GetByID(ctx, id)
}

func (m memOrders) InsertItem(ctx context.Context, item *model.OrderItem) error {
	return m.CreateItems(ctx, []model.OrderItem{*item})
}

func (m memOrders) UpdateItem(ctx context.Context, item *model.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateItem"); err != nil {
		return err
	}
	o := m.orders[item.OrderID]
	for i := range o.Items {
		if o.Items[i].ProductID == item.ProductID {
			o.Items[i] = *item
		}
	}
	m.orders[item.OrderID] = o
	return nil
}

func (m memOrders) DeleteItem(ctx context.Context, orderID uuid.UUID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteItem"); err != nil {
		return err
	}
	o := m.orders[orderID]
	o.Items = slices.DeleteFunc(o.Items, func(it model.OrderItem) bool { return it.ProductID == productID })
	m.orders[orderID] = o
	return nil
}

func (m memOrders) SumItemTotals(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SumItemTotals"); err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, it := range m.orders[orderID].Items {
		sum = sum.Add(it.Total)
	}
	return sum, nil
}

func (m memOrders) UpdateTotals(ctx context.Context, orderID uuid.UUID, totals model.Totals, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateTotals"); err != nil {
		return err
	}
	o := m.orders[orderID]
	o.ApplyTotals(totals)
	o.UpdatedAt = updatedAt
	m.orders[orderID] = o
	return nil
}

func (m memOrders) UpdateStatus(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateStatus"); err != nil {
		return err
	}
	o := m.orders[order.ID]
	o.Status = order.Status
	o.UpdatedAt = order.UpdatedAt
	o.ShippedAt, o.DeliveredAt, o.CancelledAt = order.ShippedAt, order.DeliveredAt, order.CancelledAt
	m.orders[order.ID] = o
	return nil
}

func (m memOrders) List(ctx context.Context, filter model.OrderFilter) ([]model.OrderSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("OrderList"); err != nil {
		return nil, 0, err
	}
	var out []model.OrderSummary
	for _, o := range m.orders {
		if (filter.UserID == "" || o.UserID == filter.UserID) && (filter.Status == "" || o.Status == filter.Status) {
			out = append(out, model.OrderSummary{ID: o.ID, OrderNumber: o.OrderNumber, UserID: o.UserID,
				Status: o.Status, Total: o.Total, ItemCount: len(o.Items), CreatedAt: o.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	start := min(max(filter.Page-1, 0)*filter.Limit, total)
	end := min(start+filter.Limit, total)
	return out[start:end], total, nil
}

// MockAuthorizer is a mock implementation of payment.Authorizer.
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) Authorize(ctx context.Context, req payment.Request) (*payment.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func approved(txnID string) *payment.Result {
	return &payment.Result{Success: true, TransactionID: txnID, Message: "Payment processed successfully"}
}

func declined() *payment.Result {
	return &payment.Result{Success: false, Message: "Payment declined"}
}
