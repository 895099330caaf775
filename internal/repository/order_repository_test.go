package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(userID string, status model.OrderStatus, created time.Time) *model.Order {
	id := uuid.New()
	return &model.Order{
		ID:              id,
		OrderNumber:     fmt.Sprintf("ORD-%d-%s", created.UnixMilli(), id.String()[:9]),
		UserID:          userID,
		Status:          status,
		PaymentStatus:   model.PaymentPaid,
		PaymentMethod:   "credit_card",
		Subtotal:        decimal.RequireFromString("130.00"),
		TaxAmount:       decimal.RequireFromString("13.00"),
		ShippingAmount:  decimal.RequireFromString("15.99"),
		Total:           decimal.RequireFromString("158.99"),
		ShippingAddress: model.ShippingAddress{Street: "1 Main St", City: "Springfield", ZipCode: "12345"},
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func newTestItems(orderID uuid.UUID) []model.OrderItem {
	items := []model.OrderItem{
		{ID: uuid.New(), OrderID: orderID, ProductID: "P1", Name: "Widget", Quantity: 2, Price: decimal.NewFromInt(50)},
		{ID: uuid.New(), OrderID: orderID, ProductID: "P2", Name: "Gadget", Image: "/g.jpg", Quantity: 1, Price: decimal.NewFromInt(30)},
	}
	for i := range items {
		items[i].Recalculate()
	}
	return items
}

func createTestOrder(t *testing.T, pool *pgxpool.Pool, order *model.Order, items []model.OrderItem) {
	repo := NewOrderRepository(pool, zerolog.Nop())
	tx := NewTransactor(pool, zerolog.Nop())
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		return repo.CreateItems(ctx, items)
	})
	require.NoError(t, err)
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("u1", model.StatusProcessing, time.Now().Truncate(time.Millisecond))
	paymentID := "txn_1_abc"
	order.PaymentID = &paymentID
	createTestOrder(t, pool, order, newTestItems(order.ID))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "txn_1_abc", *got.PaymentID)
	assert.Equal(t, "158.99", got.Total.StringFixed(2))
	assert.Equal(t, "Springfield", got.ShippingAddress.City)
	assert.Nil(t, got.ShippedAt)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "P1", got.Items[0].ProductID)
	assert.Equal(t, "100.00", got.Items[0].Total.StringFixed(2))
	assert.Equal(t, "/g.jpg", got.Items[1].Image)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepository_CreateItemsRollsBackOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	tx := NewTransactor(pool, zerolog.Nop())
	order := newTestOrder("u1", model.StatusProcessing, time.Now())
	items := newTestItems(order.ID)
	items[1].Quantity = 0 // violates CHECK (quantity > 0)

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		return repo.CreateItems(ctx, items)
	})

	require.Error(t, err)
	assert.Equal(t, 0, countRows(t, pool, `SELECT COUNT(*) FROM orders WHERE id = $1`, order.ID))
}

func TestOrderRepository_ItemMutations(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	tx := NewTransactor(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("u1", model.StatusProcessing, time.Now())
	createTestOrder(t, pool, order, newTestItems(order.ID))

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := repo.GetForUpdate(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, locked)

		extra := model.OrderItem{ID: uuid.New(), OrderID: order.ID, ProductID: "P3", Name: "Doohickey",
			Quantity: 3, Price: decimal.RequireFromString("9.99")}
		extra.Recalculate()
		require.NoError(t, repo.InsertItem(ctx, &extra))

		p1 := locked.Item("P1")
		p1.Quantity = 1
		p1.Recalculate()
		require.NoError(t, repo.UpdateItem(ctx, p1))

		require.NoError(t, repo.DeleteItem(ctx, order.ID, "P2"))

		sum, err := repo.SumItemTotals(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "79.97", sum.StringFixed(2))

		totals := model.Totals{
			Subtotal: sum,
			Shipping: decimal.RequireFromString("15.99"),
			Tax:      decimal.RequireFromString("8.00"),
			Total:    decimal.RequireFromString("103.96"),
		}
		return repo.UpdateTotals(ctx, order.ID, totals, time.Now())
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "79.97", got.Subtotal.StringFixed(2))
	assert.Equal(t, "103.96", got.Total.StringFixed(2))
	assert.Nil(t, got.Item("P2"))

	empty, err := repo.SumItemTotals(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("u1", model.StatusProcessing, time.Now().Truncate(time.Millisecond))
	createTestOrder(t, pool, order, newTestItems(order.ID))

	shippedAt := time.Now().Truncate(time.Millisecond)
	_, err := order.ApplyStatus(model.StatusShipped, false, shippedAt)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, order))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusShipped, got.Status)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, shippedAt.Equal(*got.ShippedAt))
	assert.Nil(t, got.CancelledAt)
}

func TestOrderRepository_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	first := newTestOrder("alice", model.StatusProcessing, base)
	second := newTestOrder("alice", model.StatusCancelled, base.Add(time.Minute))
	third := newTestOrder("bob", model.StatusProcessing, base.Add(2*time.Minute))
	for _, o := range []*model.Order{first, second, third} {
		createTestOrder(t, pool, o, newTestItems(o.ID))
	}

	tests := []struct {
		name          string
		filter        model.OrderFilter
		expectedIDs   []uuid.UUID
		expectedTotal int
	}{
		{"all orders newest first", model.OrderFilter{Page: 1, Limit: 10}, []uuid.UUID{third.ID, second.ID, first.ID}, 3},
		{"one customer", model.OrderFilter{Page: 1, Limit: 10, UserID: "alice"}, []uuid.UUID{second.ID, first.ID}, 2},
		{"customer and status", model.OrderFilter{Page: 1, Limit: 10, UserID: "alice", Status: model.StatusProcessing}, []uuid.UUID{first.ID}, 1},
		{"status across customers", model.OrderFilter{Page: 1, Limit: 10, Status: model.StatusProcessing}, []uuid.UUID{third.ID, first.ID}, 2},
		{"paged", model.OrderFilter{Page: 2, Limit: 2}, []uuid.UUID{first.ID}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tt.filter)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedTotal, total)
			ids := make([]uuid.UUID, len(got))
			for i, s := range got {
				ids[i] = s.ID
				assert.Equal(t, 2, s.ItemCount)
			}
			assert.Equal(t, tt.expectedIDs, ids)
		})
	}
}
