package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/model"
	"storefront/internal/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, stack *Stack, userID string) *model.Order {
	t.Helper()

	total := decimal.NewFromInt(1)
	result, err := stack.Orders.CreateOrder(context.Background(), userID, &model.OrderRequest{
		Items: []model.OrderItemRequest{
			{ProductID: "P001", Name: "Widget", Price: decimal.NewFromInt(50), Quantity: 2},
			{ProductID: "P002", Name: "Gadget", Price: decimal.NewFromInt(30), Quantity: 1},
		},
		Total:           &total,
		ShippingAddress: &model.ShippingAddress{Street: "1 Main St", City: "Springfield"},
		PaymentMethod:   "credit_card",
	})
	require.NoError(t, err)
	return result.Order
}

func TestConcurrentCartAdds_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	stack := NewStack(t, testDB, payment.PolicyAlways)
	CleanupDB(t, testDB.Pool)
	SeedCatalog(t, testDB.Pool)

	ctx := context.Background()
	const workers = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			one := 1
			_, err := stack.Carts.AddItem(ctx, "7", &model.CartItemRequest{ProductID: "P004", Quantity: &one})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := stack.Carts.GetCart(ctx, "7")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, workers, cart.Items[0].Quantity)
}

func TestConcurrentCartAddsRespectStock_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	stack := NewStack(t, testDB, payment.PolicyAlways)
	CleanupDB(t, testDB.Pool)
	SeedCatalog(t, testDB.Pool)

	ctx := context.Background()
	const workers = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			one := 1
			_, err := stack.Carts.AddItem(ctx, "8", &model.CartItemRequest{ProductID: "P001", Quantity: &one})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, model.IsKind(err, model.KindStock), err)
		}()
	}
	wg.Wait()

	// P001 has five in stock
	assert.Equal(t, 5, succeeded)
	cart, err := stack.Carts.GetCart(ctx, "8")
	require.NoError(t, err)
	assert.Equal(t, 5, cart.ItemCount)
}

func TestConcurrentOrderItemEdits_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	stack := NewStack(t, testDB, payment.PolicyAlways)
	CleanupDB(t, testDB.Pool)
	SeedCatalog(t, testDB.Pool)

	ctx := context.Background()
	order := placeOrder(t, stack, "9")
	const workers = 8

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stack.Orders.AddItem(ctx, order.ID, &model.OrderItemRequest{
				ProductID: fmt.Sprintf("X%d", i),
				Name:      fmt.Sprintf("Extra %d", i),
				Price:     decimal.RequireFromString("12.50"),
				Quantity:  1,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := stack.Orders.GetOrder(ctx, "9", order.ID)
	require.NoError(t, err)
	require.Len(t, final.Items, 2+workers)

	sum := decimal.Zero
	for _, item := range final.Items {
		sum = sum.Add(item.Total)
	}
	// 130 + 8 * 12.50 = 230, free shipping, 10% tax
	assert.Equal(t, "230.00", sum.StringFixed(2))
	assert.Equal(t, "230.00", final.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", final.ShippingAmount.StringFixed(2))
	assert.Equal(t, "23.00", final.TaxAmount.StringFixed(2))
	assert.Equal(t, "253.00", final.Total.StringFixed(2))
}

func TestConcurrentCancelAndShip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	stack := NewStack(t, testDB, payment.PolicyAlways)
	CleanupDB(t, testDB.Pool)
	SeedCatalog(t, testDB.Pool)

	ctx := context.Background()
	order := placeOrder(t, stack, "10")

	var (
		wg                 sync.WaitGroup
		cancelErr, shipErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = stack.Orders.CancelOrder(ctx, "10", order.ID)
	}()
	go func() {
		defer wg.Done()
		_, shipErr = stack.Orders.SetStatus(ctx, order.ID, model.StatusShipped)
	}()
	wg.Wait()

	require.NoError(t, shipErr)
	final, err := stack.Orders.GetOrder(ctx, "10", order.ID)
	require.NoError(t, err)

	if cancelErr == nil {
		// cancel won the lock; the admin override then shipped it
		assert.Equal(t, model.StatusShipped, final.Status)
		assert.NotNil(t, final.CancelledAt)
	} else {
		assert.ErrorIs(t, cancelErr, model.ErrOrderNotCancellable)
		assert.Equal(t, model.StatusShipped, final.Status)
		assert.Nil(t, final.CancelledAt)
	}
	assert.NotNil(t, final.ShippedAt)
}
