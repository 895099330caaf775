package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Code int
	Body map[string]any
}

func (r apiResponse) data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

type credentials struct {
	token  string
	apiKey string
}

func customer(t *testing.T, userID int) credentials { return credentials{token: Token(t, userID)} }

var admin = credentials{apiKey: testAPIKey}

func call(t *testing.T, server http.Handler, method, path string, body any, creds credentials) apiResponse {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if creds.token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.token)
	}
	if creds.apiKey != "" {
		req.Header.Set("X-API-Key", creds.apiKey)
	}
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	resp := apiResponse{Code: w.Code}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp.Body), w.Body.String())
	return resp
}

func orderBody(lines ...map[string]any) map[string]any {
	return map[string]any{
		"items":           lines,
		"total":           1,
		"shippingAddress": map[string]any{"street": "1 Main St", "city": "Springfield"},
		"paymentMethod":   "credit_card",
	}
}

func line(productID, name string, price float64, qty int) map[string]any {
	return map[string]any{"productId": productID, "name": name, "price": price, "quantity": qty}
}

func TestProductAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := NewStack(t, testDB, payment.PolicyAlways).Handler

	CleanupDB(t, testDB.Pool)
	SeedCatalog(t, testDB.Pool)

	t.Run("GET /api/products paginates active products", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/products?limit=2&sortBy=price&sortOrder=asc", nil, credentials{})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, float64(2), resp.Body["count"])
		assert.Equal(t, float64(5), resp.Body["total"])
		assert.Equal(t, float64(3), resp.Body["pages"])
		products := resp.Body["data"].([]any)
		assert.Equal(t, "P004", products[0].(map[string]any)["id"])
	})

	t.Run("GET /api/products filters by search and price", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/products?search=lamp&minPrice=100", nil, credentials{})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, float64(1), resp.Body["total"])
	})

	t.Run("GET /api/products/featured", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/products/featured", nil, credentials{})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, resp.Body["data"], 2)
	})

	t.Run("GET /api/products/{id}", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/products/P001", nil, credentials{})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Widget", resp.data()["name"])

		resp = call(t, server, http.MethodGet, "/api/products/P999", nil, credentials{})
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, false, resp.Body["success"])
	})

	t.Run("GET /api/categories counts active products", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/categories", nil, credentials{})

		require.Equal(t, http.StatusOK, resp.Code)
		categories := resp.Body["data"].([]any)
		require.Len(t, categories, 1)
		assert.Equal(t, float64(5), categories[0].(map[string]any)["productCount"])
	})

	t.Run("admin product lifecycle", func(t *testing.T) {
		resp := call(t, server, http.MethodPost, "/api/admin/products", map[string]any{"name": "Rug"}, credentials{})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		var catID int64
		require.NoError(t, testDB.Pool.QueryRow(context.Background(), `SELECT id FROM categories LIMIT 1`).Scan(&catID))

		resp = call(t, server, http.MethodPost, "/api/admin/products", map[string]any{
			"id": "P100", "name": "Rug", "description": "Wool rug", "price": 99.99, "categoryId": catID, "stock": 3,
		}, admin)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
		assert.Equal(t, "Product created successfully", resp.Body["message"])

		resp = call(t, server, http.MethodPut, "/api/admin/products/P100", map[string]any{"stock": 7}, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, float64(7), resp.data()["stock"])

		resp = call(t, server, http.MethodDelete, "/api/admin/products/P100", nil, admin)
		require.Equal(t, http.StatusOK, resp.Code)

		resp = call(t, server, http.MethodGet, "/api/products/P100", nil, credentials{})
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = call(t, server, http.MethodGet, "/api/admin/products/P100", nil, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, false, resp.data()["active"])

		resp = call(t, server, http.MethodGet, "/api/admin/products?status=inactive", nil, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		retired := resp.Body["data"].([]any)
		require.Len(t, retired, 1)
		assert.Equal(t, "P100", retired[0].(map[string]any)["id"])

		resp = call(t, server, http.MethodGet, "/api/admin/products", nil, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, float64(6), resp.Body["total"])
	})
}

func TestCheckoutFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := NewStack(t, testDB, payment.PolicyAlways).Handler

	CleanupDB(t, testDB.Pool)
	SeedCatalog(t, testDB.Pool)
	alice := customer(t, 1)
	bob := customer(t, 2)

	t.Run("cart requires a token", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/cart", nil, credentials{})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "Access token required", resp.Body["message"])
	})

	t.Run("cart rejects quantities over stock", func(t *testing.T) {
		resp := call(t, server, http.MethodPost, "/api/cart", map[string]any{"productId": "P001", "quantity": 3}, alice)
		require.Equal(t, http.StatusOK, resp.Code)

		resp = call(t, server, http.MethodPost, "/api/cart", map[string]any{"productId": "P001", "quantity": 3}, alice)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Only 5 items available in stock", resp.Body["message"])

		resp = call(t, server, http.MethodPut, "/api/cart/P001", map[string]any{"quantity": 2}, alice)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, float64(2), resp.data()["itemCount"])
	})

	t.Run("checkout prices the cart", func(t *testing.T) {
		resp := call(t, server, http.MethodPost, "/api/cart", map[string]any{"productId": "P002"}, alice)
		require.Equal(t, http.StatusOK, resp.Code)

		resp = call(t, server, http.MethodGet, "/api/cart/checkout", nil, alice)
		require.Equal(t, http.StatusOK, resp.Code)
		totals := resp.data()["totals"].(map[string]any)
		assert.Equal(t, 130.0, totals["subtotal"])
		assert.Equal(t, 15.99, totals["shipping"])
		assert.Equal(t, 13.0, totals["tax"])
		assert.Equal(t, 158.99, totals["total"])
	})

	var orderID string

	t.Run("paid order clears the cart", func(t *testing.T) {
		resp := call(t, server, http.MethodPost, "/api/orders",
			orderBody(line("P001", "Widget", 50, 2), line("P002", "Gadget", 30, 1)), alice)

		require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
		assert.Equal(t, "Order created successfully", resp.Body["message"])
		order := resp.data()
		orderID = order["id"].(string)
		assert.Equal(t, "processing", order["status"])
		assert.Equal(t, "paid", order["paymentStatus"])
		assert.Equal(t, 158.99, order["total"])
		assert.Len(t, order["items"], 2)

		resp = call(t, server, http.MethodGet, "/api/cart", nil, alice)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Empty(t, resp.data()["items"])
	})

	t.Run("orders are private to their owner", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/orders/"+orderID, nil, alice)
		assert.Equal(t, http.StatusOK, resp.Code)

		resp = call(t, server, http.MethodGet, "/api/orders/"+orderID, nil, bob)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = call(t, server, http.MethodGet, "/api/orders", nil, bob)
		assert.Equal(t, float64(0), resp.Body["total"])

		resp = call(t, server, http.MethodGet, "/api/orders", nil, bob)
		assert.Empty(t, resp.Body["data"])
	})

	t.Run("order listing pages", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/orders", nil, alice)
		require.Equal(t, http.StatusOK, resp.Code)
		orders, ok := resp.Body["data"].([]any)
		require.True(t, ok)
		require.Len(t, orders, 1)
		assert.Equal(t, orderID, orders[0].(map[string]any)["id"])
		assert.Equal(t, float64(1), resp.Body["total"])
		assert.Equal(t, float64(1), resp.Body["page"])
		assert.Equal(t, float64(1), resp.Body["pages"])

		resp = call(t, server, http.MethodGet, "/api/orders?limit=1&page=2", nil, alice)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Empty(t, resp.Body["data"])
		assert.Equal(t, float64(1), resp.Body["total"])
		assert.Equal(t, float64(2), resp.Body["page"])

		resp = call(t, server, http.MethodGet, "/api/orders?limit=-3", nil, alice)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, resp.Body["data"], 1)

		resp = call(t, server, http.MethodGet, "/api/admin/orders", nil, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, resp.Body["data"], 1)
	})

	t.Run("tracking", func(t *testing.T) {
		resp := call(t, server, http.MethodGet, "/api/orders/"+orderID+"/tracking", nil, alice)

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, float64(1), resp.data()["currentStep"])
		assert.NotNil(t, resp.data()["order"].(map[string]any)["estimatedDelivery"])
	})

	t.Run("admin item edits recompute totals", func(t *testing.T) {
		resp := call(t, server, http.MethodPost, "/api/orders/"+orderID+"/items", line("P003", "Lamp", 120, 1), bob)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		resp = call(t, server, http.MethodPost, "/api/orders/"+orderID+"/items", line("P003", "Lamp", 120, 1), admin)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body)
		order := resp.data()
		assert.Equal(t, 250.0, order["subtotal"])
		assert.Equal(t, 0.0, order["shippingAmount"])
		assert.Equal(t, 25.0, order["taxAmount"])
		assert.Equal(t, 275.0, order["total"])

		resp = call(t, server, http.MethodPut, "/api/orders/"+orderID+"/items/P003", map[string]any{"price": 100}, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, 230.0, resp.data()["subtotal"])
		assert.Equal(t, 253.0, resp.data()["total"])

		resp = call(t, server, http.MethodDelete, "/api/orders/"+orderID+"/items/P003", nil, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, 158.99, resp.data()["total"])

		resp = call(t, server, http.MethodDelete, "/api/orders/"+orderID+"/items/P999", nil, admin)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("admin status override and finalized orders", func(t *testing.T) {
		resp := call(t, server, http.MethodPut, "/api/orders/"+orderID+"/status", map[string]any{"status": "lost"}, admin)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = call(t, server, http.MethodPut, "/api/orders/"+orderID+"/status", map[string]any{"status": "shipped"}, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.NotNil(t, resp.data()["shippedAt"])

		resp = call(t, server, http.MethodPut, "/api/orders/"+orderID+"/cancel", nil, alice)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Order cannot be cancelled at this stage", resp.Body["message"])

		resp = call(t, server, http.MethodPut, "/api/orders/"+orderID+"/status", map[string]any{"status": "delivered"}, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.NotNil(t, resp.data()["deliveredAt"])

		resp = call(t, server, http.MethodPut, "/api/orders/"+orderID+"/items/P001", map[string]any{"quantity": 1}, admin)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "ORDER_FINALIZED", resp.Body["code"])

		resp = call(t, server, http.MethodGet, "/api/admin/orders?status=delivered", nil, admin)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, float64(1), resp.Body["total"])
	})

	t.Run("customer cancels a processing order", func(t *testing.T) {
		resp := call(t, server, http.MethodPost, "/api/orders", orderBody(line("P004", "Mug", 8.5, 2)), bob)
		require.Equal(t, http.StatusCreated, resp.Code)
		id := resp.data()["id"].(string)

		resp = call(t, server, http.MethodPut, "/api/orders/"+id+"/cancel", nil, alice)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = call(t, server, http.MethodPut, "/api/orders/"+id+"/cancel", nil, bob)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "cancelled", resp.data()["status"])
		assert.NotNil(t, resp.data()["cancelledAt"])

		resp = call(t, server, http.MethodGet, "/api/orders/"+id+"/tracking", nil, bob)
		assert.Equal(t, float64(-1), resp.data()["currentStep"])
	})

	t.Run("invalid order request", func(t *testing.T) {
		resp := call(t, server, http.MethodPost, "/api/orders", orderBody(), alice)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Order items are required", resp.Body["message"])
	})
}

func TestDeclinedPayment_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := NewStack(t, testDB, payment.PolicyNever).Handler

	CleanupDB(t, testDB.Pool)
	SeedCatalog(t, testDB.Pool)
	alice := customer(t, 1)

	resp := call(t, server, http.MethodPost, "/api/cart", map[string]any{"productId": "P001"}, alice)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = call(t, server, http.MethodPost, "/api/orders", orderBody(line("P001", "Widget", 50, 1)), alice)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, true, resp.Body["success"])
	assert.Equal(t, "Order created but payment failed", resp.Body["message"])
	assert.Equal(t, "cancelled", resp.data()["status"])
	assert.Equal(t, "failed", resp.data()["paymentStatus"])
	assert.Nil(t, resp.data()["paymentId"])

	resp = call(t, server, http.MethodGet, "/api/cart", nil, alice)
	assert.Len(t, resp.data()["items"], 1)
}

func TestCORS_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := NewStack(t, testDB, payment.PolicyAlways).Handler

	t.Run("OPTIONS request returns CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})
}
