package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Products *handler.ProductHandler
	Cart     *handler.CartHandler
	Orders   *handler.OrderHandler
}

// Auth holds the credentials checked by the route guards.
type Auth struct {
	APIKey    string
	JWTSecret string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, auth Auth, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	customer := middleware.JWTAuth(auth.JWTSecret, logger)
	admin := middleware.APIKeyAuth(auth.APIKey, logger)
	guard := func(wrap func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		return wrap(fn)
	}

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Catalogue
	mux.HandleFunc("GET /api/products", h.Products.List)
	mux.HandleFunc("GET /api/products/featured", h.Products.Featured)
	mux.HandleFunc("GET /api/products/{id}", h.Products.GetByID)
	mux.HandleFunc("GET /api/categories", h.Products.Categories)

	// Cart
	mux.Handle("GET /api/cart", guard(customer, h.Cart.Get))
	mux.Handle("POST /api/cart", guard(customer, h.Cart.Add))
	mux.Handle("GET /api/cart/checkout", guard(customer, h.Cart.Checkout))
	mux.Handle("PUT /api/cart/{productId}", guard(customer, h.Cart.Update))
	mux.Handle("DELETE /api/cart/{productId}", guard(customer, h.Cart.Remove))
	mux.Handle("DELETE /api/cart", guard(customer, h.Cart.Clear))

	// Orders
	mux.Handle("POST /api/orders", guard(customer, h.Orders.Create))
	mux.Handle("GET /api/orders", guard(customer, h.Orders.List))
	mux.Handle("GET /api/orders/{id}", guard(customer, h.Orders.GetByID))
	mux.Handle("GET /api/orders/{id}/tracking", guard(customer, h.Orders.Tracking))
	mux.Handle("PUT /api/orders/{id}/cancel", guard(customer, h.Orders.Cancel))

	// Order administration
	mux.Handle("PUT /api/orders/{id}/status", guard(admin, h.Orders.SetStatus))
	mux.Handle("POST /api/orders/{id}/items", guard(admin, h.Orders.AddItem))
	mux.Handle("PUT /api/orders/{id}/items/{productId}", guard(admin, h.Orders.UpdateItem))
	mux.Handle("DELETE /api/orders/{id}/items/{productId}", guard(admin, h.Orders.RemoveItem))
	mux.Handle("GET /api/admin/orders", guard(admin, h.Orders.ListAll))

	// Catalogue administration
	mux.Handle("GET /api/admin/products", guard(admin, h.Products.AdminList))
	mux.Handle("GET /api/admin/products/{id}", guard(admin, h.Products.AdminGet))
	mux.Handle("POST /api/admin/products", guard(admin, h.Products.Create))
	mux.Handle("PUT /api/admin/products/{id}", guard(admin, h.Products.Update))
	mux.Handle("DELETE /api/admin/products/{id}", guard(admin, h.Products.Delete))

	// Apply middleware in order: Recovery -> Logging -> CORS
	var handler http.Handler = mux
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
