package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAPIKey    = "test-api-key"
	testJWTSecret = "test-jwt-secret"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the storefront schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.MaxConns = 20
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.EnsureSchema(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Stack is the service graph the HTTP server runs on.
type Stack struct {
	Handler  http.Handler
	Orders   service.OrderService
	Carts    service.CartService
	Products service.ProductService
}

// NewStack wires repositories, services and the router against testDB with
// the given payment policy.
func NewStack(t *testing.T, testDB *TestDB, policy payment.Policy) *Stack {
	t.Helper()

	logger := zerolog.Nop()

	tx := repository.NewTransactor(testDB.Pool, logger)
	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)

	calculator := pricing.NewCalculator(pricing.DefaultConfig())
	authorizer := payment.NewMockAuthorizer(payment.MockConfig{Policy: policy}, logger)

	products := service.NewProductService(productRepo, logger)
	carts := service.NewCartService(tx, cartRepo, productRepo, calculator, logger)
	orders := service.NewOrderService(tx, orderRepo, cartRepo, calculator, authorizer, events.NewNopPublisher(),
		5*time.Second, logger)

	return &Stack{
		Handler: router.New(router.Handlers{
			Products: handler.NewProductHandler(products, logger),
			Cart:     handler.NewCartHandler(carts, logger),
			Orders:   handler.NewOrderHandler(orders, logger),
		}, router.Auth{APIKey: testAPIKey, JWTSecret: testJWTSecret}, logger),
		Orders:   orders,
		Carts:    carts,
		Products: products,
	}
}

// Token signs a customer bearer token the way the auth service does.
func Token(t *testing.T, userID int) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// SeedCatalog inserts a category and test products.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	var categoryID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ('Home') ON CONFLICT (name) DO UPDATE SET active = TRUE RETURNING id`,
	).Scan(&categoryID)
	if err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}

	products := []struct {
		id       string
		name     string
		price    string
		stock    int
		featured bool
	}{
		{"P001", "Widget", "50.00", 5, true},
		{"P002", "Gadget", "30.00", 5, false},
		{"P003", "Lamp", "120.00", 10, true},
		{"P004", "Mug", "8.50", 100, false},
		{"P005", "Chair", "80.00", 5, false},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, description, price, stock_quantity, category_id, featured)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.id, p.name, p.name+" description", p.price, p.stock, categoryID, p.featured,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "cart_items", "products", "categories"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
