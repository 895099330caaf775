package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cartService implements CartService.
type cartService struct {
	tx          repository.Transactor
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	calculator  *pricing.Calculator
	now         func() time.Time
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	tx repository.Transactor,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	calculator *pricing.Calculator,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		tx:          tx,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		calculator:  calculator,
		now:         time.Now,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// GetCart returns the cart valued at the prices captured when each line was added.
func (s *cartService) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list cart")
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart := &model.Cart{Items: lines, Total: decimal.Zero}
	for _, l := range lines {
		cart.Total = cart.Total.Add(l.LineTotal())
		cart.ItemCount += l.Quantity
	}
	cart.Total = cart.Total.Round(2)
	return cart, nil
}

// AddItem adds to the cart. The unit price is captured from the product on
// first add; repeat adds merge into the existing line.
func (s *cartService) AddItem(ctx context.Context, userID string, req *model.CartItemRequest) (*model.Cart, error) {
	if req == nil || strings.TrimSpace(req.ProductID) == "" {
		return nil, model.NewValidationError("Product ID is required")
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		return nil, model.NewValidationError("Quantity must be positive")
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", req.ProductID).Msg("failed to get product")
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	if product == nil || !product.Active {
		return nil, model.ErrProductUnavailable
	}
	if quantity > product.Stock {
		return nil, stockError(product, quantity)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.cartRepo.GetForUpdate(ctx, userID, product.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			now := s.now()
			inserted, err := s.cartRepo.Insert(ctx, &model.CartItem{
				UserID:    userID,
				ProductID: product.ID,
				Quantity:  quantity,
				Price:     product.Price,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil || inserted {
				return err
			}
			// A concurrent add created the row first.
			if existing, err = s.cartRepo.GetForUpdate(ctx, userID, product.ID); err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("cart row for product %s vanished", product.ID)
			}
		}

		merged := existing.Quantity + quantity
		if merged > product.Stock {
			return stockError(product, merged)
		}
		return s.cartRepo.UpdateQuantity(ctx, userID, product.ID, merged)
	})
	if err != nil {
		return nil, s.wrap(err, "failed to add cart item", userID)
	}

	s.logger.Debug().Str("user_id", userID).Str("product_id", product.ID).Int("quantity", quantity).Msg("cart item added")
	return s.GetCart(ctx, userID)
}

// UpdateItem sets the quantity of a line. Zero removes it.
func (s *cartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error) {
	if quantity < 0 {
		return nil, model.NewValidationError("Valid quantity is required")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.cartRepo.GetForUpdate(ctx, userID, productID)
		if err != nil {
			return err
		}
		if existing == nil {
			return model.ErrCartItemNotFound
		}

		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil || !product.Active {
			return model.ErrProductUnavailable
		}
		if quantity > product.Stock {
			return stockError(product, quantity)
		}
		return s.cartRepo.UpdateQuantity(ctx, userID, productID, quantity)
	})
	if err != nil {
		return nil, s.wrap(err, "failed to update cart item", userID)
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes a line.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (*model.Cart, error) {
	deleted, err := s.cartRepo.Delete(ctx, userID, productID)
	if err != nil {
		return nil, s.wrap(err, "failed to remove cart item", userID)
	}
	if !deleted {
		return nil, model.ErrCartItemNotFound
	}
	return s.GetCart(ctx, userID)
}

// Clear empties the cart.
func (s *cartService) Clear(ctx context.Context, userID string) error {
	n, err := s.cartRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return s.wrap(err, "failed to clear cart", userID)
	}
	s.logger.Debug().Str("user_id", userID).Int64("removed", n).Msg("cart cleared")
	return nil
}

// Checkout validates every line against live stock and returns the priced
// summary. Nothing is returned unless every line is available.
func (s *cartService) Checkout(ctx context.Context, userID string) (*model.CheckoutSummary, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.wrap(err, "failed to validate cart", userID)
	}
	if len(lines) == 0 {
		return nil, model.ErrCartEmpty
	}

	var issues []model.StockIssue
	summary := &model.CheckoutSummary{Items: make([]model.CheckoutLine, 0, len(lines))}
	for _, l := range lines {
		available := l.Stock
		if !l.Active {
			available = 0
		}
		if l.Quantity > available {
			issues = append(issues, model.StockIssue{
				ProductID: l.ProductID,
				Name:      l.Name,
				Requested: l.Quantity,
				Available: available,
			})
			continue
		}
		summary.Items = append(summary.Items, model.CheckoutLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Image:     l.Image,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
		summary.ItemCount += l.Quantity
	}
	if len(issues) > 0 {
		s.logger.Info().Str("user_id", userID).Int("issues", len(issues)).Msg("checkout blocked by stock")
		return nil, model.NewStockError("Some items are out of stock", issues...)
	}

	summary.Totals = s.calculator.Compute(pricing.CartLines(lines))
	return summary, nil
}

func (s *cartService) wrap(err error, action, userID string) error {
	if _, ok := model.AsDomainError(err); ok {
		return err
	}
	s.logger.Error().Err(err).Str("user_id", userID).Msg(action)
	return fmt.Errorf("%s: %w", action, err)
}

func stockError(product *model.Product, requested int) error {
	return model.NewInsufficientStockError(model.StockIssue{
		ProductID: product.ID,
		Name:      product.Name,
		Requested: requested,
		Available: product.Stock,
	})
}
