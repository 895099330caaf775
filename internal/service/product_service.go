package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultProductLimit  = 12
	defaultAdminLimit    = 20
	maxProductLimit      = 100
	defaultFeaturedLimit = 8
	maxFeaturedLimit     = 50
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	now         func() time.Time
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		now:         time.Now,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves one page of active products.
func (s *productService) List(ctx context.Context, filter model.ProductFilter) (*model.ProductPage, error) {
	filter.Status = model.ProductStatusActive
	return s.list(ctx, filter, defaultProductLimit)
}

// AdminList retrieves one page of products. An empty status lists every product.
func (s *productService) AdminList(ctx context.Context, filter model.ProductFilter) (*model.ProductPage, error) {
	if filter.Status == "" {
		filter.Status = model.ProductStatusAll
	}
	return s.list(ctx, filter, defaultAdminLimit)
}

func (s *productService) list(ctx context.Context, filter model.ProductFilter, defaultLimit int) (*model.ProductPage, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxProductLimit {
		filter.Limit = maxProductLimit
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Int("page", filter.Page).
			Int("limit", filter.Limit).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("total", total).
		Int("page", filter.Page).
		Str("status", string(filter.Status)).
		Msg("retrieved products")

	return &model.ProductPage{Products: products, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Featured retrieves featured products, clamping limit to [1, 50].
func (s *productService) Featured(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	if limit > maxFeaturedLimit {
		limit = maxFeaturedLimit
	}

	products, err := s.productRepo.ListFeatured(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Int("limit", limit).Msg("failed to get featured products")
		return nil, fmt.Errorf("failed to get featured products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single active product.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		s.logger.Warn().Msg("product ID is empty")
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil || !product.Active {
		s.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// AdminGet retrieves a product including soft-deleted ones.
func (s *productService) AdminGet(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	return product, nil
}

// Categories lists active categories.
func (s *productService) Categories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.productRepo.ListCategories(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list categories")
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// Create adds a product. An empty ID is replaced with a generated one.
func (s *productService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	if req == nil || req.Name == nil || strings.TrimSpace(*req.Name) == "" ||
		req.Description == nil || strings.TrimSpace(*req.Description) == "" ||
		req.Price == nil || req.CategoryID == nil {
		return nil, model.NewValidationError("Name, description, price, and category are required")
	}
	if err := validateProductFields(req); err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
		return nil, err
	}

	now := s.now()
	product := &model.Product{
		ID:          strings.TrimSpace(req.ID),
		Name:        strings.TrimSpace(*req.Name),
		Description: strings.TrimSpace(*req.Description),
		Price:       req.Price.Round(2),
		CategoryID:  req.CategoryID,
		Images:      req.Images,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Featured != nil {
		product.Featured = *req.Featured
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to create product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().Str("product_id", product.ID).Msg("product created")
	return product, nil
}

// Update applies the provided fields to an existing product.
func (s *productService) Update(ctx context.Context, id string, req *model.ProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, model.NewValidationError("Request body is required")
	}
	if err := validateProductFields(req); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, model.NewValidationError("Name cannot be empty")
		}
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		product.Price = req.Price.Round(2)
	}
	if req.CategoryID != nil {
		if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = req.CategoryID
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Images != nil {
		product.Images = req.Images
	}
	if req.Featured != nil {
		product.Featured = *req.Featured
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	product.UpdatedAt = s.now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Delete soft-deletes a product so existing carts and orders keep resolving it.
func (s *productService) Delete(ctx context.Context, id string) error {
	ok, err := s.productRepo.Deactivate(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to deactivate product")
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !ok {
		return model.ErrProductNotFound
	}
	s.logger.Info().Str("product_id", id).Msg("product deactivated")
	return nil
}

func (s *productService) requireCategory(ctx context.Context, id int64) error {
	category, err := s.productRepo.GetCategory(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("category_id", id).Msg("failed to get category")
		return fmt.Errorf("failed to get category: %w", err)
	}
	if category == nil || !category.Active {
		return model.ErrCategoryNotFound
	}
	return nil
}

func validateProductFields(req *model.ProductRequest) error {
	if req.Price != nil && !req.Price.IsPositive() {
		return model.NewValidationError("Price must be greater than 0")
	}
	if req.Stock != nil && *req.Stock < 0 {
		return model.NewValidationError("Stock cannot be negative")
	}
	return nil
}
