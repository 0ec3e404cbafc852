package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/redisclient"
	"github.com/manyeka-petros/malonda-web-app/internal/store"
	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles category and product management. It is also the
// order ledger's read-only source for current price and availability.
type CatalogService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store, redis *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// CategoryRequest is the category create/update payload
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
	Slug        string `json:"slug"`
}

// ProductRequest is the product create/update payload
type ProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	SKU           string          `json:"sku"`
	StockQuantity int             `json:"stock_quantity"`
	CategoryID    *int64          `json:"category_id"`
	ImageURL      string          `json:"image_url"`
	IsActive      *bool           `json:"is_active"`
}

// CreateCategory creates a category, generating the slug when absent
func (s *CatalogService) CreateCategory(ctx context.Context, req *CategoryRequest) (*models.Category, error) {
	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	}

	category := &models.Category{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    nullInt64(req.ParentID),
		Slug:        slug,
	}

	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// GetCategory retrieves a category
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	return s.store.GetCategoryByID(ctx, id)
}

// ListCategories retrieves all categories
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.GetCategories(ctx)
}

// UpdateCategory updates a category
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, req *CategoryRequest) (*models.Category, error) {
	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = req.Name
	category.Description = req.Description
	category.ParentID = nullInt64(req.ParentID)
	if req.Slug != "" {
		category.Slug = req.Slug
	}

	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// DeleteCategory deletes a category
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.store.DeleteCategory(ctx, id)
}

// CreateProduct creates a product, generating the SKU when absent
func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative: %w", util.ErrValidation)
	}

	sku := req.SKU
	if sku == "" {
		sku = GenerateSKU()
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	product := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		SKU:           sku,
		StockQuantity: req.StockQuantity,
		CategoryID:    nullInt64(req.CategoryID),
		ImageURL:      req.ImageURL,
		IsActive:      active,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if err := s.redis.InvalidateProduct(ctx, product.ID); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
	return product, nil
}

// GetProduct retrieves a product, serving from cache when possible
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if cached, err := s.redis.GetCachedProduct(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.redis.CacheProduct(ctx, product); err != nil {
		s.logger.Warn("Failed to cache product", zap.Int64("product_id", id), zap.Error(err))
	}
	return product, nil
}

// ListProducts retrieves all products, serving from cache when possible
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	if cached, err := s.redis.GetCachedProductList(ctx); err == nil && cached != nil {
		return cached, nil
	}

	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.redis.CacheProductList(ctx, products); err != nil {
		s.logger.Warn("Failed to cache product list", zap.Error(err))
	}
	return products, nil
}

// UpdateProduct updates a product. The SKU is immutable once set; a request
// carrying a different SKU is rejected.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.SKU != "" && req.SKU != product.SKU {
		return nil, fmt.Errorf("sku is immutable: %w", util.ErrValidation)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative: %w", util.ErrValidation)
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.StockQuantity = req.StockQuantity
	product.CategoryID = nullInt64(req.CategoryID)
	product.ImageURL = req.ImageURL
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if err := s.redis.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
	return product, nil
}

// DeleteProduct deletes a product. Existing order items keep their snapshot
// price and drop the product reference.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if err := s.redis.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
	return nil
}

// GenerateSKU returns a fresh server-generated SKU, e.g. SKU-9F7A3B2C
func GenerateSKU() string {
	return "SKU-" + strings.ToUpper(uuid.New().String()[:8])
}

// Slugify lowercases a name and collapses non-alphanumeric runs to hyphens
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
