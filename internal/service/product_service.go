package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is no longer available")
)

// ProductInput is the admin-editable part of a product
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Category    string          `json:"category" validate:"required,max=100"`
	Image       string          `json:"image"`
	Stock       int             `json:"count_in_stock" validate:"gte=0"`
}

// ProductService defines the interface for catalog business logic
type ProductService interface {
	List(ctx context.Context, filter domain.ProductFilter, viewer *domain.User) ([]*domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	History(ctx context.Context) ([]*domain.Product, error)
	Create(ctx context.Context, input ProductInput, createdBy uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// List returns the catalog. The all-inclusive view is only granted to admins.
func (s *productService) List(ctx context.Context, filter domain.ProductFilter, viewer *domain.User) ([]*domain.Product, error) {
	if filter.IncludeAll && (viewer == nil || !viewer.IsAdmin) {
		filter.IncludeAll = false
	}
	filter.Keyword = strings.TrimSpace(filter.Keyword)
	filter.Category = strings.TrimSpace(filter.Category)

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Get returns a product by ID, including deleted ones
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// History lists every product ever created, deleted ones included
func (s *productService) History(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list product history: %w", err)
	}
	return products, nil
}

func (s *productService) Create(ctx context.Context, input ProductInput, createdBy uuid.UUID) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Rating:    decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if createdBy != uuid.Nil {
		product.CreatedBy = &createdBy
	}
	applyProductInput(product, input)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// Update overwrites the editable fields of an existing product
func (s *productService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyProductInput(product, input)
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Delete flags the product as deleted. It stays visible in the history view.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func applyProductInput(product *domain.Product, input ProductInput) {
	product.Name = strings.TrimSpace(input.Name)
	product.Description = strings.TrimSpace(input.Description)
	product.Price = input.Price
	product.Category = strings.TrimSpace(input.Category)
	product.Image = strings.TrimSpace(input.Image)
	product.Stock = input.Stock

	if product.Image == "" {
		product.Image = domain.DefaultProductImage
	}
	if product.Description == "" {
		product.Description = domain.DefaultProductDescription
	}
}
