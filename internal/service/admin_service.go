package service

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// DefaultLowStockThreshold is used when no threshold is configured
const DefaultLowStockThreshold = 5

// AdminService builds the dashboard figures
type AdminService interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

type adminService struct {
	productRepo       repository.ProductRepository
	userRepo          repository.UserRepository
	orderRepo         repository.OrderRepository
	lowStockThreshold int
}

// NewAdminService creates a new instance of AdminService
func NewAdminService(
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	lowStockThreshold int,
) AdminService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &adminService{
		productRepo:       productRepo,
		userRepo:          userRepo,
		orderRepo:         orderRepo,
		lowStockThreshold: lowStockThreshold,
	}
}

// Stats counts products at or below the low stock threshold as low stock
func (s *adminService) Stats(ctx context.Context) (*domain.Stats, error) {
	totalProducts, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	lowStock, err := s.productRepo.CountLowStock(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	totalUsers, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	totalOrders, err := s.orderRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	revenue, err := s.orderRepo.TotalRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	return &domain.Stats{
		TotalOrders:      totalOrders,
		TotalUsers:       totalUsers,
		TotalProducts:    totalProducts,
		LowStockProducts: lowStock,
		TotalRevenue:     revenue,
	}, nil
}
