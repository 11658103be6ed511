package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderRepository reads the orders table for reporting. Orders are not
// written by the storefront.
type OrderRepository interface {
	Count(ctx context.Context) (int, error)
	TotalRevenue(ctx context.Context) (decimal.Decimal, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Count returns the number of orders
func (r *orderRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return total, nil
}

// TotalRevenue sums the totals of every order
func (r *orderRepository) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	query := `SELECT COALESCE(SUM(total_price), 0) FROM orders`
	if err := r.db.QueryRowContext(ctx, query).Scan(&revenue); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum order totals: %w", err)
	}
	return revenue, nil
}
