package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a placed order. Orders are only read for reporting.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	Items         []OrderItem     `json:"items"`
	ShippingPrice decimal.Decimal `json:"shipping_price" db:"shipping_price"`
	TaxPrice      decimal.Decimal `json:"tax_price" db:"tax_price"`
	TotalPrice    decimal.Decimal `json:"total_price" db:"total_price"`
	IsPaid        bool            `json:"is_paid" db:"is_paid"`
	PaidAt        *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// OrderItem is one line of an order
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
}

// Stats is the admin dashboard snapshot
type Stats struct {
	TotalOrders      int             `json:"totalOrders"`
	TotalUsers       int             `json:"totalUsers"`
	TotalProducts    int             `json:"totalProducts"`
	LowStockProducts int             `json:"lowStockProducts"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
}
