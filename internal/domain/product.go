package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// prices travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	DefaultProductImage       = "/images/sample.jpg"
	DefaultProductDescription = "No description"
)

// Product represents a product in the catalog. Products are never removed,
// only flagged as deleted.
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Category    string          `json:"category" db:"category"`
	Image       string          `json:"image" db:"image"`
	Stock       int             `json:"count_in_stock" db:"count_in_stock"`
	Rating      decimal.Decimal `json:"rating" db:"rating"`
	NumReviews  int             `json:"num_reviews" db:"num_reviews"`
	IsDeleted   bool            `json:"is_deleted" db:"is_deleted"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Available reports whether the product is shown in the public catalog
func (p *Product) Available() bool {
	return !p.IsDeleted && p.Stock > 0
}

// ProductFilter narrows a catalog listing
type ProductFilter struct {
	Keyword    string
	Category   string
	IncludeAll bool
}
