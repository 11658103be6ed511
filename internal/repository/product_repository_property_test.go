package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containsProduct(products []*domain.Product, id uuid.UUID) bool {
	for _, p := range products {
		if p.ID == id {
			return true
		}
	}
	return false
}

func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	resetTables(t)
	productRepo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, description string, cents int64, category string, stock int) bool {
			ctx := context.Background()

			product := newTestProduct(name, category, "1", stock)
			product.Description = description
			product.Price = decimal.New(cents, -2)

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != product.Name || retrieved.Description != product.Description {
				t.Logf("FAIL: text mismatch %q/%q", retrieved.Name, retrieved.Description)
				return false
			}
			if !retrieved.Price.Equal(product.Price) {
				t.Logf("FAIL: Price mismatch. Expected %s, got %s", product.Price, retrieved.Price)
				return false
			}
			if retrieved.Category != product.Category || retrieved.Stock != product.Stock {
				t.Logf("FAIL: category/stock mismatch")
				return false
			}
			if retrieved.IsDeleted || retrieved.CreatedAt.IsZero() {
				t.Logf("FAIL: unexpected flags")
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Za-z][A-Za-z ]{2,40}`),
		gen.AlphaString(),
		gen.Int64Range(1, 9999999),
		gen.OneConstOf("Electronics", "Books", "Home"),
		gen.IntRange(0, 500),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_CatalogVisibility(t *testing.T) {
	resetTables(t)
	productRepo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("unavailable products only appear in the all-inclusive view", prop.ForAll(
		func(stock int, deleted bool) bool {
			ctx := context.Background()

			product := newTestProduct("Visibility "+uuid.NewString(), "Books", "9.99", stock)
			if err := productRepo.Create(ctx, product); err != nil {
				return false
			}
			if deleted {
				if err := productRepo.SoftDelete(ctx, product.ID); err != nil {
					return false
				}
			}

			public, err := productRepo.List(ctx, domain.ProductFilter{})
			if err != nil {
				return false
			}
			all, err := productRepo.List(ctx, domain.ProductFilter{IncludeAll: true})
			if err != nil {
				return false
			}

			visible := stock > 0 && !deleted
			return containsProduct(public, product.ID) == visible && containsProduct(all, product.ID)
		},
		gen.IntRange(0, 3),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_ListFilters(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewProductRepository(testDB)

	lamp := newTestProduct("Desk Lamp", "Home", "25.00", 3)
	mug := newTestProduct("Coffee Mug", "Home", "8.50", 10)
	novel := newTestProduct("LAMP Lighter Novel", "Books", "12.00", 2)
	percent := newTestProduct("100% Cotton Towel", "Home", "15.00", 4)
	for i, p := range []*domain.Product{lamp, mug, novel, percent} {
		p.CreatedAt = p.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, p))
	}

	results, err := repo.List(ctx, domain.ProductFilter{Keyword: "lamp"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, novel.ID, results[0].ID, "newest first")
	assert.Equal(t, lamp.ID, results[1].ID)

	results, err = repo.List(ctx, domain.ProductFilter{Keyword: "lamp", Category: "Home"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, lamp.ID, results[0].ID)

	results, err = repo.List(ctx, domain.ProductFilter{Category: "home"})
	require.NoError(t, err)
	assert.Empty(t, results, "category match is exact")

	results, err = repo.List(ctx, domain.ProductFilter{Keyword: "%"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, percent.ID, results[0].ID)
}

func TestProductRepository_UpdateAndSoftDelete(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewProductRepository(testDB)

	product := newTestProduct("Desk Lamp", "Home", "25.00", 3)
	require.NoError(t, repo.Create(ctx, product))

	product.Name = "Floor Lamp"
	product.Price = decimal.RequireFromString("45.00")
	product.Category = "Lighting"
	product.Stock = 0
	product.UpdatedAt = time.Now()
	require.NoError(t, repo.Update(ctx, product))

	updated, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Floor Lamp", updated.Name)
	assert.Equal(t, "Lighting", updated.Category)
	assert.Equal(t, 0, updated.Stock)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(45)))

	require.NoError(t, repo.SoftDelete(ctx, product.ID))
	deleted, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	missing := newTestProduct("Ghost", "Home", "1.00", 1)
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrProductNotFound)
	assert.ErrorIs(t, repo.SoftDelete(ctx, missing.ID), ErrProductNotFound)
	_, err = repo.FindByID(ctx, missing.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductRepository_HistoryCountsAndCategories(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	categories := NewCategoryRepository(testDB)

	stocks := []int{0, 2, 5, 6, 40}
	for i, stock := range stocks {
		category := "Home"
		if i%2 == 1 {
			category = "Books"
		}
		p := newTestProduct(fmt.Sprintf("Item %d", i), category, "10.00", stock)
		p.CreatedAt = p.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, p))
	}

	retired := newTestProduct("Retired", "Garden", "10.00", 1)
	require.NoError(t, repo.Create(ctx, retired))
	require.NoError(t, repo.SoftDelete(ctx, retired.ID))

	history, err := repo.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, len(stocks)+1)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.After(history[i-1].CreatedAt), "history is newest first")
	}
	assert.True(t, containsProduct(history, retired.ID))

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(stocks)+1, total)

	// stock 0, 2 and 5 are at or below the threshold; the retired product is ignored
	low, err := repo.CountLowStock(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, low)

	names, err := categories.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Books", "Home"}, names)
}
