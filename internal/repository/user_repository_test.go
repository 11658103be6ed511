package repository

import (
	"context"
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
	"golang.org/x/crypto/bcrypt"
)

func TestProperty_StoredPasswordsAreHashed(t *testing.T) {
	resetTables(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("passwords are stored as bcrypt hashes, never as plaintext", prop.ForAll(
		func(email string, password string, name string) bool {
			_, _ = testDB.Exec("DELETE FROM users WHERE email = $1", email)

			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				t.Logf("Failed to hash password: %v", err)
				return false
			}

			user := &domain.User{
				ID:           uuid.New(),
				Name:         name,
				Email:        email,
				PasswordHash: string(hashedPassword),
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}
			if err := repo.Create(ctx, user); err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			stored, err := repo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}

			if stored.PasswordHash == password {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil &&
				stored.Name == name &&
				!stored.IsAdmin
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewUserRepository(testDB)

	first := newTestUser(t, "jane@example.com", false)

	duplicate := &domain.User{
		ID:           uuid.New(),
		Name:         "Another Jane",
		Email:        first.Email,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	assert.ErrorIs(t, repo.Create(ctx, duplicate), ErrUserAlreadyExists)
}

func TestUserRepository_FindAndCount(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewUserRepository(testDB)

	admin := newTestUser(t, "admin@example.com", true)
	newTestUser(t, "john@example.com", false)

	found, err := repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, found.IsAdmin)
	assert.Equal(t, admin.Email, found.Email)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRefreshTokenRepository_Lifecycle(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewRefreshTokenRepository(testDB)
	user := newTestUser(t, "jane@example.com", false)

	issue := func(value string) {
		require.NoError(t, repo.Create(ctx, &domain.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     value,
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: time.Now(),
		}))
	}
	issue("token-a")
	issue("token-b")

	found, err := repo.FindByToken(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)

	require.NoError(t, repo.Revoke(ctx, "token-a"))
	_, err = repo.FindByToken(ctx, "token-a")
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	assert.ErrorIs(t, repo.Revoke(ctx, "missing"), ErrRefreshTokenNotFound)

	require.NoError(t, repo.RevokeAllForUser(ctx, user.ID))
	_, err = repo.FindByToken(ctx, "token-b")
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

// insertOrder writes an order fixture directly; the storefront itself never
// persists orders.
func insertOrder(t *testing.T, order *domain.Order) {
	t.Helper()
	ctx := context.Background()

	tx, err := testDB.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, shipping_price, tax_price, total_price, is_paid, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, order.UserID, order.ShippingPrice, order.TaxPrice, order.TotalPrice, order.IsPaid, order.PaidAt, order.CreatedAt)
	require.NoError(t, err)

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, order.ID, item.ProductID, item.Name, item.Quantity, item.Price)
		require.NoError(t, err)
	}

	require.NoError(t, tx.Commit())
}

func TestOrderRepository_CountAndRevenue(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	orders := NewOrderRepository(testDB)
	products := NewProductRepository(testDB)
	user := newTestUser(t, "buyer@example.com", false)

	count, err := orders.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	revenue, err := orders.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.IsZero())

	product := newTestProduct("Desk Lamp", "Home", "20.00", 5)
	require.NoError(t, products.Create(ctx, product))

	for _, total := range []string{"26.60", "108.00"} {
		orderID := uuid.New()
		insertOrder(t, &domain.Order{
			ID:     orderID,
			UserID: user.ID,
			Items: []domain.OrderItem{{
				ID:        uuid.New(),
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  1,
				Price:     product.Price,
			}},
			ShippingPrice: decimal.NewFromInt(5),
			TaxPrice:      decimal.RequireFromString("1.60"),
			TotalPrice:    decimal.RequireFromString(total),
			CreatedAt:     time.Now(),
		})
	}

	count, err = orders.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	revenue, err = orders.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.Equal(decimal.RequireFromString("134.60")), "revenue %s", revenue)
}
