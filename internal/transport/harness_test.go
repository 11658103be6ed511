package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func (m *memoryTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *memoryTokens) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if stored.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return stored, nil
}

func (m *memoryTokens) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	stored.Revoked = true
	return nil
}

func (m *memoryTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

type memoryProducts struct {
	mu       sync.Mutex
	products []*domain.Product
}

func (m *memoryProducts) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, product)
	return nil
}

func (m *memoryProducts) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.products {
		if p.ID == product.ID {
			m.products[i] = product
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *memoryProducts) SoftDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			p.IsDeleted = true
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *memoryProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *memoryProducts) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.Product{}
	for _, p := range m.products {
		if !filter.IncludeAll && !p.Available() {
			continue
		}
		if filter.Category != "" && filter.Category != p.Category {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *memoryProducts) History(ctx context.Context) ([]*domain.Product, error) {
	return m.List(ctx, domain.ProductFilter{IncludeAll: true})
}

func (m *memoryProducts) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

func (m *memoryProducts) CountLowStock(ctx context.Context, threshold int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, p := range m.products {
		if !p.IsDeleted && p.Stock <= threshold {
			count++
		}
	}
	return count, nil
}

func (m *memoryProducts) Categories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	names := []string{}
	for _, p := range m.products {
		if !p.IsDeleted && !seen[p.Category] {
			seen[p.Category] = true
			names = append(names, p.Category)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *memoryProducts) snapshot() []domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Product, len(m.products))
	for i, p := range m.products {
		out[i] = *p
	}
	return out
}

type categoryLister struct{ products *memoryProducts }

func (c categoryLister) List(ctx context.Context) ([]string, error) {
	return c.products.Categories(ctx)
}

type noOrders struct{}

func (noOrders) Count(ctx context.Context) (int, error)               { return 0, nil }
func (noOrders) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// testAPI is the full router over in-memory repositories
type testAPI struct {
	t        *testing.T
	router   http.Handler
	users    *memoryUsers
	products *memoryProducts
	auth     service.UserService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	users := &memoryUsers{users: map[string]*domain.User{}}
	tokens := &memoryTokens{tokens: map[string]*domain.RefreshToken{}}
	products := &memoryProducts{}
	sessions := storage.NewMemoryKV()
	policy := checkout.DefaultPolicy()

	userService := service.NewUserService(users, tokens, service.TokenConfig{Secret: "handler-test-secret"})
	productService := service.NewProductService(products, categoryLister{products: products})
	adminService := service.NewAdminService(products, users, noOrders{}, 5)
	cartService := service.NewCartService(sessions, products, policy, logger)
	checkoutService := service.NewCheckoutService(sessions, policy, logger)

	authMW := middleware.AuthMiddleware(userService, logger)
	optionalAuth := middleware.OptionalAuth(userService, logger)
	adminMW := middleware.RequireAdmin(logger)
	sessionMW := middleware.SessionMiddleware(logger)
	limiter := middleware.LocalRateLimitMiddleware(middleware.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute}, logger)

	r := chi.NewRouter()
	r.NotFound(middleware.NotFoundHandler)
	NewAuthHandler(userService, logger).RegisterRoutes(r, authMW, limiter)
	NewProductHandler(productService, logger).RegisterRoutes(r, optionalAuth, authMW, adminMW)
	NewAdminHandler(adminService, logger).RegisterRoutes(r, authMW, adminMW)
	NewUploadHandler(t.TempDir(), 1<<20, logger).RegisterRoutes(r, authMW, adminMW)
	NewCartHandler(cartService, logger).RegisterRoutes(r, sessionMW)
	NewCheckoutHandler(checkoutService, logger).RegisterRoutes(r, sessionMW)

	return &testAPI{t: t, router: r, users: users, products: products, auth: userService}
}

// signUp registers a user directly through the service and returns a bearer token
func (a *testAPI) signUp(email string, isAdmin bool) string {
	a.t.Helper()
	result, err := a.auth.Register(context.Background(), "Test User", email, "password123")
	require.NoError(a.t, err)
	result.User.IsAdmin = isAdmin
	return result.AccessToken
}

func (a *testAPI) addProduct(name, category, price string, stock int) *domain.Product {
	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  category,
		Image:     domain.DefaultProductImage,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(a.t, a.products.Create(context.Background(), product))
	return product
}

type call struct {
	method  string
	path    string
	body    interface{}
	token   string
	session string
}

func (a *testAPI) do(c call) *httptest.ResponseRecorder {
	a.t.Helper()

	var body io.Reader
	if c.body != nil {
		if raw, ok := c.body.(string); ok {
			body = bytes.NewBufferString(raw)
		} else {
			data, err := json.Marshal(c.body)
			require.NoError(a.t, err)
			body = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.session != "" {
		req.Header.Set(middleware.SessionHeader, c.session)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response middleware.ErrorResponse
	decodeJSON(t, w, &response)
	return response.Message
}

// invalidFields lists the fields named in a validation error reply
func invalidFields(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var response struct {
		Message string `json:"message"`
		Details struct {
			ValidationErrors []middleware.ValidationError `json:"validation_errors"`
		} `json:"details"`
	}
	decodeJSON(t, w, &response)
	require.Equal(t, "validation failed", response.Message)

	fields := make([]string, 0, len(response.Details.ValidationErrors))
	for _, e := range response.Details.ValidationErrors {
		fields = append(fields, e.Field)
	}
	return fields
}

func qty(n int) *int {
	return &n
}
