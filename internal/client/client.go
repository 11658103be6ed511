// Package client talks to the storefront API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/domain"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds every request unless the caller's context is shorter
const DefaultTimeout = 10 * time.Second

// ErrNonJSONResponse is returned when the API answers with something other than JSON
var ErrNonJSONResponse = errors.New("non-JSON response from API")

// APIError is a non-2xx reply carrying the server's message
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// UserInfo is the signed-in user as returned by login and register
type UserInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"is_admin"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// ProductQuery filters a catalog listing
type ProductQuery struct {
	Keyword  string
	Category string
	ShowAll  bool
}

// Client is a thin storefront API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the traced default client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProducts returns the catalog. ShowAll only takes effect for an admin token.
func (c *Client) ListProducts(ctx context.Context, query ProductQuery, token string) ([]domain.Product, error) {
	params := url.Values{}
	if query.Keyword != "" {
		params.Set("keyword", query.Keyword)
	}
	if query.Category != "" {
		params.Set("category", query.Category)
	}
	if query.ShowAll {
		params.Set("showAll", "true")
	}

	path := "/api/products/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, path, token, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), "", nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.do(ctx, http.MethodGet, "/api/products/categories", "", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*UserInfo, error) {
	body := map[string]string{"email": email, "password": password}

	var info UserInfo
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*UserInfo, error) {
	body := map[string]string{"name": name, "email": email, "password": password}

	var info UserInfo
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Logout revokes refreshToken on the server
func (c *Client) Logout(ctx context.Context, token, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, body, nil)
}

func (c *Client) AdminStats(ctx context.Context, token string) (*domain.Stats, error) {
	var stats domain.Stats
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", token, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return fmt.Errorf("%w: %s %s answered %d", ErrNonJSONResponse, method, path, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var reply struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil || reply.Message == "" {
			reply.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: reply.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
