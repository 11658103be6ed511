package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/storage"
)

// UserInfoKey is where the signed-in user is persisted
const UserInfoKey = "userInfo"

// ErrNotSignedIn is returned by operations that need a signed-in user
var ErrNotSignedIn = errors.New("not signed in")

// Catalog looks up the current state of a product
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// Authenticator exchanges credentials for a signed-in user
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*UserInfo, error)
	Register(ctx context.Context, name, email, password string) (*UserInfo, error)
	Logout(ctx context.Context, token, refreshToken string) error
}

// API is what a Session needs from the storefront API
type API interface {
	Catalog
	Authenticator
}

// Session is one shopper's client-side state: the signed-in user and the
// cart, both persisted in the same store so they survive restarts.
type Session struct {
	api    API
	kv     storage.KV
	cart   *cart.Cart
	user   *UserInfo
	policy checkout.Policy
}

// NewSession restores the user and cart from kv. A corrupt cart is discarded.
func NewSession(ctx context.Context, api API, kv storage.KV, policy checkout.Policy) (*Session, error) {
	s := &Session{api: api, kv: kv, policy: policy}

	c, err := cart.Load(ctx, kv, cart.StorageKey)
	if err != nil {
		if !errors.Is(err, cart.ErrCorrupt) {
			return nil, err
		}
		c = cart.New(kv, cart.StorageKey)
	}
	s.cart = c

	data, err := kv.Get(ctx, UserInfoKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load user info: %w", err)
	default:
		var user UserInfo
		if json.Unmarshal(data, &user) == nil && user.Token != "" {
			s.user = &user
		}
	}

	return s, nil
}

// User returns the signed-in user, if any
func (s *Session) User() (*UserInfo, bool) {
	return s.user, s.user != nil
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.signIn(ctx, user)
}

func (s *Session) Register(ctx context.Context, name, email, password string) error {
	user, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	return s.signIn(ctx, user)
}

// Logout forgets the user locally, then revokes the refresh token. The cart
// is kept.
func (s *Session) Logout(ctx context.Context) error {
	user := s.user
	if user == nil {
		return nil
	}

	if err := s.kv.Delete(ctx, UserInfoKey); err != nil {
		return fmt.Errorf("failed to remove user info: %w", err)
	}
	s.user = nil

	if user.RefreshToken == "" {
		return nil
	}
	return s.api.Logout(ctx, user.Token, user.RefreshToken)
}

// AddToCart snapshots the product as the API reports it now, then adds it
func (s *Session) AddToCart(ctx context.Context, productID string, quantity int) (cart.Outcome, error) {
	product, err := s.api.GetProduct(ctx, productID)
	if err != nil {
		return cart.Outcome{}, fmt.Errorf("failed to fetch product: %w", err)
	}
	if product.IsDeleted {
		return cart.Outcome{Notice: &cart.Notice{Level: cart.NoticeError, Message: "Product is no longer available"}}, nil
	}
	return s.cart.Add(ctx, cart.ItemFromProduct(product), quantity)
}

func (s *Session) RemoveFromCart(ctx context.Context, productID string) (cart.Outcome, error) {
	return s.cart.Remove(ctx, productID)
}

func (s *Session) UpdateQuantity(ctx context.Context, productID string, quantity int) (cart.Outcome, error) {
	return s.cart.UpdateQuantity(ctx, productID, quantity)
}

func (s *Session) ClearCart(ctx context.Context) (cart.Outcome, error) {
	return s.cart.Clear(ctx)
}

// Lines returns the cart lines in insertion order
func (s *Session) Lines() []cart.Line {
	return s.cart.Lines()
}

// Count is the total quantity across all lines
func (s *Session) Count() int {
	return s.cart.Count()
}

func (s *Session) Totals() checkout.Totals {
	return s.policy.Totals(s.cart.Subtotal())
}

func (s *Session) signIn(ctx context.Context, user *UserInfo) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user info: %w", err)
	}
	if err := s.kv.Set(ctx, UserInfoKey, data); err != nil {
		return fmt.Errorf("failed to persist user info: %w", err)
	}
	s.user = user
	return nil
}
