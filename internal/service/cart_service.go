package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidSession = errors.New("invalid session")

// CartView is the cart as shown to the shopper. Outcome is set after a mutation.
type CartView struct {
	Items  []cart.Line     `json:"items"`
	Count  int             `json:"count"`
	Totals checkout.Totals `json:"totals"`
	*cart.Outcome
}

// CartService manages the cart of each shopper session
type CartService interface {
	View(ctx context.Context, sessionID string) (*CartView, error)
	Add(ctx context.Context, sessionID, productID string, quantity int) (*CartView, error)
	UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*CartView, error)
	Remove(ctx context.Context, sessionID, productID string) (*CartView, error)
	Clear(ctx context.Context, sessionID string) (*CartView, error)
}

type cartService struct {
	kv          storage.KV
	productRepo repository.ProductRepository
	policy      checkout.Policy
	logger      *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(
	kv storage.KV,
	productRepo repository.ProductRepository,
	policy checkout.Policy,
	logger *zap.Logger,
) CartService {
	return &cartService{
		kv:          kv,
		productRepo: productRepo,
		policy:      policy,
		logger:      logger,
	}
}

func (s *cartService) View(ctx context.Context, sessionID string) (*CartView, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(c, nil), nil
}

// Add snapshots the current catalog record into the cart. Deleted products
// cannot be added; stock is checked by the cart itself.
func (s *cartService) Add(ctx context.Context, sessionID, productID string, quantity int) (*CartView, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	product, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.IsDeleted {
		return nil, ErrProductUnavailable
	}

	outcome, err := c.Add(ctx, cart.ItemFromProduct(product), quantity)
	if err != nil {
		return nil, err
	}
	return s.view(c, &outcome), nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*CartView, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := c.UpdateQuantity(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	return s.view(c, &outcome), nil
}

func (s *cartService) Remove(ctx context.Context, sessionID, productID string) (*CartView, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := c.Remove(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.view(c, &outcome), nil
}

func (s *cartService) Clear(ctx context.Context, sessionID string) (*CartView, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := c.Clear(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(c, &outcome), nil
}

// load rehydrates the session cart. A corrupt cart is replaced by an empty one.
func (s *cartService) load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return loadSessionCart(ctx, s.kv, sessionID, s.logger)
}

func (s *cartService) lookupProduct(ctx context.Context, productID string) (*domain.Product, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	return product, nil
}

func (s *cartService) view(c *cart.Cart, outcome *cart.Outcome) *CartView {
	return &CartView{
		Items:   c.Lines(),
		Count:   c.Count(),
		Totals:  s.policy.Totals(c.Subtotal()),
		Outcome: outcome,
	}
}

func cartKey(sessionID string) string {
	return cart.StorageKey + ":" + sessionID
}

func loadSessionCart(ctx context.Context, kv storage.KV, sessionID string, logger *zap.Logger) (*cart.Cart, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	key := cartKey(sessionID)
	c, err := cart.Load(ctx, kv, key)
	if err != nil {
		if errors.Is(err, cart.ErrCorrupt) {
			logger.Warn("Discarding corrupt cart",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			return cart.New(kv, key), nil
		}
		return nil, err
	}
	return c, nil
}
