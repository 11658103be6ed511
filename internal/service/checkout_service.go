package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/checkout"
	"storefront/internal/storage"

	"go.uber.org/zap"
)

const checkoutKeyPrefix = "checkout:"

// CheckoutView is the current checkout stage, the data entered so far and
// the totals of the session cart
type CheckoutView struct {
	Stage     checkout.Stage            `json:"stage"`
	Shipping  *checkout.ShippingAddress `json:"shipping,omitempty"`
	Payment   *checkout.PaymentSummary  `json:"payment,omitempty"`
	ItemCount int                       `json:"item_count"`
	Totals    checkout.Totals           `json:"totals"`
}

// CheckoutService drives the checkout flow of each shopper session
type CheckoutService interface {
	View(ctx context.Context, sessionID string) (*CheckoutView, error)
	SubmitShipping(ctx context.Context, sessionID string, address checkout.ShippingAddress) (*CheckoutView, error)
	SubmitPayment(ctx context.Context, sessionID string, details checkout.PaymentDetails) (*CheckoutView, error)
	Back(ctx context.Context, sessionID string) (*CheckoutView, error)
	GoTo(ctx context.Context, sessionID string, stage checkout.Stage) (*CheckoutView, error)
	PlaceOrder(ctx context.Context, sessionID string) (*checkout.Confirmation, error)
	Discard(ctx context.Context, sessionID string) error
}

type checkoutService struct {
	kv     storage.KV
	policy checkout.Policy
	logger *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(kv storage.KV, policy checkout.Policy, logger *zap.Logger) CheckoutService {
	return &checkoutService{
		kv:     kv,
		policy: policy,
		logger: logger,
	}
}

func (s *checkoutService) View(ctx context.Context, sessionID string) (*CheckoutView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sessionID, session)
}

func (s *checkoutService) SubmitShipping(ctx context.Context, sessionID string, address checkout.ShippingAddress) (*CheckoutView, error) {
	return s.transition(ctx, sessionID, func(session *checkout.Session) error {
		return session.SubmitShipping(address)
	})
}

func (s *checkoutService) SubmitPayment(ctx context.Context, sessionID string, details checkout.PaymentDetails) (*CheckoutView, error) {
	return s.transition(ctx, sessionID, func(session *checkout.Session) error {
		return session.SubmitPayment(details)
	})
}

func (s *checkoutService) Back(ctx context.Context, sessionID string) (*CheckoutView, error) {
	return s.transition(ctx, sessionID, func(session *checkout.Session) error {
		return session.Back()
	})
}

func (s *checkoutService) GoTo(ctx context.Context, sessionID string, stage checkout.Stage) (*CheckoutView, error) {
	return s.transition(ctx, sessionID, func(session *checkout.Session) error {
		return session.GoTo(stage)
	})
}

// PlaceOrder confirms the order and ends the checkout session. The cart is
// left untouched and nothing is persisted.
func (s *checkoutService) PlaceOrder(ctx context.Context, sessionID string) (*checkout.Confirmation, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c, err := loadSessionCart(ctx, s.kv, sessionID, s.logger)
	if err != nil {
		return nil, err
	}

	confirmation, err := session.PlaceOrder(c.Count(), c.Subtotal(), s.policy)
	if err != nil {
		return nil, err
	}

	if err := s.kv.Delete(ctx, checkoutKey(sessionID)); err != nil {
		return nil, fmt.Errorf("failed to end checkout session: %w", err)
	}

	s.logger.Info("Order placed",
		zap.String("session_id", sessionID),
		zap.Int("item_count", confirmation.ItemCount),
		zap.String("total", confirmation.Totals.Total.StringFixed(2)),
	)
	return confirmation, nil
}

// Discard drops the checkout session; the next view starts at shipping again
func (s *checkoutService) Discard(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	if err := s.kv.Delete(ctx, checkoutKey(sessionID)); err != nil {
		return fmt.Errorf("failed to discard checkout session: %w", err)
	}
	return nil
}

func (s *checkoutService) transition(ctx context.Context, sessionID string, apply func(*checkout.Session) error) (*CheckoutView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := apply(session); err != nil {
		return nil, err
	}

	if err := s.save(ctx, sessionID, session); err != nil {
		return nil, err
	}
	return s.view(ctx, sessionID, session)
}

func (s *checkoutService) load(ctx context.Context, sessionID string) (*checkout.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	data, err := s.kv.Get(ctx, checkoutKey(sessionID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return checkout.NewSession(), nil
		}
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	session := &checkout.Session{}
	if err := json.Unmarshal(data, session); err != nil || !session.Stage.Valid() {
		s.logger.Warn("Discarding corrupt checkout session", zap.String("session_id", sessionID))
		return checkout.NewSession(), nil
	}
	return session, nil
}

func (s *checkoutService) save(ctx context.Context, sessionID string, session *checkout.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode checkout session: %w", err)
	}
	if err := s.kv.Set(ctx, checkoutKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

func (s *checkoutService) view(ctx context.Context, sessionID string, session *checkout.Session) (*CheckoutView, error) {
	c, err := loadSessionCart(ctx, s.kv, sessionID, s.logger)
	if err != nil {
		return nil, err
	}

	return &CheckoutView{
		Stage:     session.Stage,
		Shipping:  session.Shipping,
		Payment:   session.Payment,
		ItemCount: c.Count(),
		Totals:    s.policy.Totals(c.Subtotal()),
	}, nil
}

func checkoutKey(sessionID string) string {
	return checkoutKeyPrefix + sessionID
}
