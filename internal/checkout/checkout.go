// Package checkout implements the shipping, payment and review stages a
// shopper walks through before placing an order.
package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrEmptyCart         = errors.New("cart is empty")
)

// ConfirmationMessage is shown once an order is placed
const ConfirmationMessage = "Order Placed! Thank you."

// Stage is a step of the checkout flow
type Stage string

const (
	StageShipping Stage = "shipping"
	StagePayment  Stage = "payment"
	StageReview   Stage = "review"
)

var stageOrder = map[Stage]int{
	StageShipping: 0,
	StagePayment:  1,
	StageReview:   2,
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// ShippingAddress is the shipping form
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// PaymentDetails is the payment form as submitted
type PaymentDetails struct {
	CardholderName string `json:"cardholder_name" validate:"required"`
	CardNumber     string `json:"card_number" validate:"required,number,min=12,max=19"`
	Expiry         string `json:"expiry" validate:"required,datetime=01/06"`
	CVC            string `json:"cvc" validate:"required,number,min=3,max=4"`
}

// PaymentSummary is what the session keeps of the payment form.
// The full card number and the CVC are never stored.
type PaymentSummary struct {
	Method         string `json:"method"`
	CardholderName string `json:"cardholder_name"`
	Last4          string `json:"last4"`
	Expiry         string `json:"expiry"`
}

// Confirmation is the result of placing an order
type Confirmation struct {
	Message   string          `json:"message"`
	ItemCount int             `json:"item_count"`
	Totals    Totals          `json:"totals"`
	Shipping  ShippingAddress `json:"shipping"`
	Payment   PaymentSummary  `json:"payment"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// Session holds the checkout state for one shopper. Data entered for a
// stage is kept when navigating backwards.
type Session struct {
	Stage    Stage            `json:"stage"`
	Shipping *ShippingAddress `json:"shipping,omitempty"`
	Payment  *PaymentSummary  `json:"payment,omitempty"`
}

var validate = validator.New()

// NewSession starts at the shipping stage
func NewSession() *Session {
	return &Session{Stage: StageShipping}
}

// SubmitShipping records the address and advances to payment
func (s *Session) SubmitShipping(address ShippingAddress) error {
	if s.Stage != StageShipping {
		return fmt.Errorf("%w: shipping form submitted at %s stage", ErrInvalidTransition, s.Stage)
	}
	if err := validate.Struct(address); err != nil {
		return err
	}

	s.Shipping = &address
	s.Stage = StagePayment
	return nil
}

// SubmitPayment records a summary of the card and advances to review
func (s *Session) SubmitPayment(details PaymentDetails) error {
	if s.Stage != StagePayment {
		return fmt.Errorf("%w: payment form submitted at %s stage", ErrInvalidTransition, s.Stage)
	}
	if err := validate.Struct(details); err != nil {
		return err
	}

	s.Payment = &PaymentSummary{
		Method:         "card",
		CardholderName: details.CardholderName,
		Last4:          details.CardNumber[len(details.CardNumber)-4:],
		Expiry:         details.Expiry,
	}
	s.Stage = StageReview
	return nil
}

// Back moves one stage backwards
func (s *Session) Back() error {
	switch s.Stage {
	case StageReview:
		s.Stage = StagePayment
	case StagePayment:
		s.Stage = StageShipping
	default:
		return fmt.Errorf("%w: no stage before %s", ErrInvalidTransition, s.Stage)
	}
	return nil
}

// GoTo jumps back to an earlier stage, as the review page's edit links do
func (s *Session) GoTo(target Stage) error {
	if !target.Valid() || stageOrder[target] > stageOrder[s.Stage] {
		return fmt.Errorf("%w: cannot jump from %s to %s", ErrInvalidTransition, s.Stage, target)
	}
	s.Stage = target
	return nil
}

// PlaceOrder confirms the order from the review stage. Nothing is persisted
// and no stock is reserved.
func (s *Session) PlaceOrder(itemCount int, subtotal decimal.Decimal, policy Policy) (*Confirmation, error) {
	if s.Stage != StageReview || s.Shipping == nil || s.Payment == nil {
		return nil, fmt.Errorf("%w: order placed at %s stage", ErrInvalidTransition, s.Stage)
	}
	if itemCount < 1 {
		return nil, ErrEmptyCart
	}

	return &Confirmation{
		Message:   ConfirmationMessage,
		ItemCount: itemCount,
		Totals:    policy.Totals(subtotal),
		Shipping:  *s.Shipping,
		Payment:   *s.Payment,
		PlacedAt:  time.Now().UTC(),
	}, nil
}
