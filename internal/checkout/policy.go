package checkout

import (
	"github.com/shopspring/decimal"
)

// Policy is the single pricing rule applied to the cart view, the checkout
// review and the order confirmation
type Policy struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
}

// Totals is the price breakdown for a subtotal
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// DefaultPolicy charges 5.00 shipping below a 50.00 subtotal and 8% tax
func DefaultPolicy() Policy {
	return Policy{
		ShippingFee:           decimal.NewFromInt(5),
		FreeShippingThreshold: decimal.NewFromInt(50),
		TaxRate:               decimal.NewFromFloat(0.08),
	}
}

// Totals computes total = subtotal + shipping + tax. Shipping is waived once
// the subtotal exceeds the threshold; an empty subtotal costs nothing.
func (p Policy) Totals(subtotal decimal.Decimal) Totals {
	if !subtotal.IsPositive() {
		return Totals{
			Subtotal: decimal.Zero,
			Shipping: decimal.Zero,
			Tax:      decimal.Zero,
			Total:    decimal.Zero,
		}
	}

	shipping := p.ShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
