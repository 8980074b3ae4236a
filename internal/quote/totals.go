package quote

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals are the computed quote figures. Values are exact; call Rounded for presentation.
type Totals struct {
	Policy         VATPolicy
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	VATBase        decimal.Decimal
	VATAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	// HandlingCost is shipping plus VAT, printed as a single line on documents.
	HandlingCost decimal.Decimal
	GrandTotal   decimal.Decimal
}

// DocumentTotals computes totals with VAT on the subtotal, as the document renderer does.
func DocumentTotals(items []Item, discountRatePct, vatRatePct, shippingCost decimal.Decimal) (Totals, error) {
	return ComputeTotals(VATOnSubtotal, items, discountRatePct, vatRatePct, shippingCost)
}

// FormTotals computes totals with VAT on the discounted subtotal, as the interactive form does.
func FormTotals(items []Item, discountRatePct, vatRatePct, shippingCost decimal.Decimal) (Totals, error) {
	return ComputeTotals(VATAfterDiscount, items, discountRatePct, vatRatePct, shippingCost)
}

// ComputeTotals runs subtotal, discount, VAT, handling and grand total for the given policy.
// shippingCost must already be in the quote currency.
func ComputeTotals(policy VATPolicy, items []Item, discountRatePct, vatRatePct, shippingCost decimal.Decimal) (Totals, error) {
	if policy != VATOnSubtotal && policy != VATAfterDiscount {
		return Totals{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, string(policy))
	}
	if err := validateItems(items); err != nil {
		return Totals{}, err
	}
	if err := validateRates(discountRatePct, vatRatePct); err != nil {
		return Totals{}, err
	}
	if shippingCost.IsNegative() {
		return Totals{}, fmt.Errorf("%w: negative shipping cost %s", ErrInvalidShipping, shippingCost)
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice())
	}
	discount := subtotal.Mul(discountRatePct).Div(hundred)

	vatBase := subtotal
	if policy == VATAfterDiscount {
		vatBase = subtotal.Sub(discount)
	}
	vat := vatBase.Mul(vatRatePct).Div(hundred)

	return Totals{
		Policy:         policy,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		VATBase:        vatBase,
		VATAmount:      vat,
		ShippingCost:   shippingCost,
		HandlingCost:   shippingCost.Add(vat),
		GrandTotal:     subtotal.Sub(discount).Add(vat).Add(shippingCost),
	}, nil
}

// GrandTotalViaHandling recomputes the grand total as subtotal + handling − discount.
// It always equals GrandTotal.
func (t Totals) GrandTotalViaHandling() decimal.Decimal {
	return t.Subtotal.Add(t.HandlingCost).Sub(t.DiscountAmount)
}

// Rounded returns a copy with every amount rounded to two decimals.
func (t Totals) Rounded() Totals {
	return Totals{
		Policy:         t.Policy,
		Subtotal:       t.Subtotal.Round(2),
		DiscountAmount: t.DiscountAmount.Round(2),
		VATBase:        t.VATBase.Round(2),
		VATAmount:      t.VATAmount.Round(2),
		ShippingCost:   t.ShippingCost.Round(2),
		HandlingCost:   t.HandlingCost.Round(2),
		GrandTotal:     t.GrandTotal.Round(2),
	}
}
