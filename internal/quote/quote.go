// Package quote computes quote totals from line items, rates and a shipping cost.
package quote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidItem is returned for negative quantities or unit prices.
	ErrInvalidItem = errors.New("quote: invalid item")
	// ErrInvalidRate is returned for negative discount or VAT rates.
	ErrInvalidRate = errors.New("quote: invalid rate")
	// ErrInvalidShipping is returned when a ShippingInfo does not match its kind.
	ErrInvalidShipping = errors.New("quote: invalid shipping info")
	// ErrInvalidPolicy is returned for unknown VAT policy names.
	ErrInvalidPolicy = errors.New("quote: invalid vat policy")
)

// Item is a quote line. The quote owns its items.
type Item struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// TotalPrice is quantity × unit price, unrounded.
func (i Item) TotalPrice() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Quote is a client quote. Totals are never stored on it; they are recomputed on every read.
type Quote struct {
	ID              uuid.UUID
	Reference       string
	Currency        string
	Items           []Item
	DiscountRatePct decimal.Decimal
	VATRatePct      decimal.Decimal
	Shipping        ShippingInfo
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks items, rates and the shipping variant.
func (q Quote) Validate() error {
	if err := validateItems(q.Items); err != nil {
		return err
	}
	if err := validateRates(q.DiscountRatePct, q.VATRatePct); err != nil {
		return err
	}
	return q.Shipping.Validate()
}

// VATPolicy selects the VAT base. Both policies exist in the quoting workflow and callers
// must pick one explicitly.
type VATPolicy string

const (
	// VATOnSubtotal computes VAT on the subtotal before discount. Used for printed documents.
	VATOnSubtotal VATPolicy = "document"
	// VATAfterDiscount computes VAT on the discounted subtotal. Used for the interactive form.
	VATAfterDiscount VATPolicy = "form"
)

// ParsePolicy parses a policy name; empty selects the document policy.
func ParsePolicy(value string) (VATPolicy, error) {
	switch VATPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", VATOnSubtotal:
		return VATOnSubtotal, nil
	case VATAfterDiscount:
		return VATAfterDiscount, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, value)
	}
}

func validateItems(items []Item) error {
	for i, item := range items {
		if item.Quantity.IsNegative() {
			return fmt.Errorf("%w: item %d quantity %s", ErrInvalidItem, i, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d unit price %s", ErrInvalidItem, i, item.UnitPrice)
		}
	}
	return nil
}

func validateRates(discountPct, vatPct decimal.Decimal) error {
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount %s%%", ErrInvalidRate, discountPct)
	}
	if vatPct.IsNegative() {
		return fmt.Errorf("%w: vat %s%%", ErrInvalidRate, vatPct)
	}
	return nil
}
