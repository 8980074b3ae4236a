package quote

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shipquote/internal/rate"
)

// ShippingKind tags the ShippingInfo variant.
type ShippingKind string

const (
	ShippingNone   ShippingKind = "none"
	ShippingSingle ShippingKind = "single"
	ShippingMulti  ShippingKind = "multi"
	// ShippingManual is a cost typed in by hand rather than computed.
	ShippingManual ShippingKind = "manual"
)

// ManualShipping is an operator-entered shipping cost.
type ManualShipping struct {
	Amount   decimal.Decimal
	Currency string
}

// ShippingInfo is the single authoritative shipping attachment of a quote.
// Exactly the field matching Kind is set.
type ShippingInfo struct {
	Kind   ShippingKind
	Single *rate.ShippingResult
	Multi  *rate.MultiLegResult
	Manual *ManualShipping
}

// NoShipping is the zero-cost variant.
func NoShipping() ShippingInfo { return ShippingInfo{Kind: ShippingNone} }

// SingleLeg wraps a single-leg result.
func SingleLeg(res rate.ShippingResult) ShippingInfo {
	return ShippingInfo{Kind: ShippingSingle, Single: &res}
}

// MultiLeg wraps a multi-leg result.
func MultiLeg(res rate.MultiLegResult) ShippingInfo {
	return ShippingInfo{Kind: ShippingMulti, Multi: &res}
}

// Manual wraps a hand-entered cost.
func Manual(amount decimal.Decimal, currency string) ShippingInfo {
	return ShippingInfo{Kind: ShippingManual, Manual: &ManualShipping{Amount: amount, Currency: strings.ToUpper(strings.TrimSpace(currency))}}
}

// Validate checks that the payload matches the kind.
func (s ShippingInfo) Validate() error {
	switch s.kind() {
	case ShippingNone:
		if s.Single != nil || s.Multi != nil || s.Manual != nil {
			return fmt.Errorf("%w: none carries a payload", ErrInvalidShipping)
		}
	case ShippingSingle:
		if s.Single == nil || s.Multi != nil || s.Manual != nil {
			return fmt.Errorf("%w: single requires exactly a single-leg result", ErrInvalidShipping)
		}
		if s.Single.Currency == "" || s.Single.TotalCost.IsNegative() {
			return fmt.Errorf("%w: single-leg result incomplete", ErrInvalidShipping)
		}
	case ShippingMulti:
		if s.Multi == nil || s.Single != nil || s.Manual != nil {
			return fmt.Errorf("%w: multi requires exactly a multi-leg result", ErrInvalidShipping)
		}
		if s.Multi.Currency == "" || len(s.Multi.Legs) == 0 || s.Multi.TotalCost.IsNegative() {
			return fmt.Errorf("%w: multi-leg result incomplete", ErrInvalidShipping)
		}
		sum := decimal.Zero
		for _, leg := range s.Multi.Legs {
			sum = sum.Add(leg.TotalCost)
		}
		if !sum.Equal(s.Multi.TotalCost) {
			return fmt.Errorf("%w: multi-leg total %s does not match leg sum %s", ErrInvalidShipping, s.Multi.TotalCost, sum)
		}
	case ShippingManual:
		if s.Manual == nil || s.Single != nil || s.Multi != nil {
			return fmt.Errorf("%w: manual requires an amount", ErrInvalidShipping)
		}
		if s.Manual.Currency == "" || s.Manual.Amount.IsNegative() {
			return fmt.Errorf("%w: manual amount incomplete", ErrInvalidShipping)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidShipping, s.Kind)
	}
	return nil
}

// Cost returns the shipping amount and the currency it is expressed in.
// The none variant costs zero in no particular currency.
func (s ShippingInfo) Cost() (decimal.Decimal, string) {
	switch s.kind() {
	case ShippingSingle:
		if s.Single != nil {
			return s.Single.TotalCost, s.Single.Currency
		}
	case ShippingMulti:
		if s.Multi != nil {
			return s.Multi.TotalCost, s.Multi.Currency
		}
	case ShippingManual:
		if s.Manual != nil {
			return s.Manual.Amount, s.Manual.Currency
		}
	}
	return decimal.Zero, ""
}

func (s ShippingInfo) kind() ShippingKind {
	if s.Kind == "" {
		return ShippingNone
	}
	return s.Kind
}
