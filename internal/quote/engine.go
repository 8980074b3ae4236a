package quote

import (
	"github.com/shopspring/decimal"

	"shipquote/internal/currency"
)

// Engine folds a quote's shipping into its totals, converting to the quote currency.
// It keeps no state between calls.
type Engine struct {
	converter *currency.Converter
}

// NewEngine returns an Engine converting shipping costs with converter.
func NewEngine(converter *currency.Converter) *Engine {
	return &Engine{converter: converter}
}

// ShippingCost returns the quote's shipping cost in the quote currency, rounded to two decimals.
func (e *Engine) ShippingCost(q Quote) (decimal.Decimal, error) {
	if err := q.Shipping.Validate(); err != nil {
		return decimal.Zero, err
	}
	amount, from := q.Shipping.Cost()
	if from == "" {
		return decimal.Zero, nil
	}
	return e.converter.Convert(amount, from, q.Currency)
}

// Totals validates the quote and computes its totals under the given VAT policy.
func (e *Engine) Totals(q Quote, policy VATPolicy) (Totals, error) {
	if err := q.Validate(); err != nil {
		return Totals{}, err
	}
	shipping, err := e.ShippingCost(q)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(policy, q.Items, q.DiscountRatePct, q.VATRatePct, shipping)
}
