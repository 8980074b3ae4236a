package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shipquote/internal/quote"
	"shipquote/internal/rate"
)

// ErrMalformedShipping is returned when a shipping payload matches none of the accepted shapes.
var ErrMalformedShipping = fmt.Errorf("%w: malformed shipping payload", quote.ErrInvalidShipping)

// ShippingNormalizer maps the historical shipping payload shapes onto quote.ShippingInfo:
//
//	"shipping":       {"kind": ...} or a single/multi-leg result object
//	"shipping_info":  same shapes under the older key
//	"shipping_cost":  bare amount, with optional "shipping_currency"
//
// Amounts without a currency are taken to be in the reference currency.
type ShippingNormalizer struct {
	defaultCurrency string
}

func NewShippingNormalizer(defaultCurrency string) *ShippingNormalizer {
	return &ShippingNormalizer{defaultCurrency: strings.ToUpper(strings.TrimSpace(defaultCurrency))}
}

// Normalize extracts the shipping attachment from a decoded request body. A body without any
// shipping key yields the none variant.
func (n *ShippingNormalizer) Normalize(payload map[string]any) (quote.ShippingInfo, error) {
	for _, key := range []string{"shipping", "shipping_info"} {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return quote.ShippingInfo{}, fmt.Errorf("%w: %s must be an object", ErrMalformedShipping, key)
		}
		return n.normalizeObject(obj)
	}
	if v := getAny(payload, []string{"shipping_cost"}); v != nil {
		amount, err := toDecimal(v)
		if err != nil {
			return quote.ShippingInfo{}, fmt.Errorf("%w: shipping_cost: %v", ErrMalformedShipping, err)
		}
		info := quote.Manual(amount, n.currencyOr(getString(payload, []string{"shipping_currency", "currency_shipping"})))
		return info, info.Validate()
	}
	return quote.NoShipping(), nil
}

func (n *ShippingNormalizer) normalizeObject(obj map[string]any) (quote.ShippingInfo, error) {
	// Results may arrive wrapped, e.g. {"kind": "single", "result": {...}}.
	body := obj
	if inner, ok := getAny(obj, []string{"result", "single", "multi", "manual"}).(map[string]any); ok {
		body = inner
	}

	var info quote.ShippingInfo
	switch kind := strings.ToLower(getString(obj, []string{"kind", "type"})); {
	case kind == string(quote.ShippingNone):
		return quote.NoShipping(), nil
	case kind == string(quote.ShippingMulti) || (kind == "" && getAny(body, []string{"legs"}) != nil):
		res, err := n.multiLeg(body)
		if err != nil {
			return quote.ShippingInfo{}, err
		}
		info = quote.MultiLeg(res)
	case kind == string(quote.ShippingManual):
		amount, err := n.amount(body, []string{"amount", "shipping_cost", "cost"})
		if err != nil {
			return quote.ShippingInfo{}, err
		}
		info = quote.Manual(amount, n.currencyOr(getString(body, []string{"currency"})))
	case kind == string(quote.ShippingSingle) || kind == "":
		res, err := n.singleLeg(body)
		if err != nil {
			return quote.ShippingInfo{}, err
		}
		info = quote.SingleLeg(res)
	default:
		return quote.ShippingInfo{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedShipping, kind)
	}
	return info, info.Validate()
}

func (n *ShippingNormalizer) singleLeg(body map[string]any) (rate.ShippingResult, error) {
	total, err := n.amount(body, []string{"shipping_cost", "total_cost", "cost", "amount"})
	if err != nil {
		return rate.ShippingResult{}, err
	}
	res := rate.ShippingResult{
		Zone:      rate.Zone(getString(body, []string{"zone"})),
		BaseCost:  total,
		Surcharge: decimal.Zero,
		TotalCost: total,
		Currency:  n.currencyOr(getString(body, []string{"currency"})),
	}
	res.Leg = legFrom(body)
	if w, ok := toFloat(getAny(body, []string{"effective_weight_kg", "weight_kg"})); ok {
		res.EffectiveWeightKg = w
	}
	if v := getAny(body, []string{"base_cost"}); v != nil {
		if base, err := toDecimal(v); err == nil {
			res.BaseCost = base
			res.Surcharge = total.Sub(base)
		}
	}
	return res, nil
}

func (n *ShippingNormalizer) multiLeg(body map[string]any) (rate.MultiLegResult, error) {
	rawLegs, ok := getAny(body, []string{"legs"}).([]any)
	if !ok || len(rawLegs) == 0 {
		return rate.MultiLegResult{}, fmt.Errorf("%w: legs must be a non-empty list", ErrMalformedShipping)
	}
	currency := n.currencyOr(getString(body, []string{"currency"}))
	res := rate.MultiLegResult{Currency: currency, Legs: make([]rate.ShippingResult, 0, len(rawLegs))}
	sum := decimal.Zero
	for i, raw := range rawLegs {
		legObj, ok := raw.(map[string]any)
		if !ok {
			return rate.MultiLegResult{}, fmt.Errorf("%w: leg %d must be an object", ErrMalformedShipping, i)
		}
		cost, err := n.amount(legObj, []string{"cost", "total_cost", "shipping_cost"})
		if err != nil {
			return rate.MultiLegResult{}, fmt.Errorf("leg %d: %w", i, err)
		}
		res.Legs = append(res.Legs, rate.ShippingResult{
			Leg:       legFrom(legObj),
			Zone:      rate.Zone(getString(legObj, []string{"zone"})),
			BaseCost:  cost,
			Surcharge: decimal.Zero,
			TotalCost: cost,
			Currency:  currency,
		})
		sum = sum.Add(cost)
	}
	res.TotalCost = sum
	if v := getAny(body, []string{"total_cost", "shipping_cost"}); v != nil {
		total, err := toDecimal(v)
		if err != nil {
			return rate.MultiLegResult{}, fmt.Errorf("%w: total_cost: %v", ErrMalformedShipping, err)
		}
		// A stored total may be the cent-rounded leg sum; anything else disagrees with the legs.
		if !total.Round(2).Equal(sum.Round(2)) {
			return rate.MultiLegResult{}, fmt.Errorf("%w: total_cost %s does not match leg sum %s", ErrMalformedShipping, total, sum)
		}
	}
	if w, ok := toFloat(getAny(body, []string{"effective_weight_kg", "weight_kg"})); ok {
		res.EffectiveWeightKg = w
	}
	return res, nil
}

func (n *ShippingNormalizer) amount(m map[string]any, keys []string) (decimal.Decimal, error) {
	v := getAny(m, keys)
	if v == nil {
		return decimal.Zero, fmt.Errorf("%w: missing %s", ErrMalformedShipping, keys[0])
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrMalformedShipping, keys[0], err)
	}
	return d, nil
}

func (n *ShippingNormalizer) currencyOr(code string) string {
	if c := strings.ToUpper(strings.TrimSpace(code)); c != "" {
		return c
	}
	return n.defaultCurrency
}

// legFrom reads a leg, accepting the single-leg "country" shorthand for the counterpart.
func legFrom(m map[string]any) rate.Leg {
	leg := rate.Leg{
		Origin:      rate.NormalizeCountry(getString(m, []string{"origin", "leg.origin"})),
		Destination: rate.NormalizeCountry(getString(m, []string{"destination", "leg.destination"})),
		Direction:   rate.Direction(strings.ToLower(getString(m, []string{"direction", "leg.direction"}))),
	}
	if country := rate.NormalizeCountry(getString(m, []string{"country"})); country != "" {
		if leg.Direction == rate.Import && leg.Origin == "" {
			leg.Origin = country
		} else if leg.Destination == "" {
			leg.Destination = country
		}
	}
	return leg
}

// getString returns the first non-empty string from the candidate keys.
// Supports dot-path navigation for nested maps.
func getString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if v := getPath(m, k); v != nil {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// getAny returns the first non-nil value from the candidate keys.
func getAny(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v := getPath(m, k); v != nil {
			return v
		}
	}
	return nil
}

// getPath navigates a dot-separated key into nested maps.
func getPath(m map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = m
	for _, p := range parts {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := mm[p]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	default:
		return decimal.Zero, errors.New("not a number")
	}
}
