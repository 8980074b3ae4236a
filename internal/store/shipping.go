package store

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"shipquote/internal/quote"
	"shipquote/internal/rate"
)

// shippingRecord is the jsonb shape of quote.ShippingInfo.
type shippingRecord struct {
	Kind   string        `json:"kind"`
	Single *legRecord    `json:"single,omitempty"`
	Multi  *multiRecord  `json:"multi,omitempty"`
	Manual *manualRecord `json:"manual,omitempty"`
}

type legRecord struct {
	Origin            string          `json:"origin"`
	Destination       string          `json:"destination"`
	Direction         string          `json:"direction"`
	Zone              string          `json:"zone"`
	EffectiveWeightKg float64         `json:"effective_weight_kg"`
	BaseCost          decimal.Decimal `json:"base_cost"`
	Surcharge         decimal.Decimal `json:"surcharge"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	Currency          string          `json:"currency"`
	DimensionsIgnored bool            `json:"dimensions_ignored,omitempty"`
}

type multiRecord struct {
	Legs              []legRecord     `json:"legs"`
	EffectiveWeightKg float64         `json:"effective_weight_kg"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	Currency          string          `json:"currency"`
	DimensionsIgnored bool            `json:"dimensions_ignored,omitempty"`
}

type manualRecord struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func encodeShipping(info quote.ShippingInfo) ([]byte, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	rec := shippingRecord{Kind: string(info.Kind)}
	if rec.Kind == "" {
		rec.Kind = string(quote.ShippingNone)
	}
	switch {
	case info.Single != nil:
		leg := toLegRecord(*info.Single)
		rec.Single = &leg
	case info.Multi != nil:
		m := multiRecord{
			Legs:              make([]legRecord, 0, len(info.Multi.Legs)),
			EffectiveWeightKg: info.Multi.EffectiveWeightKg,
			TotalCost:         info.Multi.TotalCost,
			Currency:          info.Multi.Currency,
			DimensionsIgnored: info.Multi.DimensionsIgnored,
		}
		for _, leg := range info.Multi.Legs {
			m.Legs = append(m.Legs, toLegRecord(leg))
		}
		rec.Multi = &m
	case info.Manual != nil:
		rec.Manual = &manualRecord{Amount: info.Manual.Amount, Currency: info.Manual.Currency}
	}
	return json.Marshal(rec)
}

func decodeShipping(raw []byte) (quote.ShippingInfo, error) {
	if len(raw) == 0 {
		return quote.NoShipping(), nil
	}
	var rec shippingRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return quote.ShippingInfo{}, fmt.Errorf("decode shipping: %w", err)
	}
	var info quote.ShippingInfo
	switch quote.ShippingKind(rec.Kind) {
	case "", quote.ShippingNone:
		info = quote.NoShipping()
	case quote.ShippingSingle:
		if rec.Single == nil {
			return quote.ShippingInfo{}, fmt.Errorf("%w: single without payload", quote.ErrInvalidShipping)
		}
		info = quote.SingleLeg(fromLegRecord(*rec.Single))
	case quote.ShippingMulti:
		if rec.Multi == nil {
			return quote.ShippingInfo{}, fmt.Errorf("%w: multi without payload", quote.ErrInvalidShipping)
		}
		res := rate.MultiLegResult{
			Legs:              make([]rate.ShippingResult, 0, len(rec.Multi.Legs)),
			EffectiveWeightKg: rec.Multi.EffectiveWeightKg,
			TotalCost:         rec.Multi.TotalCost,
			Currency:          rec.Multi.Currency,
			DimensionsIgnored: rec.Multi.DimensionsIgnored,
		}
		for _, leg := range rec.Multi.Legs {
			res.Legs = append(res.Legs, fromLegRecord(leg))
		}
		info = quote.MultiLeg(res)
	case quote.ShippingManual:
		if rec.Manual == nil {
			return quote.ShippingInfo{}, fmt.Errorf("%w: manual without payload", quote.ErrInvalidShipping)
		}
		info = quote.Manual(rec.Manual.Amount, rec.Manual.Currency)
	default:
		return quote.ShippingInfo{}, fmt.Errorf("%w: unknown kind %q", quote.ErrInvalidShipping, rec.Kind)
	}
	return info, info.Validate()
}

func toLegRecord(res rate.ShippingResult) legRecord {
	return legRecord{
		Origin:            res.Leg.Origin,
		Destination:       res.Leg.Destination,
		Direction:         string(res.Leg.Direction),
		Zone:              string(res.Zone),
		EffectiveWeightKg: res.EffectiveWeightKg,
		BaseCost:          res.BaseCost,
		Surcharge:         res.Surcharge,
		TotalCost:         res.TotalCost,
		Currency:          res.Currency,
		DimensionsIgnored: res.DimensionsIgnored,
	}
}

func fromLegRecord(rec legRecord) rate.ShippingResult {
	return rate.ShippingResult{
		Leg: rate.Leg{
			Origin:      rec.Origin,
			Destination: rec.Destination,
			Direction:   rate.Direction(rec.Direction),
		},
		Zone:              rate.Zone(rec.Zone),
		EffectiveWeightKg: rec.EffectiveWeightKg,
		BaseCost:          rec.BaseCost,
		Surcharge:         rec.Surcharge,
		TotalCost:         rec.TotalCost,
		Currency:          rec.Currency,
		DimensionsIgnored: rec.DimensionsIgnored,
	}
}
