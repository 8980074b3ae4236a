package rate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SurchargeKind selects how a premium service is priced.
type SurchargeKind string

const (
	SurchargeFlat    SurchargeKind = "flat"
	SurchargePercent SurchargeKind = "percent"
)

// Surcharge prices a premium service. Flat values are in the reference currency,
// percent values are percentages of the base cost.
type Surcharge struct {
	Kind  SurchargeKind
	Value decimal.Decimal
}

// Surcharges maps premium-service keys to their definitions.
type Surcharges map[string]Surcharge

// NewSurcharges validates the definitions and normalizes keys.
func NewSurcharges(defs map[string]Surcharge) (Surcharges, error) {
	out := make(Surcharges, len(defs))
	for key, def := range defs {
		k := normalizeServiceKey(key)
		if k == "" {
			return nil, fmt.Errorf("%w: empty premium service key", ErrInvalidTariff)
		}
		switch def.Kind {
		case SurchargeFlat, SurchargePercent:
		default:
			return nil, fmt.Errorf("%w: premium service %s has kind %q", ErrInvalidTariff, k, def.Kind)
		}
		if def.Value.IsNegative() {
			return nil, fmt.Errorf("%w: premium service %s is negative", ErrInvalidTariff, k)
		}
		if def.Kind == SurchargeFlat && !def.Value.Equal(def.Value.Round(2)) {
			return nil, fmt.Errorf("%w: premium service %s has sub-cent digits", ErrInvalidTariff, k)
		}
		out[k] = def
	}
	return out, nil
}

// Apply adds the premium-service surcharge to base. An empty key applies nothing.
func (s Surcharges) Apply(base decimal.Decimal, key string) (surcharge, total decimal.Decimal, err error) {
	k := normalizeServiceKey(key)
	if k == "" {
		return decimal.Zero, base, nil
	}
	def, ok := s[k]
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownPremiumService, key)
	}
	switch def.Kind {
	case SurchargePercent:
		surcharge = base.Mul(def.Value).Div(decimal.NewFromInt(100)).Round(2)
	default:
		surcharge = def.Value
	}
	return surcharge, base.Add(surcharge), nil
}

func normalizeServiceKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
