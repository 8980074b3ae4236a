package rate

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Bracket prices weights in [MinKg, MaxKg). An infinite MaxKg marks an open-ended bracket.
type Bracket struct {
	MinKg float64
	MaxKg float64
	Price decimal.Decimal
	// PerKg prices each kilogram above MinKg once the weight leaves the finite brackets.
	// Only the last bracket may carry it.
	PerKg decimal.Decimal
}

// OpenEnded reports whether the bracket has no upper bound.
func (b Bracket) OpenEnded() bool { return math.IsInf(b.MaxKg, 1) }

// extrapolate rounds to cents half-up so every leg total is a whole-cent amount.
func (b Bracket) extrapolate(weightKg float64) decimal.Decimal {
	excess := decimal.NewFromFloat(weightKg).Sub(decimal.NewFromFloat(b.MinKg))
	return b.Price.Add(excess.Mul(b.PerKg)).Round(2)
}

// TariffTable holds validated brackets per zone, priced in the reference currency.
type TariffTable struct {
	currency string
	zones    map[Zone][]Bracket
}

// NewTariffTable validates the brackets of each zone and returns an immutable table.
// Brackets must start at 0, be contiguous, have non-decreasing prices and only the last
// may be open-ended or carry a per-kg rate.
func NewTariffTable(currency string, zones map[Zone][]Bracket) (TariffTable, error) {
	if currency == "" {
		return TariffTable{}, fmt.Errorf("%w: reference currency required", ErrInvalidTariff)
	}
	out := TariffTable{currency: currency, zones: make(map[Zone][]Bracket, len(zones))}
	for zone, brackets := range zones {
		if len(brackets) == 0 {
			return TariffTable{}, fmt.Errorf("%w: zone %s has no brackets", ErrInvalidTariff, zone)
		}
		sorted := make([]Bracket, len(brackets))
		copy(sorted, brackets)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinKg < sorted[j].MinKg })
		if err := validateBrackets(zone, sorted); err != nil {
			return TariffTable{}, err
		}
		out.zones[zone] = sorted
	}
	return out, nil
}

func validateBrackets(zone Zone, brackets []Bracket) error {
	if brackets[0].MinKg != 0 {
		return fmt.Errorf("%w: zone %s must start at 0kg", ErrInvalidTariff, zone)
	}
	last := len(brackets) - 1
	for i, b := range brackets {
		if math.IsNaN(b.MaxKg) || b.MaxKg <= b.MinKg {
			return fmt.Errorf("%w: zone %s bracket %d has max <= min", ErrInvalidTariff, zone, i)
		}
		if b.Price.IsNegative() || b.PerKg.IsNegative() {
			return fmt.Errorf("%w: zone %s bracket %d has a negative price", ErrInvalidTariff, zone, i)
		}
		if !b.Price.Equal(b.Price.Round(2)) {
			return fmt.Errorf("%w: zone %s bracket %d price %s has sub-cent digits", ErrInvalidTariff, zone, i, b.Price)
		}
		if i == last {
			break
		}
		if b.OpenEnded() {
			return fmt.Errorf("%w: zone %s bracket %d is open-ended but not last", ErrInvalidTariff, zone, i)
		}
		if !b.PerKg.IsZero() {
			return fmt.Errorf("%w: zone %s bracket %d has a per-kg rate but is not last", ErrInvalidTariff, zone, i)
		}
		next := brackets[i+1]
		if next.MinKg != b.MaxKg {
			return fmt.Errorf("%w: zone %s brackets %d and %d are not contiguous", ErrInvalidTariff, zone, i, i+1)
		}
		if next.Price.LessThan(b.Price) {
			return fmt.Errorf("%w: zone %s bracket %d is cheaper than bracket %d", ErrInvalidTariff, zone, i+1, i)
		}
	}
	return nil
}

// Currency is the reference currency the table is authored in.
func (t TariffTable) Currency() string { return t.currency }

// Has reports whether the zone has brackets.
func (t TariffTable) Has(zone Zone) bool {
	_, ok := t.zones[zone]
	return ok
}

// BaseCost returns the reference-currency price for the zone and chargeable weight.
// A weight equal to a bracket's MaxKg belongs to the next bracket.
func (t TariffTable) BaseCost(zone Zone, weightKg float64) (decimal.Decimal, string, error) {
	brackets, ok := t.zones[zone]
	if !ok || len(brackets) == 0 {
		return decimal.Zero, "", fmt.Errorf("%w: %s", ErrUnknownZone, zone)
	}
	if math.IsNaN(weightKg) || math.IsInf(weightKg, 0) || weightKg < brackets[0].MinKg {
		return decimal.Zero, "", fmt.Errorf("%w: zone %s weight %v", ErrNoApplicableBracket, zone, weightKg)
	}
	i := sort.Search(len(brackets), func(i int) bool { return weightKg < brackets[i].MaxKg })
	if i < len(brackets) {
		b := brackets[i]
		if b.OpenEnded() {
			return b.extrapolate(weightKg), t.currency, nil
		}
		return b.Price, t.currency, nil
	}
	return brackets[len(brackets)-1].extrapolate(weightKg), t.currency, nil
}
