// Package currency converts monetary amounts between currencies through a reference currency.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	// ErrMissingExchangeRate is returned when neither a direct nor a pivoted rate exists.
	ErrMissingExchangeRate = errors.New("currency: missing exchange rate")
	// ErrInvalidCurrency is returned for codes that are not ISO 4217.
	ErrInvalidCurrency = errors.New("currency: invalid currency code")
	// ErrInvalidRate is returned for non-positive rates at construction.
	ErrInvalidRate = errors.New("currency: invalid exchange rate")
)

// Precision is the number of decimals monetary results are rounded to.
const Precision = 2

// Normalize validates an ISO 4217 code and returns its canonical upper-case form.
func Normalize(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return unit.String(), nil
}

// RateTable holds rates as rates[from][to] = units of "to" per unit of "from".
// Rates from the reference currency ("1 reference equals X target") enable pivoting.
type RateTable struct {
	reference string
	rates     map[string]map[string]decimal.Decimal
}

// NewRateTable validates codes and rates.
func NewRateTable(reference string, rates map[string]map[string]decimal.Decimal) (RateTable, error) {
	ref, err := Normalize(reference)
	if err != nil {
		return RateTable{}, err
	}
	out := RateTable{reference: ref, rates: make(map[string]map[string]decimal.Decimal, len(rates))}
	for from, targets := range rates {
		f, err := Normalize(from)
		if err != nil {
			return RateTable{}, err
		}
		if out.rates[f] == nil {
			out.rates[f] = make(map[string]decimal.Decimal, len(targets))
		}
		for to, rate := range targets {
			t, err := Normalize(to)
			if err != nil {
				return RateTable{}, err
			}
			if !rate.IsPositive() {
				return RateTable{}, fmt.Errorf("%w: %s->%s = %s", ErrInvalidRate, f, t, rate)
			}
			out.rates[f][t] = rate
		}
	}
	return out, nil
}

// Reference is the pivot currency.
func (t RateTable) Reference() string { return t.reference }

// Currencies lists every currency the table can reach, reference included.
func (t RateTable) Currencies() []string {
	seen := map[string]struct{}{t.reference: {}}
	out := []string{t.reference}
	for from, targets := range t.rates {
		if _, ok := seen[from]; !ok {
			seen[from] = struct{}{}
			out = append(out, from)
		}
		for to := range targets {
			if _, ok := seen[to]; !ok {
				seen[to] = struct{}{}
				out = append(out, to)
			}
		}
	}
	return out
}

// rate returns units of "to" per unit of "from" using a direct or inverse entry.
func (t RateTable) rate(from, to string) (decimal.Decimal, bool) {
	if r, ok := t.rates[from][to]; ok {
		return r, true
	}
	if r, ok := t.rates[to][from]; ok {
		return decimal.NewFromInt(1).DivRound(r, 16), true
	}
	return decimal.Zero, false
}

// Converter converts amounts using a RateTable. It is immutable and safe for concurrent use.
type Converter struct {
	table RateTable
}

// NewConverter returns a Converter over the table.
func NewConverter(table RateTable) *Converter {
	return &Converter{table: table}
}

// Reference is the converter's pivot currency.
func (c *Converter) Reference() string { return c.table.reference }

// Convert converts amount and rounds the result to two decimals, half-up.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	exact, err := c.ConvertExact(amount, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return exact.Round(Precision), nil
}

// ConvertExact converts without rounding, for callers that keep accumulating.
func (c *Converter) ConvertExact(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	f, err := Normalize(from)
	if err != nil {
		return decimal.Zero, err
	}
	t, err := Normalize(to)
	if err != nil {
		return decimal.Zero, err
	}
	if f == t {
		return amount, nil
	}
	if r, ok := c.table.rate(f, t); ok {
		return amount.Mul(r), nil
	}
	ref := c.table.reference
	toRef, ok := c.table.rate(f, ref)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s->%s", ErrMissingExchangeRate, f, t)
	}
	fromRef, ok := c.table.rate(ref, t)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s->%s", ErrMissingExchangeRate, f, t)
	}
	return amount.Mul(toRef).Mul(fromRef), nil
}
