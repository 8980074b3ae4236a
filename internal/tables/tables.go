// Package tables loads the tariff, zone, surcharge and exchange-rate configuration.
package tables

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"shipquote/internal/currency"
	"shipquote/internal/rate"
)

// ErrInvalidTables wraps every validation failure of a tables document.
var ErrInvalidTables = errors.New("tables: invalid configuration")

//go:embed sample.yaml
var sample []byte

// Tables is the validated, read-only configuration for one process lifetime.
type Tables struct {
	Rates    rate.Tables
	Exchange currency.RateTable
}

type document struct {
	HomeCountry       string  `yaml:"home_country"`
	ReferenceCurrency string  `yaml:"reference_currency"`
	VolumetricDivisor float64 `yaml:"volumetric_divisor"`
	Zones             struct {
		Export   map[string]string `yaml:"export"`
		Import   map[string]string `yaml:"import"`
		Fallback struct {
			Export string `yaml:"export"`
			Import string `yaml:"import"`
		} `yaml:"fallback"`
	} `yaml:"zones"`
	Tariffs       map[string][]bracketEntry    `yaml:"tariffs"`
	Surcharges    map[string]surchargeEntry    `yaml:"surcharges"`
	ExchangeRates map[string]map[string]string `yaml:"exchange_rates"`
}

type bracketEntry struct {
	MinKg float64  `yaml:"min_kg"`
	MaxKg *float64 `yaml:"max_kg"`
	Price string   `yaml:"price"`
	PerKg string   `yaml:"per_kg"`
}

type surchargeEntry struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// Load reads and validates a tables file.
func Load(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("tables: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrSample loads path, or the embedded sample tables when path is empty.
func LoadOrSample(path string) (Tables, error) {
	if strings.TrimSpace(path) == "" {
		return Sample()
	}
	return Load(path)
}

// Sample returns the embedded sample tables.
func Sample() (Tables, error) {
	return Parse(sample)
}

// Parse decodes and validates a YAML tables document.
func Parse(data []byte) (Tables, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Tables{}, fmt.Errorf("%w: %w", ErrInvalidTables, err)
	}

	home := rate.NormalizeCountry(doc.HomeCountry)
	if home == "" {
		return Tables{}, fmt.Errorf("%w: home_country required", ErrInvalidTables)
	}
	reference, err := currency.Normalize(doc.ReferenceCurrency)
	if err != nil {
		return Tables{}, fmt.Errorf("%w: reference_currency: %w", ErrInvalidTables, err)
	}
	if doc.VolumetricDivisor < 0 {
		return Tables{}, fmt.Errorf("%w: volumetric_divisor must be positive", ErrInvalidTables)
	}

	zones := rate.NewZoneTable(toZones(doc.Zones.Export), toZones(doc.Zones.Import))
	if z := strings.TrimSpace(doc.Zones.Fallback.Export); z != "" {
		zones = zones.WithFallback(rate.Export, rate.Zone(z))
	}
	if z := strings.TrimSpace(doc.Zones.Fallback.Import); z != "" {
		zones = zones.WithFallback(rate.Import, rate.Zone(z))
	}

	brackets, err := parseTariffs(doc.Tariffs)
	if err != nil {
		return Tables{}, err
	}
	tariffs, err := rate.NewTariffTable(reference, brackets)
	if err != nil {
		return Tables{}, fmt.Errorf("%w: %w", ErrInvalidTables, err)
	}
	for _, z := range zones.Zones() {
		if !tariffs.Has(z) {
			return Tables{}, fmt.Errorf("%w: zone %s has no tariff", ErrInvalidTables, z)
		}
	}

	surcharges, err := parseSurcharges(doc.Surcharges)
	if err != nil {
		return Tables{}, err
	}

	exchange, err := parseExchange(reference, doc.ExchangeRates)
	if err != nil {
		return Tables{}, err
	}

	return Tables{
		Rates: rate.Tables{
			HomeCountry: home,
			Zones:       zones,
			Tariffs:     tariffs,
			Surcharges:  surcharges,
			Weights:     rate.WeightNormalizer{Divisor: doc.VolumetricDivisor},
		},
		Exchange: exchange,
	}, nil
}

func toZones(in map[string]string) map[string]rate.Zone {
	out := make(map[string]rate.Zone, len(in))
	for country, zone := range in {
		out[country] = rate.Zone(strings.TrimSpace(zone))
	}
	return out
}

func parseTariffs(in map[string][]bracketEntry) (map[rate.Zone][]rate.Bracket, error) {
	out := make(map[rate.Zone][]rate.Bracket, len(in))
	for zone, entries := range in {
		brackets := make([]rate.Bracket, 0, len(entries))
		for i, e := range entries {
			price, err := parseAmount(e.Price)
			if err != nil {
				return nil, fmt.Errorf("%w: tariffs.%s[%d].price: %v", ErrInvalidTables, zone, i, err)
			}
			perKg := decimal.Zero
			if strings.TrimSpace(e.PerKg) != "" {
				if perKg, err = parseAmount(e.PerKg); err != nil {
					return nil, fmt.Errorf("%w: tariffs.%s[%d].per_kg: %v", ErrInvalidTables, zone, i, err)
				}
			}
			maxKg := math.Inf(1)
			if e.MaxKg != nil {
				maxKg = *e.MaxKg
			}
			brackets = append(brackets, rate.Bracket{MinKg: e.MinKg, MaxKg: maxKg, Price: price, PerKg: perKg})
		}
		out[rate.Zone(zone)] = brackets
	}
	return out, nil
}

func parseSurcharges(in map[string]surchargeEntry) (rate.Surcharges, error) {
	defs := make(map[string]rate.Surcharge, len(in))
	for key, e := range in {
		value, err := parseAmount(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: surcharges.%s.value: %v", ErrInvalidTables, key, err)
		}
		defs[key] = rate.Surcharge{Kind: rate.SurchargeKind(strings.ToLower(strings.TrimSpace(e.Type))), Value: value}
	}
	surcharges, err := rate.NewSurcharges(defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTables, err)
	}
	return surcharges, nil
}

func parseExchange(reference string, in map[string]map[string]string) (currency.RateTable, error) {
	rates := make(map[string]map[string]decimal.Decimal, len(in))
	for from, targets := range in {
		rates[from] = make(map[string]decimal.Decimal, len(targets))
		for to, raw := range targets {
			r, err := parseAmount(raw)
			if err != nil {
				return currency.RateTable{}, fmt.Errorf("%w: exchange_rates.%s.%s: %v", ErrInvalidTables, from, to, err)
			}
			rates[from][to] = r
		}
	}
	table, err := currency.NewRateTable(reference, rates)
	if err != nil {
		return currency.RateTable{}, fmt.Errorf("%w: %w", ErrInvalidTables, err)
	}
	return table, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(raw))
}
