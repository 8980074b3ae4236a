package rate

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tables bundles the read-only configuration a Calculator prices against.
type Tables struct {
	HomeCountry string
	Zones       ZoneTable
	Tariffs     TariffTable
	Surcharges  Surcharges
	Weights     WeightNormalizer
}

// ShippingRequest describes a single-leg shipment. Empty countries default to the home country.
type ShippingRequest struct {
	ActualWeightKg     float64
	Dimensions         string
	OriginCountry      string
	DestinationCountry string
	Direction          Direction
	PremiumService     string
}

// Leg is one origin to destination segment. Legs of a shipment need not be contiguous.
type Leg struct {
	Origin      string
	Destination string
	Direction   Direction
}

// ShippingResult is the immutable outcome of costing one leg, in the reference currency.
type ShippingResult struct {
	Leg               Leg
	Zone              Zone
	EffectiveWeightKg float64
	BaseCost          decimal.Decimal
	Surcharge         decimal.Decimal
	TotalCost         decimal.Decimal
	Currency          string
	DimensionsIgnored bool
}

// MultiLegRequest prices the same parcel over an ordered list of legs.
type MultiLegRequest struct {
	ActualWeightKg float64
	Dimensions     string
	Legs           []Leg
	PremiumService string
}

// MultiLegResult holds per-leg results in request order and their sum.
type MultiLegResult struct {
	Legs              []ShippingResult
	EffectiveWeightKg float64
	TotalCost         decimal.Decimal
	Currency          string
	DimensionsIgnored bool
}

// Calculator composes zone resolution, weight normalization, tariff lookup and surcharges.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	tables Tables
	logger *zap.Logger
}

// CalculatorOption customises a Calculator.
type CalculatorOption func(*Calculator)

// WithLogger sets the logger used to report ignored dimensions.
func WithLogger(logger *zap.Logger) CalculatorOption {
	return func(c *Calculator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCalculator returns a Calculator over the given tables.
func NewCalculator(tables Tables, opts ...CalculatorOption) *Calculator {
	tables.HomeCountry = NormalizeCountry(tables.HomeCountry)
	c := &Calculator{tables: tables, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HomeCountry implements Estimator.
func (c *Calculator) HomeCountry() string { return c.tables.HomeCountry }

// ReferenceCurrency implements Estimator.
func (c *Calculator) ReferenceCurrency() string { return c.tables.Tariffs.Currency() }

// ComputeLegCost prices a single shipment: zone, chargeable weight, base cost, surcharge.
func (c *Calculator) ComputeLegCost(req ShippingRequest) (ShippingResult, error) {
	if err := validateWeight(req.ActualWeightKg); err != nil {
		return ShippingResult{}, err
	}
	direction, err := ParseDirection(string(req.Direction))
	if err != nil {
		return ShippingResult{}, err
	}
	leg := Leg{
		Origin:      c.orHome(req.OriginCountry),
		Destination: c.orHome(req.DestinationCountry),
		Direction:   direction,
	}
	weight, ignored := c.effectiveWeight(req.ActualWeightKg, req.Dimensions)
	res, err := c.costLeg(leg, weight, req.PremiumService)
	if err != nil {
		return ShippingResult{}, err
	}
	res.DimensionsIgnored = ignored
	return res, nil
}

// ComputeMultiLeg prices every leg independently with the same chargeable weight and premium
// service, then sums the leg totals. A failing leg fails the whole request.
func (c *Calculator) ComputeMultiLeg(req MultiLegRequest) (MultiLegResult, error) {
	if len(req.Legs) == 0 {
		return MultiLegResult{}, ErrEmptyLegList
	}
	if err := validateWeight(req.ActualWeightKg); err != nil {
		return MultiLegResult{}, err
	}
	weight, ignored := c.effectiveWeight(req.ActualWeightKg, req.Dimensions)

	results := make([]ShippingResult, 0, len(req.Legs))
	total := decimal.Zero
	for i, in := range req.Legs {
		leg, err := c.normalizeLeg(in)
		if err != nil {
			return MultiLegResult{}, fmt.Errorf("leg %d: %w", i, err)
		}
		res, err := c.costLeg(leg, weight, req.PremiumService)
		if err != nil {
			return MultiLegResult{}, fmt.Errorf("leg %d: %w", i, err)
		}
		res.DimensionsIgnored = ignored
		results = append(results, res)
		total = total.Add(res.TotalCost)
	}

	return MultiLegResult{
		Legs:              results,
		EffectiveWeightKg: weight,
		TotalCost:         total,
		Currency:          c.tables.Tariffs.Currency(),
		DimensionsIgnored: ignored,
	}, nil
}

func (c *Calculator) costLeg(leg Leg, weightKg float64, premium string) (ShippingResult, error) {
	zone, err := c.tables.Zones.Resolve(leg.Origin, leg.Destination, leg.Direction)
	if err != nil {
		return ShippingResult{}, err
	}
	base, currency, err := c.tables.Tariffs.BaseCost(zone, weightKg)
	if err != nil {
		return ShippingResult{}, err
	}
	surcharge, total, err := c.tables.Surcharges.Apply(base, premium)
	if err != nil {
		return ShippingResult{}, err
	}
	return ShippingResult{
		Leg:               leg,
		Zone:              zone,
		EffectiveWeightKg: weightKg,
		BaseCost:          base,
		Surcharge:         surcharge,
		TotalCost:         total,
		Currency:          currency,
	}, nil
}

// normalizeLeg fills a missing direction: arriving home is an import, anything else an export.
func (c *Calculator) normalizeLeg(leg Leg) (Leg, error) {
	out := Leg{
		Origin:      c.orHome(leg.Origin),
		Destination: c.orHome(leg.Destination),
	}
	if leg.Direction == "" {
		out.Direction = Export
		if out.Destination == c.tables.HomeCountry {
			out.Direction = Import
		}
		return out, nil
	}
	direction, err := ParseDirection(string(leg.Direction))
	if err != nil {
		return Leg{}, err
	}
	out.Direction = direction
	return out, nil
}

func (c *Calculator) effectiveWeight(actualKg float64, dimensions string) (float64, bool) {
	weight, ignored := c.tables.Weights.EffectiveWeight(actualKg, dimensions)
	if ignored {
		c.logger.Debug("ignoring malformed dimensions", zap.String("dimensions", dimensions), zap.Float64("actual_weight_kg", actualKg))
	}
	return weight, ignored
}

func (c *Calculator) orHome(country string) string {
	if n := NormalizeCountry(country); n != "" {
		return n
	}
	return c.tables.HomeCountry
}

func validateWeight(kg float64) error {
	if math.IsNaN(kg) || math.IsInf(kg, 0) || kg <= 0 {
		return fmt.Errorf("%w: %v kg", ErrInvalidWeight, kg)
	}
	return nil
}
