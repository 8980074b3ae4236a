package rate

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testTables(t *testing.T) Tables {
	t.Helper()
	tariffs, err := NewTariffTable("MAD", map[Zone][]Bracket{
		"zone_1": {
			{MinKg: 0, MaxKg: 5, Price: dec("100")},
			{MinKg: 5, MaxKg: 10, Price: dec("150")},
			{MinKg: 10, MaxKg: math.Inf(1), Price: dec("200"), PerKg: dec("12.5")},
		},
		"zone_2": {
			{MinKg: 0, MaxKg: 5, Price: dec("150")},
			{MinKg: 5, MaxKg: math.Inf(1), Price: dec("250"), PerKg: dec("10")},
		},
		"zone_3": {
			{MinKg: 0, MaxKg: 5, Price: dec("120")},
			{MinKg: 5, MaxKg: 30, Price: dec("300")},
		},
	})
	if err != nil {
		t.Fatalf("NewTariffTable: %v", err)
	}
	surcharges, err := NewSurcharges(map[string]Surcharge{
		"express":   {Kind: SurchargePercent, Value: dec("15")},
		"insurance": {Kind: SurchargeFlat, Value: dec("50")},
		"odd":       {Kind: SurchargePercent, Value: dec("12.345")},
	})
	if err != nil {
		t.Fatalf("NewSurcharges: %v", err)
	}
	return Tables{
		HomeCountry: "ma",
		Zones: NewZoneTable(
			map[string]Zone{"FR": "zone_1", "US": "zone_2", "DE": "zone_1"},
			map[string]Zone{"FR": "zone_1", "CN": "zone_3"},
		),
		Tariffs:    tariffs,
		Surcharges: surcharges,
	}
}

func TestComputeLegCost_SimpleExport(t *testing.T) {
	calc := NewCalculator(testTables(t))
	res, err := calc.ComputeLegCost(ShippingRequest{ActualWeightKg: 3, DestinationCountry: "FR", Direction: Export})
	if err != nil {
		t.Fatalf("ComputeLegCost: %v", err)
	}
	if !res.TotalCost.Equal(dec("100")) || res.Currency != "MAD" {
		t.Fatalf("unexpected cost: %s %s", res.TotalCost, res.Currency)
	}
	if res.EffectiveWeightKg != 3 {
		t.Fatalf("unexpected effective weight: %v", res.EffectiveWeightKg)
	}
	if res.Zone != "zone_1" || res.Leg.Origin != "MA" || res.Leg.Destination != "FR" {
		t.Fatalf("unexpected zone/leg: %s %+v", res.Zone, res.Leg)
	}
	if !res.Surcharge.IsZero() {
		t.Fatalf("expected no surcharge, got %s", res.Surcharge)
	}
}

func TestComputeLegCost_VolumetricWins(t *testing.T) {
	calc := NewCalculator(testTables(t))
	res, err := calc.ComputeLegCost(ShippingRequest{ActualWeightKg: 2, Dimensions: "50x50x50", DestinationCountry: "FR", Direction: Export})
	if err != nil {
		t.Fatalf("ComputeLegCost: %v", err)
	}
	if res.EffectiveWeightKg != 25 {
		t.Fatalf("expected 25kg, got %v", res.EffectiveWeightKg)
	}
	// 200 + (25-10)*12.5
	if !res.TotalCost.Equal(dec("387.5")) {
		t.Fatalf("unexpected cost: %s", res.TotalCost)
	}
}

func TestComputeLegCost_MalformedDimensionsFallBack(t *testing.T) {
	calc := NewCalculator(testTables(t))
	res, err := calc.ComputeLegCost(ShippingRequest{ActualWeightKg: 6, Dimensions: "about a shoebox", DestinationCountry: "FR", Direction: Export})
	if err != nil {
		t.Fatalf("ComputeLegCost: %v", err)
	}
	if res.EffectiveWeightKg != 6 || !res.DimensionsIgnored {
		t.Fatalf("expected fallback to actual weight, got %+v", res)
	}
	if !res.TotalCost.Equal(dec("150")) {
		t.Fatalf("unexpected cost: %s", res.TotalCost)
	}
}

func TestComputeLegCost_Import(t *testing.T) {
	calc := NewCalculator(testTables(t))
	res, err := calc.ComputeLegCost(ShippingRequest{ActualWeightKg: 7, OriginCountry: "cn", Direction: "IMPORT"})
	if err != nil {
		t.Fatalf("ComputeLegCost: %v", err)
	}
	if res.Zone != "zone_3" || res.Leg.Destination != "MA" || res.Leg.Direction != Import {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !res.TotalCost.Equal(dec("300")) {
		t.Fatalf("unexpected cost: %s", res.TotalCost)
	}
}

func TestComputeLegCost_Surcharges(t *testing.T) {
	calc := NewCalculator(testTables(t))
	cases := []struct {
		service   string
		surcharge string
		total     string
	}{
		{"express", "15", "115"},
		{" Insurance ", "50", "150"},
		{"odd", "12.35", "112.35"},
	}
	for _, tc := range cases {
		res, err := calc.ComputeLegCost(ShippingRequest{ActualWeightKg: 1, DestinationCountry: "FR", Direction: Export, PremiumService: tc.service})
		if err != nil {
			t.Fatalf("%s: %v", tc.service, err)
		}
		if !res.Surcharge.Equal(dec(tc.surcharge)) || !res.TotalCost.Equal(dec(tc.total)) {
			t.Fatalf("%s: got surcharge %s total %s", tc.service, res.Surcharge, res.TotalCost)
		}
	}
}

func TestComputeLegCost_Errors(t *testing.T) {
	calc := NewCalculator(testTables(t))
	cases := []struct {
		name string
		req  ShippingRequest
		want error
	}{
		{"unknown destination", ShippingRequest{ActualWeightKg: 1, DestinationCountry: "JP", Direction: Export}, ErrUnknownDestination},
		{"bad direction", ShippingRequest{ActualWeightKg: 1, DestinationCountry: "FR", Direction: "sideways"}, ErrInvalidDirection},
		{"zero weight", ShippingRequest{ActualWeightKg: 0, DestinationCountry: "FR", Direction: Export}, ErrInvalidWeight},
		{"negative weight", ShippingRequest{ActualWeightKg: -2, DestinationCountry: "FR", Direction: Export}, ErrInvalidInput},
		{"unknown premium", ShippingRequest{ActualWeightKg: 1, DestinationCountry: "FR", Direction: Export, PremiumService: "teleport"}, ErrUnknownPremiumService},
	}
	for _, tc := range cases {
		res, err := calc.ComputeLegCost(tc.req)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if res != (ShippingResult{}) {
			t.Fatalf("%s: expected no partial result, got %+v", tc.name, res)
		}
	}
}

func TestComputeLegCost_Idempotent(t *testing.T) {
	calc := NewCalculator(testTables(t))
	req := ShippingRequest{ActualWeightKg: 11.3, Dimensions: "40x30x20", DestinationCountry: "FR", Direction: Export, PremiumService: "express"}
	first, err := calc.ComputeLegCost(req)
	if err != nil {
		t.Fatalf("ComputeLegCost: %v", err)
	}
	second, err := calc.ComputeLegCost(req)
	if err != nil {
		t.Fatalf("ComputeLegCost: %v", err)
	}
	if first.TotalCost.String() != second.TotalCost.String() || first.EffectiveWeightKg != second.EffectiveWeightKg || first.Zone != second.Zone {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
}

func TestComputeMultiLeg_RoundTrip(t *testing.T) {
	calc := NewCalculator(testTables(t))
	res, err := calc.ComputeMultiLeg(MultiLegRequest{
		ActualWeightKg: 2,
		Legs: []Leg{
			{Origin: "MA", Destination: "FR"},
			{Origin: "MA", Destination: "US"},
		},
	})
	if err != nil {
		t.Fatalf("ComputeMultiLeg: %v", err)
	}
	if !res.TotalCost.Equal(dec("250")) || res.Currency != "MAD" {
		t.Fatalf("unexpected total: %s %s", res.TotalCost, res.Currency)
	}
	if len(res.Legs) != 2 || !res.Legs[0].TotalCost.Equal(dec("100")) || !res.Legs[1].TotalCost.Equal(dec("150")) {
		t.Fatalf("unexpected legs: %+v", res.Legs)
	}
}

func TestComputeMultiLeg_MatchesSingleLegs(t *testing.T) {
	calc := NewCalculator(testTables(t))
	legs := []Leg{
		{Origin: "FR", Destination: "MA"},
		{Origin: "MA", Destination: "DE", Direction: Export},
		{Origin: "FR", Destination: "MA"},
		{Origin: "US", Destination: "FR", Direction: Export},
	}
	res, err := calc.ComputeMultiLeg(MultiLegRequest{ActualWeightKg: 4, Dimensions: "60x40x30", Legs: legs, PremiumService: "express"})
	if err != nil {
		t.Fatalf("ComputeMultiLeg: %v", err)
	}
	if len(res.Legs) != len(legs) {
		t.Fatalf("expected %d legs, got %d", len(legs), len(res.Legs))
	}
	sum := decimal.Zero
	for i, leg := range res.Legs {
		single, err := calc.ComputeLegCost(ShippingRequest{
			ActualWeightKg:     4,
			Dimensions:         "60x40x30",
			OriginCountry:      leg.Leg.Origin,
			DestinationCountry: leg.Leg.Destination,
			Direction:          leg.Leg.Direction,
			PremiumService:     "express",
		})
		if err != nil {
			t.Fatalf("leg %d single: %v", i, err)
		}
		if !single.TotalCost.Equal(leg.TotalCost) {
			t.Fatalf("leg %d: multi %s != single %s", i, leg.TotalCost, single.TotalCost)
		}
		sum = sum.Add(single.TotalCost)
	}
	if !sum.Equal(res.TotalCost) {
		t.Fatalf("total %s != sum of singles %s", res.TotalCost, sum)
	}
	if res.Legs[0].Leg.Direction != Import || res.Legs[2].Leg.Direction != Import {
		t.Fatalf("expected inferred import on legs arriving home: %+v", res.Legs)
	}
	if res.Legs[0].Leg != res.Legs[2].Leg {
		t.Fatalf("repeated legs must be kept as-is")
	}
}

func TestComputeMultiLeg_Errors(t *testing.T) {
	calc := NewCalculator(testTables(t))
	if _, err := calc.ComputeMultiLeg(MultiLegRequest{ActualWeightKg: 1}); !errors.Is(err, ErrEmptyLegList) {
		t.Fatalf("expected ErrEmptyLegList, got %v", err)
	}
	res, err := calc.ComputeMultiLeg(MultiLegRequest{ActualWeightKg: 1, Legs: []Leg{{Origin: "MA", Destination: "FR"}, {Origin: "MA", Destination: "JP"}}})
	if !errors.Is(err, ErrUnknownDestination) {
		t.Fatalf("expected ErrUnknownDestination, got %v", err)
	}
	if len(res.Legs) != 0 || !res.TotalCost.IsZero() {
		t.Fatalf("expected no partial result, got %+v", res)
	}
}

func TestComputeLegCost_OverflowingDimensionsFallBack(t *testing.T) {
	calc := NewCalculator(testTables(t))
	res, err := calc.ComputeLegCost(ShippingRequest{ActualWeightKg: 1, Dimensions: "1e200x1e200x1", DestinationCountry: "FR", Direction: Export})
	if err != nil {
		t.Fatalf("ComputeLegCost: %v", err)
	}
	if res.EffectiveWeightKg != 1 || !res.DimensionsIgnored || !res.TotalCost.Equal(dec("100")) {
		t.Fatalf("expected fallback to actual weight, got %+v", res)
	}
}

func TestComputeMultiLeg_LegsSumToWholeCents(t *testing.T) {
	tables := testTables(t)
	tariffs, err := NewTariffTable("MAD", map[Zone][]Bracket{
		"zone_1": {{MinKg: 0, MaxKg: 10, Price: dec("200"), PerKg: dec("0.05")}},
	})
	if err != nil {
		t.Fatalf("NewTariffTable: %v", err)
	}
	tables.Tariffs = tariffs
	calc := NewCalculator(tables)

	res, err := calc.ComputeMultiLeg(MultiLegRequest{
		ActualWeightKg: 10.1,
		Legs: []Leg{
			{Origin: "MA", Destination: "FR"},
			{Origin: "FR", Destination: "MA"},
		},
	})
	if err != nil {
		t.Fatalf("ComputeMultiLeg: %v", err)
	}
	for i, leg := range res.Legs {
		if !leg.TotalCost.Equal(dec("200.01")) {
			t.Fatalf("leg %d: expected 200.01, got %s", i, leg.TotalCost)
		}
	}
	if !res.TotalCost.Equal(dec("400.02")) {
		t.Fatalf("expected total 400.02, got %s", res.TotalCost)
	}
}

func TestNewSurcharges_RejectsSubCentFlatAmount(t *testing.T) {
	_, err := NewSurcharges(map[string]Surcharge{"fragile": {Kind: SurchargeFlat, Value: dec("0.125")}})
	if !errors.Is(err, ErrInvalidTariff) {
		t.Fatalf("expected ErrInvalidTariff, got %v", err)
	}
	if _, err := NewSurcharges(map[string]Surcharge{"odd": {Kind: SurchargePercent, Value: dec("12.345")}}); err != nil {
		t.Fatalf("percent surcharges may carry more digits: %v", err)
	}
}
