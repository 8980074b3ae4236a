package server

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type shippingQuoteBody struct {
	ShippingCost      float64 `json:"shipping_cost"`
	Zone              string  `json:"zone"`
	EffectiveWeightKg float64 `json:"effective_weight_kg"`
	Country           string  `json:"country"`
	Direction         string  `json:"direction"`
	BaseCost          float64 `json:"base_cost"`
	Surcharge         float64 `json:"surcharge"`
	Currency          string  `json:"currency"`
	DimensionsIgnored bool    `json:"dimensions_ignored"`
}

func TestShippingQuoteExportWithPremium(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/quote", map[string]any{
		"weight_kg":       12,
		"country":         "fr",
		"direction":       "export",
		"premium_service": "express",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var res shippingQuoteBody
	decodeBody(t, rr, &res)
	// zone_1 open bracket: 950 + (12-10)*48 = 1046; express +25% = 261.50
	if res.Zone != "zone_1" || res.Country != "FR" || res.Direction != "export" || res.Currency != "MAD" {
		t.Fatalf("unexpected response: %+v", res)
	}
	if res.BaseCost != 1046 || res.Surcharge != 261.5 || res.ShippingCost != 1307.5 {
		t.Fatalf("unexpected amounts: %+v", res)
	}
	if got := testutil.ToFloat64(env.metrics.Computations.WithLabelValues("shipping_quote", "ok")); got != 1 {
		t.Fatalf("expected one ok computation, got %v", got)
	}
}

func TestShippingQuoteVolumetricWeight(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/quote", map[string]any{
		"weight_kg":  3,
		"dimensions": "50x40x30",
		"country":    "FR",
		"direction":  "export",
	})
	var res shippingQuoteBody
	decodeBody(t, rr, &res)
	if res.EffectiveWeightKg != 12 || res.ShippingCost != 1046 {
		t.Fatalf("expected volumetric 12kg costing 1046, got %+v", res)
	}
}

func TestShippingQuoteMalformedDimensionsFallBack(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/quote", map[string]any{
		"weight_kg":  3,
		"dimensions": "fifty by forty",
		"country":    "FR",
		"direction":  "export",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var res shippingQuoteBody
	decodeBody(t, rr, &res)
	if res.EffectiveWeightKg != 3 || res.ShippingCost != 390 || !res.DimensionsIgnored {
		t.Fatalf("expected actual weight pricing with dimensions ignored, got %+v", res)
	}
}

func TestShippingQuoteImportUsesOrigin(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/quote", map[string]any{
		"weight_kg": 3,
		"country":   "CN",
		"direction": "IMPORT",
	})
	var res shippingQuoteBody
	decodeBody(t, rr, &res)
	if res.Zone != "zone_4" || res.Country != "CN" || res.Direction != "import" || res.ShippingCost != 780 {
		t.Fatalf("unexpected import response: %+v", res)
	}
}

func TestShippingQuoteFallbackZone(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/quote", map[string]any{
		"weight_kg": 1,
		"country":   "BR",
		"direction": "export",
	})
	var res shippingQuoteBody
	decodeBody(t, rr, &res)
	if res.Zone != "zone_5" || res.ShippingCost != 640 {
		t.Fatalf("expected export fallback zone, got %+v", res)
	}
}

type multiLegBody struct {
	TotalCost         float64 `json:"total_cost"`
	Currency          string  `json:"currency"`
	EffectiveWeightKg float64 `json:"effective_weight_kg"`
	Legs              []struct {
		Origin      string  `json:"origin"`
		Destination string  `json:"destination"`
		Direction   string  `json:"direction"`
		Zone        string  `json:"zone"`
		Cost        float64 `json:"cost"`
	} `json:"legs"`
}

func TestMultiLegInfersDirections(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/multi-leg", map[string]any{
		"weight_kg": 4,
		"legs": []map[string]any{
			{"origin": "MA", "destination": "FR"},
			{"origin": "FR", "destination": "MA"},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var res multiLegBody
	decodeBody(t, rr, &res)
	if len(res.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %+v", res)
	}
	if res.Legs[0].Direction != "export" || res.Legs[1].Direction != "import" {
		t.Fatalf("unexpected inferred directions: %+v", res.Legs)
	}
	if res.Legs[0].Cost != 390 || res.Legs[1].Cost != 390 || res.TotalCost != 780 {
		t.Fatalf("unexpected costs: %+v", res)
	}
}

func TestMultiLegPremiumAppliesPerLeg(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/multi-leg", map[string]any{
		"weight_kg":       4,
		"premium_service": "insurance",
		"legs": []map[string]any{
			{"origin": "MA", "destination": "FR", "direction": "export"},
			{"origin": "MA", "destination": "US", "direction": "export"},
		},
	})
	var res multiLegBody
	decodeBody(t, rr, &res)
	// 390+75 and 690+75
	if res.TotalCost != 1230 {
		t.Fatalf("expected 1230, got %+v", res)
	}
}

func TestMultiLegFailingLegFailsAll(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/multi-leg", map[string]any{
		"weight_kg": 4,
		"legs": []map[string]any{
			{"origin": "MA", "destination": "FR"},
			{"origin": "BR", "destination": "MA"},
		},
	})
	expectError(t, rr, http.StatusUnprocessableEntity, "unknown_destination")
}

func TestMultiLegEmpty(t *testing.T) {
	env := newTestEnv(t, false)
	rr := env.do(t, http.MethodPost, "/shipping/multi-leg", map[string]any{"weight_kg": 4, "legs": []any{}})
	expectError(t, rr, http.StatusBadRequest, "empty_leg_list")
}

func TestConvertCurrency(t *testing.T) {
	env := newTestEnv(t, false)
	cases := []struct {
		from, to string
		amount   float64
		want     float64
	}{
		{"MAD", "EUR", 1000, 92},
		{"EUR", "MAD", 92, 1000},
		{"EUR", "USD", 100, 108.7},
		{"usd", "USD", 10.005, 10.01},
	}
	for _, tc := range cases {
		rr := env.do(t, http.MethodPost, "/currency/convert", map[string]any{"amount": tc.amount, "from": tc.from, "to": tc.to})
		if rr.Code != http.StatusOK {
			t.Fatalf("%s->%s: expected 200, got %d; body=%s", tc.from, tc.to, rr.Code, rr.Body.String())
		}
		var res struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		}
		decodeBody(t, rr, &res)
		if res.Amount != tc.want {
			t.Fatalf("%s->%s: expected %v, got %v", tc.from, tc.to, tc.want, res.Amount)
		}
	}
}
