package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"shipquote/internal/currency"
	"shipquote/internal/rate"
)

// Shipping quote
type ShippingQuoteRequest struct {
	WeightKg       float64 `json:"weight_kg"`
	Dimensions     string  `json:"dimensions"`
	Country        string  `json:"country"`
	Direction      string  `json:"direction"`
	PremiumService string  `json:"premium_service"`
}

type ShippingQuoteResponse struct {
	ShippingCost      json.Number `json:"shipping_cost"`
	Zone              string      `json:"zone"`
	EffectiveWeightKg float64     `json:"effective_weight_kg"`
	Country           string      `json:"country"`
	Direction         string      `json:"direction"`
	BaseCost          json.Number `json:"base_cost"`
	Surcharge         json.Number `json:"surcharge"`
	Currency          string      `json:"currency"`
	DimensionsIgnored bool        `json:"dimensions_ignored,omitempty"`
}

// toShippingRequest places the counterpart country on the side opposite the home country.
func (req ShippingQuoteRequest) toShippingRequest() (rate.ShippingRequest, error) {
	direction, err := rate.ParseDirection(req.Direction)
	if err != nil {
		return rate.ShippingRequest{}, err
	}
	out := rate.ShippingRequest{
		ActualWeightKg: req.WeightKg,
		Dimensions:     req.Dimensions,
		Direction:      direction,
		PremiumService: req.PremiumService,
	}
	if direction == rate.Import {
		out.OriginCountry = req.Country
	} else {
		out.DestinationCountry = req.Country
	}
	return out, nil
}

func (s *Server) handleShippingQuote(w http.ResponseWriter, r *http.Request) {
	const op = "shipping_quote"
	var req ShippingQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	res, err := s.computeSingle(req)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.writeResult(w, http.StatusOK, op, toShippingQuoteResponse(res))
}

func (s *Server) computeSingle(req ShippingQuoteRequest) (rate.ShippingResult, error) {
	sr, err := req.toShippingRequest()
	if err != nil {
		return rate.ShippingResult{}, err
	}
	return s.est.ComputeLegCost(sr)
}

func toShippingQuoteResponse(res rate.ShippingResult) ShippingQuoteResponse {
	country := res.Leg.Destination
	if res.Leg.Direction == rate.Import {
		country = res.Leg.Origin
	}
	return ShippingQuoteResponse{
		ShippingCost:      money(res.TotalCost),
		Zone:              string(res.Zone),
		EffectiveWeightKg: res.EffectiveWeightKg,
		Country:           country,
		Direction:         string(res.Leg.Direction),
		BaseCost:          money(res.BaseCost),
		Surcharge:         money(res.Surcharge),
		Currency:          res.Currency,
		DimensionsIgnored: res.DimensionsIgnored,
	}
}

// Multi-leg
type LegRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Direction   string `json:"direction"`
}

type MultiLegRequest struct {
	WeightKg       float64      `json:"weight_kg"`
	Dimensions     string       `json:"dimensions"`
	Legs           []LegRequest `json:"legs"`
	PremiumService string       `json:"premium_service"`
}

type LegResponse struct {
	Origin      string      `json:"origin"`
	Destination string      `json:"destination"`
	Direction   string      `json:"direction"`
	Zone        string      `json:"zone"`
	Cost        json.Number `json:"cost"`
}

// MultiLegResponse leg costs are whole-cent amounts, so they add up to total_cost.
type MultiLegResponse struct {
	TotalCost         json.Number   `json:"total_cost"`
	Currency          string        `json:"currency"`
	EffectiveWeightKg float64       `json:"effective_weight_kg"`
	Legs              []LegResponse `json:"legs"`
	DimensionsIgnored bool          `json:"dimensions_ignored,omitempty"`
}

func (req MultiLegRequest) toMultiLegRequest() rate.MultiLegRequest {
	legs := make([]rate.Leg, 0, len(req.Legs))
	for _, l := range req.Legs {
		legs = append(legs, rate.Leg{Origin: l.Origin, Destination: l.Destination, Direction: rate.Direction(l.Direction)})
	}
	return rate.MultiLegRequest{
		ActualWeightKg: req.WeightKg,
		Dimensions:     req.Dimensions,
		Legs:           legs,
		PremiumService: req.PremiumService,
	}
}

func (s *Server) handleMultiLeg(w http.ResponseWriter, r *http.Request) {
	const op = "shipping_multi_leg"
	var req MultiLegRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	res, err := s.est.ComputeMultiLeg(req.toMultiLegRequest())
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.writeResult(w, http.StatusOK, op, toMultiLegResponse(res))
}

func toMultiLegResponse(res rate.MultiLegResult) MultiLegResponse {
	out := MultiLegResponse{
		TotalCost:         money(res.TotalCost),
		Currency:          res.Currency,
		EffectiveWeightKg: res.EffectiveWeightKg,
		Legs:              make([]LegResponse, 0, len(res.Legs)),
		DimensionsIgnored: res.DimensionsIgnored,
	}
	for _, leg := range res.Legs {
		out.Legs = append(out.Legs, LegResponse{
			Origin:      leg.Leg.Origin,
			Destination: leg.Leg.Destination,
			Direction:   string(leg.Leg.Direction),
			Zone:        string(leg.Zone),
			Cost:        money(leg.TotalCost),
		})
	}
	return out
}

// Currency conversion
type ConvertRequest struct {
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

type ConvertResponse struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	const op = "currency_convert"
	var req ConvertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if req.Amount.IsNegative() {
		s.writeError(w, r, op, fmt.Errorf("%w: negative amount", rate.ErrInvalidInput))
		return
	}
	converted, err := s.converter.Convert(req.Amount, req.From, req.To)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	to, _ := currency.Normalize(req.To)
	s.writeResult(w, http.StatusOK, op, ConvertResponse{Amount: money(converted), Currency: to})
}
