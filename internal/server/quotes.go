package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shipquote/internal/currency"
	"shipquote/internal/quote"
	"shipquote/internal/rate"
)

const maxBodyBytes = 1 << 20

var errPersistenceDisabled = errors.New("quote persistence is not configured")

// Quote totals
type ItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type QuoteTotalsRequest struct {
	Reference    string          `json:"reference"`
	Items        []ItemRequest   `json:"items"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	TVA          decimal.Decimal `json:"tva"`
	Currency     string          `json:"currency"`
	Policy       string          `json:"policy"`
}

type TotalsResponse struct {
	Policy         string      `json:"policy"`
	Currency       string      `json:"currency"`
	Subtotal       json.Number `json:"subtotal"`
	DiscountAmount json.Number `json:"discount_amount"`
	VATBase        json.Number `json:"vat_base"`
	VATAmount      json.Number `json:"vat_amount"`
	ShippingCost   json.Number `json:"shipping_cost"`
	HandlingCost   json.Number `json:"handling_cost"`
	GrandTotal     json.Number `json:"grand_total"`
}

func (s *Server) handleQuoteTotals(w http.ResponseWriter, r *http.Request) {
	const op = "quote_totals"
	var req QuoteTotalsRequest
	raw, err := decodeWithRaw(w, r, &req)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	q, policy, err := s.quoteFromRequest(req, raw)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	totals, err := s.quotes.Totals(q, policy)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.writeResult(w, http.StatusOK, op, toTotalsResponse(totals, q.Currency))
}

// quoteFromRequest builds an unsaved quote from a totals or create request.
func (s *Server) quoteFromRequest(req QuoteTotalsRequest, raw map[string]any) (quote.Quote, quote.VATPolicy, error) {
	policy, err := quote.ParsePolicy(req.Policy)
	if err != nil {
		return quote.Quote{}, "", err
	}
	code := req.Currency
	if strings.TrimSpace(code) == "" {
		code = s.converter.Reference()
	}
	code, err = currency.Normalize(code)
	if err != nil {
		return quote.Quote{}, "", err
	}
	shipping, err := s.normalizer.Normalize(raw)
	if err != nil {
		return quote.Quote{}, "", err
	}
	q := quote.Quote{
		Reference:       strings.TrimSpace(req.Reference),
		Currency:        code,
		Items:           toItems(req.Items),
		DiscountRatePct: req.DiscountRate,
		VATRatePct:      req.TVA,
		Shipping:        shipping,
	}
	return q, policy, q.Validate()
}

// Quote persistence
type ItemResponse struct {
	Description string      `json:"description"`
	Quantity    json.Number `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price"`
	TotalPrice  json.Number `json:"total_price"`
}

type ShippingView struct {
	Kind     string        `json:"kind"`
	Amount   json.Number   `json:"amount"`
	Currency string        `json:"currency,omitempty"`
	Legs     []LegResponse `json:"legs,omitempty"`
}

type QuoteResponse struct {
	ID           string         `json:"id"`
	Reference    string         `json:"reference"`
	Currency     string         `json:"currency"`
	DiscountRate json.Number    `json:"discount_rate"`
	TVA          json.Number    `json:"tva"`
	Items        []ItemResponse `json:"items"`
	Shipping     ShippingView   `json:"shipping"`
	Totals       TotalsResponse `json:"totals"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	const op = "quote_create"
	if s.store == nil {
		writeErrorJSON(w, http.StatusServiceUnavailable, "persistence_disabled", errPersistenceDisabled.Error())
		return
	}
	var req QuoteTotalsRequest
	raw, err := decodeWithRaw(w, r, &req)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	q, policy, err := s.quoteFromRequest(req, raw)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	if q.Reference == "" {
		q.Reference = "Q-" + strings.ToUpper(uuid.NewString()[:8])
	}
	// Reject quotes whose totals cannot be computed before persisting them.
	if _, err := s.quotes.Totals(q, policy); err != nil {
		s.writeError(w, r, op, err)
		return
	}
	saved, err := s.store.CreateQuote(r.Context(), q)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.respondQuote(w, r, op, http.StatusCreated, saved, policy)
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	const op = "quote_get"
	id, policy, ok := s.quoteTarget(w, r, op)
	if !ok {
		return
	}
	q, err := s.store.GetQuote(r.Context(), id)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.respondQuote(w, r, op, http.StatusOK, q, policy)
}

type ReplaceItemsRequest struct {
	Items []ItemRequest `json:"items"`
}

func (s *Server) handleReplaceItems(w http.ResponseWriter, r *http.Request) {
	const op = "quote_replace_items"
	id, policy, ok := s.quoteTarget(w, r, op)
	if !ok {
		return
	}
	var req ReplaceItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	q, err := s.store.ReplaceItems(r.Context(), id, toItems(req.Items))
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.respondQuote(w, r, op, http.StatusOK, q, policy)
}

// SetShippingRequest either computes a fresh shipping cost or carries a precomputed one in any
// accepted legacy shape.
type SetShippingRequest struct {
	SingleLeg *ShippingQuoteRequest `json:"single_leg"`
	MultiLeg  *MultiLegRequest      `json:"multi_leg"`
}

func (s *Server) handleSetShipping(w http.ResponseWriter, r *http.Request) {
	const op = "quote_set_shipping"
	id, policy, ok := s.quoteTarget(w, r, op)
	if !ok {
		return
	}
	var req SetShippingRequest
	raw, err := decodeWithRaw(w, r, &req)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	info, err := s.shippingFromRequest(req, raw)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	q, err := s.store.SetShipping(r.Context(), id, info)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.respondQuote(w, r, op, http.StatusOK, q, policy)
}

func (s *Server) shippingFromRequest(req SetShippingRequest, raw map[string]any) (quote.ShippingInfo, error) {
	switch {
	case req.SingleLeg != nil && req.MultiLeg != nil:
		return quote.ShippingInfo{}, fmt.Errorf("%w: single_leg and multi_leg are exclusive", ErrMalformedShipping)
	case req.SingleLeg != nil:
		res, err := s.computeSingle(*req.SingleLeg)
		if err != nil {
			return quote.ShippingInfo{}, err
		}
		return quote.SingleLeg(res), nil
	case req.MultiLeg != nil:
		res, err := s.est.ComputeMultiLeg(req.MultiLeg.toMultiLegRequest())
		if err != nil {
			return quote.ShippingInfo{}, err
		}
		return quote.MultiLeg(res), nil
	default:
		return s.normalizer.Normalize(raw)
	}
}

// quoteTarget resolves the {id} path parameter and ?policy= query. It writes the error response
// itself and reports false when the request cannot proceed.
func (s *Server) quoteTarget(w http.ResponseWriter, r *http.Request, op string) (uuid.UUID, quote.VATPolicy, bool) {
	if s.store == nil {
		writeErrorJSON(w, http.StatusServiceUnavailable, "persistence_disabled", errPersistenceDisabled.Error())
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, op, fmt.Errorf("%w: quote id", rate.ErrInvalidInput))
		return uuid.Nil, "", false
	}
	policy, err := quote.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		s.writeError(w, r, op, err)
		return uuid.Nil, "", false
	}
	return id, policy, true
}

// respondQuote recomputes totals for q; they are never read back from storage.
func (s *Server) respondQuote(w http.ResponseWriter, r *http.Request, op string, status int, q quote.Quote, policy quote.VATPolicy) {
	totals, err := s.quotes.Totals(q, policy)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.writeResult(w, status, op, toQuoteResponse(q, totals))
}

func toQuoteResponse(q quote.Quote, totals quote.Totals) QuoteResponse {
	out := QuoteResponse{
		ID:           q.ID.String(),
		Reference:    q.Reference,
		Currency:     q.Currency,
		DiscountRate: json.Number(q.DiscountRatePct.String()),
		TVA:          json.Number(q.VATRatePct.String()),
		Items:        make([]ItemResponse, 0, len(q.Items)),
		Shipping:     toShippingView(q.Shipping),
		Totals:       toTotalsResponse(totals, q.Currency),
		CreatedAt:    q.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    q.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, item := range q.Items {
		out.Items = append(out.Items, ItemResponse{
			Description: item.Description,
			Quantity:    json.Number(item.Quantity.String()),
			UnitPrice:   money(item.UnitPrice),
			TotalPrice:  money(item.TotalPrice()),
		})
	}
	return out
}

func toShippingView(info quote.ShippingInfo) ShippingView {
	amount, code := info.Cost()
	kind := info.Kind
	if kind == "" {
		kind = quote.ShippingNone
	}
	view := ShippingView{Kind: string(kind), Amount: money(amount), Currency: code}
	if info.Multi != nil {
		view.Legs = toMultiLegResponse(*info.Multi).Legs
	}
	return view
}

func toTotalsResponse(t quote.Totals, code string) TotalsResponse {
	rounded := t.Rounded()
	return TotalsResponse{
		Policy:         string(t.Policy),
		Currency:       code,
		Subtotal:       money(rounded.Subtotal),
		DiscountAmount: money(rounded.DiscountAmount),
		VATBase:        money(rounded.VATBase),
		VATAmount:      money(rounded.VATAmount),
		ShippingCost:   money(rounded.ShippingCost),
		HandlingCost:   money(rounded.HandlingCost),
		GrandTotal:     money(rounded.GrandTotal),
	}
}

func toItems(in []ItemRequest) []quote.Item {
	items := make([]quote.Item, 0, len(in))
	for _, it := range in {
		items = append(items, quote.Item{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return items
}

// decodeWithRaw decodes the body into dst and also returns it as a generic map, which the
// shipping normalizer inspects for legacy keys.
func decodeWithRaw(w http.ResponseWriter, r *http.Request, dst any) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return nil, err
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
