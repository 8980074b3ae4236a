package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shipquote/internal/currency"
	"shipquote/internal/observability"
	"shipquote/internal/quote"
	"shipquote/internal/rate"
	"shipquote/internal/store"
)

// QuoteStore persists quotes. *store.Repository implements it.
type QuoteStore interface {
	CreateQuote(ctx context.Context, q quote.Quote) (quote.Quote, error)
	GetQuote(ctx context.Context, id uuid.UUID) (quote.Quote, error)
	ReplaceItems(ctx context.Context, id uuid.UUID, items []quote.Item) (quote.Quote, error)
	SetShipping(ctx context.Context, id uuid.UUID, info quote.ShippingInfo) (quote.Quote, error)
}

var _ QuoteStore = (*store.Repository)(nil)

// Deps wires the engine into the HTTP layer. Store, Logger and Metrics are optional.
type Deps struct {
	Estimator rate.Estimator
	Converter *currency.Converter
	Store     QuoteStore
	Logger    *zap.Logger
	Metrics   *observability.Collector
}

type Server struct {
	est        rate.Estimator
	converter  *currency.Converter
	quotes     *quote.Engine
	store      QuoteStore
	normalizer *ShippingNormalizer
	logger     *zap.Logger
	metrics    *observability.Collector
}

func New(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		est:        deps.Estimator,
		converter:  deps.Converter,
		quotes:     quote.NewEngine(deps.Converter),
		store:      deps.Store,
		normalizer: NewShippingNormalizer(deps.Estimator.ReferenceCurrency()),
		logger:     logger,
		metrics:    deps.Metrics,
	}
	r := chi.NewRouter()
	// Observability: Request ID, structured request log and metrics
	r.Use(requestIDMiddleware)
	r.Use(observability.RequestLoggerMiddleware(logger, deps.Metrics))
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/shipping/quote", s.handleShippingQuote)
	r.Post("/shipping/multi-leg", s.handleMultiLeg)
	r.Post("/currency/convert", s.handleConvert)
	r.Post("/quotes/totals", s.handleQuoteTotals)
	r.Route("/quotes", func(r chi.Router) {
		r.Post("/", s.handleCreateQuote)
		r.Get("/{id}", s.handleGetQuote)
		r.Put("/{id}/items", s.handleReplaceItems)
		r.Put("/{id}/shipping", s.handleSetShipping)
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// errorMapping orders sentinel checks; the first match wins.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{rate.ErrEmptyLegList, http.StatusBadRequest, "empty_leg_list"},
	{rate.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{quote.ErrInvalidItem, http.StatusBadRequest, "invalid_input"},
	{quote.ErrInvalidRate, http.StatusBadRequest, "invalid_input"},
	{quote.ErrInvalidShipping, http.StatusBadRequest, "invalid_input"},
	{quote.ErrInvalidPolicy, http.StatusBadRequest, "invalid_input"},
	{currency.ErrInvalidCurrency, http.StatusBadRequest, "invalid_input"},
	{rate.ErrUnknownDestination, http.StatusUnprocessableEntity, "unknown_destination"},
	{rate.ErrUnknownZone, http.StatusUnprocessableEntity, "unknown_zone"},
	{rate.ErrUnknownPremiumService, http.StatusUnprocessableEntity, "unknown_premium_service"},
	{currency.ErrMissingExchangeRate, http.StatusUnprocessableEntity, "missing_exchange_rate"},
	{rate.ErrNoApplicableBracket, http.StatusInternalServerError, "tariff_misconfigured"},
	{store.ErrNotFound, http.StatusNotFound, "resource_not_found"},
	{store.ErrConflict, http.StatusConflict, "quote_exists"},
}

func classifyError(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps err onto the error envelope and records the outcome of operation.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code := classifyError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.metrics.ObserveComputation(operation, observability.OutcomeError)
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("operation", operation),
			zap.Error(err),
		)
		if code == "internal_error" {
			message = "internal error"
		}
	} else {
		s.metrics.ObserveComputation(operation, observability.OutcomeRejected)
	}
	writeErrorJSON(w, status, code, message)
}

func (s *Server) writeResult(w http.ResponseWriter, status int, operation string, body any) {
	s.metrics.ObserveComputation(operation, observability.OutcomeOK)
	writeJSON(w, status, body)
}

// decodeJSON decodes a request body, keeping untyped numbers as json.Number.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeErrorJSON writes a standardized JSON error response:
// {"error": {"code": string, "message": string}}
func writeErrorJSON(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// requestIDMiddleware ensures X-Request-ID is set on the response and the request context.
// If provided in the request header, it is propagated; otherwise a UUID is generated.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", rid)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// money renders an amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(currency.Precision))
}
