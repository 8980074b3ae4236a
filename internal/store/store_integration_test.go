package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shipquote/internal/currency"
	"shipquote/internal/db"
	"shipquote/internal/quote"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	pool, err := db.NewPool(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	repo := NewRepository(pool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return repo
}

func TestRepositoryRoundTripIntegration(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateQuote(ctx, quote.Quote{
		Reference:       "Q-" + uuid.NewString(),
		Currency:        "MAD",
		DiscountRatePct: decimal.RequireFromString("10"),
		VATRatePct:      decimal.RequireFromString("20"),
		Items: []quote.Item{
			{Description: "crate", Quantity: decimal.RequireFromString("2"), UnitPrice: decimal.RequireFromString("500")},
			{Description: "pallet", Quantity: decimal.RequireFromString("1"), UnitPrice: decimal.RequireFromString("250.50")},
		},
		Shipping: quote.Manual(decimal.RequireFromString("120"), "MAD"),
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	got, err := repo.GetQuote(ctx, created.ID)
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].Description != "crate" {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
	if !got.Items[1].UnitPrice.Equal(decimal.RequireFromString("250.5")) {
		t.Fatalf("unexpected unit price %s", got.Items[1].UnitPrice)
	}
	if !got.VATRatePct.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("unexpected vat %s", got.VATRatePct)
	}
	if got.Shipping.Kind != quote.ShippingManual {
		t.Fatalf("unexpected shipping kind %s", got.Shipping.Kind)
	}

	updated, err := repo.ReplaceItems(ctx, created.ID, []quote.Item{
		{Description: "box", Quantity: decimal.RequireFromString("3"), UnitPrice: decimal.RequireFromString("10")},
	})
	if err != nil {
		t.Fatalf("replace items: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Description != "box" {
		t.Fatalf("unexpected items after replace: %+v", updated.Items)
	}

	updated, err = repo.SetShipping(ctx, created.ID, quote.NoShipping())
	if err != nil {
		t.Fatalf("set shipping: %v", err)
	}
	if updated.Shipping.Kind != quote.ShippingNone {
		t.Fatalf("expected shipping cleared, got %s", updated.Shipping.Kind)
	}
}

func TestRepositoryKeepsFullPrecisionIntegration(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateQuote(ctx, quote.Quote{
		Reference:       "Q-" + uuid.NewString(),
		Currency:        "MAD",
		DiscountRatePct: decimal.RequireFromString("12.34567"),
		VATRatePct:      decimal.RequireFromString("1500"),
		Items: []quote.Item{
			{Description: "bolt", Quantity: decimal.RequireFromString("3"), UnitPrice: decimal.RequireFromString("0.12345")},
		},
		Shipping: quote.NoShipping(),
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	got, err := repo.GetQuote(ctx, created.ID)
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if !got.Items[0].UnitPrice.Equal(decimal.RequireFromString("0.12345")) {
		t.Fatalf("unit price rounded to %s", got.Items[0].UnitPrice)
	}
	if !got.VATRatePct.Equal(created.VATRatePct) || !got.DiscountRatePct.Equal(created.DiscountRatePct) {
		t.Fatalf("rates changed: created %s/%s got %s/%s", created.DiscountRatePct, created.VATRatePct, got.DiscountRatePct, got.VATRatePct)
	}

	rates, err := currency.NewRateTable("MAD", nil)
	if err != nil {
		t.Fatalf("rate table: %v", err)
	}
	engine := quote.NewEngine(currency.NewConverter(rates))
	want, err := engine.Totals(created, quote.VATOnSubtotal)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	again, err := engine.Totals(got, quote.VATOnSubtotal)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if !want.GrandTotal.Equal(again.GrandTotal) || !want.Subtotal.Equal(again.Subtotal) {
		t.Fatalf("totals drifted: created %s got %s", want.GrandTotal, again.GrandTotal)
	}
}

func TestRepositoryErrorsIntegration(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	q := quote.Quote{Reference: "Q-" + uuid.NewString(), Currency: "MAD", Shipping: quote.NoShipping()}
	if _, err := repo.CreateQuote(ctx, q); err != nil {
		t.Fatalf("create quote: %v", err)
	}
	if _, err := repo.CreateQuote(ctx, q); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	missing := uuid.New()
	if _, err := repo.GetQuote(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.SetShipping(ctx, missing, quote.NoShipping()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.ReplaceItems(ctx, missing, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
