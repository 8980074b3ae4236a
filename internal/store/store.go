// Package store persists quotes in Postgres. Totals are never stored; callers recompute them.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shipquote/internal/quote"
)

var (
	// ErrNotFound is returned when no quote has the requested id.
	ErrNotFound = errors.New("store: quote not found")
	// ErrConflict is returned when a quote reference is already taken.
	ErrConflict = errors.New("store: quote reference already exists")
)

//go:embed schema.sql
var schemaSQL string

// Repository reads and writes quotes and their items.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureSchema creates the quote tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schemaSQL)
	return err
}

// CreateQuote inserts q with its items and returns the stored row. A zero ID is replaced by a new UUID.
func (r *Repository) CreateQuote(ctx context.Context, q quote.Quote) (quote.Quote, error) {
	if err := q.Validate(); err != nil {
		return quote.Quote{}, err
	}
	shipping, err := encodeShipping(q.Shipping)
	if err != nil {
		return quote.Quote{}, err
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	now := r.now()
	q.CreatedAt, q.UpdatedAt = now, now

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return quote.Quote{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO quotes (
			id, reference, currency, discount_rate_pct, vat_rate_pct, shipping, created_at, updated_at
		) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::jsonb, $7, $7)
	`,
		q.ID,
		q.Reference,
		q.Currency,
		q.DiscountRatePct.String(),
		q.VATRatePct.String(),
		string(shipping),
		now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return quote.Quote{}, fmt.Errorf("%w: %s", ErrConflict, q.Reference)
		}
		return quote.Quote{}, err
	}
	if err := insertItems(ctx, tx, q.ID, q.Items); err != nil {
		return quote.Quote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return quote.Quote{}, err
	}
	return r.GetQuote(ctx, q.ID)
}

// GetQuote loads a quote and its items in position order.
func (r *Repository) GetQuote(ctx context.Context, id uuid.UUID) (quote.Quote, error) {
	var (
		q           quote.Quote
		discount    string
		vat         string
		shippingRaw []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, reference, currency, discount_rate_pct::text, vat_rate_pct::text, shipping, created_at, updated_at
		FROM quotes
		WHERE id = $1
	`, id).Scan(&q.ID, &q.Reference, &q.Currency, &discount, &vat, &shippingRaw, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quote.Quote{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return quote.Quote{}, err
	}
	if q.DiscountRatePct, err = decimal.NewFromString(discount); err != nil {
		return quote.Quote{}, fmt.Errorf("discount_rate_pct: %w", err)
	}
	if q.VATRatePct, err = decimal.NewFromString(vat); err != nil {
		return quote.Quote{}, fmt.Errorf("vat_rate_pct: %w", err)
	}
	if q.Shipping, err = decodeShipping(shippingRaw); err != nil {
		return quote.Quote{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT description, quantity::text, unit_price::text
		FROM quote_items
		WHERE quote_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return quote.Quote{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var desc, qty, price string
		if err := rows.Scan(&desc, &qty, &price); err != nil {
			return quote.Quote{}, err
		}
		item := quote.Item{Description: desc}
		if item.Quantity, err = decimal.NewFromString(qty); err != nil {
			return quote.Quote{}, fmt.Errorf("quantity: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return quote.Quote{}, fmt.Errorf("unit_price: %w", err)
		}
		q.Items = append(q.Items, item)
	}
	if err := rows.Err(); err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

// ReplaceItems swaps the quote's items for items and returns the updated quote.
func (r *Repository) ReplaceItems(ctx context.Context, id uuid.UUID, items []quote.Item) (quote.Quote, error) {
	if err := (quote.Quote{Items: items}).Validate(); err != nil {
		return quote.Quote{}, err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return quote.Quote{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := touch(ctx, tx, id, r.now()); err != nil {
		return quote.Quote{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, id); err != nil {
		return quote.Quote{}, err
	}
	if err := insertItems(ctx, tx, id, items); err != nil {
		return quote.Quote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return quote.Quote{}, err
	}
	return r.GetQuote(ctx, id)
}

// SetShipping replaces the quote's shipping attachment.
func (r *Repository) SetShipping(ctx context.Context, id uuid.UUID, info quote.ShippingInfo) (quote.Quote, error) {
	shipping, err := encodeShipping(info)
	if err != nil {
		return quote.Quote{}, err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes SET shipping = $2::jsonb, updated_at = $3 WHERE id = $1
	`, id, string(shipping), r.now())
	if err != nil {
		return quote.Quote{}, err
	}
	if tag.RowsAffected() == 0 {
		return quote.Quote{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.GetQuote(ctx, id)
}

func touch(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE quotes SET updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID, items []quote.Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(`
			INSERT INTO quote_items (quote_id, position, description, quantity, unit_price)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric)
		`, quoteID, i, strings.TrimSpace(item.Description), item.Quantity.String(), item.UnitPrice.String())
	}
	results := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}
