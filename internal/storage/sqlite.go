// Package storage persists finalized quotes. The dialogue engine only
// writes; reading back is left to reporting tooling.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/paintquote-ai/quote-platform/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	company_id    TEXT NOT NULL,
	customer_name TEXT,
	address       TEXT,
	project_type  TEXT,
	paint_quality TEXT,
	subtotal      REAL,
	tax           REAL,
	final_price   REAL,
	payload       TEXT NOT NULL,
	created_at    TIMESTAMP,
	completed_at  TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_quotes_company ON quotes(company_id, completed_at);
`

// QuoteStore is a sqlite-backed repository for finalized quotes.
type QuoteStore struct {
	db *sql.DB
}

// Open opens (and bootstraps) the quote database at path.
func Open(path string) (*QuoteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quote database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply quote schema: %w", err)
	}

	return &QuoteStore{db: db}, nil
}

// SaveQuote upserts a finalized quote. Saving the same quote twice keeps
// the latest row; totals are immutable upstream so the write is stable.
func (s *QuoteStore) SaveQuote(ctx context.Context, quote *model.QuoteData) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	var subtotal, tax, final float64
	if quote.Totals != nil {
		subtotal = quote.Totals.Subtotal
		tax = quote.Totals.Tax
		final = quote.Totals.FinalPrice
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotes (
			id, session_id, company_id, customer_name, address,
			project_type, paint_quality, subtotal, tax, final_price,
			payload, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_name = excluded.customer_name,
			address       = excluded.address,
			project_type  = excluded.project_type,
			paint_quality = excluded.paint_quality,
			subtotal      = excluded.subtotal,
			tax           = excluded.tax,
			final_price   = excluded.final_price,
			payload       = excluded.payload,
			completed_at  = excluded.completed_at`,
		quote.ID, quote.SessionID, quote.CompanyID, quote.CustomerName, quote.Address,
		string(quote.ProjectType), string(quote.PaintQuality), subtotal, tax, final,
		string(payload), quote.CreatedAt, quote.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *QuoteStore) Close() error {
	return s.db.Close()
}
