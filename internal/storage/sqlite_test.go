package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/paintquote-ai/quote-platform/internal/model"
)

func openTestStore(t *testing.T) *QuoteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "quotes.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testQuote() *model.QuoteData {
	now := time.Now()
	return &model.QuoteData{
		ID:           "q-1",
		SessionID:    "sess-1",
		CompanyID:    "co-1",
		CustomerName: "Jane Doe",
		Address:      "123 Maple Street, Springfield",
		ProjectType:  model.ProjectTypeInterior,
		PaintQuality: model.PaintQualityStandard,
		Totals:       &model.Totals{Subtotal: 6750, Tax: 540, FinalPrice: 7290},
		Finalized:    true,
		CreatedAt:    now,
		CompletedAt:  &now,
	}
}

func TestSaveQuoteRoundTrip(t *testing.T) {
	store := openTestStore(t)
	q := testQuote()

	if err := store.SaveQuote(context.Background(), q); err != nil {
		t.Fatalf("save: %v", err)
	}

	var name string
	var final float64
	row := store.db.QueryRow(`SELECT customer_name, final_price FROM quotes WHERE id = ?`, q.ID)
	if err := row.Scan(&name, &final); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "Jane Doe" {
		t.Errorf("customer_name = %q", name)
	}
	if final != 7290 {
		t.Errorf("final_price = %v", final)
	}
}

func TestSaveQuoteUpsertKeepsOneRow(t *testing.T) {
	store := openTestStore(t)
	q := testQuote()

	if err := store.SaveQuote(context.Background(), q); err != nil {
		t.Fatalf("save: %v", err)
	}
	q.CustomerName = "Jane D. Doe"
	if err := store.SaveQuote(context.Background(), q); err != nil {
		t.Fatalf("resave: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM quotes`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}

	var name string
	if err := store.db.QueryRow(`SELECT customer_name FROM quotes WHERE id = ?`, q.ID).Scan(&name); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "Jane D. Doe" {
		t.Errorf("customer_name = %q, want updated value", name)
	}
}

func TestSaveQuoteWithoutTotals(t *testing.T) {
	store := openTestStore(t)
	q := testQuote()
	q.ID = "q-2"
	q.Totals = nil

	if err := store.SaveQuote(context.Background(), q); err != nil {
		t.Fatalf("save: %v", err)
	}

	var final float64
	if err := store.db.QueryRow(`SELECT final_price FROM quotes WHERE id = ?`, q.ID).Scan(&final); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if final != 0 {
		t.Errorf("final_price = %v, want 0", final)
	}
}
