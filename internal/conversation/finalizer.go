package conversation

import (
	"math"
	"time"

	"github.com/paintquote-ai/quote-platform/internal/model"
)

// Finalizer turns collected room data into priced totals. It runs exactly
// once per quote; finalizing an already-finalized quote is a no-op that
// returns the existing totals.
type Finalizer struct {
	rates   model.PricingRates
	taxRate float64
}

// NewFinalizer creates a finalizer with the configured default rates.
func NewFinalizer(settings Settings) *Finalizer {
	rates := settings.Rates
	if rates.Walls <= 0 {
		rates.Walls = 3.50
	}
	if rates.Ceilings <= 0 {
		rates.Ceilings = 2.50
	}
	if rates.Trim <= 0 {
		rates.Trim = 5.00
	}
	taxRate := settings.TaxRate
	if taxRate <= 0 {
		taxRate = 0.08
	}
	return &Finalizer{rates: rates, taxRate: taxRate}
}

// Finalize aggregates measurements, applies rates, and computes totals.
// A quote with no rooms gets the synthetic default room so forced
// completion still yields a usable estimate.
func (f *Finalizer) Finalize(q *model.QuoteData) *model.Totals {
	if q.Finalized && q.Totals != nil {
		return q.Totals
	}

	if len(q.Rooms) == 0 {
		q.Rooms = []model.Room{defaultRoom()}
	}

	var m model.Measurements
	for _, room := range q.Rooms {
		m.Walls += room.WallsSquareFootage
		m.Ceilings += room.CeilingsSquareFootage
		m.Trim += room.TrimSquareFootage
	}
	q.Measurements = &m

	if q.Rates == nil {
		rates := f.rates
		q.Rates = &rates
	}

	subtotal := m.Walls*q.Rates.Walls + m.Ceilings*q.Rates.Ceilings + m.Trim*q.Rates.Trim
	subtotal = roundCents(subtotal)
	tax := roundCents(subtotal * f.taxRate)

	q.Totals = &model.Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		FinalPrice: roundCents(subtotal + tax),
	}

	now := time.Now()
	q.CompletedAt = &now
	q.Finalized = true

	return q.Totals
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
