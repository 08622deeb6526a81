// Package model defines data structures for the quote platform.
package model

import (
	"time"
)

// ProjectType classifies the painting project scope.
type ProjectType string

const (
	ProjectTypeInterior ProjectType = "interior"
	ProjectTypeExterior ProjectType = "exterior"
	ProjectTypeBoth     ProjectType = "both"
)

// PaintQuality is the paint tier selected for the project.
type PaintQuality string

const (
	PaintQualityEconomy  PaintQuality = "economy"
	PaintQualityStandard PaintQuality = "standard"
	PaintQualityPremium  PaintQuality = "premium"
	PaintQualityLuxury   PaintQuality = "luxury"
)

// Room is one paintable area with per-surface square footage.
type Room struct {
	Name                  string  `json:"name"`
	Type                  string  `json:"type,omitempty"`
	WallsSquareFootage    float64 `json:"walls_square_footage"`
	CeilingsSquareFootage float64 `json:"ceilings_square_footage"`
	TrimSquareFootage     float64 `json:"trim_square_footage"`
}

// Measurements aggregates per-surface square footage across all rooms.
type Measurements struct {
	Walls    float64 `json:"walls"`
	Ceilings float64 `json:"ceilings"`
	Trim     float64 `json:"trim"`
}

// PricingRates are dollar-per-square-foot rates by surface.
type PricingRates struct {
	Walls    float64 `json:"walls"`
	Ceilings float64 `json:"ceilings"`
	Trim     float64 `json:"trim"`
}

// Totals holds the computed price breakdown.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"tax"`
	FinalPrice float64 `json:"final_price"`
}

// QuoteData is the quote record filled in as dialogue steps complete.
// It is created empty at session init, grows monotonically, and becomes
// immutable once finalized.
type QuoteData struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	CompanyID string `json:"company_id"`

	CustomerName    string       `json:"customer_name,omitempty"`
	CustomerContact string       `json:"customer_contact,omitempty"`
	Address         string       `json:"address,omitempty"`
	ProjectType     ProjectType  `json:"project_type,omitempty"`
	Rooms           []Room       `json:"rooms,omitempty"`
	PaintQuality    PaintQuality `json:"paint_quality,omitempty"`
	SpecialRequests string       `json:"special_requests,omitempty"`

	Measurements *Measurements `json:"measurements,omitempty"`
	Rates        *PricingRates `json:"rates,omitempty"`
	Totals       *Totals       `json:"totals,omitempty"`

	Finalized   bool       `json:"finalized"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
