package model

import (
	"time"
)

// EventType represents the type of quote lifecycle event.
type EventType string

const (
	EventTypeSessionStarted EventType = "session_started"
	EventTypeStepCompleted  EventType = "step_completed"
	EventTypeQuoteFinalized EventType = "quote_finalized"
	EventTypeSessionExpired EventType = "session_expired"
	EventTypeSessionReset   EventType = "session_reset"
)

// QuoteEvent represents a lifecycle event on a quote session.
type QuoteEvent struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	CompanyID string     `json:"company_id"`
	Type      EventType  `json:"type"`
	Step      string     `json:"step,omitempty"`
	Quote     *QuoteData `json:"quote,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
