package conversation

import (
	"time"

	"github.com/paintquote-ai/quote-platform/internal/model"
)

// Detection thresholds. The loop threshold is the number of consecutive
// identical inputs that trips loop recovery; the stuck threshold is the
// retry count that flags a session as making no progress.
const (
	LoopDetectionThreshold  = 3
	loopHistoryLimit        = 5
	StuckDetectionThreshold = 5
)

// Settings carries the tunable knobs of the dialogue engine.
type Settings struct {
	// MaxConversationTime is the idle window after which a session expires.
	MaxConversationTime time.Duration

	// CompletionGrace is how long a finalized session stays readable
	// before removal.
	CompletionGrace time.Duration

	// MaxRetries is the session-wide default retry ceiling for steps that
	// do not declare their own.
	MaxRetries int

	// StuckThreshold overrides StuckDetectionThreshold when positive.
	StuckThreshold int

	// MaxMessages is the dialogue-log length beyond which the session is
	// treated as stuck. Clamped below model.MessageLogLimit so the
	// threshold stays reachable.
	MaxMessages int

	// EnrichTimeout bounds one LLM prompt-enrichment call.
	EnrichTimeout time.Duration

	// Rates are the default per-surface prices applied when the dialogue
	// set none.
	Rates model.PricingRates

	// TaxRate is the flat tax fraction applied to the subtotal.
	TaxRate float64
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxConversationTime: 30 * time.Minute,
		CompletionGrace:     5 * time.Minute,
		MaxRetries:          3,
		StuckThreshold:      StuckDetectionThreshold,
		MaxMessages:         100,
		EnrichTimeout:       8 * time.Second,
		Rates: model.PricingRates{
			Walls:    3.50,
			Ceilings: 2.50,
			Trim:     5.00,
		},
		TaxRate: 0.08,
	}
}

func (s Settings) stuckThreshold() int {
	if s.StuckThreshold > 0 {
		return s.StuckThreshold
	}
	return StuckDetectionThreshold
}

func (s Settings) maxMessages() int {
	limit := 100
	if s.MaxMessages > 0 {
		limit = s.MaxMessages
	}
	if limit >= model.MessageLogLimit {
		limit = model.MessageLogLimit - 1
	}
	return limit
}

func (s Settings) enrichTimeout() time.Duration {
	if s.EnrichTimeout > 0 {
		return s.EnrichTimeout
	}
	return 8 * time.Second
}
