package conversation

import (
	"github.com/paintquote-ai/quote-platform/internal/model"
)

// LoopDetector flags sessions where the operator keeps submitting the
// identical input. It works on the bounded history kept in session
// metadata, so detection state survives store round-trips.
type LoopDetector struct {
	threshold    int
	historyLimit int
}

// NewLoopDetector creates a detector with the default thresholds.
func NewLoopDetector() *LoopDetector {
	return &LoopDetector{
		threshold:    LoopDetectionThreshold,
		historyLimit: loopHistoryLimit,
	}
}

// Observe records a normalized input and reports whether a loop tripped.
// On detection the loop sub-state is reset so the operator gets a fresh
// window after the recovery message.
func (d *LoopDetector) Observe(meta *model.SessionMetadata, normalized string) bool {
	loop := &meta.Loop

	if n := len(loop.History); n > 0 && loop.History[n-1] == normalized {
		loop.RepeatCount++
	} else {
		loop.RepeatCount = 1
	}

	loop.History = append(loop.History, normalized)
	if len(loop.History) > d.historyLimit {
		loop.History = loop.History[len(loop.History)-d.historyLimit:]
	}

	if loop.RepeatCount >= d.threshold && lastWindowUniform(loop.History, d.threshold) {
		d.Reset(meta)
		return true
	}
	return false
}

// Reset clears the loop-detection sub-state.
func (d *LoopDetector) Reset(meta *model.SessionMetadata) {
	meta.Loop.History = nil
	meta.Loop.RepeatCount = 0
}

func lastWindowUniform(history []string, window int) bool {
	if len(history) < window {
		return false
	}
	tail := history[len(history)-window:]
	for _, v := range tail[1:] {
		if v != tail[0] {
			return false
		}
	}
	return true
}

// StuckDetector flags sessions grinding without progress: too many
// retries, or a dialogue log that hit its cap.
type StuckDetector struct {
	retryThreshold int
	maxMessages    int
}

// NewStuckDetector creates a detector from engine settings.
func NewStuckDetector(settings Settings) *StuckDetector {
	return &StuckDetector{
		retryThreshold: settings.stuckThreshold(),
		maxMessages:    settings.maxMessages(),
	}
}

// IsStuck reports whether the session should be offered recovery.
func (d *StuckDetector) IsStuck(state *model.ConversationState) bool {
	if state.Metadata.RetryCount >= d.retryThreshold {
		return true
	}
	return len(state.Messages) > d.maxMessages
}
