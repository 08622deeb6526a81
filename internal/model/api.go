package model

// Outcome classifies what the step processor did with an input.
type Outcome string

const (
	OutcomeAdvanced           Outcome = "advanced"
	OutcomeCompleted          Outcome = "completed"
	OutcomeValidationFailed   Outcome = "validation_failed"
	OutcomeLoopDetected       Outcome = "loop_detected"
	OutcomeStuck              Outcome = "stuck"
	OutcomeMaxRetriesExceeded Outcome = "max_retries_exceeded"
	OutcomeFallbackApplied    Outcome = "fallback_applied"
	OutcomeError              Outcome = "error"
)

// ProcessResult is the outcome of feeding one input to a session.
type ProcessResult struct {
	Success          bool       `json:"success"`
	Response         string     `json:"response"`
	IsComplete       bool       `json:"is_complete"`
	Outcome          Outcome    `json:"outcome"`
	QuoteData        *QuoteData `json:"quote_data,omitempty"`
	Error            string     `json:"error,omitempty"`
	SuggestedActions []string   `json:"suggested_actions,omitempty"`
}

// StartSessionRequest is the request to initialize a quote session.
type StartSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// StartSessionResponse is returned after session initialization.
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Step      string `json:"step"`
	Prompt    string `json:"prompt"`
}

// SendInputRequest carries one operator utterance.
type SendInputRequest struct {
	Text string `json:"text"`
}

// ResetSessionRequest names the step to rewind to.
type ResetSessionRequest struct {
	Step string `json:"step"`
}

// CleanupResponse reports how many expired sessions were removed.
type CleanupResponse struct {
	Removed int `json:"removed"`
}
