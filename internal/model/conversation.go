package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationMessage is one utterance in the dialogue log.
type ConversationMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// LoopState is the bounded-history sub-state for repeated-input detection.
type LoopState struct {
	// History holds the most recent normalized inputs, oldest first.
	History []string `json:"history,omitempty"`
	// RepeatCount counts consecutive submissions of the same input.
	RepeatCount int `json:"repeat_count"`
}

// SessionMetadata tracks progress and anomaly-detection state for a session.
type SessionMetadata struct {
	StartTime    time.Time `json:"start_time"`
	LastActivity time.Time `json:"last_activity"`
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	IsStuck      bool      `json:"is_stuck"`
	Loop         LoopState `json:"loop"`
}

// ConversationState is the per-session dialogue state. It is owned by the
// session store and mutated only through the step processor.
type ConversationState struct {
	SessionID    string                `json:"session_id"`
	CompanyID    string                `json:"company_id"`
	CurrentStep  string                `json:"current_step"`
	PreviousStep string                `json:"previous_step,omitempty"`
	Context      map[string]string     `json:"context,omitempty"`
	Messages     []ConversationMessage `json:"messages"`
	QuoteData    *QuoteData            `json:"quote_data"`
	Metadata     SessionMetadata       `json:"metadata"`
}

// MessageLogLimit bounds the per-session dialogue log. Stuck-detection
// message thresholds must stay below it.
const MessageLogLimit = 200

// AddMessage appends a role-tagged utterance to the dialogue log,
// dropping the oldest entries once the log hits its cap.
func (s *ConversationState) AddMessage(role Role, content string) {
	s.Messages = append(s.Messages, ConversationMessage{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if len(s.Messages) > MessageLogLimit {
		s.Messages = s.Messages[len(s.Messages)-MessageLogLimit:]
	}
}

// Clone returns a deep copy safe to hand to callers for introspection.
func (s *ConversationState) Clone() *ConversationState {
	out := *s

	out.Context = make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		out.Context[k] = v
	}

	out.Messages = append([]ConversationMessage(nil), s.Messages...)
	out.Metadata.Loop.History = append([]string(nil), s.Metadata.Loop.History...)

	if s.QuoteData != nil {
		qd := *s.QuoteData
		qd.Rooms = append([]Room(nil), s.QuoteData.Rooms...)
		if s.QuoteData.Measurements != nil {
			m := *s.QuoteData.Measurements
			qd.Measurements = &m
		}
		if s.QuoteData.Rates != nil {
			r := *s.QuoteData.Rates
			qd.Rates = &r
		}
		if s.QuoteData.Totals != nil {
			t := *s.QuoteData.Totals
			qd.Totals = &t
		}
		out.QuoteData = &qd
	}

	return &out
}
