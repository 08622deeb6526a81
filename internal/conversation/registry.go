package conversation

import (
	"github.com/paintquote-ai/quote-platform/internal/model"
)

// StepID names a dialogue step.
type StepID string

// Dialogue steps in their default order. StepComplete is the terminal
// marker, not a registry entry.
const (
	StepWelcome         StepID = "welcome"
	StepProjectType     StepID = "project_type"
	StepAddress         StepID = "address"
	StepRooms           StepID = "rooms"
	StepPaintQuality    StepID = "paint_quality"
	StepSpecialRequests StepID = "special_requests"
	StepConfirmation    StepID = "confirmation"
	StepComplete        StepID = "complete"
)

// Context keys written by extraction and read by normalization/transitions.
const (
	ctxSuggestedProjectType  = "suggested_project_type"
	ctxSuggestedPaintQuality = "suggested_paint_quality"
	ctxConfirmed             = "confirmed"
	ctxRecoveryOffered       = "recovery_offered"
)

// Transition is a tagged next-step rule: a fixed target, or a pure
// function of the session context when Compute is set.
type Transition struct {
	Next    StepID
	Compute func(context map[string]string) StepID
}

// Resolve evaluates the transition against the session context.
func (t Transition) Resolve(context map[string]string) StepID {
	if t.Compute != nil {
		return t.Compute(context)
	}
	return t.Next
}

// StepDefinition is one immutable entry in the step registry.
type StepDefinition struct {
	ID          StepID
	Name        string
	Prompt      string
	RetryPrompt string
	Required    bool
	MaxRetries  int

	// Validate gates progress; it sees the normalized, sanitized input.
	Validate func(input string, context map[string]string) bool

	// Fallback, when present, merges default values into the quote after
	// retry exhaustion so the dialogue can move on.
	Fallback func(q *model.QuoteData)

	Transition Transition
}

// Registry is the static, ordered definition of dialogue steps.
type Registry struct {
	steps map[StepID]*StepDefinition
	order []StepID
}

// NewRegistry builds the painting-quote step table.
func NewRegistry() *Registry {
	defs := []*StepDefinition{
		{
			ID:          StepWelcome,
			Name:        "Welcome",
			Prompt:      "Hi! I can put together a painting quote for you in a few questions. First, what's your name?",
			RetryPrompt: "Sorry, I didn't catch a name there. Could you tell me your name?",
			Required:    true,
			MaxRetries:  3,
			Validate: func(input string, _ map[string]string) bool {
				return validName(input)
			},
			Transition: Transition{Next: StepProjectType},
		},
		{
			ID:          StepProjectType,
			Name:        "Project type",
			Prompt:      "Great! Is this an interior job, an exterior job, or both?",
			RetryPrompt: "I need to know the scope: interior, exterior, or both?",
			Required:    true,
			MaxRetries:  3,
			Validate: func(input string, _ map[string]string) bool {
				return matchProjectType(input) != ""
			},
			Fallback: func(q *model.QuoteData) {
				q.ProjectType = model.ProjectTypeInterior
			},
			Transition: Transition{Next: StepAddress},
		},
		{
			ID:          StepAddress,
			Name:        "Address",
			Prompt:      "Where is the property? A street address is perfect.",
			RetryPrompt: "That doesn't look like an address. Could you give me the street address of the property?",
			Required:    true,
			MaxRetries:  3,
			Validate: func(input string, _ map[string]string) bool {
				return validAddress(input)
			},
			Transition: Transition{Next: StepRooms},
		},
		{
			ID:          StepRooms,
			Name:        "Rooms",
			Prompt:      "Which rooms or areas are we painting? Square footage helps, e.g. \"living room 400 sq ft, two bedrooms 150 sq ft each\".",
			RetryPrompt: "Could you list the rooms or areas to paint? Even a rough size like \"kitchen, about 200 sq ft\" works.",
			Required:    true,
			MaxRetries:  3,
			Validate: func(input string, _ map[string]string) bool {
				return roomsPlausible(input)
			},
			Fallback: func(q *model.QuoteData) {
				q.Rooms = append(q.Rooms, defaultRoom())
			},
			Transition: Transition{Next: StepPaintQuality},
		},
		{
			ID:          StepPaintQuality,
			Name:        "Paint quality",
			Prompt:      "What paint tier would you like: economy, standard, premium, or luxury?",
			RetryPrompt: "We carry economy, standard, premium, and luxury tiers. Which would you like?",
			MaxRetries:  2,
			Validate: func(input string, _ map[string]string) bool {
				return matchPaintQuality(input) != ""
			},
			Fallback: func(q *model.QuoteData) {
				q.PaintQuality = model.PaintQualityStandard
			},
			Transition: Transition{Next: StepSpecialRequests},
		},
		{
			ID:          StepSpecialRequests,
			Name:        "Special requests",
			Prompt:      "Any special requests or things we should know about? Say \"none\" if not.",
			RetryPrompt: "Anything else we should know? \"None\" is a fine answer.",
			MaxRetries:  2,
			Validate: func(input string, _ map[string]string) bool {
				return input != ""
			},
			Transition: Transition{Next: StepConfirmation},
		},
		{
			ID:          StepConfirmation,
			Name:        "Confirmation",
			Prompt:      "That's everything I need. Shall I prepare your quote now? (yes to finish, no to change the room list)",
			RetryPrompt: "Just a yes or no: should I prepare the quote with what we have?",
			Required:    true,
			MaxRetries:  3,
			Validate: func(input string, _ map[string]string) bool {
				return isAffirmation(input) || isNegation(input)
			},
			Fallback: func(q *model.QuoteData) {
				// Exhausted confirmation defaults to proceeding.
			},
			Transition: Transition{
				Compute: func(context map[string]string) StepID {
					if context[ctxConfirmed] == "false" {
						return StepRooms
					}
					return StepComplete
				},
			},
		},
	}

	r := &Registry{steps: make(map[StepID]*StepDefinition, len(defs))}
	for _, d := range defs {
		r.steps[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// Step looks up a step definition by id.
func (r *Registry) Step(id StepID) (*StepDefinition, bool) {
	d, ok := r.steps[id]
	return d, ok
}

// First returns the initial step of the dialogue.
func (r *Registry) First() *StepDefinition {
	return r.steps[r.order[0]]
}

// Order returns step ids in dialogue order.
func (r *Registry) Order() []StepID {
	return append([]StepID(nil), r.order...)
}

// maxRetriesFor returns the step's retry ceiling, falling back to the
// session-wide default when the step declares none.
func maxRetriesFor(def *StepDefinition, sessionDefault int) int {
	if def.MaxRetries > 0 {
		return def.MaxRetries
	}
	if sessionDefault > 0 {
		return sessionDefault
	}
	return 3
}
