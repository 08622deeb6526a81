package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paintquote-ai/quote-platform/internal/model"
	"github.com/paintquote-ai/quote-platform/internal/sanitize"
	"github.com/paintquote-ai/quote-platform/pkg/logger"
	"github.com/paintquote-ai/quote-platform/pkg/metrics"
)

// PromptEnricher optionally rewrites a step prompt via a language model.
// It must be side-effect-free with respect to dialogue progression; any
// failure falls back to the static prompt.
type PromptEnricher interface {
	EnrichPrompt(ctx context.Context, prompt string, context map[string]string) (string, error)
}

const (
	loopBreakMessage = "It looks like we're going in circles — let's try something different. You can say \"skip\" to move past this question, \"start over\" to begin again, or \"help\" to reach a person."
	stuckMessage     = "We seem to be having trouble with this one. I can continue with sensible defaults if you say \"skip\", or you can say \"start over\" or \"help\"."
	maxRetryMessage  = "I still couldn't use that answer. You can rephrase it, say \"skip\" to use a default, or \"start over\" to restart the quote."
	handoffMessage   = "No problem — I'll flag this conversation for a team member to pick up. You can keep going in the meantime if you'd like."
	internalMessage  = "Something went wrong on our end. Please restart your quote."
)

var (
	loopSuggestions     = []string{"skip this step", "start over", "get help"}
	stuckSuggestions    = []string{"continue with defaults", "start over", "talk to a person"}
	maxRetrySuggestions = []string{"rephrase your answer", "skip this step", "start over"}
)

// Processor drives the step state machine: normalize, detect anomalies,
// validate, extract, transition. It mutates session state in place; the
// caller owns persistence and per-session locking.
type Processor struct {
	registry   *Registry
	normalizer Normalizer
	loops      *LoopDetector
	stuck      *StuckDetector
	extractor  *Extractor
	finalizer  *Finalizer
	enricher   PromptEnricher
	settings   Settings
	log        *logger.Logger

	enrichTimeout time.Duration
}

// NewProcessor wires the state-machine driver. enricher may be nil.
func NewProcessor(registry *Registry, settings Settings, enricher PromptEnricher, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Global()
	}
	return &Processor{
		registry:      registry,
		normalizer:    NewNormalizer(),
		loops:         NewLoopDetector(),
		stuck:         NewStuckDetector(settings),
		extractor:     NewExtractor(),
		finalizer:     NewFinalizer(settings),
		enricher:      enricher,
		settings:      settings,
		log:           log,
		enrichTimeout: settings.enrichTimeout(),
	}
}

// Finalizer exposes the processor's finalizer for forced completion.
func (p *Processor) Finalizer() *Finalizer {
	return p.finalizer
}

// Process handles one input event against a session.
//
// The only error return is ErrInvalidStep, which signals a registry
// defect; every user-facing outcome, including validation failures and
// anomaly recovery, comes back as a normal ProcessResult.
func (p *Processor) Process(ctx context.Context, state *model.ConversationState, rawInput string) (*model.ProcessResult, error) {
	if StepID(state.CurrentStep) == StepComplete {
		return &model.ProcessResult{
			Success:    true,
			Response:   "Your quote is already complete. Start a new session for another estimate.",
			IsComplete: true,
			Outcome:    model.OutcomeCompleted,
			QuoteData:  state.QuoteData,
		}, nil
	}

	def, ok := p.registry.Step(StepID(state.CurrentStep))
	if !ok {
		p.log.Error("session references unknown step",
			zap.String("session_id", state.SessionID),
			zap.String("step", state.CurrentStep),
		)
		return &model.ProcessResult{
			Response: internalMessage,
			Outcome:  model.OutcomeError,
			Error:    ErrInvalidStep.Error(),
		}, ErrInvalidStep
	}

	state.Metadata.LastActivity = time.Now()

	cleaned := sanitize.Text(rawInput)
	state.AddMessage(model.RoleUser, cleaned)

	normalized := p.normalizer.Normalize(cleaned, def.ID, state.Context)

	// Recovery commands are honored before anything else so an operator
	// who was just offered alternatives can actually take one.
	if state.Metadata.IsStuck || state.Context[ctxRecoveryOffered] == "true" {
		if result, handled, err := p.handleRecoveryCommand(ctx, state, def, normalized); handled {
			return result, err
		}
		delete(state.Context, ctxRecoveryOffered)
	}

	if p.loops.Observe(&state.Metadata, normalized) {
		metrics.LoopsDetected.Inc()
		state.Context[ctxRecoveryOffered] = "true"
		return p.respond(state, &model.ProcessResult{
			Response:         loopBreakMessage,
			Outcome:          model.OutcomeLoopDetected,
			SuggestedActions: loopSuggestions,
		}), nil
	}

	if p.stuck.IsStuck(state) {
		if !state.Metadata.IsStuck {
			metrics.StuckSessions.Inc()
		}
		state.Metadata.IsStuck = true
		state.Context[ctxRecoveryOffered] = "true"
		return p.respond(state, &model.ProcessResult{
			Response:         stuckMessage,
			Outcome:          model.OutcomeStuck,
			SuggestedActions: stuckSuggestions,
		}), nil
	}

	if !def.Validate(normalized, state.Context) {
		state.Metadata.RetryCount++
		metrics.ValidationFailures.WithLabelValues(string(def.ID)).Inc()

		if state.Metadata.RetryCount >= maxRetriesFor(def, state.Metadata.MaxRetries) {
			if def.Fallback != nil {
				def.Fallback(state.QuoteData)
				metrics.FallbacksApplied.WithLabelValues(string(def.ID)).Inc()
				return p.advance(ctx, state, def, model.OutcomeFallbackApplied)
			}
			state.Context[ctxRecoveryOffered] = "true"
			return p.respond(state, &model.ProcessResult{
				Response:         maxRetryMessage,
				Outcome:          model.OutcomeMaxRetriesExceeded,
				SuggestedActions: maxRetrySuggestions,
			}), nil
		}

		return p.respond(state, &model.ProcessResult{
			Response: def.RetryPrompt,
			Outcome:  model.OutcomeValidationFailed,
		}), nil
	}

	state.Metadata.RetryCount = 0
	p.extractor.Extract(def.ID, normalized, state)

	return p.advance(ctx, state, def, model.OutcomeAdvanced)
}

// advance resolves the step's transition and either finalizes the quote
// or moves the session to the next step and emits its prompt.
func (p *Processor) advance(ctx context.Context, state *model.ConversationState, def *StepDefinition, outcome model.Outcome) (*model.ProcessResult, error) {
	state.Metadata.RetryCount = 0
	state.Metadata.IsStuck = false
	delete(state.Context, ctxRecoveryOffered)

	next := def.Transition.Resolve(state.Context)

	if next == StepComplete {
		totals := p.finalizer.Finalize(state.QuoteData)
		state.PreviousStep = state.CurrentStep
		state.CurrentStep = string(StepComplete)
		metrics.StepsCompleted.WithLabelValues(string(def.ID)).Inc()

		return p.respond(state, &model.ProcessResult{
			Success: true,
			Response: fmt.Sprintf(
				"Your quote is ready! The estimated total is $%.2f ($%.2f plus $%.2f tax). We'll send the full breakdown shortly.",
				totals.FinalPrice, totals.Subtotal, totals.Tax,
			),
			IsComplete: true,
			Outcome:    model.OutcomeCompleted,
			QuoteData:  state.QuoteData,
		}), nil
	}

	nextDef, ok := p.registry.Step(next)
	if !ok {
		p.log.Error("transition resolved to unknown step",
			zap.String("session_id", state.SessionID),
			zap.String("from", string(def.ID)),
			zap.String("to", string(next)),
		)
		return &model.ProcessResult{
			Response: internalMessage,
			Outcome:  model.OutcomeError,
			Error:    ErrInvalidStep.Error(),
		}, ErrInvalidStep
	}

	state.PreviousStep = state.CurrentStep
	state.CurrentStep = string(next)
	metrics.StepsCompleted.WithLabelValues(string(def.ID)).Inc()

	return p.respond(state, &model.ProcessResult{
		Success:  true,
		Response: p.stepPrompt(ctx, nextDef, state),
		Outcome:  outcome,
	}), nil
}

// handleRecoveryCommand interprets the alternatives offered after a loop,
// stuck, or retry-exhaustion response. Returns handled=false when the
// input is a normal answer.
func (p *Processor) handleRecoveryCommand(ctx context.Context, state *model.ConversationState, def *StepDefinition, normalized string) (*model.ProcessResult, bool, error) {
	s := strings.ToLower(normalized)

	switch {
	case strings.Contains(s, "skip") || strings.Contains(s, "default"):
		if def.Fallback != nil {
			def.Fallback(state.QuoteData)
			metrics.FallbacksApplied.WithLabelValues(string(def.ID)).Inc()
		}
		result, err := p.advance(ctx, state, def, model.OutcomeFallbackApplied)
		return result, true, err

	case strings.Contains(s, "start over") || strings.Contains(s, "restart"):
		p.resetToInitial(state)
		first := p.registry.First()
		return p.respond(state, &model.ProcessResult{
			Success:  true,
			Response: "Okay, starting fresh. " + p.stepPrompt(ctx, first, state),
			Outcome:  model.OutcomeAdvanced,
		}), true, nil

	case strings.Contains(s, "help") || strings.Contains(s, "human") || strings.Contains(s, "agent") || strings.Contains(s, "person"):
		return p.respond(state, &model.ProcessResult{
			Response:         handoffMessage,
			Outcome:          model.OutcomeStuck,
			SuggestedActions: stuckSuggestions,
		}), true, nil
	}

	return nil, false, nil
}

// resetToInitial rewinds a session to the first step with a fresh quote.
func (p *Processor) resetToInitial(state *model.ConversationState) {
	first := p.registry.First()
	state.PreviousStep = state.CurrentStep
	state.CurrentStep = string(first.ID)
	state.Context = make(map[string]string)
	state.Metadata.RetryCount = 0
	state.Metadata.IsStuck = false
	p.loops.Reset(&state.Metadata)

	fresh := &model.QuoteData{
		ID:        state.QuoteData.ID,
		SessionID: state.SessionID,
		CompanyID: state.CompanyID,
		CreatedAt: time.Now(),
	}
	state.QuoteData = fresh
}

// stepPrompt contextualizes a step's static prompt and, when an enricher
// is configured, lets the language model restate it. Enrichment never
// affects progression; failures fall back to the static text.
func (p *Processor) stepPrompt(ctx context.Context, def *StepDefinition, state *model.ConversationState) string {
	prompt := def.Prompt
	if def.ID == StepProjectType && state.QuoteData.CustomerName != "" {
		prompt = fmt.Sprintf("Thanks, %s! %s", firstName(state.QuoteData.CustomerName), prompt)
	}

	if p.enricher == nil {
		return prompt
	}

	enrichCtx, cancel := context.WithTimeout(ctx, p.enrichTimeout)
	defer cancel()

	enriched, err := p.enricher.EnrichPrompt(enrichCtx, prompt, state.Context)
	if err != nil || strings.TrimSpace(enriched) == "" {
		return prompt
	}
	return enriched
}

// respond records the assistant utterance and returns the result.
func (p *Processor) respond(state *model.ConversationState, result *model.ProcessResult) *model.ProcessResult {
	state.AddMessage(model.RoleAssistant, result.Response)
	return result
}

func firstName(full string) string {
	if fields := strings.Fields(full); len(fields) > 0 {
		return fields[0]
	}
	return full
}
