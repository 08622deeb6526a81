package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paintquote-ai/quote-platform/internal/model"
	"github.com/paintquote-ai/quote-platform/pkg/logger"
	"github.com/paintquote-ai/quote-platform/pkg/metrics"
)

// EventPublisher receives quote lifecycle events. Publishing is
// best-effort; failures never block the dialogue.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.QuoteEvent) error
}

// QuoteRepository receives finalized quotes for durable storage. The
// engine never reads them back.
type QuoteRepository interface {
	SaveQuote(ctx context.Context, quote *model.QuoteData) error
}

// Manager is the conversation facade: it owns session lookup, per-session
// mutual exclusion, and the side effects around the step processor.
type Manager struct {
	store     SessionStore
	registry  *Registry
	processor *Processor
	publisher EventPublisher
	repo      QuoteRepository
	scheduler *RemovalScheduler
	settings  Settings
	log       *logger.Logger

	// sessionLocks serializes operations per session id; cross-session
	// calls proceed in parallel. Entries are reference counted and removed
	// only when the last holder releases, so a concurrent caller can never
	// mint a second mutex for a session that is still locked.
	lockMu       sync.Mutex
	sessionLocks map[string]*sessionLock

	// removalTokens tracks pending grace-period deletions by session id.
	removalMu     sync.Mutex
	removalTokens map[string]string
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// ManagerOption customizes optional collaborators.
type ManagerOption func(*Manager)

// WithPublisher attaches a lifecycle event publisher.
func WithPublisher(p EventPublisher) ManagerOption {
	return func(m *Manager) { m.publisher = p }
}

// WithRepository attaches durable quote storage.
func WithRepository(r QuoteRepository) ManagerOption {
	return func(m *Manager) { m.repo = r }
}

// WithEnricher attaches an optional LLM prompt enricher.
func WithEnricher(e PromptEnricher) ManagerOption {
	return func(m *Manager) { m.processor.enricher = e }
}

// NewManager wires a conversation manager over a session store.
func NewManager(store SessionStore, registry *Registry, settings Settings, log *logger.Logger, opts ...ManagerOption) *Manager {
	if log == nil {
		log = logger.Global()
	}
	m := &Manager{
		store:         store,
		registry:      registry,
		processor:     NewProcessor(registry, settings, nil, log),
		scheduler:     NewRemovalScheduler(),
		settings:      settings,
		log:           log,
		sessionLocks:  make(map[string]*sessionLock),
		removalTokens: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize creates (or recreates) a session and returns its state plus
// the first step's prompt.
func (m *Manager) Initialize(ctx context.Context, sessionID, companyID string) (*model.ConversationState, string, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	m.cancelRemoval(sessionID)

	state, err := m.store.Create(sessionID, companyID)
	if err != nil {
		return nil, "", err
	}

	first := m.registry.First()
	prompt := m.processor.stepPrompt(ctx, first, state)
	state.AddMessage(model.RoleAssistant, prompt)
	if err := m.store.Put(sessionID, state); err != nil {
		return nil, "", err
	}

	metrics.SessionsStarted.WithLabelValues(companyID).Inc()
	metrics.SessionsActive.Set(float64(m.store.Len()))

	m.publish(ctx, &model.QuoteEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		CompanyID: companyID,
		Type:      model.EventTypeSessionStarted,
		Step:      string(first.ID),
		CreatedAt: time.Now(),
	})

	m.log.WithSession(sessionID, companyID).Info("session initialized")
	return state.Clone(), prompt, nil
}

// ProcessInput feeds one operator utterance through the step machine.
func (m *Manager) ProcessInput(ctx context.Context, sessionID, rawText string) (*model.ProcessResult, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	state, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	stepBefore := state.CurrentStep
	result, procErr := m.processor.Process(ctx, state, rawText)

	if putErr := m.store.Put(sessionID, state); putErr != nil {
		return nil, putErr
	}

	if procErr != nil {
		// Registry defect; already logged by the processor.
		return result, procErr
	}

	if result.Success && state.CurrentStep != stepBefore {
		m.publish(ctx, &model.QuoteEvent{
			ID:        uuid.Must(uuid.NewV7()).String(),
			SessionID: sessionID,
			CompanyID: state.CompanyID,
			Type:      model.EventTypeStepCompleted,
			Step:      stepBefore,
			CreatedAt: time.Now(),
		})
	}

	if result.IsComplete && result.QuoteData != nil && result.QuoteData.Finalized {
		m.onFinalized(ctx, state, result.QuoteData, "dialogue")
	}

	return result, nil
}

// ResetToStep rewinds a session to a named step, clearing anomaly state.
// Collected quote data is kept; resetting to the first step starts a
// fresh quote.
func (m *Manager) ResetToStep(ctx context.Context, sessionID string, stepID string) (bool, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	state, err := m.store.Get(sessionID)
	if err != nil {
		return false, err
	}

	def, ok := m.registry.Step(StepID(stepID))
	if !ok {
		return false, nil
	}

	m.cancelRemoval(sessionID)

	if def.ID == m.registry.First().ID {
		m.processor.resetToInitial(state)
	} else {
		state.PreviousStep = state.CurrentStep
		state.CurrentStep = string(def.ID)
		state.Metadata.RetryCount = 0
		state.Metadata.IsStuck = false
		delete(state.Context, ctxRecoveryOffered)
		m.processor.loops.Reset(&state.Metadata)
	}
	state.Metadata.LastActivity = time.Now()
	state.AddMessage(model.RoleAssistant, m.processor.stepPrompt(ctx, def, state))

	if err := m.store.Put(sessionID, state); err != nil {
		return false, err
	}

	m.publish(ctx, &model.QuoteEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		CompanyID: state.CompanyID,
		Type:      model.EventTypeSessionReset,
		Step:      stepID,
		CreatedAt: time.Now(),
	})

	m.log.WithSession(sessionID, state.CompanyID).Info("session reset", zap.String("step", stepID))
	return true, nil
}

// ForceComplete finalizes a session with whatever data exists, bypassing
// remaining steps. Returns nil when the session is unknown.
func (m *Manager) ForceComplete(ctx context.Context, sessionID string) (*model.QuoteData, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	state, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	m.processor.Finalizer().Finalize(state.QuoteData)
	state.PreviousStep = state.CurrentStep
	state.CurrentStep = string(StepComplete)
	state.Metadata.LastActivity = time.Now()

	if err := m.store.Put(sessionID, state); err != nil {
		return nil, err
	}

	m.onFinalized(ctx, state, state.QuoteData, "forced")

	return state.QuoteData, nil
}

// GetState returns a read-only copy of a session's state.
func (m *Manager) GetState(sessionID string) (*model.ConversationState, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	state, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// Delete removes a session immediately.
func (m *Manager) Delete(sessionID string) error {
	unlock := m.lock(sessionID)
	defer unlock()

	m.cancelRemoval(sessionID)
	err := m.store.Delete(sessionID)
	metrics.SessionsActive.Set(float64(m.store.Len()))
	return err
}

// CleanupExpired removes all expired sessions and returns the count.
// Safe to call repeatedly; a second sweep with no new activity is a
// no-op.
func (m *Manager) CleanupExpired(ctx context.Context) int {
	expired := m.store.ListExpired(time.Now())
	removed := 0
	for _, sessionID := range expired {
		unlock := m.lock(sessionID)
		m.cancelRemoval(sessionID)
		if err := m.store.Delete(sessionID); err == nil {
			removed++
		}
		unlock()

		m.publish(ctx, &model.QuoteEvent{
			ID:        uuid.Must(uuid.NewV7()).String(),
			SessionID: sessionID,
			Type:      model.EventTypeSessionExpired,
			CreatedAt: time.Now(),
		})
	}

	if removed > 0 {
		metrics.SessionsExpired.Add(float64(removed))
		m.log.Info("expired sessions removed", zap.Int("count", removed))
	}
	metrics.SessionsActive.Set(float64(m.store.Len()))
	return removed
}

// Close stops pending removal timers.
func (m *Manager) Close() {
	m.scheduler.Stop()
}

// onFinalized handles the side effects of completion: persistence, the
// finalized event, and the grace-period removal timer. Caller holds the
// session lock.
func (m *Manager) onFinalized(ctx context.Context, state *model.ConversationState, quote *model.QuoteData, mode string) {
	log := m.log.WithSession(state.SessionID, state.CompanyID)

	if m.repo != nil {
		if err := m.repo.SaveQuote(ctx, quote); err != nil {
			log.Error("failed to persist finalized quote", zap.Error(err))
		}
	}

	m.publish(ctx, &model.QuoteEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: state.SessionID,
		CompanyID: state.CompanyID,
		Type:      model.EventTypeQuoteFinalized,
		Quote:     quote,
		CreatedAt: time.Now(),
	})

	if quote.Totals != nil {
		metrics.RecordFinalized(state.CompanyID, mode, quote.Totals.FinalPrice)
	}

	m.scheduleRemoval(state.SessionID)
	log.Info("quote finalized", zap.String("mode", mode))
}

// scheduleRemoval arranges deletion after the completion grace period so
// the finalized session stays readable for a final fetch.
func (m *Manager) scheduleRemoval(sessionID string) {
	m.cancelRemoval(sessionID)

	grace := m.settings.CompletionGrace
	if grace <= 0 {
		grace = 5 * time.Minute
	}

	token := m.scheduler.ScheduleAfter(grace, func() {
		unlock := m.lock(sessionID)
		m.store.Delete(sessionID)
		unlock()
		metrics.SessionsActive.Set(float64(m.store.Len()))
	})

	m.removalMu.Lock()
	m.removalTokens[sessionID] = token
	m.removalMu.Unlock()
}

func (m *Manager) cancelRemoval(sessionID string) {
	m.removalMu.Lock()
	token, exists := m.removalTokens[sessionID]
	if exists {
		delete(m.removalTokens, sessionID)
	}
	m.removalMu.Unlock()

	if exists {
		m.scheduler.Cancel(token)
	}
}

func (m *Manager) publish(ctx context.Context, event *model.QuoteEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.log.Warn("failed to publish quote event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func (m *Manager) lock(sessionID string) func() {
	m.lockMu.Lock()
	l, ok := m.sessionLocks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.sessionLocks[sessionID] = l
	}
	l.refs++
	m.lockMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.lockMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.sessionLocks, sessionID)
		}
		m.lockMu.Unlock()
	}
}
