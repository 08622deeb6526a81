package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paintquote-ai/quote-platform/internal/model"
	"github.com/paintquote-ai/quote-platform/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.QuoteEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *model.QuoteEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) byType(et model.EventType) []*model.QuoteEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*model.QuoteEvent
	for _, e := range p.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

type recordingRepo struct {
	mu     sync.Mutex
	quotes []*model.QuoteData
}

func (r *recordingRepo) SaveQuote(_ context.Context, quote *model.QuoteData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes = append(r.quotes, quote)
	return nil
}

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func newTestManager(t *testing.T, settings Settings, opts ...ManagerOption) (*Manager, *MemoryStore) {
	t.Helper()
	registry := NewRegistry()
	store := NewMemoryStore(registry, settings)
	m := NewManager(store, registry, settings, nopLogger(), opts...)
	t.Cleanup(m.Close)
	return m, store
}

func TestManager_InitializeReturnsPromptAndClone(t *testing.T) {
	pub := &recordingPublisher{}
	m, store := newTestManager(t, DefaultSettings(), WithPublisher(pub))

	state, prompt, err := m.Initialize(context.Background(), "sess-1", "co-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt == "" {
		t.Fatal("expected the first step's prompt")
	}
	if state.CurrentStep != string(StepWelcome) {
		t.Errorf("current step = %q", state.CurrentStep)
	}

	// The returned state is a copy; mutating it must not leak into the store.
	state.QuoteData.CustomerName = "mutated"
	stored, _ := store.Get("sess-1")
	if stored.QuoteData.CustomerName != "" {
		t.Error("Initialize must return a defensive copy")
	}

	if got := pub.byType(model.EventTypeSessionStarted); len(got) != 1 {
		t.Errorf("session_started events = %d, want 1", len(got))
	}
}

func TestManager_FullDialogueEmitsEventsAndPersists(t *testing.T) {
	pub := &recordingPublisher{}
	repo := &recordingRepo{}
	m, _ := newTestManager(t, DefaultSettings(), WithPublisher(pub), WithRepository(repo))

	if _, _, err := m.Initialize(context.Background(), "sess-1", "co-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inputs := []string{
		"Jane Doe",
		"interior",
		"123 Maple Street, Springfield",
		"living room 400 sq ft",
		"standard",
		"none",
		"yes",
	}
	var result *model.ProcessResult
	var err error
	for _, in := range inputs {
		result, err = m.ProcessInput(context.Background(), "sess-1", in)
		if err != nil {
			t.Fatalf("ProcessInput(%q): %v", in, err)
		}
		if !result.Success {
			t.Fatalf("ProcessInput(%q) failed: %+v", in, result)
		}
	}

	if !result.IsComplete {
		t.Fatal("expected completed dialogue")
	}
	if got := pub.byType(model.EventTypeStepCompleted); len(got) != len(inputs) {
		t.Errorf("step_completed events = %d, want %d", len(got), len(inputs))
	}
	if got := pub.byType(model.EventTypeQuoteFinalized); len(got) != 1 {
		t.Fatalf("quote_finalized events = %d, want 1", len(got))
	}

	repo.mu.Lock()
	saved := len(repo.quotes)
	repo.mu.Unlock()
	if saved != 1 {
		t.Errorf("persisted quotes = %d, want 1", saved)
	}
}

func TestManager_ProcessInputUnknownSession(t *testing.T) {
	m, _ := newTestManager(t, DefaultSettings())

	if _, err := m.ProcessInput(context.Background(), "missing", "hello"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_PublisherFailureDoesNotBlockDialogue(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	m, _ := newTestManager(t, DefaultSettings(), WithPublisher(pub))

	if _, _, err := m.Initialize(context.Background(), "sess-1", "co-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := m.ProcessInput(context.Background(), "sess-1", "Jane Doe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Errorf("expected progress despite publish failure, got %+v", result)
	}
}

func TestManager_ForceCompleteFinalizesPartialData(t *testing.T) {
	repo := &recordingRepo{}
	m, store := newTestManager(t, DefaultSettings(), WithRepository(repo))

	m.Initialize(context.Background(), "sess-1", "co-1")
	m.ProcessInput(context.Background(), "sess-1", "Jane Doe")

	quote, err := m.ForceComplete(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !quote.Finalized || quote.Totals == nil || quote.Totals.FinalPrice <= 0 {
		t.Fatalf("expected a priced finalized quote, got %+v", quote)
	}
	if len(quote.Rooms) == 0 {
		t.Error("forced completion must synthesize a room")
	}
	if quote.CustomerName != "Jane Doe" {
		t.Errorf("collected data must survive, got %q", quote.CustomerName)
	}

	stored, _ := store.Get("sess-1")
	if stored.CurrentStep != string(StepComplete) {
		t.Errorf("session step = %q, want complete", stored.CurrentStep)
	}
}

func TestManager_ResetToStep(t *testing.T) {
	m, store := newTestManager(t, DefaultSettings())
	m.Initialize(context.Background(), "sess-1", "co-1")
	m.ProcessInput(context.Background(), "sess-1", "Jane Doe")
	m.ProcessInput(context.Background(), "sess-1", "interior")

	ok, err := m.ResetToStep(context.Background(), "sess-1", string(StepProjectType))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected reset to a known step to succeed")
	}

	stored, _ := store.Get("sess-1")
	if stored.CurrentStep != string(StepProjectType) {
		t.Errorf("current step = %q", stored.CurrentStep)
	}
	if stored.QuoteData.CustomerName != "Jane Doe" {
		t.Error("mid-dialogue reset must keep collected data")
	}
	if stored.Metadata.RetryCount != 0 || stored.Metadata.IsStuck {
		t.Error("reset must clear anomaly state")
	}
}

func TestManager_ResetToFirstStepStartsFresh(t *testing.T) {
	m, store := newTestManager(t, DefaultSettings())
	m.Initialize(context.Background(), "sess-1", "co-1")
	m.ProcessInput(context.Background(), "sess-1", "Jane Doe")

	ok, err := m.ResetToStep(context.Background(), "sess-1", string(StepWelcome))
	if err != nil || !ok {
		t.Fatalf("reset failed: ok=%v err=%v", ok, err)
	}

	stored, _ := store.Get("sess-1")
	if stored.QuoteData.CustomerName != "" {
		t.Error("reset to the first step must start a fresh quote")
	}
}

func TestManager_ResetToUnknownStep(t *testing.T) {
	m, _ := newTestManager(t, DefaultSettings())
	m.Initialize(context.Background(), "sess-1", "co-1")

	ok, err := m.ResetToStep(context.Background(), "sess-1", "no_such_step")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("unknown step must be rejected")
	}
}

func TestManager_CleanupExpiredIsIdempotent(t *testing.T) {
	pub := &recordingPublisher{}
	settings := DefaultSettings()
	settings.MaxConversationTime = time.Minute
	m, store := newTestManager(t, settings, WithPublisher(pub))

	m.Initialize(context.Background(), "stale-1", "co-1")
	m.Initialize(context.Background(), "stale-2", "co-1")
	m.Initialize(context.Background(), "fresh", "co-1")
	for _, id := range []string{"stale-1", "stale-2"} {
		state, _ := store.Get(id)
		state.Metadata.LastActivity = time.Now().Add(-2 * time.Minute)
	}

	if removed := m.CleanupExpired(context.Background()); removed != 2 {
		t.Fatalf("first sweep removed %d, want 2", removed)
	}
	if removed := m.CleanupExpired(context.Background()); removed != 0 {
		t.Fatalf("second sweep removed %d, want 0", removed)
	}
	if store.Len() != 1 {
		t.Errorf("remaining sessions = %d, want 1", store.Len())
	}
	if got := pub.byType(model.EventTypeSessionExpired); len(got) != 2 {
		t.Errorf("session_expired events = %d, want 2", len(got))
	}
}

func TestManager_FinalizedSessionRemovedAfterGrace(t *testing.T) {
	settings := DefaultSettings()
	settings.CompletionGrace = 20 * time.Millisecond
	m, _ := newTestManager(t, settings)

	m.Initialize(context.Background(), "sess-1", "co-1")
	if _, err := m.ForceComplete(context.Background(), "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Readable during the grace period.
	if _, err := m.GetState("sess-1"); err != nil {
		t.Fatalf("expected session readable within grace period, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := m.GetState("sess-1"); errors.Is(err, ErrSessionNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session not removed after grace period")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_InitializeCancelsPendingRemoval(t *testing.T) {
	settings := DefaultSettings()
	settings.CompletionGrace = 30 * time.Millisecond
	m, _ := newTestManager(t, settings)

	m.Initialize(context.Background(), "sess-1", "co-1")
	m.ForceComplete(context.Background(), "sess-1")

	// Restarting the session supersedes the scheduled deletion.
	if _, _, err := m.Initialize(context.Background(), "sess-1", "co-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	state, err := m.GetState("sess-1")
	if err != nil {
		t.Fatalf("restarted session must survive the old grace timer: %v", err)
	}
	if state.CurrentStep != string(StepWelcome) {
		t.Errorf("current step = %q", state.CurrentStep)
	}
}

func TestManager_DeleteRemovesSession(t *testing.T) {
	m, store := newTestManager(t, DefaultSettings())
	m.Initialize(context.Background(), "sess-1", "co-1")

	if err := m.Delete("sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("remaining sessions = %d, want 0", store.Len())
	}
	if _, err := m.GetState("sess-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_LockEntryRemovedAfterLastRelease(t *testing.T) {
	m, _ := newTestManager(t, DefaultSettings())

	unlock := m.lock("sess-1")
	unlock()

	m.lockMu.Lock()
	remaining := len(m.sessionLocks)
	m.lockMu.Unlock()
	if remaining != 0 {
		t.Errorf("lock entries after release = %d, want 0", remaining)
	}
}

func TestManager_SessionLockExcludesAcrossDeletes(t *testing.T) {
	m, _ := newTestManager(t, DefaultSettings())
	m.Initialize(context.Background(), "sess-1", "co-1")

	// Deletes churn the lock entry while other workers hold it; the
	// counter stays exact only if exclusion never lapses.
	const workers = 32
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				m.Delete("sess-1")
				return
			}
			unlock := m.lock("sess-1")
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
			unlock()
		}(i)
	}
	wg.Wait()

	if want := workers - workers/4; counter != want {
		t.Errorf("critical-section increments = %d, want %d", counter, want)
	}
}

func TestManager_ConcurrentSessionsAreIndependent(t *testing.T) {
	m, _ := newTestManager(t, DefaultSettings())

	var wg sync.WaitGroup
	ids := []string{"s1", "s2", "s3", "s4"}
	for _, id := range ids {
		m.Initialize(context.Background(), id, "co-1")
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := m.ProcessInput(context.Background(), id, "Jane Doe"); err != nil {
				t.Errorf("ProcessInput(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		state, err := m.GetState(id)
		if err != nil {
			t.Fatalf("GetState(%s): %v", id, err)
		}
		if state.CurrentStep != string(StepProjectType) {
			t.Errorf("session %s step = %q", id, state.CurrentStep)
		}
	}
}
