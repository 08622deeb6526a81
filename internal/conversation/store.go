package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paintquote-ai/quote-platform/internal/model"
)

// SessionStore is the repository for per-session conversation state. The
// backing store is swappable; the engine only relies on this contract.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	Create(sessionID, companyID string) (*model.ConversationState, error)
	Get(sessionID string) (*model.ConversationState, error)
	Put(sessionID string, state *model.ConversationState) error
	Delete(sessionID string) error
	ListExpired(now time.Time) []string
	Len() int
}

// MemoryStore keeps conversation state in process memory.
type MemoryStore struct {
	maxAge    time.Duration
	firstStep StepID
	settings  Settings

	mu       sync.RWMutex
	sessions map[string]*model.ConversationState
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(registry *Registry, settings Settings) *MemoryStore {
	maxAge := settings.MaxConversationTime
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	return &MemoryStore{
		maxAge:    maxAge,
		firstStep: registry.First().ID,
		settings:  settings,
		sessions:  make(map[string]*model.ConversationState),
	}
}

// Create initializes fresh state for a session, replacing any previous
// state under the same id.
func (s *MemoryStore) Create(sessionID, companyID string) (*model.ConversationState, error) {
	now := time.Now()
	state := &model.ConversationState{
		SessionID:   sessionID,
		CompanyID:   companyID,
		CurrentStep: string(s.firstStep),
		Context:     make(map[string]string),
		QuoteData: &model.QuoteData{
			ID:        uuid.Must(uuid.NewV7()).String(),
			SessionID: sessionID,
			CompanyID: companyID,
			CreatedAt: now,
		},
		Metadata: model.SessionMetadata{
			StartTime:    now,
			LastActivity: now,
			MaxRetries:   s.settings.MaxRetries,
		},
	}

	s.mu.Lock()
	s.sessions[sessionID] = state
	s.mu.Unlock()

	return state, nil
}

// Get returns the state for a session. Expired sessions are removed
// lazily and reported as expired, never returned as valid.
func (s *MemoryStore) Get(sessionID string) (*model.ConversationState, error) {
	s.mu.RLock()
	state, exists := s.sessions[sessionID]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrSessionNotFound
	}

	if time.Since(state.Metadata.LastActivity) > s.maxAge {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, ErrSessionExpired
	}

	return state, nil
}

// Put writes back mutated session state.
func (s *MemoryStore) Put(sessionID string, state *model.ConversationState) error {
	s.mu.Lock()
	s.sessions[sessionID] = state
	s.mu.Unlock()
	return nil
}

// Delete removes a session. Deleting an absent session is a no-op.
func (s *MemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// ListExpired returns ids of sessions idle past the maximum conversation
// time as of now.
func (s *MemoryStore) ListExpired(now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []string
	for id, state := range s.sessions {
		if now.Sub(state.Metadata.LastActivity) > s.maxAge {
			expired = append(expired, id)
		}
	}
	return expired
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
