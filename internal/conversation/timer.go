package conversation

import (
	"fmt"
	"sync"
	"time"
)

// RemovalScheduler runs deferred cleanup actions, such as deleting a
// finalized session after its grace period. Each scheduled action gets a
// token the caller can cancel, so a reset cannot race a pending removal.
type RemovalScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	nextID int64
}

// NewRemovalScheduler creates an empty scheduler.
func NewRemovalScheduler() *RemovalScheduler {
	return &RemovalScheduler{
		timers: make(map[string]*time.Timer),
	}
}

// ScheduleAfter runs fn after delay and returns a cancellation token.
func (s *RemovalScheduler) ScheduleAfter(delay time.Duration, fn func()) string {
	s.mu.Lock()
	s.nextID++
	token := fmt.Sprintf("removal_%d", s.nextID)
	s.mu.Unlock()

	timer := time.AfterFunc(delay, func() {
		fn()
		s.mu.Lock()
		delete(s.timers, token)
		s.mu.Unlock()
	})

	s.mu.Lock()
	s.timers[token] = timer
	s.mu.Unlock()

	return token
}

// Cancel stops a scheduled action. Unknown tokens are ignored.
func (s *RemovalScheduler) Cancel(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, exists := s.timers[token]; exists {
		timer.Stop()
		delete(s.timers, token)
	}
}

// Stop cancels everything still pending.
func (s *RemovalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, timer := range s.timers {
		timer.Stop()
		delete(s.timers, token)
	}
}

// Pending returns the number of scheduled actions, for introspection.
func (s *RemovalScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
