// Package conversation implements the guided quote-collection dialogue:
// a step-state machine with loop/stuck detection, retry fallbacks, and
// one-time finalization of collected data into priced totals.
package conversation

import (
	"errors"
)

var (
	// ErrSessionNotFound is returned when no session exists for an id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session's last activity is older
	// than the configured maximum conversation time. The caller must
	// reinitialize.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidStep indicates the session references a step the registry
	// does not define. This is a configuration defect, not user error.
	ErrInvalidStep = errors.New("invalid step")
)
