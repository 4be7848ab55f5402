package review_session

import (
	"errors"
	"fmt"
)

// Common error types for the review session service.
var (
	// ErrNoDueCards indicates that no cards in the deck scope are due.
	ErrNoDueCards = errors.New("no cards due for review")

	// ErrNoActiveSession indicates an operation on an inactive session.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSessionActive indicates a start while another session is active.
	ErrSessionActive = errors.New("a session is already active")

	// ErrSessionCompleted indicates a rating on a session whose queue has
	// already emptied.
	ErrSessionCompleted = errors.New("session already completed")

	// ErrCardNotRevealed indicates a rating before the current card's last
	// side was shown.
	ErrCardNotRevealed = errors.New("card not fully revealed")

	// ErrInvalidRating indicates an out-of-range rating value.
	ErrInvalidRating = errors.New("invalid rating")
)

// PersistenceError wraps an I/O failure from the card state store or the
// review log. When Op is "set_state" the failed rating had no effect; when
// Op is "append_log" the scheduling change stands and only the audit entry
// is missing.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
