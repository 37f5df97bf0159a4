// Package errors provides centralized error definitions for the tribunal
// codebase. It defines the deliberation error taxonomy (inactive session,
// validation failure, protocol violation, round limit) along with
// sentinel errors and classification helpers.
//
// All failures are local to a single call: nothing here is retried
// automatically, and there is no cross-call rollback. Callers inspect
// state and submit a corrected action.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions so callers can import only this
// package for error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors.
var (
	// ErrInactiveSession indicates a mutating call arrived when no
	// deliberation session is active.
	ErrInactiveSession = New("session is not active")

	// ErrSessionExists indicates an attempt to initialize over an
	// existing active session.
	ErrSessionExists = New("session already exists")

	// ErrSessionCorrupted indicates persisted session data could not
	// be decoded.
	ErrSessionCorrupted = New("session data corrupted")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = New("not found")

	// ErrTerminalState indicates an event was triggered while the state
	// machine sits in a terminal state.
	ErrTerminalState = New("state is terminal")

	// ErrNoTransition indicates no transition is wired for the
	// triggered event from the current state.
	ErrNoTransition = New("no transition for event")

	// ErrGuardsBlocked indicates transitions exist for the event but
	// every guard condition rejected it.
	ErrGuardsBlocked = New("guard conditions blocked transition")

	// ErrRoundLimit indicates the session has exhausted its round
	// budget; the session is finalized as a side effect.
	ErrRoundLimit = New("maximum rounds reached")
)

// ValidationError reports a message that failed protocol validation.
// The message is never persisted when validation fails.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error returns the combined validation failure text.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// NewValidationError creates a ValidationError from individual findings.
func NewValidationError(errs, warnings []string) *ValidationError {
	return &ValidationError{Errors: errs, Warnings: warnings}
}

// ProtocolError reports an illegal state machine operation. It carries
// the attempted event and the state it was attempted from, and wraps one
// of ErrTerminalState, ErrNoTransition, or ErrGuardsBlocked so the three
// failure modes stay distinguishable with errors.Is.
type ProtocolError struct {
	Event string
	State string
	cause error
}

// NewProtocolError creates a ProtocolError wrapping cause.
func NewProtocolError(event, state string, cause error) *ProtocolError {
	return &ProtocolError{Event: event, State: state, cause: cause}
}

// Error describes the violation with its event and state context.
func (e *ProtocolError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("protocol violation in state %q: %v", e.State, e.cause)
	}
	return fmt.Sprintf("protocol violation: event %q in state %q: %v", e.Event, e.State, e.cause)
}

// Unwrap returns the underlying sentinel.
func (e *ProtocolError) Unwrap() error { return e.cause }

// RoundLimitError reports that new_round was called with the round
// budget already spent. The session is finalized with outcome
// "max_rounds_reached" before this error is returned.
type RoundLimitError struct {
	MaxRounds int
}

// Error describes the exhausted budget.
func (e *RoundLimitError) Error() string {
	return fmt.Sprintf("maximum rounds (%d) reached; session finalized", e.MaxRounds)
}

// Unwrap lets errors.Is match ErrRoundLimit.
func (e *RoundLimitError) Unwrap() error { return ErrRoundLimit }

// IsProtocol reports whether err is any protocol violation.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return As(err, &pe)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return As(err, &ve)
}

// IsFatalToSession reports whether err ended the session itself rather
// than just the failing call.
func IsFatalToSession(err error) bool {
	return Is(err, ErrRoundLimit)
}
