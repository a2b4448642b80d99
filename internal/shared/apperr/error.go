// Package apperr defines the closed error-kind taxonomy shared by every
// orchestrator command and adapter.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of a fixed set of error classifications. It is not a Go type
// hierarchy — callers switch on Kind, never on concrete error types.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindIllegalTransition Kind = "IllegalTransition"
	KindInvalidInput      Kind = "InvalidInput"
	KindNoFeasibleSchedule Kind = "NoFeasibleSchedule"
	KindConflict          Kind = "Conflict"
	KindUnauthorized      Kind = "Unauthorized"
	KindTransient         Kind = "Transient"
	KindFatal             Kind = "Fatal"
)

// Error is the concrete error value carried across every orchestrator and
// adapter boundary. Message must never include tokens, stack traces, or
// internal identifiers other than the offending aggregate id.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around a causing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, err: cause}
}

func NotFound(message string) *Error            { return New(KindNotFound, message) }
func IllegalTransition(message string) *Error   { return New(KindIllegalTransition, message) }
func InvalidInput(message string) *Error        { return New(KindInvalidInput, message) }
func NoFeasibleSchedule(message string) *Error  { return New(KindNoFeasibleSchedule, message) }
func Conflict(message string) *Error            { return New(KindConflict, message) }
func Unauthorized(message string) *Error        { return New(KindUnauthorized, message) }
func Transient(message string, cause error) *Error {
	return Wrap(KindTransient, message, cause)
}
func Fatal(message string, cause error) *Error { return Wrap(KindFatal, message, cause) }

// KindOf extracts the Kind of err, defaulting to Fatal for errors that were
// never classified — an unclassified error at a boundary is itself a bug.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindFatal
}

// IsRecoverable reports whether the orchestrator may swallow err and
// continue (only Transient calendar/meeting-link failures qualify).
func IsRecoverable(err error) bool {
	return KindOf(err) == KindTransient
}
