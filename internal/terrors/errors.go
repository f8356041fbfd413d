// Package terrors defines the error taxonomy shared by every component of
// torusdb: the triple store, the index maintainer, the query planner, and
// the CDC pipeline coordinator all classify failures into one of a small,
// fixed set of kinds so callers can make a single retry/propagate decision
// regardless of which layer raised the error.
//
// Callers should classify errors with errors.As, never by comparing
// error strings:
//
//	var verr *terrors.ValidationError
//	if errors.As(err, &verr) {
//	    // fix the input, do not retry
//	}
//
// Transient and Fatal are sentinel values (errors.Is) since they carry no
// payload beyond a message; the rest are typed structs carrying the detail
// a caller needs to act (the offending field, the missing key, the
// conflicting sequence).
package terrors

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input: a predicate containing ':', a
// non-absolute EntityId, an out-of-range GEO_POINT, an oversized payload,
// or any other caller-fixable defect. Terminal — the caller must correct
// the input before retrying.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports that a referenced entity, triple, or shard is
// absent. Terminal unless the caller creates the missing thing.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, e.Key)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// ConflictError reports an out-of-order CDC sequence or an attempt to
// create an already-existing entity. Terminal.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// NewConflict builds a ConflictError.
func NewConflict(reason string) error {
	return &ConflictError{Reason: reason}
}

// Sentinel kinds that carry no structured payload.
var (
	// ErrUnauthorized reports a missing or invalid credential. Terminal.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden reports a permission check failure. Terminal.
	ErrForbidden = errors.New("forbidden")
	// ErrTransient reports a retryable failure: network, timeout,
	// storage-engine retryable error, or overload signal. Callers may
	// retry with backoff; idempotent client RPCs retry automatically.
	ErrTransient = errors.New("transient")
	// ErrFatal reports an invariant violation (bloom-filter corruption,
	// schema mismatch). The caller must escalate; a shard should refuse
	// further writes until an operator intervenes.
	ErrFatal = errors.New("fatal")
)

// Transient wraps an underlying error as retryable, preserving it for
// errors.Unwrap while making errors.Is(err, ErrTransient) true.
func Transient(cause error) error {
	if cause == nil {
		return ErrTransient
	}
	return &wrapped{sentinel: ErrTransient, cause: cause}
}

// Fatal wraps an underlying error as an invariant violation.
func Fatal(cause error) error {
	if cause == nil {
		return ErrFatal
	}
	return &wrapped{sentinel: ErrFatal, cause: cause}
}

type wrapped struct {
	sentinel error
	cause    error
}

func (w *wrapped) Error() string { return fmt.Sprintf("%v: %v", w.sentinel, w.cause) }
func (w *wrapped) Unwrap() error { return w.cause }
func (w *wrapped) Is(target error) bool { return target == w.sentinel }

// IsTerminal reports whether err belongs to a class the caller must not
// retry without changing something (validation, not-found, conflict,
// auth, fatal). It returns false for Transient and for unrecognized
// errors, matching the conservative default of "when in doubt, let the
// caller's own retry policy decide".
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	var verr *ValidationError
	var nerr *NotFoundError
	var cerr *ConflictError
	switch {
	case errors.As(err, &verr), errors.As(err, &nerr), errors.As(err, &cerr):
		return true
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden), errors.Is(err, ErrFatal):
		return true
	default:
		return false
	}
}
