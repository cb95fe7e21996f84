package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies sync failures. Callers dispatch on the kind rather than
// on concrete error types.
type ErrKind string

const (
	// ErrKindTransient covers network timeouts, 5xx responses, rate limits
	// and malformed payloads: retryable, counts toward the circuit breaker.
	ErrKindTransient ErrKind = "transient"
	// ErrKindAuth covers invalid or revoked credentials: never retried
	// automatically, requires manual reconnection.
	ErrKindAuth ErrKind = "auth"
	// ErrKindOrder covers per-order mapping and business failures: isolated
	// to a single order, never aborts the batch.
	ErrKindOrder ErrKind = "order"
	// ErrKindConflict marks a ledger race on double-processing: a benign
	// already-processed outcome, not a failure.
	ErrKindConflict ErrKind = "conflict"
	// ErrKindDisabled marks a sync attempt against a deactivated connection.
	ErrKindDisabled ErrKind = "disabled"
)

// SyncError is the single error type of the sync core: a kind for dispatch,
// a machine-readable code, and a human-readable message.
type SyncError struct {
	Kind    ErrKind
	Code    string
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// TransientError wraps a retryable gateway failure.
func TransientError(code, message string, err error) *SyncError {
	return &SyncError{Kind: ErrKindTransient, Code: code, Message: message, Err: err}
}

// AuthError wraps a permanent credential failure.
func AuthError(code, message string, err error) *SyncError {
	return &SyncError{Kind: ErrKindAuth, Code: code, Message: message, Err: err}
}

// OrderError wraps a per-order mapping or business failure.
func OrderError(code, message string, err error) *SyncError {
	return &SyncError{Kind: ErrKindOrder, Code: code, Message: message, Err: err}
}

// ConflictError marks a ledger conflict on concurrent double-processing.
func ConflictError(message string) *SyncError {
	return &SyncError{Kind: ErrKindConflict, Code: "ledger_conflict", Message: message}
}

// KindOf extracts the error kind, defaulting unclassified errors to
// transient so unknown failures stay retryable rather than silently fatal.
func KindOf(err error) ErrKind {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind
	}
	return ErrKindTransient
}

// IsAuth reports whether err is a permanent credential failure.
func IsAuth(err error) bool {
	return KindOf(err) == ErrKindAuth
}

// IsConflict reports whether err is a benign ledger conflict.
func IsConflict(err error) bool {
	var syncErr *SyncError
	return errors.As(err, &syncErr) && syncErr.Kind == ErrKindConflict
}

// ErrConnectionNotFound is returned by repositories when no connection
// matches the requested ID.
var ErrConnectionNotFound = errors.New("integration connection not found")

// ErrRunInProgress is returned when a sync run is requested while another
// run for the same integration still holds the run lock.
var ErrRunInProgress = errors.New("sync run already in progress for this integration")

// ErrInvalidSettings is returned when a settings patch carries out-of-range
// values. The patch is rejected whole, never clamped.
var ErrInvalidSettings = errors.New("invalid integration settings")
