package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's error taxonomy. Callers classify
// failures with errors.Is against these sentinels; the concrete types below
// carry the detail.
var (
	// ErrNotFound indicates an unknown tender, submission, or dispute id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a business-rule rejection: publishing a
	// non-rank-1 submission, resolving a resolved dispute, or filing a
	// dispute past its window. Distinct from a system fault.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConcurrencyConflict indicates that a compare-and-swap update lost a
	// race. The operation may be retried against fresh state.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrExternalService indicates the scoring oracle was unreachable or
	// returned unusable output. Never retried automatically.
	ErrExternalService = errors.New("external service failure")
)

// ValidationError reports one or more synchronous input rejections.
// Nothing carrying a ValidationError is ever persisted.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the individual validation failure messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError appends a validation failure message.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors reports whether any failures were recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates an empty ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}

// NotFoundError identifies a missing record by kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes NotFoundError match ErrNotFound under errors.Is.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidTransitionError describes a rejected state change. From and To are
// empty when the rejection is about a guard condition (rank, window) rather
// than the transition table itself.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.From != "" || e.To != "" {
		return fmt.Sprintf("%s %q: cannot transition from %q to %q: %s", e.Entity, e.ID, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Entity, e.ID, e.Reason)
}

// Is makes InvalidTransitionError match ErrInvalidTransition under errors.Is.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ConflictError reports a lost compare-and-swap race on an aggregate.
// The loser receives this error and may retry with fresh state; it is never
// silently overwritten.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %q: %s", e.Entity, e.ID, e.Reason)
}

// Is makes ConflictError match ErrConcurrencyConflict under errors.Is.
func (e *ConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }

// Retryable reports that the conflicting operation may be retried.
func (e *ConflictError) Retryable() bool { return true }

// ExternalServiceError wraps a failure from an external collaborator,
// most commonly the scoring oracle. Callers surface it as "AI evaluation
// unavailable" and must not fabricate a fallback score.
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As chains.
func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Is makes ExternalServiceError match ErrExternalService under errors.Is.
func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }
