package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure returned by the domain core wraps exactly one of these.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidState    = errors.New("invalid state")
	ErrForbidden       = errors.New("forbidden")
	ErrVersionConflict = errors.New("version conflict")
)

// DomainError is a typed failure carrying the kind and the entity it concerns
type DomainError struct {
	Kind   error
	Entity EntityKind
	ID     string
	Reason string
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(string(e.Entity))
		if e.ID != "" {
			fmt.Fprintf(&b, " %q", e.ID)
		}
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Unwrap exposes the kind so callers can use errors.Is(err, ErrNotFound)
func (e *DomainError) Unwrap() error {
	return e.Kind
}

// NotFound reports an unknown identity reference
func NotFound(entity EntityKind, id string) error {
	return &DomainError{Kind: ErrNotFound, Entity: entity, ID: id}
}

// Validation reports malformed or incomplete input
func Validation(format string, args ...any) error {
	return &DomainError{Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

// InvalidState reports an operation that is not legal in the entity's lifecycle state
func InvalidState(entity EntityKind, id, format string, args ...any) error {
	return &DomainError{Kind: ErrInvalidState, Entity: entity, ID: id, Reason: fmt.Sprintf(format, args...)}
}

// Forbidden reports a role or account status gate failure
func Forbidden(format string, args ...any) error {
	return &DomainError{Kind: ErrForbidden, Reason: fmt.Sprintf(format, args...)}
}

// VersionConflict reports a concurrent modification; the only retryable kind
func VersionConflict(entity EntityKind, id string, expected int64) error {
	return &DomainError{
		Kind:   ErrVersionConflict,
		Entity: entity,
		ID:     id,
		Reason: fmt.Sprintf("expected version %d is stale", expected),
	}
}

// KindOf returns the kind sentinel wrapped by err, or nil for infrastructure errors
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrValidation, ErrInvalidState, ErrForbidden, ErrVersionConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsRetryable reports whether the caller may retry the failed operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
