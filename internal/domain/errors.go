package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNodeNotFound      = errors.New("node not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrSessionNotFound   = errors.New("no active session")
	ErrAlreadyOccupied   = errors.New("node already occupied")
	ErrAlreadyConnected  = errors.New("user already connected on another node")
	ErrNodeUnoccupied    = errors.New("node has no occupant")
	ErrPoolExhausted     = errors.New("node pool at capacity")
	ErrNoNodeAvailable   = errors.New("no session available")
	ErrRecipientOffline  = errors.New("recipient is not online")
	ErrAutoReplyNotFound = errors.New("auto-reply not found")
	ErrAuditWrite        = errors.New("activity event write failed")
	ErrForbidden         = errors.New("staff access required")
)

// ValidationError reports malformed input. It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
