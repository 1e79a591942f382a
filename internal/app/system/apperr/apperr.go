// internal/app/system/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
)

// Error taxonomy for membership, permission and invitation operations.
// Callers test with errors.Is; stores and services wrap these with %w.
var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrAlreadyMember    = errors.New("user is already a member of this agency")
	ErrDuplicatePending = errors.New("a pending invitation already exists for this email")
	ErrInvalidState     = errors.New("invitation is no longer pending")
	ErrExpired          = errors.New("invitation has expired")
	ErrEmailMismatch    = errors.New("invitation was sent to a different email address")
	ErrRateLimited      = errors.New("too many requests")
	ErrValidation       = errors.New("validation failed")
)

// Invalid returns a validation error carrying msg.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Denied wraps ErrPermissionDenied with the missing capability or reason.
func Denied(reason string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
}

// NotFound wraps ErrNotFound with the kind of thing that was missing.
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// InvalidOp wraps ErrInvalidOperation with msg.
func InvalidOp(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, msg)
}

var codes = []struct {
	err  error
	code string
}{
	{ErrUnauthenticated, "unauthenticated"},
	{ErrPermissionDenied, "permission_denied"},
	{ErrNotFound, "not_found"},
	{ErrInvalidOperation, "invalid_operation"},
	{ErrAlreadyMember, "already_member"},
	{ErrDuplicatePending, "duplicate_pending"},
	{ErrInvalidState, "invalid_state"},
	{ErrExpired, "expired"},
	{ErrEmailMismatch, "email_mismatch"},
	{ErrRateLimited, "rate_limited"},
	{ErrValidation, "validation"},
}

// Code returns the stable machine-readable code for err, or "internal"
// when err is not part of the taxonomy.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// IsKnown reports whether err belongs to the taxonomy.
func IsKnown(err error) bool {
	return Code(err) != "internal"
}
