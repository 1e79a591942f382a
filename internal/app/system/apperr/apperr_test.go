package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthenticated", apperr.ErrUnauthenticated, "unauthenticated"},
		{"denied helper", apperr.Denied("canManageMembers"), "permission_denied"},
		{"not found helper", apperr.NotFound("member"), "not_found"},
		{"invalid op helper", apperr.InvalidOp("owner cannot leave"), "invalid_operation"},
		{"wrapped already member", fmt.Errorf("create invitation: %w", apperr.ErrAlreadyMember), "already_member"},
		{"duplicate pending", apperr.ErrDuplicatePending, "duplicate_pending"},
		{"invalid state", apperr.ErrInvalidState, "invalid_state"},
		{"expired", apperr.ErrExpired, "expired"},
		{"email mismatch", apperr.ErrEmailMismatch, "email_mismatch"},
		{"rate limited", apperr.ErrRateLimited, "rate_limited"},
		{"validation", apperr.Invalid("email is required"), "validation"},
		{"unknown", errors.New("boom"), "internal"},
		{"nil", nil, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.Code(tt.err); got != tt.want {
				t.Errorf("Code(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestHelpersKeepMessage(t *testing.T) {
	err := apperr.Invalid("role %q is not invitable", "owner")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatal("Invalid should wrap ErrValidation")
	}
	if got := err.Error(); got != `validation failed: role "owner" is not invitable` {
		t.Errorf("Error() = %q", got)
	}

	if got := apperr.NotFound("invitation").Error(); got != "invitation not found" {
		t.Errorf("NotFound().Error() = %q", got)
	}
}

func TestIsKnown(t *testing.T) {
	if !apperr.IsKnown(apperr.ErrExpired) {
		t.Error("ErrExpired should be known")
	}
	if apperr.IsKnown(errors.New("socket closed")) {
		t.Error("arbitrary error should not be known")
	}
}
