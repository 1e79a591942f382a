package respond_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/respond"
	"go.uber.org/zap"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.ErrUnauthenticated, http.StatusUnauthorized},
		{apperr.Denied("canManageMembers"), http.StatusForbidden},
		{apperr.NotFound("member"), http.StatusNotFound},
		{apperr.InvalidOp("owner cannot leave"), http.StatusUnprocessableEntity},
		{apperr.ErrAlreadyMember, http.StatusConflict},
		{apperr.ErrDuplicatePending, http.StatusConflict},
		{apperr.ErrInvalidState, http.StatusConflict},
		{apperr.ErrExpired, http.StatusGone},
		{apperr.ErrEmailMismatch, http.StatusForbidden},
		{apperr.ErrRateLimited, http.StatusTooManyRequests},
		{apperr.Invalid("bad email"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("accept: %w", apperr.ErrExpired), http.StatusGone},
	}
	for _, tt := range tests {
		if got := respond.Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestError_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/invitations/accept", nil)
	respond.Error(rec, zap.NewNop(), req, fmt.Errorf("accept: %w", apperr.ErrEmailMismatch))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body respond.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "email_mismatch" {
		t.Errorf("error = %q, want email_mismatch", body.Error)
	}
	if body.Message == "" {
		t.Error("message should not be empty")
	}
}

func TestError_HidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/agencies", nil)
	respond.Error(rec, zap.NewNop(), req, errors.New("mongo: connection refused at 10.0.0.3"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body respond.ErrorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "internal" || body.Message != "internal error" {
		t.Errorf("body = %+v", body)
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.JSON(rec, http.StatusCreated, map[string]string{"id": "abc"})
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.String() != "{\"id\":\"abc\"}\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
