// Package respond writes JSON responses and maps service errors to HTTP
// status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

var statuses = []struct {
	err    error
	status int
}{
	{apperr.ErrUnauthenticated, http.StatusUnauthorized},
	{apperr.ErrPermissionDenied, http.StatusForbidden},
	{apperr.ErrNotFound, http.StatusNotFound},
	{apperr.ErrInvalidOperation, http.StatusUnprocessableEntity},
	{apperr.ErrAlreadyMember, http.StatusConflict},
	{apperr.ErrDuplicatePending, http.StatusConflict},
	{apperr.ErrInvalidState, http.StatusConflict},
	{apperr.ErrExpired, http.StatusGone},
	{apperr.ErrEmailMismatch, http.StatusForbidden},
	{apperr.ErrRateLimited, http.StatusTooManyRequests},
	{apperr.ErrValidation, http.StatusBadRequest},
}

// Status returns the HTTP status for err; 500 for anything outside the
// taxonomy.
func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Error writes err as {"error": code, "message": text}. Internal errors are
// logged and their text is not exposed.
func Error(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	status := Status(err)
	body := ErrorBody{Error: apperr.Code(err), Message: err.Error()}
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		body.Message = "internal error"
	}
	JSON(w, status, body)
}
