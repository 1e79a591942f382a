// internal/app/features/heartbeat/handler.go
package heartbeat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/features/shared"
	"github.com/dalemusser/tripdesk/internal/app/membership"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/limits"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler handles heartbeat requests for membership activity tracking.
type Handler struct {
	Svc *membership.Service
	Log *zap.Logger
}

// NewHandler creates a new heartbeat handler.
func NewHandler(svc *membership.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}

// heartbeatRequest is the JSON body for the heartbeat endpoint.
type heartbeatRequest struct {
	AgencyID string `json:"agencyId"`
}

// ServeHeartbeat handles POST /api/heartbeat.
// Updates LastActiveAt on the caller's membership in the given agency.
// Always answers 204; clients do not act on heartbeat failures.
func (h *Handler) ServeHeartbeat(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusNoContent)

	var req heartbeatRequest
	if r.Body != nil {
		body := http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
		_ = json.NewDecoder(body).Decode(&req) // Ignore error, handled below
	}

	agencyID, err := primitive.ObjectIDFromHex(req.AgencyID)
	if err != nil {
		return // Silent fail - no agency
	}

	caller := shared.Caller(r)
	if err := h.Svc.Touch(r.Context(), caller, agencyID); err != nil {
		if errors.Is(err, apperr.ErrPermissionDenied) || errors.Is(err, apperr.ErrUnauthenticated) {
			return // Not a member; nothing to record
		}
		h.Log.Warn("failed to update member last_active_at",
			zap.Error(err),
			zap.String("agency_id", req.AgencyID),
			zap.String("user_id", caller.UserID.Hex()))
	}
}
