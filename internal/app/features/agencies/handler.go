// internal/app/features/agencies/handler.go
package agencies

import (
	"github.com/dalemusser/tripdesk/internal/app/membership"
	"go.uber.org/zap"
)

// Handler serves the agency-scoped JSON API: agencies, their members and
// their invitations.
type Handler struct {
	Svc *membership.Service
	Log *zap.Logger
}

// NewHandler creates a new agencies handler.
func NewHandler(svc *membership.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}
