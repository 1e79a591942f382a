// internal/app/features/members/handler.go
package members

import (
	"github.com/dalemusser/tripdesk/internal/app/membership"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for membership records addressed by
// their own id.
type Handler struct {
	Svc *membership.Service
	Log *zap.Logger
}

func NewHandler(svc *membership.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}
