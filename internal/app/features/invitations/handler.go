// internal/app/features/invitations/handler.go
package invitations

import (
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/features/shared"
	"github.com/dalemusser/tripdesk/internal/app/membership"
	"github.com/dalemusser/tripdesk/internal/app/system/respond"
	"go.uber.org/zap"
)

// Handler serves invitation endpoints addressed by invitation id or token.
type Handler struct {
	Svc *membership.Service
	Log *zap.Logger
}

// NewHandler creates a new invitations handler.
func NewHandler(svc *membership.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}

type acceptRequest struct {
	Token string `json:"token"`
}

// HandleAccept handles POST /invitations/accept. The token may come in the
// JSON body or, for links followed from email, the token query parameter.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var req acceptRequest
		if err := shared.DecodeJSON(w, r, &req); err != nil {
			respond.Error(w, h.Log, r, err)
			return
		}
		token = req.Token
	}
	m, err := h.Svc.AcceptInvitation(r.Context(), shared.Caller(r), token)
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

// HandleCancel handles POST /invitations/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	if err := h.Svc.CancelInvitation(r.Context(), shared.Caller(r), id); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.NoContent(w)
}

// ServeMine handles GET /invitations/mine.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListMyInvitations(r.Context(), shared.Caller(r))
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}
