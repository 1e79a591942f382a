// internal/app/features/agencies/invitations.go
package agencies

import (
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/features/shared"
	"github.com/dalemusser/tripdesk/internal/app/membership"
	"github.com/dalemusser/tripdesk/internal/app/system/respond"
	"github.com/dalemusser/tripdesk/internal/domain/models"
)

type inviteRequest struct {
	Email       string              `json:"email"`
	Role        string              `json:"role"`
	Permissions *models.Permissions `json:"permissions"`
}

// HandleInvite handles POST /agencies/{id}/invitations. The response is the
// only place the raw token is returned.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	var req inviteRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	created, err := h.Svc.CreateInvitation(r.Context(), shared.Caller(r), id, membership.InvitationInput{
		Email:       req.Email,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

// ServeInvitations handles GET /agencies/{id}/invitations.
func (h *Handler) ServeInvitations(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	list, err := h.Svc.ListAgencyInvitations(r.Context(), shared.Caller(r), id)
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}
