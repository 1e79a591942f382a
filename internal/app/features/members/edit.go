// internal/app/features/members/edit.go
package members

import (
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/features/shared"
	"github.com/dalemusser/tripdesk/internal/app/membership"
	"github.com/dalemusser/tripdesk/internal/app/system/respond"
	"github.com/dalemusser/tripdesk/internal/domain/models"
)

// updateRequest is a partial member update. Absent fields are unchanged.
type updateRequest struct {
	Role              *string             `json:"role"`
	Permissions       *models.Permissions `json:"permissions"`
	AssignedRegions   *[]string           `json:"assignedRegions"`
	AssignedTripTypes *[]string           `json:"assignedTripTypes"`
	Status            *string             `json:"status"`
}

// HandleUpdate handles PATCH /members/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	var req updateRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	m, err := h.Svc.UpdateMember(r.Context(), shared.Caller(r), id, membership.MemberPatch{
		Role:              req.Role,
		Permissions:       req.Permissions,
		AssignedRegions:   req.AssignedRegions,
		AssignedTripTypes: req.AssignedTripTypes,
		Status:            req.Status,
	})
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

// HandleRemove handles DELETE /members/{id}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	if err := h.Svc.RemoveMember(r.Context(), shared.Caller(r), id); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.NoContent(w)
}
