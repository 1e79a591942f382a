// internal/app/features/agencies/membership.go
package agencies

import (
	"net/http"

	"github.com/dalemusser/tripdesk/internal/app/features/shared"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/app/system/respond"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// ServeMembership handles GET /agencies/{id}/membership.
func (h *Handler) ServeMembership(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	m, err := h.Svc.GetMembership(r.Context(), shared.Caller(r), id)
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, membershipResponse{Member: m, Granted: grantedNames(m.Permissions)})
}

// membershipResponse adds the granted flag names so clients can gate UI
// without reading each boolean.
type membershipResponse struct {
	models.Member
	Granted []string `json:"granted"`
}

func grantedNames(p models.Permissions) []string {
	flags := permissions.Granted(p)
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.String())
	}
	return out
}

// ServeCheckPermission handles GET /agencies/{id}/permissions/{name}.
// It always answers 200; unknown names and non-members read as not allowed.
func (h *Handler) ServeCheckPermission(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.JSON(w, http.StatusOK, permissionResponse{Permission: name})
		return
	}
	respond.JSON(w, http.StatusOK, permissionResponse{
		Permission: name,
		Allowed:    h.Svc.CheckPermission(r.Context(), shared.Caller(r), id, name),
	})
}

// HandleLeave handles POST /agencies/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	if err := h.Svc.LeaveAgency(r.Context(), shared.Caller(r), id); err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.NoContent(w)
}

// ServeMembers handles GET /agencies/{id}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	list, err := h.Svc.ListMembers(r.Context(), shared.Caller(r), id)
	if err != nil {
		respond.Error(w, h.Log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}
