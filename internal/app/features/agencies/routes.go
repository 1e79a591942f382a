// internal/app/features/agencies/routes.go
package agencies

import (
	"github.com/dalemusser/tripdesk/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all agency routes under the path where the caller mounts it.
// Typically: r.Mount("/agencies", agencies.Routes(handler, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		pr.Get("/{id}", h.ServeGet)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Get("/{id}/stats", h.ServeStats)
		pr.Get("/{id}/activity", h.ServeActivity)

		// Caller's own membership
		pr.Get("/{id}/membership", h.ServeMembership)
		pr.Get("/{id}/permissions/{name}", h.ServeCheckPermission)
		pr.Post("/{id}/leave", h.HandleLeave)

		pr.Get("/{id}/members", h.ServeMembers)

		pr.Get("/{id}/invitations", h.ServeInvitations)
		pr.Post("/{id}/invitations", h.HandleInvite)
	})

	return r
}
