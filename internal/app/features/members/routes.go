// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/tripdesk/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all member routes under the path where the caller mounts it.
// Typically: r.Mount("/members", members.Routes(handler, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleRemove)
	})

	return r
}
