// internal/app/features/invitations/routes.go
package invitations

import (
	"github.com/dalemusser/tripdesk/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts invitation routes. Typically:
// r.Mount("/invitations", invitations.Routes(handler, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/mine", h.ServeMine)
		pr.Post("/accept", h.HandleAccept)
		pr.Post("/{id}/cancel", h.HandleCancel)
	})

	return r
}
