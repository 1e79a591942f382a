// internal/app/features/devsession/routes.go
package devsession

import "github.com/go-chi/chi/v5"

// Routes returns the router for the dev session endpoints. Bootstrap mounts
// it only outside production.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleSignIn)
	r.Delete("/", h.HandleSignOut)
	return r
}
