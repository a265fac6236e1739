package explore

import "github.com/go-chi/chi/v5"

// Routes mounts the cascade screen routes (typically under "/explore" or
// "/teams" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleOpen)
	r.Get("/{screen}", h.ServeView)
	r.Post("/{screen}/organization", h.HandleSelectOrganization)
	r.Post("/{screen}/team", h.HandleSelectTeam)
	r.Post("/{screen}/reload", h.HandleReload)
	r.Delete("/{screen}", h.HandleClose)

	return r
}
