// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Organization routes under the base path
// (typically "/organizations" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Account
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/logout", h.HandleLogout)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireKind(auth.KindOrganization))
		pr.Get("/me", h.ServeMe)
	})

	// Profile screen
	r.Post("/{id}/profile", h.HandleOpenProfile)
	r.Get("/profile/{screen}", h.ServeProfile)
	r.Post("/profile/{screen}/team", h.HandleFilterTeam)
	r.Post("/profile/{screen}/teams", h.HandleAddTeam)
	r.Post("/profile/{screen}/members", h.HandleAddMember)
	r.Delete("/profile/{screen}", h.HandleCloseProfile)

	return r
}
