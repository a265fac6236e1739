// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Member routes under the base path
// (typically "/members" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Account
	r.Post("/login", h.HandleLogin)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/logout", h.HandleLogout)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireKind(auth.KindMember))
		pr.Get("/me", h.ServeMe)
	})

	// Photo dialog
	r.Get("/photo/{screen}", h.ServePhoto)
	r.Post("/photo/{screen}/file", h.HandleChooseFile)
	r.Post("/photo/{screen}/camera", h.HandleStartCamera)
	r.Get("/photo/{screen}/camera/ws", h.ServeCameraSocket)
	r.Post("/photo/{screen}/capture", h.HandleCapture)
	r.Post("/photo/{screen}/reset", h.HandleReset)
	r.Post("/photo/{screen}/upload", h.HandleUpload)
	r.Delete("/photo/{screen}", h.HandleClosePhoto)

	// Profile
	r.Get("/{id}", h.ServeProfile)
	r.Post("/{id}/photo", h.HandleOpenPhoto)

	return r
}
