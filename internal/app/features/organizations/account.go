// internal/app/features/organizations/account.go
package organizations

import (
	"net/http"

	"github.com/dalemusser/orgdirectory/internal/app/directory"
	uierrors "github.com/dalemusser/orgdirectory/internal/app/features/errors"
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/dalemusser/orgdirectory/internal/app/system/formutil"
	"github.com/dalemusser/orgdirectory/internal/app/system/forms"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"go.uber.org/zap"
)

type accountResponse struct {
	Organization models.Organization `json:"organization"`
	ProfileURL   string              `json:"profileUrl"`
}

func profileURL(id string) string { return "/organizations/" + id + "/profile" }

// HandleRegister handles POST /organizations/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in forms.RegisterInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	in.Normalize()
	if err := forms.Validate("organizations.Register", &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "register organization")
	defer cancel()

	org, err := h.API.RegisterOrganization(ctx, directory.RegisterOrganizationInput{
		Name:     in.Name,
		Email:    in.Email,
		Location: in.Location,
		Password: in.Password,
	})
	if err != nil {
		h.Log.Warn("register organization failed", zap.String("email", in.Email), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	h.Log.Info("organization registered", zap.String("id", org.ID), zap.String("name", org.Name))
	uierrors.WriteJSON(w, http.StatusCreated, accountResponse{Organization: org, ProfileURL: profileURL(org.ID)})
}

// HandleLogin handles POST /organizations/login. The directory API checks
// the credentials; on success the organization is kept in the session.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in forms.LoginInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	in.Normalize()
	if err := forms.Validate("organizations.Login", &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, in.Email); !ok {
			h.Log.Warn("organization login throttled", zap.String("email", in.Email))
			uierrors.RenderTooManyRequests(w, r, msg)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "organization login")
	defer cancel()

	org, err := h.API.LoginOrganization(ctx, directory.Credentials{Email: in.Email, Password: in.Password})
	if err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	if err := h.Sessions.SignIn(w, r, auth.SessionUser{
		ID:             org.ID,
		Name:           org.Name,
		Email:          org.Email,
		Kind:           auth.KindOrganization,
		OrganizationID: org.ID,
	}); err != nil {
		h.Log.Error("session save failed", zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, accountResponse{Organization: org, ProfileURL: profileURL(org.ID)})
}

// HandleLogout handles POST /organizations/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Warn("session clear failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMe handles GET /organizations/me: the signed-in organization.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	uierrors.WriteJSON(w, http.StatusOK, u)
}
