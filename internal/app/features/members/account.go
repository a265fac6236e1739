// internal/app/features/members/account.go
package members

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

type loginResponse struct {
	Member     models.Member `json:"member"`
	ProfileURL string        `json:"profileUrl"`
}

func profileURL(id string) string { return "/members/" + id }

// HandleLogin handles POST /members/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in forms.LoginInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	in.Normalize()
	if err := forms.Validate("members.Login", &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, in.Email); !ok {
			h.Log.Warn("member login throttled", zap.String("email", in.Email))
			uierrors.RenderTooManyRequests(w, r, msg)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "member login")
	defer cancel()

	m, err := h.API.LoginMember(ctx, directory.Credentials{Email: in.Email, Password: in.Password})
	if err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	if err := h.Sessions.SignIn(w, r, auth.SessionUser{
		ID:     m.ID,
		Name:   m.Name,
		Email:  m.Email,
		Kind:   auth.KindMember,
		TeamID: m.TeamID,
	}); err != nil {
		h.Log.Error("session save failed", zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	h.Log.Info("member signed in", zap.String("id", m.ID))
	uierrors.WriteJSON(w, http.StatusOK, loginResponse{Member: m, ProfileURL: profileURL(m.ID)})
}

// HandleLogout handles POST /members/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Warn("session clear failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMe handles GET /members/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	uierrors.WriteJSON(w, http.StatusOK, u)
}
