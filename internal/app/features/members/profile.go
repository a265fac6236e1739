// internal/app/features/members/profile.go
package members

import (
	"net/http"

	uierrors "github.com/dalemusser/orgdirectory/internal/app/features/errors"
	"github.com/dalemusser/orgdirectory/internal/app/system/forms"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// profileResponse is a member with the team and organization it belongs
// to. PhotoURL is set only while the member has no photo.
type profileResponse struct {
	Member         models.Member       `json:"member"`
	Team           models.Team         `json:"team"`
	Organization   models.Organization `json:"organization"`
	CanUploadImage bool                `json:"canUploadImage"`
	PhotoURL       string              `json:"photoUrl,omitempty"`
}

// ServeProfile handles GET /members/{id}. Each fetch depends on the one
// before it: member, then its team, then the team's organization.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	id := forms.Clean(chi.URLParam(r, "id"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "member profile")
	defer cancel()

	m, err := h.API.GetMember(ctx, id)
	if err != nil {
		h.Log.Warn("member fetch failed", zap.String("member", id), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	team, err := h.API.GetTeam(ctx, m.TeamID)
	if err != nil {
		h.Log.Warn("member team fetch failed", zap.String("member", id), zap.String("team", m.TeamID), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	org, err := h.API.GetOrganization(ctx, team.OrganizationID)
	if err != nil {
		h.Log.Warn("member organization fetch failed", zap.String("member", id),
			zap.String("organization", team.OrganizationID), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}

	out := profileResponse{Member: m, Team: team, Organization: org, CanUploadImage: !m.HasImage()}
	if out.CanUploadImage {
		out.PhotoURL = profileURL(m.ID) + "/photo"
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}
