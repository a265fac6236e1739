// Package explore serves the cascading Organization → Team → Member
// screens. The same handler, built with depth 2, serves the teams screen.
package explore

import (
	"context"
	"net/http"

	"github.com/dalemusser/orgdirectory/internal/app/cascade"
	uierrors "github.com/dalemusser/orgdirectory/internal/app/features/errors"
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/dalemusser/orgdirectory/internal/app/system/formutil"
	"github.com/dalemusser/orgdirectory/internal/app/system/forms"
	"github.com/dalemusser/orgdirectory/internal/app/system/metrics"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Directory is the part of the directory client the cascade reads from.
type Directory interface {
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	ListTeams(ctx context.Context, organizationID string) ([]models.Team, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]models.Member, error)
}

// Handler serves one kind of cascade screen.
type Handler struct {
	API     Directory
	Screens *screens.Registry
	Metrics *metrics.Set
	Kind    screens.Kind
	Depth   int // 3 = organizations, teams, members; 2 = organizations, teams
	Log     *zap.Logger
}

// NewHandler constructs the three-level explore handler.
func NewHandler(api Directory, reg *screens.Registry, m *metrics.Set, logger *zap.Logger) *Handler {
	return &Handler{API: api, Screens: reg, Metrics: m, Kind: screens.KindExplore, Depth: 3, Log: logger}
}

// NewTeamsHandler constructs the two-level teams handler.
func NewTeamsHandler(api Directory, reg *screens.Registry, m *metrics.Set, logger *zap.Logger) *Handler {
	return &Handler{API: api, Screens: reg, Metrics: m, Kind: screens.KindTeams, Depth: 2, Log: logger}
}

// viewResponse is the JSON view model of an open cascade screen.
type viewResponse struct {
	Screen string       `json:"screen"`
	Kind   screens.Kind `json:"kind"`
	cascade.View
	Organization *models.Organization `json:"organization,omitempty"`
	Team         *models.Team         `json:"team,omitempty"`
}

type selectInput struct {
	OrganizationID string `json:"organizationId"`
	TeamID         string `json:"teamId"`
}

func (h *Handler) fetchers() cascade.Fetchers {
	f := cascade.Fetchers{
		Organizations: h.API.ListOrganizations,
		Teams:         h.API.ListTeams,
	}
	if h.Depth >= 3 {
		f.Members = h.API.ListTeamMembers
	}
	return f
}

// HandleOpen handles POST /. It opens a screen, starts the organization
// load and answers 201 with the initial view. A body carrying
// organizationId preselects that organization.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var in selectInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}

	owner := ""
	if u, ok := auth.CurrentUser(r); ok {
		owner = u.ID
	}
	s, token, err := h.Screens.Open(h.Kind, owner, func(s *screens.Screen) error {
		s.Cascade = cascade.New(h.fetchers(),
			h.Log.With(zap.String("screen", s.ID)),
			cascade.WithDiscardHook(h.Metrics.StaleDiscard))
		return nil
	})
	if err != nil {
		h.Log.Warn("open screen failed", zap.String("kind", string(h.Kind)), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	if id := forms.Clean(in.OrganizationID); id != "" {
		s.Cascade.SelectOrganization(id)
	}
	uierrors.WriteJSON(w, http.StatusCreated, h.view(token, s))
}

// ServeView handles GET /{screen}. With ?wait=1 it holds the request until
// no fetch is in flight, bounded by the fetch timeout.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("wait") != "" {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "explore wait idle")
		defer cancel()
		// On timeout the current, still-loading view is returned.
		_ = s.Cascade.WaitIdle(ctx)
	}
	uierrors.WriteJSON(w, http.StatusOK, h.view(token, s))
}

// HandleSelectOrganization handles POST /{screen}/organization.
func (h *Handler) HandleSelectOrganization(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var in selectInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	s.Cascade.SelectOrganization(forms.Clean(in.OrganizationID))
	uierrors.WriteJSON(w, http.StatusOK, h.view(token, s))
}

// HandleSelectTeam handles POST /{screen}/team.
func (h *Handler) HandleSelectTeam(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var in selectInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if err := s.Cascade.SelectTeam(forms.Clean(in.TeamID)); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, h.view(token, s))
}

// HandleReload handles POST /{screen}/reload: retry the organization list.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s.Cascade.ReloadOrganizations()
	uierrors.WriteJSON(w, http.StatusOK, h.view(token, s))
}

// HandleClose handles DELETE /{screen}.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.Screens.Dismiss(chi.URLParam(r, "screen"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (string, *screens.Screen, bool) {
	token := chi.URLParam(r, "screen")
	s, err := h.Screens.Lookup(token, h.Kind)
	if err != nil {
		uierrors.Write(w, r, err)
		return "", nil, false
	}
	return token, s, true
}

func (h *Handler) view(token string, s *screens.Screen) viewResponse {
	v := s.Cascade.CurrentView()
	resp := viewResponse{Screen: token, Kind: s.Kind, View: v}
	if o, ok := v.SelectedOrganization(); ok {
		resp.Organization = &o
	}
	if t, ok := v.SelectedTeam(); ok {
		resp.Team = &t
	}
	return resp
}
