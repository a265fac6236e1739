// internal/app/features/organizations/profile.go
package organizations

import (
	"context"
	"net/http"

	"github.com/dalemusser/orgdirectory/internal/app/aggregate"
	"github.com/dalemusser/orgdirectory/internal/app/capture"
	"github.com/dalemusser/orgdirectory/internal/app/cascade"
	"github.com/dalemusser/orgdirectory/internal/app/directory"
	uierrors "github.com/dalemusser/orgdirectory/internal/app/features/errors"
	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/dalemusser/orgdirectory/internal/app/system/formutil"
	"github.com/dalemusser/orgdirectory/internal/app/system/forms"
	"github.com/dalemusser/orgdirectory/internal/app/system/limits"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// allTeams is the team filter value meaning "no filter".
const allTeams = "all"

// profileView is the JSON view model of an organization profile screen.
// Members holds the selected team's members, or every member of the
// organization's teams when no team is selected.
type profileView struct {
	Screen         string                       `json:"screen"`
	Organization   models.Organization          `json:"organization"`
	Teams          cascade.Level[models.Team]   `json:"teams"`
	SelectedTeamID string                       `json:"selectedTeamId"`
	Members        cascade.Level[models.Member] `json:"members"`
	Summary        []aggregate.TeamSummary      `json:"summary"`
	Totals         aggregate.Totals             `json:"totals"`
	Pending        int                          `json:"pending"`
	Created        any                          `json:"created,omitempty"`
}

// HandleOpenProfile handles POST /organizations/{id}/profile. The
// organization and the full member roster are fetched in parallel; the
// organization's teams load through the screen's cascade.
func (h *Handler) HandleOpenProfile(w http.ResponseWriter, r *http.Request) {
	id := forms.Clean(chi.URLParam(r, "id"))
	owner := ""
	if u, ok := auth.CurrentUser(r); ok {
		owner = u.ID
	}

	s, token, err := h.Screens.Open(screens.KindProfile, owner, func(s *screens.Screen) error {
		return h.initProfile(r.Context(), s, id)
	})
	if err != nil {
		h.Log.Warn("open organization profile failed", zap.String("organization", id), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, h.profile(token, s))
}

func (h *Handler) initProfile(parent context.Context, s *screens.Screen, id string) error {
	ctx, cancel := timeouts.WithTimeout(parent, timeouts.Fetch(), h.Log, "open organization profile")
	defer cancel()

	var org models.Organization
	roster := cascade.NewRoster()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		org, err = h.API.GetOrganization(gctx, id)
		return err
	})
	g.Go(func() error {
		// a roster failure shows as a failed member level, not a failed screen
		if err := roster.Load(gctx, h.API.ListMembers); err != nil {
			h.Log.Warn("roster load failed", zap.String("organization", id), zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.Subject = org.ID
	s.Data = org
	s.Roster = roster
	s.Cascade = cascade.New(cascade.Fetchers{
		Organizations: func(context.Context) ([]models.Organization, error) {
			return []models.Organization{org}, nil
		},
		Teams:   h.API.ListTeams,
		Members: h.API.ListTeamMembers,
	}, h.Log.With(zap.String("screen", s.ID)), cascade.WithDiscardHook(h.Metrics.StaleDiscard))
	s.Cascade.SelectOrganization(org.ID)
	return nil
}

// ServeProfile handles GET /organizations/profile/{screen}. With ?wait=1
// it waits until no fetch is in flight.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("wait") != "" {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Fetch(), h.Log, "profile wait idle")
		defer cancel()
		_ = s.Cascade.WaitIdle(ctx)
	}
	uierrors.WriteJSON(w, http.StatusOK, h.profile(token, s))
}

// HandleFilterTeam handles POST /organizations/profile/{screen}/team.
// An empty teamId or "all" shows every team.
func (h *Handler) HandleFilterTeam(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var in struct {
		TeamID string `json:"teamId"`
	}
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	teamID := forms.Clean(in.TeamID)
	if teamID == allTeams {
		teamID = ""
	}
	if err := s.Cascade.SelectTeam(teamID); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, h.profile(token, s))
}

// HandleAddTeam handles POST /organizations/profile/{screen}/teams. The
// created team is merged into the loaded team list without a reload.
func (h *Handler) HandleAddTeam(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var in forms.TeamInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	in.OrganizationID = s.Subject
	in.Normalize()
	if err := forms.Validate("organizations.AddTeam", &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Write(), h.Log, "add team")
	defer cancel()

	team, err := h.API.AddTeam(ctx, directory.AddTeamInput{TeamName: in.TeamName, OrganizationID: in.OrganizationID})
	if err != nil {
		h.Log.Warn("add team failed", zap.String("organization", s.Subject), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	s.Cascade.MergeCreatedTeam(team)
	h.Log.Info("team added", zap.String("organization", s.Subject), zap.String("team", team.ID))

	view := h.profile(token, s)
	view.Created = team
	uierrors.WriteJSON(w, http.StatusCreated, view)
}

// HandleAddMember handles POST /organizations/profile/{screen}/members, a
// multipart form with teamId, name, email, password and an optional image.
// teamId defaults to the team currently selected on the screen.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	token, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := formutil.ParseMultipart(w, r, limits.MultipartBody(h.MaxUpload)); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	var in forms.MemberInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	view := s.Cascade.CurrentView()
	if in.TeamID == "" {
		in.TeamID = view.TeamID
	}
	in.Normalize()
	if err := forms.Validate("organizations.AddMember", &in); err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if !hasTeam(view.Teams.Items, in.TeamID) {
		uierrors.Write(w, r, apperr.Invalid("organizations.AddMember", "Please select a team.",
			map[string]string{"teamId": "team does not belong to this organization"}))
		return
	}

	add := directory.AddMemberInput{TeamID: in.TeamID, Name: in.Name, Email: in.Email, Password: in.Password}
	file, present, err := formutil.FilePart(r, "image")
	if err != nil {
		uierrors.Write(w, r, err)
		return
	}
	if present {
		blob, err := capture.InspectFile(capture.File{Name: file.Name, Data: file.Data}, h.MaxUpload)
		if err != nil {
			uierrors.Write(w, r, err)
			return
		}
		add.Image = &directory.Image{Filename: blob.Filename, ContentType: blob.ContentType, Data: blob.Data}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upload(), h.Log, "add member")
	defer cancel()

	member, err := h.API.AddMember(ctx, add)
	if err != nil {
		h.Log.Warn("add member failed", zap.String("team", in.TeamID), zap.Error(err))
		uierrors.Write(w, r, err)
		return
	}
	s.Cascade.MergeCreatedMember(member, s.Roster)
	h.Log.Info("member added", zap.String("team", member.TeamID), zap.String("member", member.ID))

	resp := h.profile(token, s)
	resp.Created = member
	uierrors.WriteJSON(w, http.StatusCreated, resp)
}

// HandleCloseProfile handles DELETE /organizations/profile/{screen}.
func (h *Handler) HandleCloseProfile(w http.ResponseWriter, r *http.Request) {
	h.Screens.Dismiss(chi.URLParam(r, "screen"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (string, *screens.Screen, bool) {
	token := chi.URLParam(r, "screen")
	s, err := h.Screens.Lookup(token, screens.KindProfile)
	if err != nil {
		uierrors.Write(w, r, err)
		return "", nil, false
	}
	return token, s, true
}

// profile assembles the view. Counts come from the roster so they include
// members merged since the screen opened.
func (h *Handler) profile(token string, s *screens.Screen) profileView {
	v := s.Cascade.CurrentView()
	org, _ := s.Data.(models.Organization)
	roster := s.Roster.Level()
	overview := aggregate.OrganizationOverview(org, v.Teams.Items, roster.Items)

	out := profileView{
		Screen:         token,
		Organization:   org,
		Teams:          v.Teams,
		SelectedTeamID: v.TeamID,
		Members:        v.Members,
		Summary:        overview.Teams,
		Totals:         overview.Totals,
		Pending:        v.Pending,
	}
	if v.TeamID == "" {
		out.Members = cascade.Level[models.Member]{
			Status: roster.Status,
			Items:  inTeams(roster.Items, v.Teams.Items),
			Err:    roster.Err,
		}
	}
	return out
}

func hasTeam(teams []models.Team, id string) bool {
	for _, t := range teams {
		if t.ID == id {
			return true
		}
	}
	return false
}

// inTeams keeps the members that belong to one of teams, in roster order.
func inTeams(members []models.Member, teams []models.Team) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if hasTeam(teams, m.TeamID) {
			out = append(out, m)
		}
	}
	return out
}
