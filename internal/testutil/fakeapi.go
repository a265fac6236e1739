package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Route keys accepted by FakeDirectory.Fail and FakeDirectory.Hold.
const (
	RouteListOrganizations = "GET /organization/findAll"
	RouteGetOrganization   = "GET /organization/getById/{id}"
	RouteRegisterOrg       = "POST /organization/register"
	RouteLoginOrg          = "POST /organization/login"
	RouteListTeams         = "GET /team/get/{organizationId}"
	RouteGetTeam           = "GET /team/findById/{id}"
	RouteAddTeam           = "POST /team/add"
	RouteListMembers       = "GET /member/findAll"
	RouteGetMember         = "GET /member/findById/{id}"
	RouteLoginMember       = "POST /member/login"
	RouteAddMember         = "POST /member/add"
	RouteUploadImage       = "POST /member/upload/{id}"
)

type failure struct {
	status int
	body   string
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

// FakeDirectory is an in-memory stand-in for the directory REST API. It
// speaks the same wire format (documents carry "_id", teams "teamName")
// and lets tests inject failures or hold requests open.
type FakeDirectory struct {
	Server *httptest.Server

	mu        sync.Mutex
	orgs      []models.Organization
	teams     []models.Team
	members   []models.Member
	passwords map[string]string
	failures  map[string]failure
	holds     map[string]*gate
	requests  []string
	uploads   map[string][]byte
	seq       int
}

// NewFakeDirectory starts a fake API server that is closed with the test.
func NewFakeDirectory(t *testing.T) *FakeDirectory {
	t.Helper()
	f := &FakeDirectory{
		passwords: map[string]string{},
		failures:  map[string]failure{},
		holds:     map[string]*gate{},
		uploads:   map[string][]byte{},
	}
	r := chi.NewRouter()
	r.Get("/organization/findAll", f.route(RouteListOrganizations, f.listOrgs))
	r.Get("/organization/getById/{id}", f.route(RouteGetOrganization, f.getOrg))
	r.Post("/organization/register", f.route(RouteRegisterOrg, f.registerOrg))
	r.Post("/organization/login", f.route(RouteLoginOrg, f.loginOrg))
	r.Get("/team/get/{organizationId}", f.route(RouteListTeams, f.listTeams))
	r.Get("/team/findById/{id}", f.route(RouteGetTeam, f.getTeam))
	r.Post("/team/add", f.route(RouteAddTeam, f.addTeam))
	r.Get("/member/findAll", f.route(RouteListMembers, f.listMembers))
	r.Get("/member/findById/{id}", f.route(RouteGetMember, f.getMember))
	r.Post("/member/login", f.route(RouteLoginMember, f.loginMember))
	r.Post("/member/add", f.route(RouteAddMember, f.addMember))
	r.Post("/member/upload/{id}", f.route(RouteUploadImage, f.uploadImage))
	f.Server = httptest.NewServer(r)
	t.Cleanup(func() {
		f.ReleaseAll()
		f.Server.Close()
	})
	return f
}

// URL returns the base URL of the fake API.
func (f *FakeDirectory) URL() string { return f.Server.URL }

// AddOrganization seeds an organization with a login password.
func (f *FakeDirectory) AddOrganization(o models.Organization, password string) models.Organization {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs = append(f.orgs, o)
	if password != "" {
		f.passwords["org:"+o.Email] = password
	}
	return o
}

// AddTeam seeds a team.
func (f *FakeDirectory) AddTeam(t models.Team) models.Team {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teams = append(f.teams, t)
	return t
}

// AddMember seeds a member with a login password.
func (f *FakeDirectory) AddMember(m models.Member, password string) models.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = append(f.members, m)
	if password != "" {
		f.passwords["member:"+m.Email] = password
	}
	return m
}

// Fail makes every request to route answer with status and body until
// Recover is called.
func (f *FakeDirectory) Fail(route string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = failure{status: status, body: body}
}

// Recover removes an injected failure.
func (f *FakeDirectory) Recover(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, route)
}

// Hold blocks requests to route until the returned release func is called.
func (f *FakeDirectory) Hold(route string) (release func()) {
	g := &gate{ch: make(chan struct{})}
	f.mu.Lock()
	f.holds[route] = g
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		if f.holds[route] == g {
			delete(f.holds, route)
		}
		f.mu.Unlock()
		g.open()
	}
}

// ReleaseAll releases every held route.
func (f *FakeDirectory) ReleaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, g := range f.holds {
		g.open()
		delete(f.holds, k)
	}
}

// Requests returns "METHOD path" for every request received, in order.
func (f *FakeDirectory) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// CountRequests returns how many requests were made to the exact path.
func (f *FakeDirectory) CountRequests(methodPath string) int {
	n := 0
	for _, r := range f.Requests() {
		if r == methodPath {
			n++
		}
	}
	return n
}

// Upload returns the bytes last uploaded as an image for member id.
func (f *FakeDirectory) Upload(memberID string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[memberID]
}

// Teams returns a copy of the stored teams.
func (f *FakeDirectory) Teams() []models.Team {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Team(nil), f.teams...)
}

func (f *FakeDirectory) route(key string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		hold := f.holds[key]
		fail, failing := f.failures[key]
		f.mu.Unlock()

		if hold != nil {
			select {
			case <-hold.ch:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = io.WriteString(w, fail.body)
			return
		}
		h(w, r)
	}
}

func (f *FakeDirectory) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, 100+f.seq)
}

/*──────────────────────────── wire documents ────────────────────────────*/

type orgDoc struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location"`
}

type teamDoc struct {
	ID             string `json:"_id"`
	TeamName       string `json:"teamName"`
	OrganizationID string `json:"organizationId"`
}

type memberDoc struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	TeamID   string `json:"teamId"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func toOrgDoc(o models.Organization) orgDoc {
	return orgDoc{ID: o.ID, Name: o.Name, Email: o.Email, Location: o.Location}
}

func toTeamDoc(t models.Team) teamDoc {
	return teamDoc{ID: t.ID, TeamName: t.Name, OrganizationID: t.OrganizationID}
}

func toMemberDoc(m models.Member) memberDoc {
	return memberDoc{ID: m.ID, Name: m.Name, Email: m.Email, TeamID: m.TeamID, ImageURL: m.ImageURL}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

/*────────────────────────────── handlers ───────────────────────────────*/

func (f *FakeDirectory) listOrgs(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make([]orgDoc, 0, len(f.orgs))
	for _, o := range f.orgs {
		out = append(out, toOrgDoc(o))
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeDirectory) getOrg(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orgs {
		if o.ID == id {
			writeJSON(w, http.StatusOK, toOrgDoc(o))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Organization not found"})
}

func (f *FakeDirectory) registerOrg(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name, Email, Location, Password string
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orgs {
		if strings.EqualFold(o.Email, in.Email) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Organization already exists"})
			return
		}
	}
	o := models.Organization{ID: f.nextID("o"), Name: in.Name, Email: in.Email, Location: in.Location}
	f.orgs = append(f.orgs, o)
	f.passwords["org:"+o.Email] = in.Password
	writeJSON(w, http.StatusCreated, map[string]any{"message": "registered", "organization": toOrgDoc(o)})
}

func (f *FakeDirectory) loginOrg(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords["org:"+in.Email]; ok && pw == in.Password {
		for _, o := range f.orgs {
			if o.Email == in.Email {
				writeJSON(w, http.StatusOK, map[string]any{"organization": map[string]string{
					"id": o.ID, "name": o.Name, "email": o.Email, "location": o.Location,
				}})
				return
			}
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
}

func (f *FakeDirectory) listTeams(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "organizationId")
	f.mu.Lock()
	out := []teamDoc{}
	for _, t := range f.teams {
		if t.OrganizationID == orgID {
			out = append(out, toTeamDoc(t))
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeDirectory) getTeam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.teams {
		if t.ID == id {
			writeJSON(w, http.StatusOK, toTeamDoc(t))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Team not found"})
}

func (f *FakeDirectory) addTeam(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TeamName       string `json:"teamName"`
		OrganizationID string `json:"organizationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.TeamName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "teamName is required"})
		return
	}
	f.mu.Lock()
	t := models.Team{ID: f.nextID("t"), Name: in.TeamName, OrganizationID: in.OrganizationID}
	f.teams = append(f.teams, t)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, toTeamDoc(t))
}

func (f *FakeDirectory) listMembers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make([]memberDoc, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, toMemberDoc(m))
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeDirectory) getMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.ID == id {
			writeJSON(w, http.StatusOK, toMemberDoc(m))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Member not found"})
}

func (f *FakeDirectory) loginMember(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords["member:"+in.Email]; ok && pw == in.Password {
		for _, m := range f.members {
			if m.Email == in.Email {
				writeJSON(w, http.StatusOK, map[string]any{"member": map[string]string{
					"id": m.ID, "name": m.Name, "email": m.Email, "teamId": m.TeamID,
				}})
				return
			}
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
}

func (f *FakeDirectory) addMember(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "multipart body required"})
		return
	}
	m := models.Member{
		Name:   r.FormValue("name"),
		Email:  r.FormValue("email"),
		TeamID: r.FormValue("teamId"),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.nextID("m")
	if file, _, err := r.FormFile("image"); err == nil {
		data, _ := io.ReadAll(file)
		file.Close()
		f.uploads[m.ID] = data
		m.ImageURL = "https://images.example/" + m.ID + ".jpg"
	}
	f.members = append(f.members, m)
	f.passwords["member:"+m.Email] = r.FormValue("password")
	writeJSON(w, http.StatusCreated, toMemberDoc(m))
}

func (f *FakeDirectory) uploadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "multipart body required"})
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "image is required"})
		return
	}
	data, _ := io.ReadAll(file)
	file.Close()

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.members {
		if f.members[i].ID == id {
			f.uploads[id] = data
			f.members[i].ImageURL = "https://images.example/" + id + ".jpg"
			writeJSON(w, http.StatusOK, map[string]any{"member": toMemberDoc(f.members[i])})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Member not found"})
}
