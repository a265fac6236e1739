package directory

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/testutil"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*Client, *testutil.FakeDirectory, testutil.Directory) {
	t.Helper()
	fake := testutil.NewFakeDirectory(t)
	seed := testutil.SeedDirectory(fake)
	c, err := New(Config{BaseURL: fake.URL(), Timeout: 5 * time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, fake, seed
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:5000/", want: "http://localhost:5000"},
		{in: "  https://api.example.com//  ", want: "https://api.example.com"},
		{in: "localhost:5000", want: "http://localhost:5000"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeBaseURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeBaseURL(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeBaseURL(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestListOrganizations(t *testing.T) {
	c, _, seed := newTestClient(t)
	orgs, err := c.ListOrganizations(context.Background())
	if err != nil {
		t.Fatalf("ListOrganizations: %v", err)
	}
	if len(orgs) != 2 {
		t.Fatalf("got %d organizations, want 2", len(orgs))
	}
	if orgs[0] != seed.Acme {
		t.Errorf("first organization = %+v, want %+v", orgs[0], seed.Acme)
	}
}

func TestListTeamsScopedToOrganization(t *testing.T) {
	c, _, seed := newTestClient(t)
	teams, err := c.ListTeams(context.Background(), seed.Acme.ID)
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(teams) != 2 || teams[0].Name != "Red" || teams[1].Name != "Blue" {
		t.Errorf("teams = %+v, want Red and Blue", teams)
	}
	for _, tm := range teams {
		if tm.OrganizationID != seed.Acme.ID {
			t.Errorf("team %s belongs to %s", tm.ID, tm.OrganizationID)
		}
	}
}

func TestListTeamMembersFiltersUnscopedCollection(t *testing.T) {
	c, fake, seed := newTestClient(t)
	members, err := c.ListTeamMembers(context.Background(), seed.Red.ID)
	if err != nil {
		t.Fatalf("ListTeamMembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	for _, m := range members {
		if m.TeamID != seed.Red.ID {
			t.Errorf("member %s has team %s", m.ID, m.TeamID)
		}
	}
	if n := fake.CountRequests("GET /member/findAll"); n != 1 {
		t.Errorf("findAll requests = %d, want 1", n)
	}
}

func TestGetEntities(t *testing.T) {
	c, _, seed := newTestClient(t)
	ctx := context.Background()

	org, err := c.GetOrganization(ctx, seed.Globex.ID)
	if err != nil || org != seed.Globex {
		t.Errorf("GetOrganization = %+v, %v", org, err)
	}
	team, err := c.GetTeam(ctx, seed.Blue.ID)
	if err != nil || team != seed.Blue {
		t.Errorf("GetTeam = %+v, %v", team, err)
	}
	m, err := c.GetMember(ctx, seed.Bob.ID)
	if err != nil || m != seed.Bob {
		t.Errorf("GetMember = %+v, %v", m, err)
	}
}

func TestNotFoundIsServerRejectedWithMessage(t *testing.T) {
	c, _, _ := newTestClient(t)
	_, err := c.GetTeam(context.Background(), "missing")
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *apperr.Error", err)
	}
	if ae.Kind != apperr.ServerRejected || ae.Status != http.StatusNotFound {
		t.Errorf("kind/status = %s/%d", ae.Kind, ae.Status)
	}
	if ae.Message != "Team not found" {
		t.Errorf("message = %q, want %q", ae.Message, "Team not found")
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Team name taken"}`, "Team name taken"},
		{"error field", `{"error":"Bad input"}`, "Bad input"},
		{"nested error", `{"error":{"message":"nested"}}`, "nested"},
		{"raw text", `upstream exploded`, "upstream exploded"},
		{"empty body", ``, "request failed with status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake, _ := newTestClient(t)
			fake.Fail(testutil.RouteListOrganizations, http.StatusInternalServerError, tt.body)
			_, err := c.ListOrganizations(context.Background())
			if !apperr.Is(err, apperr.ServerRejected) {
				t.Fatalf("err = %v, want ServerRejected", err)
			}
			if got := apperr.MessageOf(err); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuccessDecidedByStatusOnly(t *testing.T) {
	c, fake, _ := newTestClient(t)
	// A 400 carrying a plausible payload is still a rejection.
	fake.Fail(testutil.RouteListOrganizations, http.StatusBadRequest, `[{"_id":"o9","name":"Ghost"}]`)
	if _, err := c.ListOrganizations(context.Background()); !apperr.Is(err, apperr.ServerRejected) {
		t.Fatalf("err = %v, want ServerRejected", err)
	}
}

func TestInvalidPayloadIsServerRejected(t *testing.T) {
	c, fake, seed := newTestClient(t)
	fake.Fail(testutil.RouteListTeams, http.StatusOK, `[{"teamName":"No Id"}]`)
	_, err := c.ListTeams(context.Background(), seed.Acme.ID)
	if !apperr.Is(err, apperr.ServerRejected) {
		t.Fatalf("err = %v, want ServerRejected", err)
	}

	fake.Fail(testutil.RouteListMembers, http.StatusOK, `{"not":"a list"}`)
	if _, err := c.ListMembers(context.Background()); !apperr.Is(err, apperr.ServerRejected) {
		t.Fatalf("err = %v, want ServerRejected", err)
	}
}

func TestUnreachableIsNetworkFailure(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.ListOrganizations(context.Background()); !apperr.Is(err, apperr.NetworkFailure) {
		t.Fatalf("err = %v, want NetworkFailure", err)
	}
	if err := c.Ping(context.Background()); !apperr.Is(err, apperr.NetworkFailure) {
		t.Fatalf("Ping err = %v, want NetworkFailure", err)
	}
}

func TestCallerCancellationIsNetworkFailure(t *testing.T) {
	c, fake, _ := newTestClient(t)
	release := fake.Hold(testutil.RouteListOrganizations)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.ListOrganizations(ctx); !apperr.Is(err, apperr.NetworkFailure) {
		t.Fatalf("err = %v, want NetworkFailure", err)
	}
}

func TestConcurrentReadsShareOneRequest(t *testing.T) {
	c, fake, _ := newTestClient(t)
	release := fake.Hold(testutil.RouteListOrganizations)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ListOrganizations(context.Background())
			errs <- err
		}()
	}
	// Let all callers join the in-flight request before it completes.
	deadline := time.Now().Add(2 * time.Second)
	for fake.CountRequests("GET /organization/findAll") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("ListOrganizations: %v", err)
		}
	}
	if n := fake.CountRequests("GET /organization/findAll"); n != 1 {
		t.Errorf("upstream requests = %d, want 1", n)
	}
}

func TestRegisterAndLoginOrganization(t *testing.T) {
	c, _, seed := newTestClient(t)
	ctx := context.Background()

	org, err := c.RegisterOrganization(ctx, RegisterOrganizationInput{
		Name: "Initech", Email: "hr@initech.test", Location: "Austin", Password: "tps",
	})
	if err != nil {
		t.Fatalf("RegisterOrganization: %v", err)
	}
	if org.ID == "" || org.Name != "Initech" {
		t.Errorf("registered = %+v", org)
	}

	_, err = c.RegisterOrganization(ctx, RegisterOrganizationInput{Name: "Dup", Email: seed.Acme.Email, Password: "x"})
	if !apperr.Is(err, apperr.ServerRejected) || apperr.MessageOf(err) != "Organization already exists" {
		t.Errorf("duplicate register err = %v", err)
	}

	got, err := c.LoginOrganization(ctx, Credentials{Email: seed.Acme.Email, Password: "acme-secret"})
	if err != nil {
		t.Fatalf("LoginOrganization: %v", err)
	}
	if got.ID != seed.Acme.ID {
		t.Errorf("login id = %q, want %q", got.ID, seed.Acme.ID)
	}

	_, err = c.LoginOrganization(ctx, Credentials{Email: seed.Acme.Email, Password: "wrong"})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusUnauthorized {
		t.Errorf("bad login err = %v, want 401 rejection", err)
	}
}

func TestAddTeam(t *testing.T) {
	c, fake, seed := newTestClient(t)
	team, err := c.AddTeam(context.Background(), AddTeamInput{TeamName: "Yellow", OrganizationID: seed.Acme.ID})
	if err != nil {
		t.Fatalf("AddTeam: %v", err)
	}
	if team.ID == "" || team.Name != "Yellow" || team.OrganizationID != seed.Acme.ID {
		t.Errorf("team = %+v", team)
	}
	if n := len(fake.Teams()); n != 4 {
		t.Errorf("stored teams = %d, want 4", n)
	}
}

func TestAddMemberWithImage(t *testing.T) {
	c, fake, seed := newTestClient(t)
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'J', 'F', 'I', 'F'}
	m, err := c.AddMember(context.Background(), AddMemberInput{
		TeamID: seed.Blue.ID, Name: "Eve", Email: "eve@acme.test", Password: "pw",
		Image: &Image{Filename: "captured-image.jpg", ContentType: "image/jpeg", Data: jpeg},
	})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.TeamID != seed.Blue.ID || !m.HasImage() {
		t.Errorf("member = %+v", m)
	}
	if got := fake.Upload(m.ID); string(got) != string(jpeg) {
		t.Errorf("uploaded bytes = %v, want %v", got, jpeg)
	}
}

func TestAddMemberWithoutImage(t *testing.T) {
	c, _, seed := newTestClient(t)
	m, err := c.AddMember(context.Background(), AddMemberInput{
		TeamID: seed.Blue.ID, Name: "Fay", Email: "fay@acme.test", Password: "pw",
	})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.HasImage() {
		t.Errorf("member unexpectedly has image: %+v", m)
	}
}

func TestUploadMemberImage(t *testing.T) {
	c, fake, seed := newTestClient(t)
	data := []byte("\x89PNG\r\n\x1a\n")
	m, err := c.UploadMemberImage(context.Background(), seed.Ann.ID, Image{Filename: "ann.png", ContentType: "image/png", Data: data})
	if err != nil {
		t.Fatalf("UploadMemberImage: %v", err)
	}
	if m.ID != seed.Ann.ID || !m.HasImage() {
		t.Errorf("member = %+v", m)
	}
	if string(fake.Upload(seed.Ann.ID)) != string(data) {
		t.Errorf("upload not stored")
	}

	_, err = c.UploadMemberImage(context.Background(), "nobody", Image{Filename: "x.png", Data: data})
	if !apperr.Is(err, apperr.ServerRejected) {
		t.Errorf("unknown member err = %v, want ServerRejected", err)
	}
}

func TestLoginMember(t *testing.T) {
	c, _, seed := newTestClient(t)
	m, err := c.LoginMember(context.Background(), Credentials{Email: seed.Cat.Email, Password: "pw-Cat"})
	if err != nil {
		t.Fatalf("LoginMember: %v", err)
	}
	if m.ID != seed.Cat.ID {
		t.Errorf("member id = %q, want %q", m.ID, seed.Cat.ID)
	}
}

func TestPingAnyStatusIsReachable(t *testing.T) {
	c, _, _ := newTestClient(t)
	// The fake has no route for "/", so it answers 404.
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

