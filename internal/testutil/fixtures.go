package testutil

import (
	"context"
	"net/http"

	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Directory is a seeded data set shared by handler and cascade tests:
// two organizations, three teams and four members.
type Directory struct {
	Acme, Globex       models.Organization
	Red, Blue, Green   models.Team
	Ann, Bob, Cat, Dan models.Member
}

// SeedDirectory loads the standard data set into f and returns it.
func SeedDirectory(f *FakeDirectory) Directory {
	d := Directory{
		Acme:   models.Organization{ID: "o1", Name: "Acme", Email: "ops@acme.test", Location: "Springfield"},
		Globex: models.Organization{ID: "o2", Name: "Globex", Email: "it@globex.test", Location: "Cypress Creek"},
	}
	d.Red = models.Team{ID: "t1", Name: "Red", OrganizationID: d.Acme.ID}
	d.Blue = models.Team{ID: "t2", Name: "Blue", OrganizationID: d.Acme.ID}
	d.Green = models.Team{ID: "t3", Name: "Green", OrganizationID: d.Globex.ID}

	d.Ann = models.Member{ID: "m1", Name: "Ann", Email: "ann@acme.test", TeamID: d.Red.ID}
	d.Bob = models.Member{ID: "m2", Name: "Bob", Email: "bob@acme.test", TeamID: d.Red.ID, ImageURL: "https://images.example/m2.jpg"}
	d.Cat = models.Member{ID: "m3", Name: "Cat", Email: "cat@acme.test", TeamID: d.Blue.ID}
	d.Dan = models.Member{ID: "m4", Name: "Dan", Email: "dan@globex.test", TeamID: d.Green.ID}

	f.AddOrganization(d.Acme, "acme-secret")
	f.AddOrganization(d.Globex, "globex-secret")
	for _, t := range []models.Team{d.Red, d.Blue, d.Green} {
		f.AddTeam(t)
	}
	for _, m := range []models.Member{d.Ann, d.Bob, d.Cat, d.Dan} {
		f.AddMember(m, "pw-"+m.Name)
	}
	return d
}
