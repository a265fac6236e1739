package aggregate

import (
	"testing"

	"github.com/dalemusser/orgdirectory/internal/domain/models"
)

func sampleTeams() []models.Team {
	return []models.Team{
		{ID: "t1", Name: "Core", OrganizationID: "o1"},
		{ID: "t2", Name: "Infra", OrganizationID: "o1"},
	}
}

func sampleMembers() []models.Member {
	return []models.Member{
		{ID: "m1", TeamID: "t1"},
		{ID: "m2", TeamID: "t1"},
		{ID: "m3", TeamID: "t2"},
	}
}

func TestTeamMemberCounts(t *testing.T) {
	counts := TeamMemberCounts(sampleTeams(), sampleMembers())
	if counts["t1"] != 2 || counts["t2"] != 1 {
		t.Errorf("counts = %v, want t1:2 t2:1", counts)
	}
	totals := TotalsFor(sampleTeams(), counts)
	if totals.Teams != 2 || totals.Members != 3 {
		t.Errorf("totals = %+v, want 2 teams, 3 members", totals)
	}
}

func TestTeamMemberCounts_MatchesScopedFilter(t *testing.T) {
	teams := append(sampleTeams(), models.Team{ID: "t3", OrganizationID: "o1"})
	members := append(sampleMembers(),
		models.Member{ID: "m4", TeamID: "t9"},
		models.Member{ID: "m5", TeamID: "t2"},
	)
	counts := TeamMemberCounts(teams, members)
	for _, team := range teams {
		scoped := FilterByTeam(members, team.ID)
		if counts[team.ID] != len(scoped) {
			t.Errorf("team %s: grouped count %d != scoped count %d", team.ID, counts[team.ID], len(scoped))
		}
	}
}

func TestTeamMemberCounts_EmptyTeamsAndStrays(t *testing.T) {
	counts := TeamMemberCounts([]models.Team{{ID: "t1"}}, []models.Member{{ID: "m1", TeamID: "elsewhere"}})
	if len(counts) != 1 || counts["t1"] != 0 {
		t.Errorf("counts = %v, want only t1:0", counts)
	}
}

func TestFilterByTeam_DoesNotAlias(t *testing.T) {
	members := sampleMembers()
	out := FilterByTeam(members, "t1")
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	out[0].Name = "changed"
	if members[0].Name == "changed" {
		t.Error("FilterByTeam result aliases its input")
	}
}

func TestOrganizationOverview_RecomputesAfterMerge(t *testing.T) {
	org := models.Organization{ID: "o1", Name: "Acme"}
	teams := sampleTeams()
	members := sampleMembers()

	before := OrganizationOverview(org, teams, members)
	if before.Totals.Members != 3 {
		t.Fatalf("before totals = %+v", before.Totals)
	}

	teams = append(teams, models.Team{ID: "t3", Name: "New", OrganizationID: "o1"})
	members = append(members, models.Member{ID: "m9", TeamID: "t3"})
	after := OrganizationOverview(org, teams, members)

	if after.Totals.Teams != 3 || after.Totals.Members != 4 {
		t.Errorf("after totals = %+v, want 3 teams, 4 members", after.Totals)
	}
	if got := after.Teams[2]; got.TeamName != "New" || got.MemberCount != 1 {
		t.Errorf("new team summary = %+v", got)
	}
}
