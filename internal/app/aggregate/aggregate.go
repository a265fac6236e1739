// Package aggregate derives summary statistics from collections that are
// already loaded. It never fetches and holds no state: every function is a
// pure function of its arguments, so results are recomputed on each read and
// always reflect merged entities.
package aggregate

import "github.com/dalemusser/orgdirectory/internal/domain/models"

// TeamSummary is one row of the per-team breakdown.
type TeamSummary struct {
	TeamID      string `json:"teamId"`
	TeamName    string `json:"teamName"`
	MemberCount int    `json:"memberCount"`
}

// Totals is the organization-level roll-up.
type Totals struct {
	Teams   int `json:"teams"`
	Members int `json:"members"`
}

// Overview combines an organization with its per-team breakdown and totals.
type Overview struct {
	Organization models.Organization `json:"organization"`
	Teams        []TeamSummary       `json:"teams"`
	Totals       Totals              `json:"totals"`
}

// FilterByTeam returns the members whose TeamID equals teamID, in input
// order. The result never aliases the input slice.
func FilterByTeam(members []models.Member, teamID string) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out
}

// TeamMemberCounts returns, for every team, the number of members whose
// TeamID equals the team's id. Teams without members map to 0; members of
// teams not in the list are ignored.
//
// Counting an unscoped collection this way gives the same number as
// len(FilterByTeam(members, team.ID)) for each team.
func TeamMemberCounts(teams []models.Team, members []models.Member) map[string]int {
	counts := make(map[string]int, len(teams))
	for _, t := range teams {
		counts[t.ID] = 0
	}
	for _, m := range members {
		if _, ok := counts[m.TeamID]; ok {
			counts[m.TeamID]++
		}
	}
	return counts
}

// TotalsFor returns the team count and the sum of the per-team member
// counts for the given teams.
func TotalsFor(teams []models.Team, counts map[string]int) Totals {
	t := Totals{Teams: len(teams)}
	seen := make(map[string]bool, len(teams))
	for _, team := range teams {
		if seen[team.ID] {
			continue
		}
		seen[team.ID] = true
		t.Members += counts[team.ID]
	}
	return t
}

// Summaries returns the per-team breakdown in team order.
func Summaries(teams []models.Team, members []models.Member) []TeamSummary {
	counts := TeamMemberCounts(teams, members)
	out := make([]TeamSummary, 0, len(teams))
	for _, t := range teams {
		out = append(out, TeamSummary{TeamID: t.ID, TeamName: t.Name, MemberCount: counts[t.ID]})
	}
	return out
}

// OrganizationOverview builds the organization profile roll-up.
func OrganizationOverview(org models.Organization, teams []models.Team, members []models.Member) Overview {
	counts := TeamMemberCounts(teams, members)
	return Overview{
		Organization: org,
		Teams:        Summaries(teams, members),
		Totals:       TotalsFor(teams, counts),
	}
}
