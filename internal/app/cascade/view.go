package cascade

import "github.com/dalemusser/orgdirectory/internal/domain/models"

// View is a point-in-time snapshot of a Controller.
type View struct {
	Organizations  Level[models.Organization] `json:"organizations"`
	OrganizationID string                     `json:"selectedOrganizationId"`
	Teams          Level[models.Team]         `json:"teams"`
	TeamID         string                     `json:"selectedTeamId"`
	Members        Level[models.Member]       `json:"members"`
	Pending        int                        `json:"pending"`
}

// SelectedOrganization returns the selected organization when it is
// present in the loaded organization list.
func (v View) SelectedOrganization() (models.Organization, bool) {
	if v.OrganizationID == "" {
		return models.Organization{}, false
	}
	for _, o := range v.Organizations.Items {
		if o.ID == v.OrganizationID {
			return o, true
		}
	}
	return models.Organization{}, false
}

// SelectedTeam returns the selected team from the loaded team list.
func (v View) SelectedTeam() (models.Team, bool) {
	if v.TeamID == "" {
		return models.Team{}, false
	}
	for _, t := range v.Teams.Items {
		if t.ID == v.TeamID {
			return t, true
		}
	}
	return models.Team{}, false
}

// Idle reports whether no fetch was in flight when the snapshot was taken.
func (v View) Idle() bool { return v.Pending == 0 }
