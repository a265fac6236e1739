// internal/domain/models/team.go
package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// Team belongs to exactly one Organization and owns zero or more Members.
type Team struct {
	ID             string `json:"id"`
	Name           string `json:"teamName"`
	OrganizationID string `json:"organizationId"`
}

// UnmarshalJSON accepts either "_id" or "id" for the identifier.
func (t *Team) UnmarshalJSON(b []byte) error {
	type plain Team
	var raw struct {
		plain
		DocID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = Team(raw.plain)
	if t.ID == "" {
		t.ID = raw.DocID
	}
	return nil
}

// Validate requires an id and an owning organization.
func (t Team) Validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return errors.New("team: missing id")
	case strings.TrimSpace(t.OrganizationID) == "":
		return errors.New("team " + t.ID + ": missing organizationId")
	}
	return nil
}
