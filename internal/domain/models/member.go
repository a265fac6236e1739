// internal/domain/models/member.go
package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// Member belongs to exactly one Team. ImageURL stays empty until a photo
// is uploaded.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	TeamID   string `json:"teamId"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// UnmarshalJSON accepts either "_id" or "id" for the identifier.
func (m *Member) UnmarshalJSON(b []byte) error {
	type plain Member
	var raw struct {
		plain
		DocID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Member(raw.plain)
	if m.ID == "" {
		m.ID = raw.DocID
	}
	return nil
}

// HasImage reports whether a photo has been uploaded for the member.
func (m Member) HasImage() bool { return strings.TrimSpace(m.ImageURL) != "" }

// Validate requires an id and an owning team.
func (m Member) Validate() error {
	switch {
	case strings.TrimSpace(m.ID) == "":
		return errors.New("member: missing id")
	case strings.TrimSpace(m.TeamID) == "":
		return errors.New("member " + m.ID + ": missing teamId")
	}
	return nil
}
