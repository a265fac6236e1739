// internal/domain/models/organization.go
package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// Organization is the top level of the directory hierarchy.
// The id is assigned by the directory API and never changes once loaded.
type Organization struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location"`
}

// UnmarshalJSON accepts either "_id" (documents) or "id" (login envelopes).
func (o *Organization) UnmarshalJSON(b []byte) error {
	type plain Organization
	var raw struct {
		plain
		DocID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = Organization(raw.plain)
	if o.ID == "" {
		o.ID = raw.DocID
	}
	return nil
}

// Validate rejects payloads that cannot be placed in the hierarchy.
func (o Organization) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("organization: missing id")
	}
	return nil
}
