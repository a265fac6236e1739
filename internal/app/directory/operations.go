package directory

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
)

// Credentials is the login payload shared by organizations and members.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterOrganizationInput is the registration payload.
type RegisterOrganizationInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location"`
	Password string `json:"password"`
}

// AddTeamInput is the add-team payload.
type AddTeamInput struct {
	TeamName       string `json:"teamName"`
	OrganizationID string `json:"organizationId"`
}

// Image is a file part sent with multipart member requests.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AddMemberInput is the add-member payload. Image is optional.
type AddMemberInput struct {
	TeamID   string
	Name     string
	Email    string
	Password string
	Image    *Image
}

/*─────────────────────────────── reads ───────────────────────────────*/

// ListOrganizations returns every organization.
func (c *Client) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	const op = "directory.ListOrganizations"
	data, err := c.get(ctx, op, "/organization/findAll")
	if err != nil {
		return nil, err
	}
	return decodeList[models.Organization](op, data)
}

// GetOrganization returns one organization by id.
func (c *Client) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	const op = "directory.GetOrganization"
	data, err := c.get(ctx, op, "/organization/getById/"+url.PathEscape(id))
	if err != nil {
		return models.Organization{}, err
	}
	var org models.Organization
	if err := decodeEntity(op, data, "organization", &org); err != nil {
		return models.Organization{}, err
	}
	if err := org.Validate(); err != nil {
		return models.Organization{}, apperr.Malformed(op, err)
	}
	return org, nil
}

// ListTeams returns the teams of one organization.
func (c *Client) ListTeams(ctx context.Context, organizationID string) ([]models.Team, error) {
	const op = "directory.ListTeams"
	data, err := c.get(ctx, op, "/team/get/"+url.PathEscape(organizationID))
	if err != nil {
		return nil, err
	}
	return decodeList[models.Team](op, data)
}

// GetTeam returns one team by id.
func (c *Client) GetTeam(ctx context.Context, id string) (models.Team, error) {
	const op = "directory.GetTeam"
	data, err := c.get(ctx, op, "/team/findById/"+url.PathEscape(id))
	if err != nil {
		return models.Team{}, err
	}
	var team models.Team
	if err := decodeEntity(op, data, "team", &team); err != nil {
		return models.Team{}, err
	}
	if err := team.Validate(); err != nil {
		return models.Team{}, apperr.Malformed(op, err)
	}
	return team, nil
}

// ListMembers returns every member, unscoped.
func (c *Client) ListMembers(ctx context.Context) ([]models.Member, error) {
	const op = "directory.ListMembers"
	data, err := c.get(ctx, op, "/member/findAll")
	if err != nil {
		return nil, err
	}
	return decodeList[models.Member](op, data)
}

// ListTeamMembers returns the members of one team. The API has no
// team-scoped listing, so this filters the unscoped collection; both views
// therefore agree by construction.
func (c *Client) ListTeamMembers(ctx context.Context, teamID string) ([]models.Member, error) {
	all, err := c.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(all))
	for _, m := range all {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetMember returns one member by id.
func (c *Client) GetMember(ctx context.Context, id string) (models.Member, error) {
	const op = "directory.GetMember"
	data, err := c.get(ctx, op, "/member/findById/"+url.PathEscape(id))
	if err != nil {
		return models.Member{}, err
	}
	var m models.Member
	if err := decodeEntity(op, data, "member", &m); err != nil {
		return models.Member{}, err
	}
	if err := m.Validate(); err != nil {
		return models.Member{}, apperr.Malformed(op, err)
	}
	return m, nil
}

/*─────────────────────────────── writes ──────────────────────────────*/

// RegisterOrganization creates an organization and returns it.
func (c *Client) RegisterOrganization(ctx context.Context, in RegisterOrganizationInput) (models.Organization, error) {
	const op = "directory.RegisterOrganization"
	data, err := c.postJSON(ctx, op, "/organization/register", in)
	if err != nil {
		return models.Organization{}, err
	}
	var org models.Organization
	if err := decodeEntity(op, data, "organization", &org); err != nil {
		return models.Organization{}, err
	}
	if err := org.Validate(); err != nil {
		return models.Organization{}, apperr.Malformed(op, err)
	}
	return org, nil
}

// LoginOrganization exchanges credentials for the signed-in organization.
func (c *Client) LoginOrganization(ctx context.Context, creds Credentials) (models.Organization, error) {
	const op = "directory.LoginOrganization"
	data, err := c.postJSON(ctx, op, "/organization/login", creds)
	if err != nil {
		return models.Organization{}, err
	}
	var org models.Organization
	if err := decodeEntity(op, data, "organization", &org); err != nil {
		return models.Organization{}, err
	}
	if err := org.Validate(); err != nil {
		return models.Organization{}, apperr.Malformed(op, err)
	}
	return org, nil
}

// AddTeam creates a team inside an organization.
func (c *Client) AddTeam(ctx context.Context, in AddTeamInput) (models.Team, error) {
	const op = "directory.AddTeam"
	data, err := c.postJSON(ctx, op, "/team/add", in)
	if err != nil {
		return models.Team{}, err
	}
	var team models.Team
	if err := decodeEntity(op, data, "team", &team); err != nil {
		return models.Team{}, err
	}
	if team.OrganizationID == "" {
		team.OrganizationID = in.OrganizationID
	}
	if team.Name == "" {
		team.Name = in.TeamName
	}
	if err := team.Validate(); err != nil {
		return models.Team{}, apperr.Malformed(op, err)
	}
	return team, nil
}

// LoginMember exchanges credentials for the signed-in member.
func (c *Client) LoginMember(ctx context.Context, creds Credentials) (models.Member, error) {
	const op = "directory.LoginMember"
	data, err := c.postJSON(ctx, op, "/member/login", creds)
	if err != nil {
		return models.Member{}, err
	}
	var m models.Member
	if err := decodeEntity(op, data, "member", &m); err != nil {
		return models.Member{}, err
	}
	if strings.TrimSpace(m.ID) == "" {
		return models.Member{}, apperr.Malformed(op, fmt.Errorf("member: missing id"))
	}
	return m, nil
}

// AddMember creates a member, optionally with a photo, as multipart form data.
func (c *Client) AddMember(ctx context.Context, in AddMemberInput) (models.Member, error) {
	const op = "directory.AddMember"
	body, contentType, err := encodeMultipart(map[string]string{
		"teamId":   in.TeamID,
		"name":     in.Name,
		"email":    in.Email,
		"password": in.Password,
	}, in.Image)
	if err != nil {
		return models.Member{}, apperr.Invalid(op, "the member form could not be encoded", nil)
	}
	data, err := c.send(ctx, op, http.MethodPost, "/member/add", body, contentType)
	if err != nil {
		return models.Member{}, err
	}
	var m models.Member
	if err := decodeEntity(op, data, "member", &m); err != nil {
		return models.Member{}, err
	}
	if m.TeamID == "" {
		m.TeamID = in.TeamID
	}
	if err := m.Validate(); err != nil {
		return models.Member{}, apperr.Malformed(op, err)
	}
	return m, nil
}

// UploadMemberImage uploads or replaces a member's photo and returns the
// member carrying the new image URL.
func (c *Client) UploadMemberImage(ctx context.Context, memberID string, img Image) (models.Member, error) {
	const op = "directory.UploadMemberImage"
	body, contentType, err := encodeMultipart(nil, &img)
	if err != nil {
		return models.Member{}, apperr.Invalid(op, "the image could not be encoded", nil)
	}
	data, err := c.send(ctx, op, http.MethodPost, "/member/upload/"+url.PathEscape(memberID), body, contentType)
	if err != nil {
		return models.Member{}, err
	}
	var m models.Member
	if err := decodeEntity(op, data, "member", &m); err != nil {
		return models.Member{}, err
	}
	if m.ID == "" {
		m.ID = memberID
	}
	if !m.HasImage() {
		return models.Member{}, apperr.Malformed(op, fmt.Errorf("member %s: upload response has no imageUrl", memberID))
	}
	return m, nil
}

// encodeMultipart writes fields in a fixed order (teamId, name, email,
// password) followed by an optional "image" part.
func encodeMultipart(fields map[string]string, img *Image) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range []string{"teamId", "name", "email", "password"} {
		v, ok := fields[k]
		if !ok {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if img != nil && len(img.Data) > 0 {
		filename := img.Filename
		if filename == "" {
			filename = "image"
		}
		ct := img.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
