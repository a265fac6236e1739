package forms

// LoginInput is the organization and member sign-in form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email" msg:"Please fill in both fields." msg_email:"Please enter a valid email address."`
	Password string `json:"password" validate:"required" msg:"Please fill in both fields."`
}

// Normalize cleans the input in place.
func (in *LoginInput) Normalize() {
	in.Email = CleanEmail(in.Email)
}

// RegisterInput is the organization registration form.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=200" msg:"Please enter the organization name."`
	Email    string `json:"email" validate:"required,email" msg:"Please enter the organization email." msg_email:"Please enter a valid email address."`
	Location string `json:"location" validate:"required,max=200" msg:"Please enter the organization location."`
	Password string `json:"password" validate:"required,min=6" msg:"Please choose a password." msg_min:"Passwords must be at least 6 characters."`
}

// Normalize cleans the input in place.
func (in *RegisterInput) Normalize() {
	in.Name = Clean(in.Name)
	in.Email = CleanEmail(in.Email)
	in.Location = Clean(in.Location)
}

// TeamInput is the add-team form.
type TeamInput struct {
	TeamName       string `json:"teamName" validate:"required,max=120" msg:"Please enter a team name"`
	OrganizationID string `json:"organizationId" validate:"required" msg:"Please select an organization."`
}

// Normalize cleans the input in place.
func (in *TeamInput) Normalize() {
	in.TeamName = Clean(in.TeamName)
	in.OrganizationID = Clean(in.OrganizationID)
}

// MemberInput is the add-member form. The photo travels separately.
type MemberInput struct {
	TeamID   string `json:"teamId" validate:"required" msg:"Please select a team."`
	Name     string `json:"name" validate:"required,max=200" msg:"Please fill in the name, email, and password fields."`
	Email    string `json:"email" validate:"required,email" msg:"Please fill in the name, email, and password fields." msg_email:"Please enter a valid email address."`
	Password string `json:"password" validate:"required" msg:"Please fill in the name, email, and password fields."`
}

// Normalize cleans the input in place.
func (in *MemberInput) Normalize() {
	in.TeamID = Clean(in.TeamID)
	in.Name = Clean(in.Name)
	in.Email = CleanEmail(in.Email)
}
