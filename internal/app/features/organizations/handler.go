// internal/app/features/organizations/handler.go
package organizations

import (
	"context"

	"github.com/dalemusser/orgdirectory/internal/app/directory"
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/dalemusser/orgdirectory/internal/app/system/metrics"
	"github.com/dalemusser/orgdirectory/internal/app/system/ratelimit"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"go.uber.org/zap"
)

// Directory is the part of the directory client organizations use.
type Directory interface {
	RegisterOrganization(ctx context.Context, in directory.RegisterOrganizationInput) (models.Organization, error)
	LoginOrganization(ctx context.Context, creds directory.Credentials) (models.Organization, error)
	GetOrganization(ctx context.Context, id string) (models.Organization, error)
	ListTeams(ctx context.Context, organizationID string) ([]models.Team, error)
	ListMembers(ctx context.Context) ([]models.Member, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]models.Member, error)
	AddTeam(ctx context.Context, in directory.AddTeamInput) (models.Team, error)
	AddMember(ctx context.Context, in directory.AddMemberInput) (models.Member, error)
}

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	API       Directory
	Screens   *screens.Registry
	Sessions  *auth.SessionManager
	Limiter   *ratelimit.LoginLimiter
	Metrics   *metrics.Set
	MaxUpload int64
	Log       *zap.Logger
}

// NewHandler constructs a new Organizations handler.
func NewHandler(api Directory, reg *screens.Registry, sm *auth.SessionManager, ll *ratelimit.LoginLimiter, m *metrics.Set, maxUpload int64, logger *zap.Logger) *Handler {
	return &Handler{
		API:       api,
		Screens:   reg,
		Sessions:  sm,
		Limiter:   ll,
		Metrics:   m,
		MaxUpload: maxUpload,
		Log:       logger,
	}
}
