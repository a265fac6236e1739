// internal/app/features/members/handler.go
package members

import (
	"context"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/capture/relay"
	"github.com/dalemusser/orgdirectory/internal/app/directory"
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/dalemusser/orgdirectory/internal/app/system/ratelimit"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"go.uber.org/zap"
)

// Directory is the part of the directory client members use.
type Directory interface {
	LoginMember(ctx context.Context, creds directory.Credentials) (models.Member, error)
	GetMember(ctx context.Context, id string) (models.Member, error)
	GetTeam(ctx context.Context, id string) (models.Team, error)
	GetOrganization(ctx context.Context, id string) (models.Organization, error)
	UploadMemberImage(ctx context.Context, memberID string, img directory.Image) (models.Member, error)
}

// Handler is the feature-level entry point for Members.
type Handler struct {
	API           Directory
	Screens       *screens.Registry
	Sessions      *auth.SessionManager
	Limiter       *ratelimit.LoginLimiter
	Relay         *relay.Hub
	MaxUpload     int64
	AttachTimeout time.Duration
	Log           *zap.Logger
}

// NewHandler constructs a Members handler. The relay hub supplies the
// camera for photo dialogs.
func NewHandler(api Directory, reg *screens.Registry, sm *auth.SessionManager, ll *ratelimit.LoginLimiter,
	hub *relay.Hub, maxUpload int64, attachTimeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		API:           api,
		Screens:       reg,
		Sessions:      sm,
		Limiter:       ll,
		Relay:         hub,
		MaxUpload:     maxUpload,
		AttachTimeout: attachTimeout,
		Log:           logger,
	}
}
