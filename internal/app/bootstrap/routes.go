// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	errorsfeature "github.com/dalemusser/orgdirectory/internal/app/features/errors"
	explorefeature "github.com/dalemusser/orgdirectory/internal/app/features/explore"
	healthfeature "github.com/dalemusser/orgdirectory/internal/app/features/health"
	heartbeatfeature "github.com/dalemusser/orgdirectory/internal/app/features/heartbeat"
	membersfeature "github.com/dalemusser/orgdirectory/internal/app/features/members"
	organizationsfeature "github.com/dalemusser/orgdirectory/internal/app/features/organizations"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, back-end setup and the Startup
// hook have completed. The router applies CORS (when origins are
// configured) and session loading, then mounts one sub-router per feature:
// the explore and teams cascades, organization accounts and profiles,
// member accounts, profiles and photo dialogs, the screen heartbeat,
// health and metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	if len(appCfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(deps.Sessions.LoadSessionUser)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Directory, deps.Screens, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// Keeps open screens from being swept while the browser shows them
	heartbeatHandler := heartbeatfeature.NewHandler(deps.Screens, logger)
	r.Mount("/heartbeat", heartbeatfeature.Routes(heartbeatHandler))

	// Cascading browse screens
	exploreHandler := explorefeature.NewHandler(deps.Directory, deps.Screens, deps.Metrics, logger)
	r.Mount("/explore", explorefeature.Routes(exploreHandler))

	teamsHandler := explorefeature.NewTeamsHandler(deps.Directory, deps.Screens, deps.Metrics, logger)
	r.Mount("/teams", explorefeature.Routes(teamsHandler))

	// Organization accounts and profiles
	orgHandler := organizationsfeature.NewHandler(deps.Directory, deps.Screens, deps.Sessions, deps.Logins,
		deps.Metrics, appCfg.MaxUploadBytes, logger)
	r.Mount("/organizations", organizationsfeature.Routes(orgHandler, deps.Sessions))

	// Member accounts, profiles and photo dialogs
	membersHandler := membersfeature.NewHandler(deps.Directory, deps.Screens, deps.Sessions, deps.Logins,
		deps.Relay, appCfg.MaxUploadBytes, appCfg.CameraAttachTimeout, logger)
	r.Mount("/members", membersfeature.Routes(membersHandler, deps.Sessions))

	return r, nil
}
