// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/orgdirectory/internal/app/capture/relay"
	"github.com/dalemusser/orgdirectory/internal/app/directory"
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/dalemusser/orgdirectory/internal/app/system/metrics"
	"github.com/dalemusser/orgdirectory/internal/app/system/ratelimit"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/app/system/workers"
)

// DBDeps holds the back-end dependencies for the app. There is no local
// database; the directory API client is the only store.
type DBDeps struct {
	Directory *directory.Client
	Screens   *screens.Registry
	Relay     *relay.Hub
	Sessions  *auth.SessionManager
	Logins    *ratelimit.LoginLimiter
	Metrics   *metrics.Set // nil when metrics are disabled
	Sweeper   *workers.ScreenSweeper
}
