// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/orgdirectory/internal/app/capture/relay"
	"github.com/dalemusser/orgdirectory/internal/app/directory"
	"github.com/dalemusser/orgdirectory/internal/app/system/auth"
	"github.com/dalemusser/orgdirectory/internal/app/system/metrics"
	"github.com/dalemusser/orgdirectory/internal/app/system/ratelimit"
	"github.com/dalemusser/orgdirectory/internal/app/system/screens"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/dalemusser/orgdirectory/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// ConnectDB builds the directory client and the in-process state that
// handlers share. The directory API is pinged once; an unreachable API is
// logged, not fatal, since every screen already reports fetch failures.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var m *metrics.Set
	if appCfg.MetricsEnabled {
		m = metrics.New()
	}

	client, err := directory.New(directory.Config{
		BaseURL: appCfg.APIBaseURL,
		Timeout: appCfg.APITimeout,
	}, logger.Named("directory"), directory.WithMetrics(m))
	if err != nil {
		return DBDeps{}, fmt.Errorf("directory client: %w", err)
	}

	pctx, cancel := timeouts.WithTimeout(ctx, timeouts.Ping(), logger, "directory ping")
	defer cancel()
	if err := client.Ping(pctx); err != nil {
		logger.Warn("directory API unreachable at startup", zap.String("base_url", client.BaseURL()), zap.Error(err))
	} else {
		logger.Info("directory API reachable", zap.String("base_url", client.BaseURL()))
	}

	reg, err := screens.NewRegistry(screenKey(appCfg), nil, logger.Named("screens"),
		screens.WithMetrics(m), screens.WithLimit(appCfg.MaxScreens))
	if err != nil {
		return DBDeps{}, fmt.Errorf("screen registry: %w", err)
	}

	secure := coreCfg.Env == "prod"
	sm, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		return DBDeps{}, fmt.Errorf("session manager: %w", err)
	}

	relayOpts := []relay.Option{relay.WithMaxFrameBytes(appCfg.MaxUploadBytes)}
	if len(appCfg.CORSOrigins) > 0 {
		relayOpts = append(relayOpts, relay.WithCheckOrigin(originAllowed(appCfg.CORSOrigins)))
	}
	hub := relay.NewHub(logger.Named("relay"), relayOpts...)

	return DBDeps{
		Directory: client,
		Screens:   reg,
		Relay:     hub,
		Sessions:  sm,
		Logins:    ratelimit.NewLoginLimiterWithConfig(appCfg.LoginIPLimit, appCfg.LoginWindow, appCfg.LoginEmailLimit, appCfg.LoginWindow),
		Metrics:   m,
		Sweeper:   workers.NewScreenSweeper(reg, logger.Named("sweeper"), appCfg.ScreenSweepInterval, appCfg.ScreenIdleTimeout),
	}, nil
}

// EnsureSchema has nothing to do: the directory API owns its storage.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	return nil
}

// originAllowed accepts camera sockets from the configured browser
// origins as well as from the serving host itself.
func originAllowed(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// screenKey returns the configured screen token key, or one derived from
// the session key so a single secret is enough in development.
func screenKey(appCfg AppConfig) []byte {
	if appCfg.ScreenKey != "" {
		return []byte(appCfg.ScreenKey)
	}
	sum := sha256.Sum256([]byte("orgdirectory screens\x00" + appCfg.SessionKey))
	return sum[:]
}
