// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/directory"
	"github.com/dalemusser/orgdirectory/internal/app/system/limits"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for orgdirectory.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: api_base_url, session_name, etc.
//   - Environment variables: ORGDIRECTORY_API_BASE_URL, ORGDIRECTORY_SESSION_NAME, etc.
//   - Command-line flags: --api_base_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "api_base_url", Default: "http://localhost:5000", Desc: "Base URL of the directory REST API"},
	{Name: "api_timeout", Default: "15s", Desc: "Per-request timeout for the directory API"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "orgdirectory-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "How long a sign-in lasts"},

	// Screen sessions
	{Name: "screen_key", Default: "", Desc: "Screen token signing key, at least 32 bytes (derived from session_key when blank)"},
	{Name: "screen_idle_timeout", Default: "15m", Desc: "Close screens the browser has not touched for this long"},
	{Name: "screen_sweep_interval", Default: "1m", Desc: "How often idle screens are swept"},
	{Name: "max_screens", Default: 10000, Desc: "Maximum number of open screens (0 for no cap)"},

	// Photo capture
	{Name: "camera_attach_timeout", Default: "10s", Desc: "How long starting the camera waits for the browser"},
	{Name: "max_upload_bytes", Default: limits.MaxUploadBytes, Desc: "Largest accepted member photo in bytes"},

	// Login throttling
	{Name: "login_ip_limit", Default: 20, Desc: "Login attempts allowed per client IP per window"},
	{Name: "login_email_limit", Default: 5, Desc: "Login attempts allowed per email per window"},
	{Name: "login_window", Default: "1m", Desc: "Login throttle window"},

	// HTTP surface
	{Name: "cors_origins", Default: "", Desc: "Comma-separated browser origins allowed to call the API"},
	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, ORGDIRECTORY_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ORGDIRECTORY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		APIBaseURL: appValues.String("api_base_url"),
		APITimeout: appValues.Duration("api_timeout", 15*time.Second),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		ScreenKey:           appValues.String("screen_key"),
		ScreenIdleTimeout:   appValues.Duration("screen_idle_timeout", 15*time.Minute),
		ScreenSweepInterval: appValues.Duration("screen_sweep_interval", time.Minute),
		MaxScreens:          appValues.Int("max_screens"),

		CameraAttachTimeout: appValues.Duration("camera_attach_timeout", 10*time.Second),
		MaxUploadBytes:      int64(appValues.Int("max_upload_bytes")),

		LoginIPLimit:    appValues.Int("login_ip_limit"),
		LoginEmailLimit: appValues.Int("login_email_limit"),
		LoginWindow:     appValues.Duration("login_window", time.Minute),

		CORSOrigins:    splitList(appValues.String("cors_origins")),
		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The directory base URL is checked here so a typo fails at boot rather
// than on the first screen.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if _, err := directory.NormalizeBaseURL(appCfg.APIBaseURL); err != nil {
		logger.Error("invalid directory API base URL", zap.String("api_base_url", appCfg.APIBaseURL), zap.Error(err))
		return fmt.Errorf("invalid api_base_url: %w", err)
	}
	if appCfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", appCfg.MaxUploadBytes)
	}
	if appCfg.ScreenKey != "" && len(appCfg.ScreenKey) < 32 {
		return fmt.Errorf("screen_key must be at least 32 bytes")
	}
	if appCfg.ScreenIdleTimeout <= 0 || appCfg.ScreenSweepInterval <= 0 {
		return fmt.Errorf("screen_idle_timeout and screen_sweep_interval must be positive")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.SessionKey, "dev-only") {
		return fmt.Errorf("session_key must be set in production")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
