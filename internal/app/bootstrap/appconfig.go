// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level); everything here is
// specific to the directory front end.
type AppConfig struct {
	// Remote directory API
	APIBaseURL string        // Base URL of the directory REST API (e.g., http://localhost:5000)
	APITimeout time.Duration // Per-request timeout for the directory client

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: orgdirectory-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Lifetime of a sign-in

	// Screen sessions
	ScreenKey           string        // Key for signing screen tokens (derived from SessionKey when blank)
	ScreenIdleTimeout   time.Duration // Screens unseen for this long are closed
	ScreenSweepInterval time.Duration // How often idle screens are swept
	MaxScreens          int           // Cap on live screens (0 means no cap)

	// Photo capture
	CameraAttachTimeout time.Duration // How long a camera start waits for the browser socket
	MaxUploadBytes      int64         // Largest accepted member photo

	// Login throttling
	LoginIPLimit    int           // Login attempts per client IP per window
	LoginEmailLimit int           // Login attempts per email per window
	LoginWindow     time.Duration // Throttle window

	// HTTP surface
	CORSOrigins    []string // Allowed browser origins (empty disables CORS handling)
	MetricsEnabled bool     // Expose Prometheus metrics at /metrics
}
