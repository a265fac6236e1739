// Package timeouts provides centralized timeout values for directory calls
// and device operations.
//
// Handlers and the cascade controller wrap outbound work in
// context.WithTimeout using these values so that every screen treats a slow
// directory service the same way. Timeouts can be configured at startup with
// Configure or ConfigureFromEnv; otherwise the defaults apply.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks against the directory API
//   - Fetch: a single list or get-by-id request
//   - Write: register, login, add team, add member
//   - Upload: multipart requests carrying an image
//   - Device: waiting for a camera stream to attach
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultFetch  = 10 * time.Second
	DefaultWrite  = 15 * time.Second
	DefaultUpload = 45 * time.Second
	DefaultDevice = 10 * time.Second
)

var mu sync.RWMutex

var (
	ping   = DefaultPing
	fetch  = DefaultFetch
	write  = DefaultWrite
	upload = DefaultUpload
	device = DefaultDevice
)

// Ping returns the timeout for directory reachability checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Fetch returns the timeout for one read request (list or get by id).
func Fetch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return fetch
}

// Write returns the timeout for JSON write requests.
func Write() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return write
}

// Upload returns the timeout for multipart requests that carry an image.
func Upload() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return upload
}

// Device returns how long StartCamera waits for a stream to attach.
func Device() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return device
}

// Config holds timeout configuration values.
// Zero values are ignored (current values are kept).
type Config struct {
	Ping   time.Duration
	Fetch  time.Duration
	Write  time.Duration
	Upload time.Duration
	Device time.Duration
}

// Configure sets custom timeout values. Call during startup, before
// handlers are built.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	set(&ping, cfg.Ping)
	set(&fetch, cfg.Fetch)
	set(&write, cfg.Write)
	set(&upload, cfg.Upload)
	set(&device, cfg.Device)
}

// Reset restores all timeouts to their default values.
// Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	fetch = DefaultFetch
	write = DefaultWrite
	upload = DefaultUpload
	device = DefaultDevice
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_FETCH, TIMEOUT_WRITE,
// TIMEOUT_UPLOAD and TIMEOUT_DEVICE (Go duration strings such as "5s").
// Invalid or non-positive values are ignored.
//
// Returns the number of timeouts successfully configured from environment.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0
	for _, e := range []struct {
		key string
		dst *time.Duration
	}{
		{"TIMEOUT_PING", &ping},
		{"TIMEOUT_FETCH", &fetch},
		{"TIMEOUT_WRITE", &write},
		{"TIMEOUT_UPLOAD", &upload},
		{"TIMEOUT_DEVICE", &device},
	} {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*e.dst = d
			configured++
		}
	}
	return configured
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Fetch: fetch, Write: write, Upload: upload, Device: device}
}

// WithTimeout creates a context with timeout and returns a cancel function
// that logs a warning if the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upload(), h.Log, "upload member image")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}

func set(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
