// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work and releases every open screen, which
// stops any camera streams still running.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Sweeper != nil {
		deps.Sweeper.Stop()
	}
	if deps.Screens != nil {
		n := deps.Screens.CloseAll()
		logger.Info("closed open screens", zap.Int("count", n))
	}
	if deps.Relay != nil {
		deps.Relay.Close()
	}
	if deps.Logins != nil {
		deps.Logins.Stop()
	}
	return nil
}
