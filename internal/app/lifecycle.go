package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/pkg/logger"
)

const defaultShutdownTimeout = 30 * time.Second

// Start starts background services.
func (a *Application) Start(ctx context.Context) error {
	if a.Infra != nil && a.Infra.DB != nil && a.Infra.DB.RiverClient != nil {
		if err := a.Infra.DB.RiverClient.Start(ctx); err != nil {
			return fmt.Errorf("start river client: %w", err)
		}
		logger.Info("River client started, maintenance jobs scheduled")
	}
	return nil
}

// Shutdown gracefully shuts down all application components.
// Pending audit writes drain before the database closes.
func (a *Application) Shutdown() {
	timeout := defaultShutdownTimeout
	if a.Config != nil && a.Config.Server.ShutdownTimeout > 0 {
		timeout = a.Config.Server.ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.Infra != nil && a.Infra.DB != nil && a.Infra.DB.RiverClient != nil {
		if err := a.Infra.DB.RiverClient.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop river client", zap.Error(err))
		}
		logger.Info("River client stopped")
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(shutdownCtx); err != nil {
			logger.Warn("module shutdown returned error",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	a.Infra.Close()
}
