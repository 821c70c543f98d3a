// Package app is the composition root. Bootstrap only orchestrates; modules own wiring.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/api/handlers"
	"travelguide.io/guestbook/internal/app/modules"
	"travelguide.io/guestbook/internal/config"
	"travelguide.io/guestbook/internal/pkg/logger"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	Infra   *modules.Infrastructure
	Modules []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	mods := []modules.Module{
		modules.NewSubmissionModule(infra),
		modules.NewGovernanceModule(infra),
	}

	workers := river.NewWorkers()
	var periodic []*river.PeriodicJob
	for _, mod := range mods {
		mod.RegisterWorkers(workers)
		periodic = append(periodic, mod.PeriodicJobs()...)
	}
	if len(periodic) > 0 {
		if err := infra.InitRiver(workers, periodic); err != nil {
			infra.Close()
			return nil, fmt.Errorf("init river workers: %w", err)
		}
	} else {
		logger.Info("No periodic jobs for this rate limit backend; River disabled",
			zap.String("backend", cfg.RateLimit.Backend))
	}

	server := handlers.NewServer(modules.NewServerDeps(infra, mods))
	router, err := newRouter(cfg, server, modules.NewJWTConfig(cfg.Security))
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("init router: %w", err)
	}

	return &Application{
		Config:  cfg,
		Router:  router,
		Infra:   infra,
		Modules: mods,
	}, nil
}
