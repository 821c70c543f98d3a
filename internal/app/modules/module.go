// Package modules groups the composition root's dependencies by domain.
//
// Import Path: travelguide.io/guestbook/internal/app/modules
package modules

import (
	"context"

	"github.com/riverqueue/river"

	"travelguide.io/guestbook/internal/api/handlers"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging.
	Name() string

	// ContributeServerDeps injects module-owned dependencies into the HTTP server deps.
	ContributeServerDeps(*handlers.ServerDeps)

	// RegisterWorkers registers module workers into the shared River worker registry.
	RegisterWorkers(*river.Workers)

	// PeriodicJobs returns the module's River periodic schedule.
	PeriodicJobs() []*river.PeriodicJob

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}
