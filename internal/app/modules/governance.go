package modules

import (
	"context"

	"github.com/riverqueue/river"

	"travelguide.io/guestbook/internal/api/handlers"
	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/governance/moderation"
)

// auditedEvents are recorded in the audit log.
var auditedEvents = []domain.EventType{
	domain.EventSubmissionCreated,
	domain.EventSubmissionModerated,
	domain.EventSubmissionReopened,
	domain.EventRateLimitExceeded,
	domain.EventRateLimitDegraded,
	domain.EventRateLimitReset,
}

// GovernanceModule owns moderation and the audit trail.
type GovernanceModule struct {
	infra   *Infrastructure
	gateway *moderation.Gateway
}

// NewGovernanceModule creates the moderation gateway and subscribes the audit
// logger to every domain event.
func NewGovernanceModule(infra *Infrastructure) *GovernanceModule {
	infra.Events.Subscribe("audit", infra.AuditLogger.AsyncHandler(infra.Pools), auditedEvents...)
	return &GovernanceModule{
		infra:   infra,
		gateway: moderation.NewGateway(infra.Submissions, infra.Events),
	}
}

func (m *GovernanceModule) Name() string { return "governance" }

func (m *GovernanceModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Moderator = m.gateway
}

func (m *GovernanceModule) RegisterWorkers(_ *river.Workers) {}

func (m *GovernanceModule) PeriodicJobs() []*river.PeriodicJob { return nil }

func (m *GovernanceModule) Shutdown(context.Context) error { return nil }

// Gateway returns the moderation gateway.
func (m *GovernanceModule) Gateway() *moderation.Gateway { return m.gateway }
