package modules

import (
	"context"

	"github.com/riverqueue/river"

	"travelguide.io/guestbook/internal/api/handlers"
	"travelguide.io/guestbook/internal/classifier"
	"travelguide.io/guestbook/internal/jobs"
	"travelguide.io/guestbook/internal/ratelimit"
	"travelguide.io/guestbook/internal/service"
	"travelguide.io/guestbook/internal/usecase"
)

// SubmissionModule owns the inbound pipeline: classifier, rate limiter and
// submission reads.
type SubmissionModule struct {
	infra   *Infrastructure
	submit  *usecase.SubmitUseCase
	reset   *usecase.ResetRateLimitUseCase
	query   *service.SubmissionQuery
	cleanup *jobs.RateWindowCleanupWorker
}

// NewSubmissionModule wires the submission pipeline from shared infrastructure.
func NewSubmissionModule(infra *Infrastructure) *SubmissionModule {
	cfg := infra.Config
	cls := classifier.NewDefault(
		classifier.WithThreshold(cfg.Moderation.SpamThreshold),
		classifier.WithMaxBodyLength(cfg.Moderation.MaxBodyLength),
	)
	limiter := ratelimit.New(infra.RateStore)

	m := &SubmissionModule{
		infra:  infra,
		submit: usecase.NewSubmitUseCase(infra.Submissions, limiter, cls, infra.Events),
		reset:  usecase.NewResetRateLimitUseCase(limiter, infra.Events, nil),
		query:  service.NewSubmissionQuery(infra.Submissions),
	}
	if infra.PostgresRateStore != nil {
		m.cleanup = jobs.NewRateWindowCleanupWorker(infra.PostgresRateStore, cfg.Maintenance.RateWindowRetention)
	}
	return m
}

func (m *SubmissionModule) Name() string { return "submission" }

func (m *SubmissionModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Submit = m.submit
	deps.Views = m.query
	deps.Resetter = m.reset
}

func (m *SubmissionModule) RegisterWorkers(workers *river.Workers) {
	jobs.RegisterWorkers(workers, m.cleanup)
}

func (m *SubmissionModule) PeriodicJobs() []*river.PeriodicJob {
	return jobs.PeriodicJobs(m.cleanup)
}

func (m *SubmissionModule) Shutdown(context.Context) error { return nil }

// Submitter exposes the inbound pipeline to non-HTTP callers such as the seed command.
func (m *SubmissionModule) Submitter() *usecase.SubmitUseCase { return m.submit }
