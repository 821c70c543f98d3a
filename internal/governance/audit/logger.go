// Package audit implements the audit logging service.
//
// Audit logs are append-only records of submissions, moderator actions and
// rate limit administration. Writes are best-effort and never fail the
// operation being audited.
//
// Import Path: travelguide.io/guestbook/internal/governance/audit
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/pkg/metrics"
	"travelguide.io/guestbook/internal/pkg/worker"
	"travelguide.io/guestbook/internal/repository"
)

// Writer persists audit records.
type Writer interface {
	Insert(ctx context.Context, rec repository.AuditLog) error
}

// Submitter runs tasks off the request path.
type Submitter interface {
	SubmitDetached(poolName string, task worker.Task) error
}

// Logger writes audit records.
type Logger struct {
	writer Writer
	now    func() time.Time
}

// NewLogger creates a new audit Logger.
func NewLogger(writer Writer) *Logger {
	return &Logger{
		writer: writer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// LogAction records an auditable action.
func (l *Logger) LogAction(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]interface{}) error {
	err := l.writer.Insert(ctx, repository.AuditLog{
		ID:           generateAuditID(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Actor:        actor,
		Details:      details,
		CreatedAt:    l.now(),
	})
	if err != nil {
		metrics.AuditWriteFailures.Inc()
		logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// LogModeration records a moderator action on a submission as moderation.<state>.
func (l *Logger) LogModeration(ctx context.Context, submissionID string, to domain.ModerationState, actor string, details map[string]interface{}) error {
	return l.LogAction(ctx, "moderation."+string(to), domain.AggregateSubmission, submissionID, actor, details)
}

// HandleEvent converts a domain event into an audit record.
func (l *Logger) HandleEvent(ctx context.Context, event *domain.DomainEvent) error {
	details := map[string]interface{}{"event_id": event.EventID}
	if len(event.Payload) > 0 {
		var payload map[string]interface{}
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			for k, v := range payload {
				details[k] = v
			}
		}
	}

	switch event.EventType {
	case domain.EventSubmissionModerated, domain.EventSubmissionReopened:
		to, _ := details["to"].(string)
		return l.LogModeration(ctx, event.AggregateID, domain.ModerationState(to), event.CreatedBy, details)
	default:
		return l.LogAction(ctx, actionName(event.EventType), event.AggregateType, event.AggregateID, event.CreatedBy, details)
	}
}

// AsyncHandler returns an EventHandler that writes audit records on the audit pool.
// Only a failure to schedule is reported to the dispatcher.
func (l *Logger) AsyncHandler(pools Submitter) domain.EventHandler {
	return func(_ context.Context, event *domain.DomainEvent) error {
		err := pools.SubmitDetached(worker.PoolAudit, func(ctx context.Context) {
			_ = l.HandleEvent(ctx, event)
		})
		if err != nil {
			metrics.AuditWriteFailures.Inc()
			return fmt.Errorf("schedule audit write: %w", err)
		}
		return nil
	}
}

func actionName(t domain.EventType) string {
	switch t {
	case domain.EventSubmissionCreated:
		return "submission.created"
	case domain.EventRateLimitExceeded:
		return "rate_limit.exceeded"
	case domain.EventRateLimitDegraded:
		return "rate_limit.degraded"
	case domain.EventRateLimitReset:
		return "rate_limit.reset"
	default:
		return string(t)
	}
}

func generateAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return fmt.Sprintf("audit-%s", id.String())
}
