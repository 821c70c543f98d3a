// Package moderation implements the submission moderation state machine.
//
// Initial state is assigned once, at creation, from the classifier result and
// the submitter's privilege. Afterwards only a privileged moderator changes it:
// Transition moves a submission to approved, rejected or spam from any state,
// and Reopen moves it back to pending. There are no guarded edges.
//
// Import Path: travelguide.io/guestbook/internal/governance/moderation
package moderation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/classifier"
	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/pkg/metrics"
	"travelguide.io/guestbook/internal/repository"
)

// InitialState decides the state a new submission is created in.
// Spam dominates; otherwise privileged submitters bypass review.
func InitialState(result classifier.Result, identity domain.Identity, isPrivileged domain.PrivilegeCheck) domain.ModerationState {
	if result.IsSpam {
		return domain.StateSpam
	}
	if isPrivileged != nil && isPrivileged(identity) {
		return domain.StateApproved
	}
	return domain.StatePending
}

// Store is the persistence the gateway writes through.
type Store interface {
	UpdateModeration(ctx context.Context, id string, upd repository.ModerationUpdate) (domain.ModerationState, *domain.Submission, error)
}

// Gateway applies moderator actions.
type Gateway struct {
	store        Store
	events       domain.EventPublisher
	isPrivileged domain.PrivilegeCheck
	now          func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPrivilegeCheck overrides who may moderate.
func WithPrivilegeCheck(check domain.PrivilegeCheck) Option {
	return func(g *Gateway) {
		if check != nil {
			g.isPrivileged = check
		}
	}
}

// WithClock overrides the time source for moderated_at.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGateway creates a moderation Gateway. events may be nil.
func NewGateway(store Store, events domain.EventPublisher, opts ...Option) *Gateway {
	g := &Gateway{
		store:        store,
		events:       events,
		isPrivileged: domain.IsModerator,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsPrivileged reports whether identity may moderate and bypass review.
func (g *Gateway) IsPrivileged(identity domain.Identity) bool {
	return g.isPrivileged(identity)
}

// Transition sets the submission's state to target, one of approved, rejected or spam.
// Notes replace prior notes only when non-nil. Any other target fails with
// INVALID_MODERATION_STATE and nothing is written.
func (g *Gateway) Transition(ctx context.Context, id string, target domain.ModerationState, notes *string, moderator domain.Identity) (*domain.Submission, error) {
	if !g.isPrivileged(moderator) {
		return nil, apperrors.ErrForbiddenAction("moderation requires a privileged identity")
	}
	if !target.IsTransitionTarget() {
		return nil, apperrors.ErrInvalidModerationState(string(target))
	}
	return g.apply(ctx, id, target, notes, moderator, domain.EventSubmissionModerated)
}

// Reopen moves a submission back to pending for another review.
func (g *Gateway) Reopen(ctx context.Context, id string, notes *string, moderator domain.Identity) (*domain.Submission, error) {
	if !g.isPrivileged(moderator) {
		return nil, apperrors.ErrForbiddenAction("moderation requires a privileged identity")
	}
	return g.apply(ctx, id, domain.StatePending, notes, moderator, domain.EventSubmissionReopened)
}

func (g *Gateway) apply(ctx context.Context, id string, target domain.ModerationState, notes *string, moderator domain.Identity, eventType domain.EventType) (*domain.Submission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.ErrSubmissionNotFound(id)
	}

	prev, updated, err := g.store.UpdateModeration(ctx, id, repository.ModerationUpdate{
		State:       target,
		Notes:       notes,
		ModeratedBy: moderator.ID,
		ModeratedAt: g.now(),
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrSubmissionNotFound(id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to update moderation state", http.StatusInternalServerError)
	}

	metrics.ModerationTransitions.WithLabelValues(string(target)).Inc()
	logger.Info("Submission moderated",
		zap.String("submission_id", id),
		zap.String("from", string(prev)),
		zap.String("to", string(target)),
		zap.String("moderator", moderator.ID),
	)

	if g.events != nil {
		event := domain.NewEvent(eventType, domain.AggregateSubmission, id, moderator.ID,
			domain.ModerationPayload{From: prev, To: target, Notes: notes})
		if err := g.events.Dispatch(ctx, event); err != nil {
			logger.Warn("Moderation event dispatch failed",
				zap.String("submission_id", id),
				zap.Error(fmt.Errorf("dispatch %s: %w", eventType, err)),
			)
		}
	}
	return updated, nil
}
