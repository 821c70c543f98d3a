// Package usecase provides application use cases.
//
// Use cases are shared by the HTTP handlers and the seed command.
//
// Import Path: travelguide.io/guestbook/internal/usecase
package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/classifier"
	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/governance/moderation"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/pkg/metrics"
	"travelguide.io/guestbook/internal/ratelimit"
)

// SubmitInput is one inbound guestbook entry or comment.
type SubmitInput struct {
	Kind domain.SubmissionKind
	Body string
	// RelatedContext is the listing id for entries and the parent entry id for comments.
	RelatedContext string
	SourceAddress  string
	Author         domain.Identity
}

// SubmitOutput is the created submission and the rate limit decision that admitted it.
type SubmitOutput struct {
	Submission *domain.Submission
	RateLimit  ratelimit.Decision
}

// SubmissionStore persists new submissions.
type SubmissionStore interface {
	Create(ctx context.Context, s *domain.Submission) error
	Get(ctx context.Context, id string) (*domain.Submission, error)
}

// Admitter is the rate limiter.
type Admitter interface {
	CheckAndAdmit(ctx context.Context, identity string, kind domain.ActionKind) (ratelimit.Decision, error)
}

// ContentClassifier scores submissions.
type ContentClassifier interface {
	ValidateInput(body, displayName string) error
	Classify(body, displayName string) classifier.Result
}

// SubmitUseCase runs the inbound pipeline:
// validate -> rate limit -> classify -> initial state -> persist -> event.
type SubmitUseCase struct {
	store        SubmissionStore
	limiter      Admitter
	classifier   ContentClassifier
	events       domain.EventPublisher
	isPrivileged domain.PrivilegeCheck
	now          func() time.Time
}

// SubmitOption configures a SubmitUseCase.
type SubmitOption func(*SubmitUseCase)

// WithPrivilegeCheck overrides who bypasses review.
func WithPrivilegeCheck(check domain.PrivilegeCheck) SubmitOption {
	return func(uc *SubmitUseCase) {
		if check != nil {
			uc.isPrivileged = check
		}
	}
}

// WithClock overrides the time source for created_at.
func WithClock(now func() time.Time) SubmitOption {
	return func(uc *SubmitUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// NewSubmitUseCase creates a SubmitUseCase. events may be nil.
func NewSubmitUseCase(store SubmissionStore, limiter Admitter, cls ContentClassifier, events domain.EventPublisher, opts ...SubmitOption) *SubmitUseCase {
	uc := &SubmitUseCase{
		store:        store,
		limiter:      limiter,
		classifier:   cls,
		events:       events,
		isPrivileged: domain.IsModerator,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute submits one entry or comment.
//
// Invalid input fails before the rate limiter so it never consumes a slot.
// A failed write is returned to the caller; the rate limit slot stays consumed.
func (uc *SubmitUseCase) Execute(ctx context.Context, in SubmitInput) (*SubmitOutput, error) {
	author := in.Author
	if strings.TrimSpace(author.ID) == "" {
		return nil, apperrors.Unauthorized(apperrors.CodeUnauthorized, "an authenticated identity is required")
	}
	if !in.Kind.Valid() {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "unknown submission kind").
			WithParams(map[string]interface{}{"kind": string(in.Kind)})
	}
	body := strings.TrimSpace(in.Body)
	if err := uc.classifier.ValidateInput(body, author.DisplayName); err != nil {
		return nil, err
	}
	related := strings.TrimSpace(in.RelatedContext)
	if in.Kind == domain.KindComment {
		if err := uc.checkParent(ctx, related, author); err != nil {
			return nil, err
		}
	}

	action := in.Kind.ActionKind()
	decision, err := uc.limiter.CheckAndAdmit(ctx, author.ID, action)
	if err != nil {
		return nil, err
	}
	if decision.Degraded {
		errText := ""
		if decision.Err != nil {
			errText = decision.Err.Error()
		}
		uc.dispatch(ctx, domain.NewEvent(domain.EventRateLimitDegraded, domain.AggregateRateWindow,
			string(action)+"/"+author.ID, author.ID,
			domain.RateLimitPayload{ActionKind: action, Error: errText}))
	}
	now := uc.now()
	if !decision.Allowed {
		uc.dispatch(ctx, domain.NewEvent(domain.EventRateLimitExceeded, domain.AggregateRateWindow,
			string(action)+"/"+author.ID, author.ID,
			domain.RateLimitPayload{ActionKind: action, ResetAt: decision.ResetAt}))
		return nil, apperrors.ErrRateLimitExceeded(string(action), decision.ResetAt, now)
	}

	result := uc.classifier.Classify(body, author.DisplayName)
	state := moderation.InitialState(result, author, uc.isPrivileged)

	sub := &domain.Submission{
		ID:                newSubmissionID(),
		Kind:              in.Kind,
		RelatedContext:    related,
		AuthorIdentity:    author.ID,
		AuthorDisplayName: author.DisplayName,
		Body:              body,
		CreatedAt:         now,
		ModerationState:   state,
		SpamScore:         result.Score,
		SpamReasons:       result.Reasons,
		SourceAddress:     in.SourceAddress,
	}
	if err := uc.store.Create(ctx, sub); err != nil {
		logger.Error("Failed to persist submission",
			zap.String("submission_id", sub.ID),
			zap.String("author", author.ID),
			zap.Error(err),
		)
		return nil, apperrors.Wrap(err, apperrors.CodeSubmissionWriteFailed, "failed to save submission", http.StatusInternalServerError)
	}

	metrics.SubmissionsCreated.WithLabelValues(string(sub.Kind), string(state)).Inc()
	metrics.SpamScore.WithLabelValues(string(sub.Kind)).Observe(float64(result.Score))
	for _, reason := range result.Reasons {
		metrics.ClassifierReasons.WithLabelValues(reason).Inc()
	}

	uc.dispatch(ctx, domain.NewEvent(domain.EventSubmissionCreated, domain.AggregateSubmission, sub.ID, author.ID,
		domain.SubmissionCreatedPayload{
			Kind:          sub.Kind,
			State:         state,
			SpamScore:     result.Score,
			SpamReasons:   result.Reasons,
			SourceAddress: sub.SourceAddress,
		}))

	logger.Info("Submission created",
		zap.String("submission_id", sub.ID),
		zap.String("kind", string(sub.Kind)),
		zap.String("state", string(state)),
		zap.Int("spam_score", result.Score),
		zap.Int("remaining", decision.Remaining),
	)

	return &SubmitOutput{Submission: sub, RateLimit: decision}, nil
}

// checkParent requires comments to reference an existing entry that the author can see.
func (uc *SubmitUseCase) checkParent(ctx context.Context, parentID string, author domain.Identity) error {
	if parentID == "" {
		return apperrors.BadRequest(apperrors.CodeInvalidRequest, "comments require a parent entry")
	}
	parent, err := uc.store.Get(ctx, parentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.ErrSubmissionNotFound(parentID)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to load parent entry", http.StatusInternalServerError)
	}
	if parent.Kind != domain.KindEntry {
		return apperrors.ErrSubmissionNotFound(parentID)
	}
	if !parent.IsPublic() && !uc.isPrivileged(author) {
		return apperrors.ErrSubmissionNotFound(parentID)
	}
	return nil
}

func (uc *SubmitUseCase) dispatch(ctx context.Context, event *domain.DomainEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Dispatch(ctx, event); err != nil {
		logger.Warn("Event dispatch failed",
			zap.String("event_type", string(event.EventType)),
			zap.String("aggregate_id", event.AggregateID),
			zap.Error(err),
		)
	}
}

func newSubmissionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
