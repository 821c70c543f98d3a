package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/pkg/logger"
)

// WindowResetter clears a rate window.
type WindowResetter interface {
	Reset(ctx context.Context, identity string, kind domain.ActionKind) error
}

// ResetRateLimitUseCase lets a moderator clear an identity's rate window.
type ResetRateLimitUseCase struct {
	limiter      WindowResetter
	events       domain.EventPublisher
	isPrivileged domain.PrivilegeCheck
}

// NewResetRateLimitUseCase creates a ResetRateLimitUseCase. events may be nil.
func NewResetRateLimitUseCase(limiter WindowResetter, events domain.EventPublisher, isPrivileged domain.PrivilegeCheck) *ResetRateLimitUseCase {
	if isPrivileged == nil {
		isPrivileged = domain.IsModerator
	}
	return &ResetRateLimitUseCase{limiter: limiter, events: events, isPrivileged: isPrivileged}
}

// Execute clears the window for identity and kind.
func (uc *ResetRateLimitUseCase) Execute(ctx context.Context, identity string, kind domain.ActionKind, actor domain.Identity) error {
	if !uc.isPrivileged(actor) {
		return apperrors.ErrForbiddenAction("resetting rate limits requires a privileged identity")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return apperrors.BadRequest(apperrors.CodeInvalidRequest, "identity is required")
	}
	if err := uc.limiter.Reset(ctx, identity, kind); err != nil {
		return err
	}

	logger.Info("Rate window reset",
		zap.String("identity", identity),
		zap.String("action_kind", string(kind)),
		zap.String("actor", actor.ID),
	)
	if uc.events != nil {
		event := domain.NewEvent(domain.EventRateLimitReset, domain.AggregateRateWindow,
			string(kind)+"/"+identity, actor.ID, domain.RateLimitPayload{ActionKind: kind})
		if err := uc.events.Dispatch(ctx, event); err != nil {
			logger.Warn("Event dispatch failed", zap.String("event_type", string(event.EventType)), zap.Error(err))
		}
	}
	return nil
}
