// Package ratelimit admits or rejects submissions per identity and action kind
// using a fixed-window counter.
//
// A window starts at the first admitted action and counts admissions until
// windowStart+length. Up to twice the cap may be admitted across a window
// boundary, and two concurrent requests for the same identity may both read a
// count below the cap. Both are accepted for an abuse deterrent.
//
// Import Path: travelguide.io/guestbook/internal/ratelimit
package ratelimit

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/pkg/metrics"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// Degraded is set when the store failed and the action was admitted anyway.
	Degraded bool `json:"degraded,omitempty"`
	// Err is the store error behind a degraded decision.
	Err error `json:"-"`
}

// Limiter is a fixed-window admission counter over a Store.
type Limiter struct {
	store    Store
	policies map[domain.ActionKind]Policy
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithPolicies overrides the per-action policy table.
func WithPolicies(policies map[domain.ActionKind]Policy) Option {
	return func(l *Limiter) {
		if len(policies) > 0 {
			l.policies = policies
		}
	}
}

// New creates a Limiter with DefaultPolicies.
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		policies: DefaultPolicies,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndAdmit records one attempt by identity and reports whether it is admitted.
//
// The only error is an unknown action kind. Store failures fail open: the
// action is admitted and the decision is marked Degraded.
func (l *Limiter) CheckAndAdmit(ctx context.Context, identity string, kind domain.ActionKind) (Decision, error) {
	policy, ok := l.policies[kind]
	if !ok {
		return Decision{}, apperrors.BadRequest(apperrors.CodeInvalidActionKind, "unknown action kind").
			WithParams(map[string]interface{}{"action_kind": string(kind)})
	}
	now := l.now()

	current, err := l.store.Get(ctx, identity, kind)
	if err != nil {
		return l.degraded(identity, kind, policy, now, err), nil
	}

	var next domain.RateWindow
	switch {
	case current == nil || current.Expired(now, policy.Window):
		next = domain.RateWindow{Identity: identity, ActionKind: kind, WindowStart: now, Count: 1}
	case current.Count < policy.Cap:
		next = *current
		next.Count++
	default:
		metrics.RateLimitDecisions.WithLabelValues(string(kind), metrics.OutcomeRejected).Inc()
		return Decision{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   current.ExpiresAt(policy.Window),
		}, nil
	}

	resetAt := next.ExpiresAt(policy.Window)
	if err := l.store.Put(ctx, next, resetAt); err != nil {
		return l.degraded(identity, kind, policy, now, err), nil
	}

	metrics.RateLimitDecisions.WithLabelValues(string(kind), metrics.OutcomeAllowed).Inc()
	return Decision{
		Allowed:   true,
		Remaining: policy.Cap - next.Count,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the window for identity and kind so the next action starts a new one.
func (l *Limiter) Reset(ctx context.Context, identity string, kind domain.ActionKind) error {
	if _, ok := l.policies[kind]; !ok {
		return apperrors.BadRequest(apperrors.CodeInvalidActionKind, "unknown action kind").
			WithParams(map[string]interface{}{"action_kind": string(kind)})
	}
	if err := l.store.Delete(ctx, identity, kind); err != nil {
		return apperrors.Wrap(err, apperrors.CodePersistenceUnavailable, "rate window store unavailable", http.StatusServiceUnavailable)
	}
	return nil
}

func (l *Limiter) degraded(identity string, kind domain.ActionKind, policy Policy, now time.Time, err error) Decision {
	logger.Warn("rate limiter degraded",
		zap.String("identity", identity),
		zap.String("action_kind", string(kind)),
		zap.Error(err),
	)
	metrics.RateLimitDecisions.WithLabelValues(string(kind), metrics.OutcomeDegraded).Inc()
	return Decision{
		Allowed:   true,
		Remaining: policy.Cap - 1,
		ResetAt:   now.Add(policy.Window),
		Degraded:  true,
		Err:       err,
	}
}
