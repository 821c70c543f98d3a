package ratelimit

import (
	"context"
	"time"

	"travelguide.io/guestbook/internal/domain"
)

// Store persists at most one RateWindow per identity and action kind.
type Store interface {
	// Get returns the stored window, or nil when none exists.
	Get(ctx context.Context, identity string, kind domain.ActionKind) (*domain.RateWindow, error)
	// Put replaces the stored window. expiresAt is when the window stops counting.
	Put(ctx context.Context, w domain.RateWindow, expiresAt time.Time) error
	// Delete removes the window, if any.
	Delete(ctx context.Context, identity string, kind domain.ActionKind) error
}

func windowKey(identity string, kind domain.ActionKind) string {
	return string(kind) + "/" + identity
}
