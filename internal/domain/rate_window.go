package domain

import "time"

// ActionKind identifies a rate-limited action.
type ActionKind string

const (
	ActionEntrySubmission   ActionKind = "entry_submission"
	ActionCommentSubmission ActionKind = "comment_submission"
)

// Valid reports whether a is a known action kind.
func (a ActionKind) Valid() bool {
	return a == ActionEntrySubmission || a == ActionCommentSubmission
}

// RateWindow counts admitted actions for one identity and action kind
// within [WindowStart, WindowStart+length).
type RateWindow struct {
	Identity    string     `json:"identity"`
	ActionKind  ActionKind `json:"action_kind"`
	WindowStart time.Time  `json:"window_start"`
	Count       int        `json:"count"`
}

// ExpiresAt returns the end of the window for the given length.
func (w RateWindow) ExpiresAt(length time.Duration) time.Time {
	return w.WindowStart.Add(length)
}

// Expired reports whether the window has ended at now.
func (w RateWindow) Expired(now time.Time, length time.Duration) bool {
	return !now.Before(w.ExpiresAt(length))
}
