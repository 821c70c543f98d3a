package ratelimit

import (
	"time"

	"travelguide.io/guestbook/internal/domain"
)

// Policy caps admissions per fixed window.
type Policy struct {
	Cap    int
	Window time.Duration
}

// DefaultPolicies is the fixed per-action policy. It is not runtime configurable.
var DefaultPolicies = map[domain.ActionKind]Policy{
	domain.ActionEntrySubmission:   {Cap: 3, Window: 60 * time.Minute},
	domain.ActionCommentSubmission: {Cap: 10, Window: 60 * time.Minute},
}

// LongestWindow returns the longest window across policies.
func LongestWindow(policies map[domain.ActionKind]Policy) time.Duration {
	var longest time.Duration
	for _, p := range policies {
		if p.Window > longest {
			longest = p.Window
		}
	}
	return longest
}
