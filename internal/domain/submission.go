// Package domain provides domain models for the guestbook moderation service.
//
// Import Path: travelguide.io/guestbook/internal/domain
package domain

import (
	"slices"
	"time"
)

// SubmissionKind distinguishes guestbook entries from comments on entries.
type SubmissionKind string

const (
	KindEntry   SubmissionKind = "entry"
	KindComment SubmissionKind = "comment"
)

// Valid reports whether k is a known submission kind.
func (k SubmissionKind) Valid() bool {
	return k == KindEntry || k == KindComment
}

// ActionKind returns the rate-limited action a submission of this kind consumes.
func (k SubmissionKind) ActionKind() ActionKind {
	if k == KindComment {
		return ActionCommentSubmission
	}
	return ActionEntrySubmission
}

// ModerationState is the lifecycle state of a submission.
type ModerationState string

const (
	StatePending  ModerationState = "pending"
	StateApproved ModerationState = "approved"
	StateRejected ModerationState = "rejected"
	StateSpam     ModerationState = "spam"
)

// AllStates lists every moderation state.
var AllStates = []ModerationState{StatePending, StateApproved, StateRejected, StateSpam}

// TransitionTargets are the states a moderator transition may set.
var TransitionTargets = []ModerationState{StateApproved, StateRejected, StateSpam}

// Valid reports whether s is one of the four moderation states.
func (s ModerationState) Valid() bool {
	return slices.Contains(AllStates, s)
}

// IsTransitionTarget reports whether s may be set by a moderator transition.
func (s ModerationState) IsTransitionTarget() bool {
	return slices.Contains(TransitionTargets, s)
}

// Submission is a guestbook entry or a comment on an entry.
//
// SpamScore and SpamReasons are computed once at creation and never change.
// ModerationState only changes through a moderation action.
type Submission struct {
	ID                string          `json:"id"`
	Kind              SubmissionKind  `json:"kind"`
	RelatedContext    string          `json:"related_context,omitempty"`
	AuthorIdentity    string          `json:"author_identity"`
	AuthorDisplayName string          `json:"author_display_name"`
	Body              string          `json:"body"`
	CreatedAt         time.Time       `json:"created_at"`
	ModerationState   ModerationState `json:"moderation_state"`
	SpamScore         int             `json:"spam_score"`
	SpamReasons       []string        `json:"spam_reasons"`
	SourceAddress     string          `json:"source_address,omitempty"`
	ModeratorNotes    *string         `json:"moderator_notes,omitempty"`
	ModeratedBy       *string         `json:"moderated_by,omitempty"`
	ModeratedAt       *time.Time      `json:"moderated_at,omitempty"`
}

// IsPublic reports whether the submission may be shown on public read paths.
func (s *Submission) IsPublic() bool {
	return s != nil && s.ModerationState == StateApproved
}

// SubmissionFilter narrows a listing.
type SubmissionFilter struct {
	State          ModerationState
	Kind           SubmissionKind
	RelatedContext string
}

// Page is an offset page request.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// SubmissionList is one page of submissions, newest first.
type SubmissionList struct {
	Items      []*Submission `json:"items"`
	TotalCount int           `json:"total_count"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}
