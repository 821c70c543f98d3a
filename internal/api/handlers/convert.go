package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/ratelimit"
)

// SubmissionResponse is the moderator view of a submission.
type SubmissionResponse struct {
	ID                string     `json:"id"`
	Kind              string     `json:"kind"`
	RelatedContext    string     `json:"related_context,omitempty"`
	AuthorIdentity    string     `json:"author_identity"`
	AuthorDisplayName string     `json:"author_display_name"`
	Body              string     `json:"body"`
	CreatedAt         time.Time  `json:"created_at"`
	ModerationState   string     `json:"moderation_state"`
	SpamScore         int        `json:"spam_score"`
	SpamReasons       []string   `json:"spam_reasons"`
	SourceAddress     string     `json:"source_address,omitempty"`
	ModeratorNotes    *string    `json:"moderator_notes,omitempty"`
	ModeratedBy       *string    `json:"moderated_by,omitempty"`
	ModeratedAt       *time.Time `json:"moderated_at,omitempty"`
}

// PublicSubmissionResponse is what anonymous readers see.
type PublicSubmissionResponse struct {
	ID                string    `json:"id"`
	Kind              string    `json:"kind"`
	RelatedContext    string    `json:"related_context,omitempty"`
	AuthorDisplayName string    `json:"author_display_name"`
	Body              string    `json:"body"`
	CreatedAt         time.Time `json:"created_at"`
}

// RateLimitStatus reports the caller's remaining budget after a submission.
type RateLimitStatus struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Degraded  bool      `json:"degraded"`
}

// SubmitResponse is returned by the create endpoints.
type SubmitResponse struct {
	Submission SubmissionResponse `json:"submission"`
	RateLimit  RateLimitStatus    `json:"rate_limit"`
}

// ListResponse is one page of items.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

func toSubmissionResponse(s *domain.Submission) SubmissionResponse {
	reasons := s.SpamReasons
	if reasons == nil {
		reasons = []string{}
	}
	return SubmissionResponse{
		ID:                s.ID,
		Kind:              string(s.Kind),
		RelatedContext:    s.RelatedContext,
		AuthorIdentity:    s.AuthorIdentity,
		AuthorDisplayName: s.AuthorDisplayName,
		Body:              s.Body,
		CreatedAt:         s.CreatedAt.UTC(),
		ModerationState:   string(s.ModerationState),
		SpamScore:         s.SpamScore,
		SpamReasons:       reasons,
		SourceAddress:     s.SourceAddress,
		ModeratorNotes:    s.ModeratorNotes,
		ModeratedBy:       s.ModeratedBy,
		ModeratedAt:       s.ModeratedAt,
	}
}

func toPublicSubmissionResponse(s *domain.Submission) PublicSubmissionResponse {
	return PublicSubmissionResponse{
		ID:                s.ID,
		Kind:              string(s.Kind),
		RelatedContext:    s.RelatedContext,
		AuthorDisplayName: s.AuthorDisplayName,
		Body:              s.Body,
		CreatedAt:         s.CreatedAt.UTC(),
	}
}

func toRateLimitStatus(d ratelimit.Decision) RateLimitStatus {
	remaining := d.Remaining
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitStatus{Remaining: remaining, ResetAt: d.ResetAt.UTC(), Degraded: d.Degraded}
}

func toListResponse[T any](list *domain.SubmissionList, conv func(*domain.Submission) T) ListResponse[T] {
	items := make([]T, 0, len(list.Items))
	for _, s := range list.Items {
		items = append(items, conv(s))
	}
	return ListResponse[T]{Items: items, TotalCount: list.TotalCount, Limit: list.Limit, Offset: list.Offset}
}

// pageFromQuery reads limit and offset. Missing values fall back to the defaults.
func pageFromQuery(c *gin.Context) (domain.Page, error) {
	var page domain.Page
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &page.Limit}, {"offset", &page.Offset}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return domain.Page{}, apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid pagination parameter").
				WithParams(map[string]interface{}{"param": p.name})
		}
		*p.dst = v
	}
	return page.Normalize(), nil
}
