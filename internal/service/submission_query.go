package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
)

// SubmissionReader is the read side of the submission store.
type SubmissionReader interface {
	Get(ctx context.Context, id string) (*domain.Submission, error)
	List(ctx context.Context, filter domain.SubmissionFilter, page domain.Page) ([]*domain.Submission, int, error)
}

// ListFilter narrows a moderation view.
type ListFilter struct {
	Kind           domain.SubmissionKind
	RelatedContext string
}

// SubmissionQuery is the read-only view of submissions grouped by moderation state.
// Views are newest first. Public reads only ever see approved content.
type SubmissionQuery struct {
	repo SubmissionReader
}

// NewSubmissionQuery creates a SubmissionQuery.
func NewSubmissionQuery(repo SubmissionReader) *SubmissionQuery {
	return &SubmissionQuery{repo: repo}
}

// ListPending returns submissions awaiting review.
func (q *SubmissionQuery) ListPending(ctx context.Context, f ListFilter, page domain.Page) (*domain.SubmissionList, error) {
	return q.ListByState(ctx, domain.StatePending, f, page)
}

// ListApproved returns published submissions.
func (q *SubmissionQuery) ListApproved(ctx context.Context, f ListFilter, page domain.Page) (*domain.SubmissionList, error) {
	return q.ListByState(ctx, domain.StateApproved, f, page)
}

// ListSpam returns submissions flagged as spam.
func (q *SubmissionQuery) ListSpam(ctx context.Context, f ListFilter, page domain.Page) (*domain.SubmissionList, error) {
	return q.ListByState(ctx, domain.StateSpam, f, page)
}

// ListRejected returns submissions a moderator rejected.
func (q *SubmissionQuery) ListRejected(ctx context.Context, f ListFilter, page domain.Page) (*domain.SubmissionList, error) {
	return q.ListByState(ctx, domain.StateRejected, f, page)
}

// ListByState returns one page of the view for state.
func (q *SubmissionQuery) ListByState(ctx context.Context, state domain.ModerationState, f ListFilter, page domain.Page) (*domain.SubmissionList, error) {
	if !state.Valid() {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "unknown moderation state").
			WithParams(map[string]interface{}{"state": string(state)})
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "unknown submission kind").
			WithParams(map[string]interface{}{"kind": string(f.Kind)})
	}
	page = page.Normalize()

	items, total, err := q.repo.List(ctx, domain.SubmissionFilter{
		State:          state,
		Kind:           f.Kind,
		RelatedContext: strings.TrimSpace(f.RelatedContext),
	}, page)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list submissions", http.StatusInternalServerError)
	}

	return &domain.SubmissionList{
		Items:      items,
		TotalCount: total,
		Limit:      page.Limit,
		Offset:     page.Offset,
	}, nil
}

// Get returns a submission in any state.
func (q *SubmissionQuery) Get(ctx context.Context, id string) (*domain.Submission, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.ErrSubmissionNotFound(id)
	}
	s, err := q.repo.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrSubmissionNotFound(id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to load submission", http.StatusInternalServerError)
	}
	return s, nil
}

// ListPublic is the approved view for anonymous readers.
func (q *SubmissionQuery) ListPublic(ctx context.Context, f ListFilter, page domain.Page) (*domain.SubmissionList, error) {
	return q.ListApproved(ctx, f, page)
}

// GetPublic returns an approved submission. Any other state reads as not found.
func (q *SubmissionQuery) GetPublic(ctx context.Context, id string) (*domain.Submission, error) {
	s, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.IsPublic() {
		return nil, apperrors.ErrSubmissionNotFound(id)
	}
	return s, nil
}

// ListPublicComments returns approved comments on an approved entry.
func (q *SubmissionQuery) ListPublicComments(ctx context.Context, entryID string, page domain.Page) (*domain.SubmissionList, error) {
	entry, err := q.GetPublic(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Kind != domain.KindEntry {
		return nil, apperrors.ErrSubmissionNotFound(entryID)
	}
	return q.ListApproved(ctx, ListFilter{Kind: domain.KindComment, RelatedContext: entry.ID}, page)
}
