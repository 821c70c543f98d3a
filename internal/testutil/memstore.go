package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/repository"
)

// MemSubmissionStore is an in-memory stand-in for repository.SubmissionRepository.
type MemSubmissionStore struct {
	mu    sync.Mutex
	items map[string]*domain.Submission

	// CreateErr, when set, is returned by Create.
	CreateErr error
}

// NewMemSubmissionStore returns a store seeded with subs.
func NewMemSubmissionStore(subs ...*domain.Submission) *MemSubmissionStore {
	s := &MemSubmissionStore{items: make(map[string]*domain.Submission)}
	for _, sub := range subs {
		cp := *sub
		s.items[sub.ID] = &cp
	}
	return s
}

func (s *MemSubmissionStore) Create(_ context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if _, ok := s.items[sub.ID]; ok {
		return fmt.Errorf("insert submission %s: %w", sub.ID, apperrors.ErrAlreadyExists)
	}
	cp := *sub
	s.items[sub.ID] = &cp
	return nil
}

func (s *MemSubmissionStore) Get(_ context.Context, id string) (*domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}
	cp := *sub
	return &cp, nil
}

func (s *MemSubmissionStore) List(_ context.Context, f domain.SubmissionFilter, page domain.Page) ([]*domain.Submission, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page = page.Normalize()

	var matched []*domain.Submission
	for _, sub := range s.items {
		if f.State != "" && sub.ModerationState != f.State {
			continue
		}
		if f.Kind != "" && sub.Kind != f.Kind {
			continue
		}
		if f.RelatedContext != "" && sub.RelatedContext != f.RelatedContext {
			continue
		}
		cp := *sub
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if page.Offset >= total {
		return []*domain.Submission{}, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return matched[page.Offset:end], total, nil
}

func (s *MemSubmissionStore) UpdateModeration(_ context.Context, id string, upd repository.ModerationUpdate) (domain.ModerationState, *domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.items[id]
	if !ok {
		return "", nil, fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}
	prev := sub.ModerationState
	sub.ModerationState = upd.State
	if upd.Notes != nil {
		n := *upd.Notes
		sub.ModeratorNotes = &n
	}
	by, at := upd.ModeratedBy, upd.ModeratedAt
	sub.ModeratedBy = &by
	sub.ModeratedAt = &at
	cp := *sub
	return prev, &cp, nil
}

// Len returns the number of stored submissions.
func (s *MemSubmissionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
