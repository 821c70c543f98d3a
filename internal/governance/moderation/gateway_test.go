package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelguide.io/guestbook/internal/classifier"
	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/repository"
)

func init() {
	_ = logger.Init("error", "json")
}

type memStore struct {
	mu      sync.Mutex
	items   map[string]*domain.Submission
	updates int
	err     error
}

func newMemStore(subs ...*domain.Submission) *memStore {
	s := &memStore{items: map[string]*domain.Submission{}}
	for _, sub := range subs {
		s.items[sub.ID] = sub
	}
	return s
}

func (s *memStore) UpdateModeration(_ context.Context, id string, upd repository.ModerationUpdate) (domain.ModerationState, *domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.err != nil {
		return "", nil, s.err
	}
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
	sub.ModeratedBy, sub.ModeratedAt = &by, &at
	cp := *sub
	return prev, &cp, nil
}

type recordingPublisher struct {
	events []*domain.DomainEvent
	err    error
}

func (p *recordingPublisher) Dispatch(_ context.Context, e *domain.DomainEvent) error {
	p.events = append(p.events, e)
	return p.err
}

var (
	moderator = domain.Identity{ID: "mod-1", Permissions: []string{domain.PermissionModerationManage}}
	admin     = domain.Identity{ID: "admin-1", Permissions: []string{domain.PermissionPlatformAdmin}}
	visitor   = domain.Identity{ID: "user-1", DisplayName: "Ann"}
	fixedNow  = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

func pendingEntry(id string) *domain.Submission {
	return &domain.Submission{ID: id, Kind: domain.KindEntry, AuthorIdentity: "user-1", ModerationState: domain.StatePending}
}

func strPtr(s string) *string { return &s }

func TestInitialState(t *testing.T) {
	tests := []struct {
		name     string
		isSpam   bool
		identity domain.Identity
		want     domain.ModerationState
	}{
		{name: "visitor clean", identity: visitor, want: domain.StatePending},
		{name: "visitor spam", isSpam: true, identity: visitor, want: domain.StateSpam},
		{name: "admin clean", identity: admin, want: domain.StateApproved},
		{name: "admin spam", isSpam: true, identity: admin, want: domain.StateSpam},
		{name: "moderator clean", identity: moderator, want: domain.StateApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialState(classifier.Result{IsSpam: tt.isSpam}, tt.identity, domain.IsModerator)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, domain.StatePending, InitialState(classifier.Result{}, admin, nil))
	trustAll := func(domain.Identity) bool { return true }
	assert.Equal(t, domain.StateApproved, InitialState(classifier.Result{}, visitor, trustAll))
}

func TestTransition_PendingToSpamWithNotes(t *testing.T) {
	store := newMemStore(pendingEntry("s-1"))
	events := &recordingPublisher{}
	g := NewGateway(store, events, WithClock(func() time.Time { return fixedNow }))

	got, err := g.Transition(context.Background(), "s-1", domain.StateSpam, strPtr("manual flag"), moderator)

	require.NoError(t, err)
	assert.Equal(t, domain.StateSpam, got.ModerationState)
	require.NotNil(t, got.ModeratorNotes)
	assert.Equal(t, "manual flag", *got.ModeratorNotes)
	assert.Equal(t, "mod-1", *got.ModeratedBy)
	assert.Equal(t, fixedNow, *got.ModeratedAt)

	require.Len(t, events.events, 1)
	e := events.events[0]
	assert.Equal(t, domain.EventSubmissionModerated, e.EventType)
	assert.Equal(t, "s-1", e.AggregateID)
	var payload domain.ModerationPayload
	require.NoError(t, json.Unmarshal(e.Payload, &payload))
	assert.Equal(t, domain.StatePending, payload.From)
	assert.Equal(t, domain.StateSpam, payload.To)
}

func TestTransition_AnyToAny(t *testing.T) {
	store := newMemStore(pendingEntry("s-1"))
	g := NewGateway(store, nil)
	ctx := context.Background()

	for _, target := range []domain.ModerationState{domain.StateApproved, domain.StateRejected, domain.StateSpam, domain.StateApproved, domain.StateApproved} {
		got, err := g.Transition(ctx, "s-1", target, nil, admin)
		require.NoError(t, err)
		assert.Equal(t, target, got.ModerationState)
	}
}

func TestTransition_InvalidTargetLeavesStateUnchanged(t *testing.T) {
	for _, target := range []domain.ModerationState{domain.StatePending, "deleted", ""} {
		t.Run(string(target), func(t *testing.T) {
			sub := pendingEntry("s-1")
			sub.ModerationState = domain.StateApproved
			store := newMemStore(sub)
			g := NewGateway(store, nil)

			_, err := g.Transition(context.Background(), "s-1", target, strPtr("x"), moderator)

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidModerationState))
			assert.Equal(t, 0, store.updates)
			assert.Equal(t, domain.StateApproved, store.items["s-1"].ModerationState)
			assert.Nil(t, store.items["s-1"].ModeratorNotes)
		})
	}
}

func TestTransition_RequiresPrivilege(t *testing.T) {
	store := newMemStore(pendingEntry("s-1"))
	g := NewGateway(store, nil)

	_, err := g.Transition(context.Background(), "s-1", domain.StateApproved, nil, visitor)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Equal(t, 0, store.updates)

	_, err = g.Reopen(context.Background(), "s-1", nil, visitor)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestTransition_CustomPrivilegeCheck(t *testing.T) {
	store := newMemStore(pendingEntry("s-1"))
	g := NewGateway(store, nil, WithPrivilegeCheck(func(i domain.Identity) bool { return i.ID == "user-1" }))

	_, err := g.Transition(context.Background(), "s-1", domain.StateApproved, nil, visitor)
	require.NoError(t, err)
	assert.True(t, g.IsPrivileged(visitor))
	assert.False(t, g.IsPrivileged(admin))
}

func TestTransition_NotFound(t *testing.T) {
	g := NewGateway(newMemStore(), nil)

	_, err := g.Transition(context.Background(), "missing", domain.StateApproved, nil, moderator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSubmissionNotFound))

	_, err = g.Transition(context.Background(), "  ", domain.StateApproved, nil, moderator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSubmissionNotFound))
}

func TestTransition_NotesKeptWhenOmitted(t *testing.T) {
	store := newMemStore(pendingEntry("s-1"))
	g := NewGateway(store, nil)
	ctx := context.Background()

	_, err := g.Transition(ctx, "s-1", domain.StateRejected, strPtr("off-topic"), moderator)
	require.NoError(t, err)
	got, err := g.Transition(ctx, "s-1", domain.StateApproved, nil, moderator)
	require.NoError(t, err)

	require.NotNil(t, got.ModeratorNotes)
	assert.Equal(t, "off-topic", *got.ModeratorNotes)
}

func TestTransition_StoreFailure(t *testing.T) {
	store := newMemStore(pendingEntry("s-1"))
	store.err = errors.New("connection reset")
	g := NewGateway(store, nil)

	_, err := g.Transition(context.Background(), "s-1", domain.StateApproved, nil, moderator)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestTransition_DispatchFailureDoesNotFail(t *testing.T) {
	store := newMemStore(pendingEntry("s-1"))
	g := NewGateway(store, &recordingPublisher{err: errors.New("audit pool closed")})

	got, err := g.Transition(context.Background(), "s-1", domain.StateApproved, nil, moderator)

	require.NoError(t, err)
	assert.Equal(t, domain.StateApproved, got.ModerationState)
}

func TestReopen_SpamBackToPending(t *testing.T) {
	sub := pendingEntry("s-1")
	sub.ModerationState = domain.StateSpam
	store := newMemStore(sub)
	events := &recordingPublisher{}
	g := NewGateway(store, events)

	got, err := g.Reopen(context.Background(), "s-1", strPtr("false positive"), moderator)

	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, got.ModerationState)
	require.Len(t, events.events, 1)
	assert.Equal(t, domain.EventSubmissionReopened, events.events[0].EventType)
}
