package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelguide.io/guestbook/internal/classifier"
	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/ratelimit"
	"travelguide.io/guestbook/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

var (
	testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	visitor = domain.Identity{ID: "user-1", DisplayName: "Ann"}
	admin   = domain.Identity{ID: "admin-1", DisplayName: "Site Admin", Permissions: []string{domain.PermissionPlatformAdmin}}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.DomainEvent
}

func (p *recordingPublisher) Dispatch(_ context.Context, e *domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string, domain.ActionKind) (*domain.RateWindow, error) {
	return nil, errors.New("redis: connection refused")
}
func (brokenStore) Put(context.Context, domain.RateWindow, time.Time) error { return nil }
func (brokenStore) Delete(context.Context, string, domain.ActionKind) error { return nil }

type fixture struct {
	uc     *SubmitUseCase
	store  *testutil.MemSubmissionStore
	events *recordingPublisher
}

func newFixture(t *testing.T, rateStore ratelimit.Store, seed ...*domain.Submission) fixture {
	t.Helper()
	if rateStore == nil {
		rateStore = ratelimit.NewMemStore(64, time.Hour)
	}
	clock := func() time.Time { return testNow }
	store := testutil.NewMemSubmissionStore(seed...)
	events := &recordingPublisher{}
	uc := NewSubmitUseCase(
		store,
		ratelimit.New(rateStore, ratelimit.WithClock(clock)),
		classifier.NewDefault(),
		events,
		WithClock(clock),
	)
	return fixture{uc: uc, store: store, events: events}
}

func TestSubmit_InitialStates(t *testing.T) {
	tests := []struct {
		name   string
		author domain.Identity
		body   string
		want   domain.ModerationState
	}{
		{name: "visitor clean body is pending", author: visitor, body: "Lovely stay by the lake, thanks", want: domain.StatePending},
		{name: "visitor spam is spam", author: visitor, body: "Amazing deal! Buy now and make money from the free tour", want: domain.StateSpam},
		{name: "admin clean body is approved", author: admin, body: "Lovely stay by the lake, thanks", want: domain.StateApproved},
		{name: "admin spam is still spam", author: admin, body: "Amazing deal! Buy now and make money from the free tour", want: domain.StateSpam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			out, err := f.uc.Execute(context.Background(), SubmitInput{
				Kind: domain.KindEntry, Body: tt.body, RelatedContext: "listing-1",
				SourceAddress: "203.0.113.7", Author: tt.author,
			})

			require.NoError(t, err)
			sub := out.Submission
			assert.Equal(t, tt.want, sub.ModerationState)
			assert.Equal(t, tt.author.ID, sub.AuthorIdentity)
			assert.Equal(t, tt.author.DisplayName, sub.AuthorDisplayName)
			assert.Equal(t, "203.0.113.7", sub.SourceAddress)
			assert.Equal(t, testNow, sub.CreatedAt)
			assert.NotEmpty(t, sub.ID)

			stored, err := f.store.Get(context.Background(), sub.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.ModerationState)
			assert.Equal(t, []domain.EventType{domain.EventSubmissionCreated}, f.events.types())
		})
	}
}

func TestSubmit_ScoreComputedFromBodyAndName(t *testing.T) {
	f := newFixture(t, nil)
	author := domain.Identity{ID: "user-2", DisplayName: "user12345"}

	out, err := f.uc.Execute(context.Background(), SubmitInput{Kind: domain.KindEntry, Body: "Check out www.discount-deals.com and buy now!!!", Author: author})

	require.NoError(t, err)
	assert.Equal(t, 55, out.Submission.SpamScore)
	assert.Equal(t, domain.StateSpam, out.Submission.ModerationState)
	assert.Equal(t, []string{
		classifier.ReasonLinks, classifier.ReasonPromotional, classifier.ReasonAuthorName, classifier.ReasonAuthorSymbol,
	}, out.Submission.SpamReasons)
}

func TestSubmit_RateLimited(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := SubmitInput{Kind: domain.KindEntry, Body: "Lovely stay by the lake, thanks", Author: visitor}

	for i, want := range []int{2, 1, 0} {
		out, err := f.uc.Execute(ctx, in)
		require.NoError(t, err, "call %d", i+1)
		assert.Equal(t, want, out.RateLimit.Remaining)
	}

	_, err := f.uc.Execute(ctx, in)
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeRateLimitExceeded, appErr.Code)
	assert.Equal(t, 429, appErr.HTTPStatus)
	assert.Equal(t, "2026-05-01T10:00:00Z", appErr.Params["reset_at"])
	assert.Equal(t, 3, f.store.Len())
	assert.Contains(t, f.events.types(), domain.EventRateLimitExceeded)

	// comments have their own window
	_, err = f.uc.Execute(ctx, SubmitInput{Kind: domain.KindComment, Body: "Agreed, great place", RelatedContext: "missing", Author: visitor})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSubmissionNotFound))
}

func TestSubmit_InvalidInputDoesNotConsumeSlot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.uc.Execute(ctx, SubmitInput{Kind: domain.KindEntry, Body: "   ", Author: visitor})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeClassifierInputInvalid))
	}
	_, err := f.uc.Execute(ctx, SubmitInput{Kind: domain.KindEntry, Body: "hello", Author: domain.Identity{ID: "user-1"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeClassifierInputInvalid), "display name is required")

	out, err := f.uc.Execute(ctx, SubmitInput{Kind: domain.KindEntry, Body: "Lovely stay by the lake, thanks", Author: visitor})
	require.NoError(t, err)
	assert.Equal(t, 2, out.RateLimit.Remaining)
}

func TestSubmit_RequestValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, SubmitInput{Kind: domain.KindEntry, Body: "hello there", Author: domain.Identity{DisplayName: "Ann"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = f.uc.Execute(ctx, SubmitInput{Kind: "review", Body: "hello there", Author: visitor})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidRequest))

	_, err = f.uc.Execute(ctx, SubmitInput{Kind: domain.KindComment, Body: "hello there", Author: visitor})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidRequest), "comment without parent")
}

func TestSubmit_CommentParentRules(t *testing.T) {
	approvedEntry := &domain.Submission{ID: "e-approved", Kind: domain.KindEntry, ModerationState: domain.StateApproved, CreatedAt: testNow}
	pendingEntry := &domain.Submission{ID: "e-pending", Kind: domain.KindEntry, ModerationState: domain.StatePending, CreatedAt: testNow}
	comment := &domain.Submission{ID: "c-1", Kind: domain.KindComment, RelatedContext: "e-approved", ModerationState: domain.StateApproved, CreatedAt: testNow}

	tests := []struct {
		name     string
		parent   string
		author   domain.Identity
		wantCode string
	}{
		{name: "approved entry", parent: "e-approved", author: visitor},
		{name: "pending entry hidden from visitor", parent: "e-pending", author: visitor, wantCode: apperrors.CodeSubmissionNotFound},
		{name: "pending entry visible to admin", parent: "e-pending", author: admin},
		{name: "comment is not a parent", parent: "c-1", author: visitor, wantCode: apperrors.CodeSubmissionNotFound},
		{name: "missing parent", parent: "nope", author: visitor, wantCode: apperrors.CodeSubmissionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, approvedEntry, pendingEntry, comment)

			out, err := f.uc.Execute(context.Background(), SubmitInput{
				Kind: domain.KindComment, Body: "Agreed, the breakfast was great", RelatedContext: tt.parent, Author: tt.author,
			})

			if tt.wantCode != "" {
				assert.True(t, apperrors.HasCode(err, tt.wantCode), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.KindComment, out.Submission.Kind)
			assert.Equal(t, tt.parent, out.Submission.RelatedContext)
			assert.Equal(t, 9, out.RateLimit.Remaining)
		})
	}
}

func TestSubmit_WriteFailureSurfaces(t *testing.T) {
	f := newFixture(t, nil)
	f.store.CreateErr = errors.New("connection reset by peer")

	_, err := f.uc.Execute(context.Background(), SubmitInput{Kind: domain.KindEntry, Body: "Lovely stay by the lake, thanks", Author: visitor})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSubmissionWriteFailed))
	assert.Empty(t, f.events.types())
}

func TestSubmit_LimiterDegradedStillAdmits(t *testing.T) {
	f := newFixture(t, brokenStore{})

	out, err := f.uc.Execute(context.Background(), SubmitInput{Kind: domain.KindEntry, Body: "Lovely stay by the lake, thanks", Author: visitor})

	require.NoError(t, err)
	assert.True(t, out.RateLimit.Degraded)
	assert.Equal(t, domain.StatePending, out.Submission.ModerationState)
	assert.Equal(t, []domain.EventType{domain.EventRateLimitDegraded, domain.EventSubmissionCreated}, f.events.types())
}
