package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelguide.io/guestbook/internal/api/middleware"
	"travelguide.io/guestbook/internal/classifier"
	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/governance/moderation"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/pkg/logger"
	"travelguide.io/guestbook/internal/ratelimit"
	"travelguide.io/guestbook/internal/service"
	"travelguide.io/guestbook/internal/testutil"
	"travelguide.io/guestbook/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

var (
	testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	testJWT = middleware.JWTConfig{SigningKey: []byte("handlers-test-key-123456789012345678"), ExpiresIn: time.Hour}
)

type testEnv struct {
	router *gin.Engine
	store  *testutil.MemSubmissionStore
}

func newTestEnv(t *testing.T, checks map[string]HealthCheck, seed ...*domain.Submission) *testEnv {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := testutil.NewMemSubmissionStore(seed...)
	limiter := ratelimit.New(ratelimit.NewMemStore(64, time.Hour), ratelimit.WithClock(clock))
	events := domain.NewEventDispatcher()

	srv := NewServer(ServerDeps{
		Submit:    usecase.NewSubmitUseCase(store, limiter, classifier.NewDefault(), events, usecase.WithClock(clock)),
		Moderator: moderation.NewGateway(store, events, moderation.WithClock(clock)),
		Views:     service.NewSubmissionQuery(store),
		Resetter:  usecase.NewResetRateLimitUseCase(limiter, events, nil),
		Checks:    checks,
	})

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.MustOpenAPIValidator("/api/v1", middleware.OpenAPIOptions{ValidateResponses: true}),
		middleware.ErrorHandler(),
	)
	srv.RegisterRoutes(router.Group("/api/v1"), middleware.JWTAuth(testJWT),
		middleware.RequirePermission(domain.PermissionModerationManage))
	return &testEnv{router: router, store: store}
}

func token(t *testing.T, userID, name string, permissions ...string) string {
	t.Helper()
	tok, _, err := middleware.GenerateToken(testJWT, userID, name, nil, permissions)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, target, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func mustDecodeJSON(t *testing.T, payload []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(payload, out); err != nil {
		t.Fatalf("decode json: %v; payload=%s", err, string(payload))
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) map[string]interface{} {
	t.Helper()
	require.Equal(t, wantStatus, w.Code, "body=%s", w.Body.String())
	var resp map[string]interface{}
	mustDecodeJSON(t, w.Body.Bytes(), &resp)
	require.Equal(t, wantCode, resp["code"], "body=%s", w.Body.String())
	return resp
}

func approvedEntry(id string, at time.Time) *domain.Submission {
	return &domain.Submission{
		ID: id, Kind: domain.KindEntry, RelatedContext: "listing-1", AuthorIdentity: "u-9",
		AuthorDisplayName: "Old Guest", Body: "We loved it", CreatedAt: at,
		ModerationState: domain.StateApproved, SpamReasons: []string{},
	}
}

func TestCreateEntry_RequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/guestbook/entries", `{"body":"Lovely stay by the lake"}`, "")
	assertErrorCode(t, w, http.StatusUnauthorized, apperrors.CodeUnauthorized)
}

func TestCreateEntry_PendingThenRateLimited(t *testing.T) {
	env := newTestEnv(t, nil)
	visitor := token(t, "u-1", "Ann")

	for want := 2; want >= 0; want-- {
		w := env.do(t, http.MethodPost, "/api/v1/guestbook/entries", `{"body":"Lovely stay by the lake","related_context":"listing-1"}`, visitor)
		require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())

		var resp SubmitResponse
		mustDecodeJSON(t, w.Body.Bytes(), &resp)
		assert.Equal(t, "pending", resp.Submission.ModerationState)
		assert.Equal(t, "u-1", resp.Submission.AuthorIdentity)
		assert.Equal(t, "Ann", resp.Submission.AuthorDisplayName)
		assert.Equal(t, "listing-1", resp.Submission.RelatedContext)
		assert.Equal(t, "192.0.2.1", resp.Submission.SourceAddress)
		assert.Equal(t, want, resp.RateLimit.Remaining)
	}

	w := env.do(t, http.MethodPost, "/api/v1/guestbook/entries", `{"body":"Lovely stay by the lake"}`, visitor)
	resp := assertErrorCode(t, w, http.StatusTooManyRequests, apperrors.CodeRateLimitExceeded)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
	params, _ := resp["params"].(map[string]interface{})
	assert.Equal(t, "2026-05-01T10:00:00Z", params["reset_at"])
	assert.Equal(t, 3, env.store.Len())
}

func TestCreateEntry_PrivilegedAndSpam(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/guestbook/entries", `{"body":"Welcome to our guestbook, enjoy your stay"}`,
		token(t, "admin-1", "Site Admin", domain.PermissionPlatformAdmin))
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())
	var resp SubmitResponse
	mustDecodeJSON(t, w.Body.Bytes(), &resp)
	assert.Equal(t, "approved", resp.Submission.ModerationState)

	w = env.do(t, http.MethodPost, "/api/v1/guestbook/entries", `{"body":"Amazing deal! Buy now and make money from the free tour"}`,
		token(t, "u-2", "Ann"))
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())
	mustDecodeJSON(t, w.Body.Bytes(), &resp)
	assert.Equal(t, "spam", resp.Submission.ModerationState)
	assert.Equal(t, 50, resp.Submission.SpamScore)
	assert.Equal(t, []string{classifier.ReasonPromotional, classifier.ReasonKeywords}, resp.Submission.SpamReasons)
}

func TestCreateEntry_InvalidInput(t *testing.T) {
	env := newTestEnv(t, nil)
	visitor := token(t, "u-1", "Ann")

	for _, body := range []string{`{}`, `{"body":""}`, `{"body":"   "}`} {
		w := env.do(t, http.MethodPost, "/api/v1/guestbook/entries", body, visitor)
		resp := assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeClassifierInputInvalid)
		assert.NotEmpty(t, resp["field_errors"], "body=%s", body)
	}
	assert.Equal(t, 0, env.store.Len())

	w := env.do(t, http.MethodPost, "/api/v1/guestbook/entries", `{"body":42}`, visitor)
	assertErrorCode(t, w, http.StatusBadRequest, middleware.CodeOpenAPIRequestInvalid)
}

func TestCreateComment(t *testing.T) {
	pending := approvedEntry("e-pending", testNow.Add(-time.Hour))
	pending.ModerationState = domain.StatePending
	env := newTestEnv(t, nil, approvedEntry("e-1", testNow.Add(-time.Hour)), pending)
	visitor := token(t, "u-1", "Ann")

	w := env.do(t, http.MethodPost, "/api/v1/guestbook/entries/e-1/comments", `{"body":"Agreed, the breakfast was great"}`, visitor)
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())
	var resp SubmitResponse
	mustDecodeJSON(t, w.Body.Bytes(), &resp)
	assert.Equal(t, "comment", resp.Submission.Kind)
	assert.Equal(t, "e-1", resp.Submission.RelatedContext)
	assert.Equal(t, 9, resp.RateLimit.Remaining)

	w = env.do(t, http.MethodPost, "/api/v1/guestbook/entries/missing/comments", `{"body":"Agreed, the breakfast was great"}`, visitor)
	assertErrorCode(t, w, http.StatusNotFound, apperrors.CodeSubmissionNotFound)

	w = env.do(t, http.MethodPost, "/api/v1/guestbook/entries/e-pending/comments", `{"body":"Agreed, the breakfast was great"}`, visitor)
	assertErrorCode(t, w, http.StatusNotFound, apperrors.CodeSubmissionNotFound)
}

func TestPublicReads_OnlyApproved(t *testing.T) {
	pending := approvedEntry("e-pending", testNow.Add(-30*time.Minute))
	pending.ModerationState = domain.StatePending
	comment := approvedEntry("c-1", testNow.Add(-10*time.Minute))
	comment.Kind = domain.KindComment
	comment.RelatedContext = "e-2"
	env := newTestEnv(t, nil,
		approvedEntry("e-1", testNow.Add(-2*time.Hour)),
		approvedEntry("e-2", testNow.Add(-time.Hour)),
		pending, comment,
	)

	w := env.do(t, http.MethodGet, "/api/v1/guestbook/entries", "", "")
	require.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	var list ListResponse[PublicSubmissionResponse]
	mustDecodeJSON(t, w.Body.Bytes(), &list)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "e-2", list.Items[0].ID, "newest first")
	assert.Equal(t, "e-1", list.Items[1].ID)
	assert.Equal(t, 2, list.TotalCount)
	assert.Equal(t, domain.DefaultPageLimit, list.Limit)
	assert.NotContains(t, w.Body.String(), "author_identity")

	w = env.do(t, http.MethodGet, "/api/v1/guestbook/entries/e-pending", "", "")
	assertErrorCode(t, w, http.StatusNotFound, apperrors.CodeSubmissionNotFound)

	w = env.do(t, http.MethodGet, "/api/v1/guestbook/entries/c-1", "", "")
	assertErrorCode(t, w, http.StatusNotFound, apperrors.CodeSubmissionNotFound)

	w = env.do(t, http.MethodGet, "/api/v1/guestbook/entries/e-2/comments", "", "")
	require.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	mustDecodeJSON(t, w.Body.Bytes(), &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "c-1", list.Items[0].ID)

	w = env.do(t, http.MethodGet, "/api/v1/guestbook/entries?limit=0", "", "")
	assertErrorCode(t, w, http.StatusBadRequest, middleware.CodeOpenAPIRequestInvalid)
}

func TestModeration_RequiresPermission(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/moderation/submissions?state=pending", "", token(t, "u-1", "Ann"))
	assertErrorCode(t, w, http.StatusForbidden, apperrors.CodeForbidden)

	w = env.do(t, http.MethodGet, "/api/v1/moderation/submissions?state=pending", "", "")
	assertErrorCode(t, w, http.StatusUnauthorized, apperrors.CodeUnauthorized)
}

func TestModeration_ReviewFlow(t *testing.T) {
	pending := approvedEntry("e-1", testNow.Add(-time.Hour))
	pending.ModerationState = domain.StatePending
	env := newTestEnv(t, nil, pending)
	mod := token(t, "mod-1", "Mo", domain.PermissionModerationManage)

	w := env.do(t, http.MethodGet, "/api/v1/moderation/submissions?state=pending", "", mod)
	require.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	var list ListResponse[SubmissionResponse]
	mustDecodeJSON(t, w.Body.Bytes(), &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "e-1", list.Items[0].ID)

	w = env.do(t, http.MethodPost, "/api/v1/moderation/submissions/e-1/transition", `{"state":"approved","notes":"looks fine"}`, mod)
	require.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	var sub SubmissionResponse
	mustDecodeJSON(t, w.Body.Bytes(), &sub)
	assert.Equal(t, "approved", sub.ModerationState)
	require.NotNil(t, sub.ModeratorNotes)
	assert.Equal(t, "looks fine", *sub.ModeratorNotes)
	require.NotNil(t, sub.ModeratedBy)
	assert.Equal(t, "mod-1", *sub.ModeratedBy)

	w = env.do(t, http.MethodGet, "/api/v1/guestbook/entries/e-1", "", "")
	require.Equal(t, http.StatusOK, w.Code, "approved entry is public")

	w = env.do(t, http.MethodPost, "/api/v1/moderation/submissions/e-1/reopen", "", mod)
	require.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	mustDecodeJSON(t, w.Body.Bytes(), &sub)
	assert.Equal(t, "pending", sub.ModerationState)
	assert.Equal(t, "looks fine", *sub.ModeratorNotes, "notes kept when omitted")

	w = env.do(t, http.MethodGet, "/api/v1/moderation/submissions/e-1", "", mod)
	require.Equal(t, http.StatusOK, w.Code)

	for _, state := range []string{"pending", "archived", ""} {
		w = env.do(t, http.MethodPost, "/api/v1/moderation/submissions/e-1/transition", `{"state":"`+state+`"}`, mod)
		resp := assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidModerationState)
		assert.Equal(t, map[string]any{"state": state}, resp["params"])
	}

	w = env.do(t, http.MethodPost, "/api/v1/moderation/submissions/nope/transition", `{"state":"spam"}`, mod)
	assertErrorCode(t, w, http.StatusNotFound, apperrors.CodeSubmissionNotFound)

	w = env.do(t, http.MethodGet, "/api/v1/moderation/submissions?state=archived", "", mod)
	assertErrorCode(t, w, http.StatusBadRequest, middleware.CodeOpenAPIRequestInvalid)
}

func TestResetRateLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	visitor := token(t, "u-1", "Ann")
	mod := token(t, "mod-1", "Mo", domain.PermissionModerationManage)
	body := `{"body":"Lovely stay by the lake"}`

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/guestbook/entries", body, visitor).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/api/v1/guestbook/entries", body, visitor).Code)

	w := env.do(t, http.MethodDelete, "/api/v1/moderation/rate-limits/u-1/vote", "", mod)
	assertErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidActionKind)

	w = env.do(t, http.MethodDelete, "/api/v1/moderation/rate-limits/u-1/entry_submission", "", mod)
	require.Equal(t, http.StatusNoContent, w.Code, "body=%s", w.Body.String())

	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/guestbook/entries", body, visitor).Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
	})

	w := env.do(t, http.MethodGet, "/api/v1/health/live", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/health/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp HealthResponse
	mustDecodeJSON(t, w.Body.Bytes(), &resp)
	assert.Equal(t, HealthStatusDegraded, resp.Status)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "error"}, resp.Checks)
}
