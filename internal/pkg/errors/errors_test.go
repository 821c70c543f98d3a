package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeSubmissionNotFound, "submission not found", http.StatusNotFound),
			want: "SUBMISSION_NOT_FOUND: submission not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("db error"), CodeSubmissionWriteFailed, "write failed", http.StatusInternalServerError),
			want: "SUBMISSION_WRITE_FAILED: write failed: db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := Wrap(fmt.Errorf("lookup: %w", ErrNotFound), CodeSubmissionNotFound, "msg", 404)
	if !errors.Is(appErr, ErrNotFound) {
		t.Error("errors.Is should match wrapped sentinel")
	}
}

func TestIsAppErrorAndHasCode(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrSubmissionNotFound("sub-1"))

	got, ok := IsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
	assert.Equal(t, "sub-1", got.Params["id"])
	assert.True(t, HasCode(wrapped, CodeSubmissionNotFound))
	assert.False(t, HasCode(wrapped, CodeRateLimitExceeded))
	assert.False(t, HasCode(errors.New("plain"), CodeSubmissionNotFound))
}

func TestErrRateLimitExceeded(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	resetAt := now.Add(45 * time.Minute)

	err := ErrRateLimitExceeded("entry_submission", resetAt, now)
	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus)
	assert.Equal(t, "2026-03-01T11:00:00Z", err.Params["reset_at"])
	assert.Equal(t, 2700, err.Params["retry_after_seconds"])

	past := ErrRateLimitExceeded("entry_submission", now.Add(-time.Second), now)
	assert.Equal(t, 0, past.Params["retry_after_seconds"])
}

func TestErrClassifierInputInvalid(t *testing.T) {
	err := ErrClassifierInputInvalid("body", "body is required")
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	require.Len(t, err.FieldErrors, 1)
	assert.Equal(t, "body", err.FieldErrors[0].Field)
}

func TestErrInvalidModerationState(t *testing.T) {
	err := ErrInvalidModerationState("pending")
	assert.Equal(t, CodeInvalidModerationState, err.Code)
	assert.Equal(t, "pending", err.Params["state"])
}

func TestWithParams_NilSafe(t *testing.T) {
	var e *AppError
	assert.Nil(t, e.WithParams(map[string]interface{}{"a": 1}))
	assert.Nil(t, e.WithFieldErrors([]FieldError{{Field: "x"}}))
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load parent: %w", ErrSubmissionNotFound("sub-1"))

	assert.True(t, errors.Is(err, ErrSubmissionNotFound("")))
	assert.False(t, errors.Is(err, ErrInvalidModerationState("pending")))
}

func TestWithParams_Merges(t *testing.T) {
	err := ErrSubmissionNotFound("sub-1").WithParams(map[string]any{"kind": "comment"})

	assert.Equal(t, map[string]any{"id": "sub-1", "kind": "comment"}, err.Params)
}

func TestRetryAfterAndStatusOf(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limited := ErrRateLimitExceeded("comment_submission", now.Add(90*time.Second), now)

	secs, ok := limited.RetryAfter()
	require.True(t, ok)
	assert.Equal(t, 90, secs)
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(fmt.Errorf("submit: %w", limited)))

	_, ok = ErrSubmissionNotFound("x").RetryAfter()
	assert.False(t, ok)
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}
