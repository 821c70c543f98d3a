package errors

import (
	"math"
	"time"
)

// Error codes. Messages are for logs and API consumers; clients key off the code.

// Submission error codes.
const (
	CodeSubmissionNotFound     = "SUBMISSION_NOT_FOUND"
	CodeClassifierInputInvalid = "CLASSIFIER_INPUT_INVALID"
	CodeSubmissionWriteFailed  = "SUBMISSION_WRITE_FAILED"
)

// Moderation error codes.
const (
	CodeInvalidModerationState = "INVALID_MODERATION_STATE"
)

// Rate limit error codes.
const (
	CodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	CodePersistenceUnavailable = "PERSISTENCE_UNAVAILABLE"
	CodeInvalidActionKind      = "INVALID_ACTION_KIND"
)

// Auth error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
)

// Generic codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternal       = "INTERNAL_ERROR"
)

// ErrSubmissionNotFound creates a submission not found error.
func ErrSubmissionNotFound(id string) *AppError {
	return NotFound(CodeSubmissionNotFound, "submission not found").
		WithParams(map[string]interface{}{"id": id})
}

// ErrClassifierInputInvalid creates a 400 for a missing or malformed body or display name.
func ErrClassifierInputInvalid(field, reason string) *AppError {
	return BadRequest(CodeClassifierInputInvalid, "submission input is invalid").
		WithFieldErrors([]FieldError{{Field: field, Code: CodeClassifierInputInvalid, Message: reason}})
}

// ErrInvalidModerationState creates a 400 for a transition target outside the permitted set.
func ErrInvalidModerationState(state string) *AppError {
	return BadRequest(CodeInvalidModerationState, "moderation state is not a permitted transition target").
		WithParams(map[string]interface{}{"state": state})
}

// ErrRateLimitExceeded creates a 429 carrying the window reset time.
func ErrRateLimitExceeded(actionKind string, resetAt, now time.Time) *AppError {
	retryAfter := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if retryAfter < 0 {
		retryAfter = 0
	}
	return TooManyRequests(CodeRateLimitExceeded, "too many submissions, retry after reset_at").
		WithParams(map[string]any{
			"action_kind":   actionKind,
			"reset_at":      resetAt.UTC().Format(time.RFC3339),
			paramRetryAfter: retryAfter,
		})
}

// ErrForbiddenAction creates a 403 for a non-privileged caller.
func ErrForbiddenAction(message string) *AppError {
	return Forbidden(CodeForbidden, message)
}
