// Package middleware provides HTTP middleware for the guestbook API.
package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/pkg/logger"
)

// ErrorHandler renders the last error added via c.Error() as a JSON body.
// Rate limit errors also set Retry-After.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		requestID := GetRequestID(c.Request.Context())

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			fields := []zap.Field{
				zap.String("code", appErr.Code),
				zap.String("message", appErr.Message),
				zap.Int("status", appErr.HTTPStatus),
				zap.String("request_id", requestID),
			}
			if appErr.Err != nil {
				fields = append(fields, zap.Error(appErr.Err))
			}
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error("Request failed", fields...)
			} else {
				logger.Warn("Request error", fields...)
			}

			if v, ok := appErr.RetryAfter(); ok {
				c.Header("Retry-After", strconv.Itoa(v))
			}

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			}
			if len(appErr.Params) > 0 {
				body["params"] = appErr.Params
			}
			if len(appErr.FieldErrors) > 0 {
				body["field_errors"] = appErr.FieldErrors
			}
			if requestID != "" {
				body["request_id"] = requestID
			}
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		logger.Error("Unhandled request error", zap.Error(err), zap.String("request_id", requestID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperrors.CodeInternal,
			"message": "An internal error occurred",
		})
	}
}
