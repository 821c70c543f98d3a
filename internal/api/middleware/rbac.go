package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "travelguide.io/guestbook/internal/pkg/errors"
)

// RequirePermission rejects requests whose identity lacks permission.
// platform:admin satisfies every permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": apperrors.CodeForbidden, "message": "no identity in context",
			})
			return
		}
		if !identity.HasPermission(permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": apperrors.CodeForbidden, "message": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}
