package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelguide.io/guestbook/internal/domain"
)

// ResetRateLimit handles DELETE /moderation/rate-limits/{identity}/{action_kind}.
func (s *Server) ResetRateLimit(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}
	err := s.resetter.Execute(c.Request.Context(), c.Param("identity"), domain.ActionKind(c.Param("action_kind")), actor)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
