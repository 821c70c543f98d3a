package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/service"
)

// TransitionRequest is the body of POST /moderation/submissions/{id}/transition.
type TransitionRequest struct {
	State string  `json:"state"`
	Notes *string `json:"notes"`
}

// ReopenRequest is the optional body of POST /moderation/submissions/{id}/reopen.
type ReopenRequest struct {
	Notes *string `json:"notes"`
}

// ListSubmissions handles GET /moderation/submissions?state=.
func (s *Server) ListSubmissions(c *gin.Context) {
	if _, ok := requireIdentity(c); !ok {
		return
	}
	state := domain.ModerationState(c.Query("state"))
	if state == "" {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "state is required"))
		return
	}
	page, err := pageFromQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	list, err := s.views.ListByState(c.Request.Context(), state, service.ListFilter{
		Kind:           domain.SubmissionKind(c.Query("kind")),
		RelatedContext: c.Query("related_context"),
	}, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toListResponse(list, toSubmissionResponse))
}

// GetSubmission handles GET /moderation/submissions/{id}.
func (s *Server) GetSubmission(c *gin.Context) {
	if _, ok := requireIdentity(c); !ok {
		return
	}
	sub, err := s.views.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toSubmissionResponse(sub))
}

// TransitionSubmission handles POST /moderation/submissions/{id}/transition.
func (s *Server) TransitionSubmission(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := s.moderator.Transition(c.Request.Context(), c.Param("id"), domain.ModerationState(req.State), req.Notes, identity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toSubmissionResponse(sub))
}

// ReopenSubmission handles POST /moderation/submissions/{id}/reopen.
func (s *Server) ReopenSubmission(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req ReopenRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	sub, err := s.moderator.Reopen(c.Request.Context(), c.Param("id"), req.Notes, identity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toSubmissionResponse(sub))
}
