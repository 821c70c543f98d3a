package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"travelguide.io/guestbook/internal/api/middleware"
	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
	"travelguide.io/guestbook/internal/service"
	"travelguide.io/guestbook/internal/usecase"
)

// CreateEntryRequest is the body of POST /guestbook/entries.
type CreateEntryRequest struct {
	Body           string `json:"body"`
	RelatedContext string `json:"related_context"`
}

// CreateCommentRequest is the body of POST /guestbook/entries/{id}/comments.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// CreateEntry handles POST /guestbook/entries.
func (s *Server) CreateEntry(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req CreateEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	s.handleSubmit(c, usecase.SubmitInput{
		Kind:           domain.KindEntry,
		Body:           req.Body,
		RelatedContext: req.RelatedContext,
		SourceAddress:  c.ClientIP(),
		Author:         identity,
	})
}

// CreateComment handles POST /guestbook/entries/{id}/comments.
func (s *Server) CreateComment(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	s.handleSubmit(c, usecase.SubmitInput{
		Kind:           domain.KindComment,
		Body:           req.Body,
		RelatedContext: c.Param("id"),
		SourceAddress:  c.ClientIP(),
		Author:         identity,
	})
}

func (s *Server) handleSubmit(c *gin.Context, in usecase.SubmitInput) {
	out, err := s.submit.Execute(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, SubmitResponse{
		Submission: toSubmissionResponse(out.Submission),
		RateLimit:  toRateLimitStatus(out.RateLimit),
	})
}

// ListPublicEntries handles GET /guestbook/entries.
func (s *Server) ListPublicEntries(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	list, err := s.views.ListPublic(c.Request.Context(), service.ListFilter{
		Kind:           domain.KindEntry,
		RelatedContext: c.Query("related_context"),
	}, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toListResponse(list, toPublicSubmissionResponse))
}

// GetPublicEntry handles GET /guestbook/entries/{id}.
func (s *Server) GetPublicEntry(c *gin.Context) {
	sub, err := s.views.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if sub.Kind != domain.KindEntry {
		_ = c.Error(apperrors.ErrSubmissionNotFound(sub.ID))
		return
	}
	c.JSON(http.StatusOK, toPublicSubmissionResponse(sub))
}

// ListPublicComments handles GET /guestbook/entries/{id}/comments.
func (s *Server) ListPublicComments(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	list, err := s.views.ListPublicComments(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toListResponse(list, toPublicSubmissionResponse))
}

// requireIdentity returns the authenticated caller or records a 401.
func requireIdentity(c *gin.Context) (domain.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok || strings.TrimSpace(identity.ID) == "" {
		_ = c.Error(apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required"))
		return domain.Identity{}, false
	}
	return identity, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInvalidRequest, "request body is not valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}
