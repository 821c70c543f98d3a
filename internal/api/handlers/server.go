// Package handlers implements the guestbook HTTP API on gin.
//
// Handlers translate requests into use case calls and report failures with
// c.Error; middleware.ErrorHandler renders them.
//
// Import Path: travelguide.io/guestbook/internal/api/handlers
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/service"
	"travelguide.io/guestbook/internal/usecase"
)

// Submitter runs the inbound submission pipeline.
type Submitter interface {
	Execute(ctx context.Context, in usecase.SubmitInput) (*usecase.SubmitOutput, error)
}

// Moderator applies moderation actions.
type Moderator interface {
	Transition(ctx context.Context, id string, target domain.ModerationState, notes *string, moderator domain.Identity) (*domain.Submission, error)
	Reopen(ctx context.Context, id string, notes *string, moderator domain.Identity) (*domain.Submission, error)
}

// SubmissionViews is the read side used by public and moderation endpoints.
type SubmissionViews interface {
	ListByState(ctx context.Context, state domain.ModerationState, f service.ListFilter, page domain.Page) (*domain.SubmissionList, error)
	Get(ctx context.Context, id string) (*domain.Submission, error)
	ListPublic(ctx context.Context, f service.ListFilter, page domain.Page) (*domain.SubmissionList, error)
	GetPublic(ctx context.Context, id string) (*domain.Submission, error)
	ListPublicComments(ctx context.Context, entryID string, page domain.Page) (*domain.SubmissionList, error)
}

// RateLimitResetter clears an identity's rate window.
type RateLimitResetter interface {
	Execute(ctx context.Context, identity string, kind domain.ActionKind, actor domain.Identity) error
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Server holds the handler dependencies.
type Server struct {
	submit    Submitter
	moderator Moderator
	views     SubmissionViews
	resetter  RateLimitResetter
	checks    map[string]HealthCheck
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Submit    Submitter
	Moderator Moderator
	Views     SubmissionViews
	Resetter  RateLimitResetter
	// Checks are run by the readiness probe, keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		submit:    deps.Submit,
		moderator: deps.Moderator,
		views:     deps.Views,
		resetter:  deps.Resetter,
		checks:    deps.Checks,
	}
}

// RegisterRoutes mounts every endpoint on api.
// auth authenticates callers; moderation additionally guards the moderation group.
func (s *Server) RegisterRoutes(api *gin.RouterGroup, auth gin.HandlerFunc, moderation ...gin.HandlerFunc) {
	health := api.Group("/health")
	health.GET("/live", s.GetLiveness)
	health.GET("/ready", s.GetReadiness)

	guestbook := api.Group("/guestbook")
	guestbook.GET("/entries", s.ListPublicEntries)
	guestbook.GET("/entries/:id", s.GetPublicEntry)
	guestbook.GET("/entries/:id/comments", s.ListPublicComments)
	guestbook.POST("/entries", auth, s.CreateEntry)
	guestbook.POST("/entries/:id/comments", auth, s.CreateComment)

	mod := api.Group("/moderation", append([]gin.HandlerFunc{auth}, moderation...)...)
	mod.GET("/submissions", s.ListSubmissions)
	mod.GET("/submissions/:id", s.GetSubmission)
	mod.POST("/submissions/:id/transition", s.TransitionSubmission)
	mod.POST("/submissions/:id/reopen", s.ReopenSubmission)
	mod.DELETE("/rate-limits/:identity/:action_kind", s.ResetRateLimit)
}
