package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Health status values.
const (
	HealthStatusOk       = "ok"
	HealthStatusDegraded = "degraded"
)

// HealthResponse is returned by the probes.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: HealthStatusOk})
}

// GetReadiness handles GET /health/ready. Every registered dependency must answer.
func (s *Server) GetReadiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "error"
			healthy = false
			continue
		}
		checks[name] = HealthStatusOk
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: HealthStatusDegraded, Checks: checks})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: HealthStatusOk, Checks: checks})
}
