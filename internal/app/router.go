package app

import (
	"fmt"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travelguide.io/guestbook/internal/api/handlers"
	"travelguide.io/guestbook/internal/api/middleware"
	"travelguide.io/guestbook/internal/config"
	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/pkg/logger"
)

const apiBasePath = "/api/v1"

func newRouter(cfg *config.Config, server *handlers.Server, jwtCfg middleware.JWTConfig) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	router.Use(gin.Recovery(), middleware.RequestID())
	if len(cfg.Server.AllowedOrigins) > 0 {
		router.Use(cors.New(buildCORSConfig(cfg)))
	}

	validator, err := middleware.NewOpenAPIValidator(apiBasePath, middleware.OpenAPIOptions{
		ValidateResponses: cfg.Server.ValidateResponses,
	})
	if err != nil {
		return nil, err
	}
	// The validator wraps ErrorHandler so rendered errors are validated too.
	router.Use(validator, middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.JWTAuth(jwtCfg)
	admin := router.Group("/admin", auth, middleware.RequirePermission(domain.PermissionPlatformAdmin))
	logLevel := gin.WrapH(logger.AtomicLevel())
	admin.GET("/log/level", logLevel)
	admin.PUT("/log/level", logLevel)

	server.RegisterRoutes(router.Group(apiBasePath), auth,
		middleware.RequirePermission(domain.PermissionModerationManage),
	)
	return router, nil
}

// buildCORSConfig allows the configured origins. A "*" entry allows every
// origin and disables credentials, which browsers reject in that combination.
func buildCORSConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(cfg.Server.AllowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
		return corsCfg
	}
	corsCfg.AllowOrigins = append([]string(nil), cfg.Server.AllowedOrigins...)
	return corsCfg
}
