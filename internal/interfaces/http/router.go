// Package http assembles the gin engine serving the Tor Weather pages.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"torweather/internal/infrastructure/ratelimit"
	"torweather/internal/interfaces/http/handlers"
	"torweather/internal/interfaces/http/middleware"
	"torweather/internal/shared/config"
	"torweather/internal/shared/logger"
)

const defaultTemplatesGlob = "templates/*.html"

// Dependencies carries everything the router needs wired in.
type Dependencies struct {
	Mode          string
	TemplatesGlob string
	Web           *handlers.WebHandler
	Health        *handlers.HealthHandler
	RateLimiter   ratelimit.RateLimiter
	RateLimit     *config.RateLimitConfig
	Logger        logger.Interface
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	RegisterValidators()

	engine := gin.New()
	engine.Use(middleware.Logger(deps.Logger))
	engine.Use(middleware.Recovery())

	glob := deps.TemplatesGlob
	if glob == "" {
		glob = defaultTemplatesGlob
	}
	engine.LoadHTMLGlob(glob)

	limited := middleware.RateLimit(deps.RateLimiter, deps.RateLimit, deps.Logger)

	engine.GET("/", deps.Web.Home)
	engine.GET("/subscribe", deps.Web.SubscribeForm)
	engine.POST("/subscribe", limited, deps.Web.Subscribe)
	engine.GET("/pending/:confirm_auth", deps.Web.Pending)
	engine.GET("/confirm/:confirm_auth", deps.Web.Confirm)
	engine.GET("/resend-confirmation/:confirm_auth", limited, deps.Web.ResendConfirmation)
	engine.GET("/unsubscribe/:unsubs_auth", deps.Web.Unsubscribe)
	engine.GET("/preferences/:pref_auth", deps.Web.PreferencesForm)
	engine.POST("/preferences/:pref_auth", deps.Web.UpdatePreferences)
	engine.GET("/notification-info", deps.Web.NotificationInfo)

	engine.GET("/healthz", deps.Health.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}
