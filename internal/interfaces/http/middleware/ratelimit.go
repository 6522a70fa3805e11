package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"torweather/internal/infrastructure/ratelimit"
	"torweather/internal/shared/config"
	"torweather/internal/shared/logger"
)

// RateLimit throttles form submissions per client IP. A limiter outage
// fails open: losing throttling beats refusing subscribers.
func RateLimit(limiter ratelimit.RateLimiter, cfg *config.RateLimitConfig, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.ClientIP(), cfg.RequestsPerMinute)
		if err != nil {
			log.Warnw("rate limiter unavailable", "client_ip", c.ClientIP(), "error", err)
			c.Next()
			return
		}
		if !allowed {
			log.Infow("request rate limited", "client_ip", c.ClientIP(), "path", c.Request.URL.Path)
			c.HTML(http.StatusTooManyRequests, "error.html", gin.H{
				"Message": "Too many requests. Please wait a minute and try again.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
