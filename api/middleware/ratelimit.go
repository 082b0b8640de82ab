package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/ratelimit"
)

// RateLimit throttles requests per client IP. Limiter errors let the
// request through.
func RateLimit(limiter ratelimit.Limiter, log logger.Logger) gin.HandlerFunc {
	log = log.Named("ratelimit")

	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.FromContext(c.Request.Context(), log).Warn("Rate limiter unavailable", logger.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(ratelimit.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many requests",
				"message": "Please wait a minute and try again",
			})
			return
		}
		c.Next()
	}
}
