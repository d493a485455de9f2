package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware allows each client IP rps requests per second with an
// equal burst. The alert stream is exempt since it holds a single request open.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	limiters := xsync.NewMapOf[string, *rate.Limiter]()

	return func(c *gin.Context) {
		if c.FullPath() == "/api/alerts/stream" {
			c.Next()
			return
		}

		limiter, _ := limiters.LoadOrCompute(c.ClientIP(), func() *rate.Limiter {
			return rate.NewLimiter(rate.Limit(rps), rps)
		})
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
