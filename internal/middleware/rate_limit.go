package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"photoshare/internal/metrics"
	"photoshare/internal/pkg/ratelimit"
	"photoshare/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Throttle limits requests per client IP within scope. A limiter backend
// failure lets the request through.
func Throttle(limiter ratelimit.Limiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable",
				slog.String("scope", scope),
				slog.String("error", err.Error()),
			)
			c.Next()
			return
		}
		if !allowed {
			metrics.ObserveAuth(scope, "throttled")
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			response.AbortError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many attempts, try again later")
			return
		}
		c.Next()
	}
}
