package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"photoshare/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrorLogger logs panics, handler errors and 5xx responses and recovers
// from panics. Bodies, cookies and headers are never logged.
func ErrorLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequestError(logger, c, start, "panic", fmt.Sprintf("%v", recovered),
					slog.String("stack", string(debug.Stack())))
				response.AbortError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error")
				return
			}

			if len(c.Errors) == 0 {
				if c.Writer.Status() >= http.StatusInternalServerError {
					logRequestError(logger, c, start, "http_error", fmt.Sprintf("status=%d", c.Writer.Status()))
				}
				return
			}

			for _, err := range c.Errors {
				logRequestError(logger, c, start, fmt.Sprintf("%v", err.Type), err.Error())
			}
		}()

		c.Next()
	}
}

func logRequestError(logger *slog.Logger, c *gin.Context, start time.Time, errType, message string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("type", errType),
		slog.Int("status", c.Writer.Status()),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("client_ip", c.ClientIP()),
		slog.String("user_id", c.GetString("user_id")),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.Duration("latency", time.Since(start)),
		slog.String("error", message),
	}
	logger.LogAttrs(c.Request.Context(), slog.LevelError, "request_error", append(attrs, extra...)...)
}
