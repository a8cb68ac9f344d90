package middleware

import (
	"time"

	"reviewsync/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLoggingMiddleware logs each request through the context logger so
// entries carry the session and trace IDs alongside method/path/status.
func RequestLoggingMiddleware(zapLogger *zap.Logger) gin.HandlerFunc {
	ctxLogger := logger.NewContextLogger(zapLogger)

	return func(c *gin.Context) {
		start := time.Now()

		// Session-scoped routes carry the ID as the :id param.
		if sessionID := c.Param("id"); sessionID != "" {
			ctx := logger.WithSessionID(c.Request.Context(), sessionID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()

		ctxLogger.LogRequest(
			c.Request.Context(),
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
		)
	}
}
