package middleware

import (
	"net/http"

	"reviewsync/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware turns errors attached to the gin context into
// structured responses. Handlers that already wrote a body are left
// alone; this is the net under c.Error-style reporting.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, "session_id", id)
		}

		if appErr := errors.GetAppError(err); appErr != nil {
			logger.Errorw("request failed",
				append(fields,
					"code", appErr.Code,
					"status", appErr.HTTPStatus,
					"error", appErr.Message,
					"details", appErr.Context,
				)...)

			c.JSON(appErr.HTTPStatus, gin.H{
				"error":   string(appErr.Code),
				"message": appErr.Message,
				"details": appErr.Context,
			})
			return
		}

		logger.Errorw("unhandled error", append(fields, "error", err.Error())...)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   string(errors.ErrCodeInternal),
			"message": "Internal server error",
		})
	}
}

// RecoveryMiddleware keeps a panicking replay handler from taking the
// whole API down with it.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", r,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"session_id", c.Param("id"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
