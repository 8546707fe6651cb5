package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"dreamui/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Render writes the standard error envelope for appErr
func Render(c *gin.Context, appErr *AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		},
	})
}

// ErrorHandler returns a middleware that catches and formats application errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := FromError(c.Errors[0].Err)

		args := []any{
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"status_code", appErr.StatusCode,
			"error_code", appErr.Code,
			"message", appErr.Message,
		}
		if appErr.Err != nil {
			args = append(args, "cause", appErr.Err.Error())
		}
		log := logger.FromContext(c)
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.Error("Request error", args...)
		} else {
			log.Warn("Request error", args...)
		}

		// Streaming handlers may have committed a status already
		if c.Writer.Written() {
			return
		}
		Render(c, appErr)
	}
}

// RecoveryWithLogger returns a middleware that recovers from any panics
// and logs the error with the request ID if available
func RecoveryWithLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())

				logger.FromContext(c).Error("Panic recovered",
					"error", r,
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				var details any
				if gin.Mode() == gin.DebugMode {
					details = fmt.Sprintf("Panic: %v", r)
				}

				Render(c, NewError(http.StatusInternalServerError, CodeServerPanic,
					"The server encountered an unexpected error").WithDetails(details))
			}
		}()

		c.Next()
	}
}
