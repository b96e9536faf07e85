package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/logger"
)

// abortWithError stops the chain and leaves rendering to ErrorHandlerMiddleware.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func renderError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled request error")
		appErr = errors.ErrInternalServer
	} else if appErr.Code >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}

	if appErr.Retryable {
		c.Header("Retry-After", "1")
	}
	c.JSON(appErr.Code, gin.H{
		"error":     appErr.Message,
		"reason":    appErr.Reason,
		"retryable": appErr.Retryable,
	})
}

// ErrorHandlerMiddleware handles errors and panics
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":     "Internal Server Error",
					"reason":    errors.ReasonInternal,
					"retryable": false,
				})
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			renderError(c, c.Errors.Last().Err)
		}
	}
}
