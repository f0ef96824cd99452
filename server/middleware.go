package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skillsenselab/routekit/errors"
	"github.com/skillsenselab/routekit/logger"
)

// RequestLogger returns a Gin middleware that logs every request with
// method, path, status, and latency.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}
		fields := map[string]interface{}{
			"method":             c.Request.Method,
			"path":               path,
			logger.FieldStatus:   c.Writer.Status(),
			logger.FieldDuration: time.Since(start).Milliseconds(),
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request failed", fields)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request rejected", fields)
		default:
			log.Debug("request served", fields)
		}
	}
}

// Recovery returns a Gin middleware that recovers from panics, logs the
// stack, and responds with a structured 500.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered", map[string]interface{}{
					logger.FieldError: fmt.Sprintf("%v", err),
					"stack":           string(debug.Stack()),
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apperrors.Internal(fmt.Errorf("%v", err)).ToResponse())
			}
		}()
		c.Next()
	}
}
