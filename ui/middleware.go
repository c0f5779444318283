package ui

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"statlab/domain/core"
	"statlab/internal/errors"
)

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(s.requestLogger())
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.Error("[Recovery] %s %s panicked: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
			Error: "internal server error",
			Code:  errors.CodeInternalError,
			Kind:  core.KindInternal,
		})
	}))
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := float64(time.Since(start).Nanoseconds()) / 1e6
		switch {
		case status >= 500:
			s.logger.Error("[HTTP] %s %s %d %.2fms", c.Request.Method, c.Request.URL.Path, status, elapsed)
		case status >= 400:
			s.logger.Warn("[HTTP] %s %s %d %.2fms", c.Request.Method, c.Request.URL.Path, status, elapsed)
		default:
			s.logger.Debug("[HTTP] %s %s %d %.2fms", c.Request.Method, c.Request.URL.Path, status, elapsed)
		}
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind,omitempty"`
}

// respondError writes err with the status its code maps to
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	kind := core.ErrorKind(err)
	if kind == core.KindInternal && code != errors.CodeInternalError {
		// host errors (not found, too large, ...) carry no engine kind
		kind = ""
	}
	c.AbortWithStatusJSON(errors.HTTPStatus(err), errorBody{Error: err.Error(), Code: code, Kind: kind})
}
