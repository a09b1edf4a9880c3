package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/logging"
	"github.com/dmitrijs2005/elnafo/internal/server/auth"
	"github.com/dmitrijs2005/elnafo/internal/server/metrics"
	"github.com/dmitrijs2005/elnafo/internal/server/session"
)

// Sessions turns session resolutions into gin middleware.
type Sessions struct {
	auth    *session.Authenticator
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewSessions(a *session.Authenticator, m *metrics.Metrics, logger logging.Logger) *Sessions {
	return &Sessions{auth: a, metrics: m, logger: logger.With("module", "session")}
}

// RequireUser rejects requests without a valid session: a missing token
// is 400, an invalid token or unknown user is 401 and a storage failure
// is 500. On success the user is attached to the request context.
func (s *Sessions) RequireUser() gin.HandlerFunc {
	return s.handler(session.Enforce)
}

// OptionalUser attaches the user when the session resolves and otherwise
// lets the request through anonymously.
func (s *Sessions) OptionalUser() gin.HandlerFunc {
	return s.handler(session.Optional)
}

func (s *Sessions) handler(policy session.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token, present := auth.ExtractToken(c.Request)
		res := s.auth.Resolve(ctx, token, present)

		if s.metrics != nil {
			s.metrics.AuthResolutions.WithLabelValues(policy.String(), res.Outcome.String()).Inc()
		}

		if res.Outcome == session.Authorized {
			c.Request = c.Request.WithContext(auth.ContextWithUser(ctx, res.User))
			c.Next()
			return
		}

		if policy == session.Enforce {
			abortWithError(c, s.logger, res.Error())
			return
		}

		if res.Outcome == session.Failed {
			s.logger.Error(ctx, "session lookup failed, continuing anonymously", "error", res.Err)
		}
		c.Next()
	}
}

// CORS answers preflight requests and sets credentialed CORS headers for
// origins listed exactly. "*" matches nothing.
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	methods := strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}, ", ")
	headers := strings.Join([]string{"Origin", common.AuthorizationHeader, "Accept", "Content-Type", "Cookie"}, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && origin != "*" && allowed[origin] {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger logs finished requests at a level chosen by status class.
// Health checks and metric scrapes are skipped.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api/healthcheck" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"client", c.ClientIP(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Error(ctx, "request completed", args...)
		case status >= 400:
			logger.Warn(ctx, "request completed", args...)
		default:
			logger.Debug(ctx, "request completed", args...)
		}
	}
}

// Instrument records request counts and latency by route pattern.
func Instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Recovery turns a handler panic into a logged 500.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				)
				status := http.StatusInternalServerError
				c.AbortWithStatusJSON(status, errorResponse{Status: statusText(status), Message: common.ErrInternal.Error()})
			}
		}()
		c.Next()
	}
}
