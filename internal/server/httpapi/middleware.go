package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/common"
	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/services"
	"github.com/gin-gonic/gin"
)

type sessionKey struct{}

// SessionFromContext returns the session attached by the auth middleware.
func SessionFromContext(ctx context.Context) (*services.SessionInfo, bool) {
	s, ok := ctx.Value(sessionKey{}).(*services.SessionInfo)
	return s, ok && s != nil
}

func withSession(ctx context.Context, s *services.SessionInfo) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// HTTPObserver records one handled request.
type HTTPObserver interface {
	ObserveHTTP(method, route string, code int, d time.Duration)
}

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// requestLogger logs each request once it has been handled. A request id is
// taken from the incoming header or generated, and echoed in the response.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id, _ = common.MakeRandHexString(8)
		}
		c.Header(RequestIDHeader, id)

		c.Next()

		ctx := c.Request.Context()
		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn(ctx, "HTTP request", args...)
			return
		}
		logger.Debug(ctx, "HTTP request", args...)
	}
}

// requestMetrics reports method, route pattern, status and latency.
func requestMetrics(o HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		o.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// requireSession rejects requests without a valid session token. The token
// is read from the session cookie or an "Authorization: Bearer" header.
func requireSession(a Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)

		info, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			var me *services.MessageError
			if errors.As(err, &me) {
				abortError(c, http.StatusUnauthorized, me.Message)
				return
			}
			abortError(c, http.StatusInternalServerError, msgInternal)
			return
		}

		c.Request = c.Request.WithContext(withSession(c.Request.Context(), info))
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if v, err := c.Cookie(cookieName); err == nil {
		return v
	}
	return ""
}
