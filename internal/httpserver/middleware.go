package httpserver

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tinytelemetry/logsearch/internal/session"
)

const (
	// RequestIDHeader carries the per-request id back to the client.
	RequestIDHeader = "X-Request-ID"
	// SessionCookie names the cookie holding the session id.
	SessionCookie = "logsearch_session"

	loggerKey    = "logger"
	requestIDKey = "request_id"
	sessionKey   = "session_id"
)

// requestLogger assigns a request id, stores a request-scoped logger, and logs the outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Header(RequestIDHeader, requestID)
		c.Set(requestIDKey, requestID)

		reqLogger := s.logger.With(zap.String("request_id", requestID))
		c.Set(loggerKey, reqLogger)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			reqLogger.Warn("request failed", fields...)
		default:
			reqLogger.Info("request handled", fields...)
		}
	}
}

// loggerFrom returns the request-scoped logger, or the server logger outside a request.
func (s *Server) loggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return s.logger
}

// sessionCookie makes sure every page request carries a valid session id.
func (s *Server) sessionCookie() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || !session.ValidID(id) {
			id = session.NewID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id, 0, "/", "", s.deps.SecureCookies, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// adminAuth requires basic auth against the bcrypt hash when one is configured.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.AdminPasswordHash == "" {
			c.Next()
			return
		}
		user, pass, ok := c.Request.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.deps.AdminUser)) == 1
		if !ok || !userOK || bcrypt.CompareHashAndPassword([]byte(s.deps.AdminPasswordHash), []byte(pass)) != nil {
			s.loggerFrom(c).Warn("admin authentication failed", zap.String("user", user))
			c.Header("WWW-Authenticate", `Basic realm="logsearch admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin credentials required"})
			return
		}
		c.Next()
	}
}
