package httpapi

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/incridea-nmamit/incridea-server/internal/fest"
	"github.com/incridea-nmamit/incridea-server/internal/models"
)

const (
	requestIDHeader = "X-Request-ID"
	actorKey        = "actor"
	requestIDKey    = "request_id"
)

// RequestID tags every request with an id, reusing the caller's if present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		}
		if u := actor(c); u != nil {
			attrs = append(attrs, "user", u.ID)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.ErrorContext(c.Request.Context(), "request", attrs...)
		default:
			logger.InfoContext(c.Request.Context(), "request", attrs...)
		}
	}
}

// Auth rejects requests without a valid session and loads the acting user.
func (s *Server) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFrom(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authorized", "kind": fest.KindUnauthenticated})
			return
		}
		if !s.identify(c, raw) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token", "kind": fest.KindUnauthenticated})
			return
		}
		c.Next()
	}
}

// OptionalAuth loads the acting user when a valid session is present and
// lets anonymous requests through.
func (s *Server) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := tokenFrom(c); raw != "" {
			s.identify(c, raw)
		}
		c.Next()
	}
}

func (s *Server) identify(c *gin.Context, raw string) bool {
	id, err := s.tokens.verify(raw)
	if err != nil {
		return false
	}
	u, err := s.svc.Identify(c.Request.Context(), id)
	if err != nil {
		return false
	}
	c.Set(actorKey, &u)
	return true
}

// RequireRole short-circuits route groups reserved for a few roles. The
// service repeats the check per operation.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := actor(c)
		if u == nil || !slices.Contains(roles, u.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not authorized", "kind": fest.KindForbidden})
			return
		}
		c.Next()
	}
}

func actor(c *gin.Context) *models.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
