package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
)

const (
	// ContextSessionKey is the gin context key storing the resolved access.Session.
	ContextSessionKey = "session"
	// ContextUserIDKey mirrors the session's user ID for request logging.
	ContextUserIDKey = "user_id"
)

// SessionResolver turns a bearer token into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) access.Session
}

// Session resolves the caller's session from the Authorization header or,
// for browser page loads, the named cookie. It never aborts: the guards
// downstream decide what an anonymous or pending session may see.
func Session(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := resolver.Resolve(c.Request.Context(), bearerToken(c, cookieName))
		c.Set(ContextSessionKey, session)
		if session.UserID != "" {
			c.Set(ContextUserIDKey, session.UserID)
		}
		c.Next()
	}
}

// SessionFromContext returns the session stored by Session, or an anonymous
// session when none was resolved.
func SessionFromContext(c *gin.Context) access.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return access.Anonymous()
	}
	session, ok := value.(access.Session)
	if !ok {
		return access.Anonymous()
	}
	return session
}

func bearerToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}
