// Package auth provides request authentication for the HTTP API.
//
// Two modes are supported. In "none" mode every request runs as a fixed
// default user, which suits single-user local deployments. In "token" mode
// requests must carry an API token in the Authorization header, using
// either the "Token <value>" or "Bearer <value>" scheme.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkstash/internal/config"
	"linkstash/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
)

// UserStore resolves API tokens to users.
type UserStore interface {
	GetUserByToken(token string) (*entities.User, error)
}

// Middleware handles authentication for HTTP requests.
type Middleware struct {
	users         UserStore
	mode          config.AuthMode
	defaultUserID uint
	publicPaths   map[string]bool
}

// NewMiddleware creates a new authentication middleware. defaultUserID is
// the user every request runs as when the mode is "none".
func NewMiddleware(users UserStore, cfg config.Auth, defaultUserID uint) *Middleware {
	publicPaths := map[string]bool{
		"/health": true,
		"/ping":   true,
	}

	return &Middleware{
		users:         users,
		mode:          cfg.Mode,
		defaultUserID: defaultUserID,
		publicPaths:   publicPaths,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.mode == config.AuthModeNone {
		return m.noAuthHandler()
	}

	return m.tokenHandler()
}

// noAuthHandler injects the default user for all requests.
func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyUserID, m.defaultUserID)
		c.Next()
	}
}

// tokenHandler requires a valid API token on every non-public path.
func (m *Middleware) tokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.publicPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		user, err := m.users.GetUserByToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUsername, user.Username)
		c.Next()
	}
}

// extractToken pulls the token value out of an Authorization header.
// Both "Token <value>" and "Bearer <value>" schemes are accepted.
func extractToken(header string) string {
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}

	scheme := parts[0]
	if !strings.EqualFold(scheme, "token") && !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if no user is set, which only happens on public paths.
func GetUserID(c *gin.Context) uint {
	if v, exists := c.Get(ContextKeyUserID); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
