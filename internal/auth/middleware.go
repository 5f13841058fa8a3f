package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyAuthType = "auth_type" // "bearer" or "none"
)

// AuthType indicates how the user was resolved
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBearer AuthType = "bearer"
)

// UserLookup finds users by API token.
type UserLookup interface {
	GetUserByToken(token string) (*entities.User, error)
}

// Middleware resolves the user for each request.
type Middleware struct {
	users       UserLookup
	config      config.Auth
	guard       *FailureGuard
	publicPaths map[string]bool
}

// NewMiddleware creates a new authentication middleware. guard may be nil.
func NewMiddleware(users UserLookup, cfg config.Auth, guard *FailureGuard) *Middleware {
	return &Middleware{
		users:  users,
		config: cfg,
		guard:  guard,
		publicPaths: map[string]bool{
			"/health": true,
			"/ping":   true,
		},
	}
}

// Handler returns a Gin middleware handler that resolves the user.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeToken {
		return m.tokenHandler()
	}
	return m.noAuthHandler()
}

// noAuthHandler acts as the default user for every request.
func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyUserID, entities.DefaultUserID)
		c.Set(ContextKeyAuthType, AuthTypeNone)
		c.Next()
	}
}

func (m *Middleware) tokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if m.guard != nil {
			if allowed, retryAfter := m.guard.Allow(ip); !allowed {
				c.Header("Retry-After", retryAfter.String())
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error":       "too many failed authentication attempts",
					"retry_after": retryAfter.String(),
				})
				return
			}
		}

		user := m.tryBearerAuth(c)
		if user == nil {
			if m.guard != nil && c.GetHeader("Authorization") != "" {
				m.guard.RecordFailure(ip)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		if m.guard != nil {
			m.guard.RecordSuccess(ip)
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUsername, user.Username)
		c.Set(ContextKeyAuthType, AuthTypeBearer)
		c.Next()
	}
}

// tryBearerAuth attempts to authenticate using Bearer token.
func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return nil
	}

	user, err := m.users.GetUserByToken(token)
	if err != nil {
		return nil
	}
	return user
}

// isPublicPath reports whether path skips authentication. OAuth callbacks
// are public: the provider redirects the browser without a bearer token,
// and the user comes from the handshake stored in the session.
func (m *Middleware) isPublicPath(path string) bool {
	if m.publicPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/api/imports/") && strings.HasSuffix(path, "/callback")
}

// GetUserID retrieves the acting user's ID from the context.
// Returns 0 when no user was resolved.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
