package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/pkg/logging"
)

// ContextUserKey is the gin context key holding the authenticated user.
const ContextUserKey = "auth_user"

// Middleware authenticates requests. When required is false the request
// proceeds without an actor; handlers that need one reject later.
type Middleware struct {
	tokens   *TokenManager
	sessions *SessionStore
	users    *db.UserRepository
	logger   *zap.Logger
}

// NewMiddleware creates an auth middleware
func NewMiddleware(tokens *TokenManager, sessions *SessionStore, repo *db.Repository) *Middleware {
	return &Middleware{
		tokens:   tokens,
		sessions: sessions,
		users:    db.NewUserRepository(repo),
		logger:   logging.WithComponent("auth"),
	}
}

// Handler returns the gin middleware. With required set, requests without
// a valid session are rejected with 401 before reaching the handler.
func (m *Middleware) Handler(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := m.resolve(c)
		if !ok {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
				return
			}
			c.Next()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func (m *Middleware) resolve(c *gin.Context) (*models.User, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := m.tokens.Parse(parts[1])
	if err != nil {
		return nil, false
	}

	ok, err := m.sessions.Check(c.Request.Context(), claims.UserID, parts[1])
	if err != nil {
		// Session store outage, not a bad token. Fail closed but leave a
		// trace distinct from ordinary auth failures.
		m.logger.Warn("Session check failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	user, err := m.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || user == nil {
		return nil, false
	}
	return user, true
}

// CurrentUser returns the authenticated user from the gin context, nil if
// the request is anonymous.
func CurrentUser(c *gin.Context) *models.User {
	val, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := val.(*models.User)
	return user
}
