// Package authapi implements the /api/auth REST endpoints: register,
// login and logout.
package authapi

import (
	"net/http"

	"github.com/badoux/checkmail"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/huddlehq/huddle/internal/api/actor"
	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/mailer"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/pkg/logging"
)

// Handler serves the auth REST endpoints.
type Handler struct {
	users    *db.UserRepository
	tokens   *auth.TokenManager
	sessions *auth.SessionStore
	mail     *mailer.Mailer
	logger   *zap.Logger
}

// NewHandler creates the auth REST handler
func NewHandler(repo *db.Repository, tokens *auth.TokenManager, sessions *auth.SessionStore, mail *mailer.Mailer) *Handler {
	return &Handler{
		users:    db.NewUserRepository(repo),
		tokens:   tokens,
		sessions: sessions,
		mail:     mail,
		logger:   logging.WithComponent("auth_api"),
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,max=120"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type userPayload struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func payload(user *models.User) userPayload {
	return userPayload{ID: user.ID, Email: user.Email, Name: user.Name, AvatarURL: user.AvatarURL}
}

// Register creates an account and opens a session. The user row and its
// password credential are written in one transaction; the welcome email
// is best-effort.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, password and name are required"})
		return
	}
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		h.logger.Error("Failed to look up email", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user := &models.User{
		Email:   req.Email,
		Name:    req.Name,
		AppRole: models.AppRoleUser,
		OrgRole: models.OrgRoleMember,
	}
	if err := h.users.CreateWithCredential(ctx, user, string(hash)); err != nil {
		h.logger.Error("Failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.mail.SendWelcome(user.Email, user.Name)

	token, err := h.openSession(c, user.ID)
	if err != nil {
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Token: token, User: payload(user)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and opens a session.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		h.logger.Error("Failed to look up user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	cred, err := h.users.GetCredential(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to load credential", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if cred == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.openSession(c, user.ID)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: token, User: payload(user)})
}

// Logout drops the caller's session, invalidating the token server-side.
func (h *Handler) Logout(c *gin.Context) {
	user, err := actor.Require(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.sessions.Drop(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("Failed to drop session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loggedOut": true})
}

func (h *Handler) openSession(c *gin.Context, userID int64) (string, error) {
	token, err := h.tokens.Generate(userID)
	if err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return "", err
	}
	if err := h.sessions.Put(c.Request.Context(), userID, token); err != nil {
		h.logger.Error("Failed to store session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return "", err
	}
	return token, nil
}
