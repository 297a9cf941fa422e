package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/decms-project/decms/internal/identity"
	"github.com/decms-project/decms/internal/users"
)

// auditSink is the best-effort audit hook used by handlers that record
// request-scoped events with the caller's IP attached.
type auditSink interface {
	RecordIP(ctx context.Context, actorID int64, action, details, ip string) error
}

// AuthHandler handles registration, login, and session introspection.
type AuthHandler struct {
	svc    *users.UserService
	tokens *identity.TokenIssuer
	audit  auditSink // nil = no audit trail
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. audit may be nil.
func NewAuthHandler(svc *users.UserService, tokens *identity.TokenIssuer, audit auditSink, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tokens, audit: audit, logger: logger}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.GET("/me", identity.RequireToken(h.tokens), h.Me)
	}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name" binding:"required"`
	BadgeNumber string `json:"badge_number"`
	RoleName    string `json:"role_name"`
}

// RegisterUser handles POST /auth/register.
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName, req.BadgeNumber, req.RoleName)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) || errors.Is(err, users.ErrDuplicateBadge) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.emit(c, u.ID, "REGISTER_USER", "New user "+u.Email+" registered.")
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login — verifies credentials and returns a session
// token together with the account profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	u, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInactive):
			h.emit(c, 0, "LOGIN_FAILED_INACTIVE", "Inactive account "+req.Email+" attempted login.")
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, users.ErrBadCredentials):
			h.emit(c, 0, "LOGIN_FAILED_CREDENTIALS", "Failed login attempt for "+req.Email+".")
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			h.logger.Error("login", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		h.logger.Error("issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.emit(c, u.ID, "LOGIN_SUCCESS", "User "+u.Email+" logged in.")
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user":         u,
	})
}

// Me handles GET /auth/me — returns the profile of the session's account.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)
	u, err := h.svc.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get current user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) emit(c *gin.Context, actorID int64, action, details string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordIP(c.Request.Context(), actorID, action, details, c.ClientIP()); err != nil {
		h.logger.Error("audit record failed (non-fatal)", zap.String("action", action), zap.Error(err))
	}
}
