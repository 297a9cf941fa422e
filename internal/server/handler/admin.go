package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/decms-project/decms/internal/analytics"
	"github.com/decms-project/decms/internal/audit"
	"github.com/decms-project/decms/internal/identity"
	"github.com/decms-project/decms/internal/users"
)

// AdminHandler exposes the management surface: accounts, the audit trail, and
// the dashboard analytics. Every route requires the can_manage_users flag.
type AdminHandler struct {
	users     *users.UserService
	audit     *audit.Recorder
	analytics *analytics.Service
	tokens    *identity.TokenIssuer
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(us *users.UserService, rec *audit.Recorder, an *analytics.Service, tokens *identity.TokenIssuer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{users: us, audit: rec, analytics: an, tokens: tokens, logger: logger}
}

// Register mounts the admin routes on the given router group.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin",
		identity.RequireToken(h.tokens),
		identity.RequirePermission(identity.PermManageUsers),
	)
	{
		admin.GET("/users", h.ListUsers)
		admin.PATCH("/users/:id/active", h.SetUserActive)
		admin.GET("/audit-logs", h.AuditLogs)
		admin.GET("/analytics/cases-by-status", h.CasesByStatus)
		admin.GET("/analytics/evidence-by-type", h.EvidenceByType)
		admin.GET("/analytics/monthly-transfers", h.MonthlyTransfers)
	}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	out, err := h.users.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetUserActive handles PATCH /admin/users/:id/active — enables or disables
// an account. Disabled accounts cannot log in or receive custody.
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active flag is required"})
		return
	}
	if err := h.users.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		h.logger.Error("set user active", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "active": *req.Active})
}

// AuditLogs handles GET /admin/audit-logs?limit=N.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("read audit trail", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// CasesByStatus handles GET /admin/analytics/cases-by-status.
func (h *AdminHandler) CasesByStatus(c *gin.Context) {
	out, err := h.analytics.CasesByStatus(c.Request.Context())
	if err != nil {
		h.logger.Error("cases by status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// EvidenceByType handles GET /admin/analytics/evidence-by-type.
func (h *AdminHandler) EvidenceByType(c *gin.Context) {
	out, err := h.analytics.EvidenceByTypeAndStatus(c.Request.Context())
	if err != nil {
		h.logger.Error("evidence by type", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// MonthlyTransfers handles GET /admin/analytics/monthly-transfers.
func (h *AdminHandler) MonthlyTransfers(c *gin.Context) {
	out, err := h.analytics.MonthlyTransfers(c.Request.Context())
	if err != nil {
		h.logger.Error("monthly transfers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}
