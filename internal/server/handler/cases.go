package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/decms-project/decms/internal/cases"
	"github.com/decms-project/decms/internal/custody"
	"github.com/decms-project/decms/internal/identity"
)

// CaseHandler exposes case lifecycle endpoints.
type CaseHandler struct {
	svc    *cases.CaseService
	store  custody.Store
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewCaseHandler creates a new CaseHandler.
func NewCaseHandler(svc *cases.CaseService, store custody.Store, tokens *identity.TokenIssuer, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{svc: svc, store: store, tokens: tokens, logger: logger}
}

// Register mounts the case routes on the given router group.
func (h *CaseHandler) Register(rg *gin.RouterGroup) {
	cs := rg.Group("/cases", identity.RequireToken(h.tokens))
	{
		cs.POST("", identity.RequirePermission(identity.PermCreateCases), h.Create)
		cs.GET("", h.List)
		cs.GET("/:id", h.Get)
		cs.GET("/:id/evidence", h.Evidence)
		cs.PATCH("/:id/status", identity.RequirePermission(identity.PermCreateCases), h.UpdateStatus)
	}
}

type createCaseRequest struct {
	CaseNumber  string `json:"case_number"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// Create handles POST /cases.
func (h *CaseHandler) Create(c *gin.Context) {
	var req createCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := identity.ClaimsFromCtx(c)

	cs, err := h.svc.Create(c.Request.Context(), req.CaseNumber, req.Title, req.Description, claims.UserID)
	if err != nil {
		if errors.Is(err, cases.ErrDuplicateNumber) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, cs)
}

// List handles GET /cases.
func (h *CaseHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list cases", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /cases/:id.
func (h *CaseHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cs, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		h.logger.Error("get case", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, cs)
}

// Evidence handles GET /cases/:id/evidence — all items filed under the case.
func (h *CaseHandler) Evidence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		h.logger.Error("get case", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	items, err := h.store.EvidenceByCase(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list case evidence", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if items == nil {
		items = []*custody.EvidenceItem{}
	}
	c.JSON(http.StatusOK, items)
}

type updateCaseStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /cases/:id/status.
func (h *CaseHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateCaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := identity.ClaimsFromCtx(c)

	if err := h.svc.UpdateStatus(c.Request.Context(), id, cases.Status(req.Status), claims.UserID); err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"case_id": id, "status": req.Status})
}

// pathID parses a numeric path parameter, responding 400 itself on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
