package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/decms-project/decms/internal/custody"
	"github.com/decms-project/decms/internal/identity"
)

// TransferHandler exposes the custody hand-off endpoint and the global
// transfer log.
type TransferHandler struct {
	engine *custody.Engine
	store  custody.Store
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(engine *custody.Engine, store custody.Store, tokens *identity.TokenIssuer, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{engine: engine, store: store, tokens: tokens, logger: logger}
}

// Register mounts the transfer routes on the given router group.
func (h *TransferHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/transfers",
		identity.RequireToken(h.tokens),
		identity.RequirePermission(identity.PermTransferEvidence),
		h.Create,
	)
	rg.GET("/transfers", identity.RequireToken(h.tokens), h.List)
}

type transferRequest struct {
	EvidenceID int64  `json:"evidence_id" binding:"required"`
	ToUserID   int64  `json:"to_user_id" binding:"required"`
	Notes      string `json:"notes"`
}

// Create handles POST /transfers. The sender is always the authenticated
// caller; only the item's current custodian can move it, and the engine
// enforces that inside the append's atomic unit.
func (h *TransferHandler) Create(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := identity.ClaimsFromCtx(c)

	rec, err := h.engine.Transfer(c.Request.Context(), req.EvidenceID, claims.UserID, req.ToUserID, req.Notes)
	if err != nil {
		RecordTransfer(false)
		status := custodyStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("transfer evidence", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": publicError(err)})
		return
	}

	RecordTransfer(true)
	c.JSON(http.StatusCreated, rec)
}

// List handles GET /transfers?limit=N, the hand-off log across all evidence,
// newest first, with the parties' display names joined in.
func (h *TransferHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := h.store.AllTransfers(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list transfers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": publicError(err)})
		return
	}
	if entries == nil {
		entries = []*custody.TransferLogEntry{}
	}
	c.JSON(http.StatusOK, entries)
}
