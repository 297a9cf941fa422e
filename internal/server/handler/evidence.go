package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/decms-project/decms/internal/custody"
	"github.com/decms-project/decms/internal/identity"
)

// EvidenceHandler exposes evidence intake, lookup, workflow status, and the
// chain endpoints.
type EvidenceHandler struct {
	engine *custody.Engine
	store  custody.Store
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewEvidenceHandler creates a new EvidenceHandler.
func NewEvidenceHandler(engine *custody.Engine, store custody.Store, tokens *identity.TokenIssuer, logger *zap.Logger) *EvidenceHandler {
	return &EvidenceHandler{engine: engine, store: store, tokens: tokens, logger: logger}
}

// Register mounts the evidence routes on the given router group.
func (h *EvidenceHandler) Register(rg *gin.RouterGroup) {
	ev := rg.Group("/evidence", identity.RequireToken(h.tokens))
	{
		ev.POST("", identity.RequirePermission(identity.PermTransferEvidence), h.Intake)
		ev.GET("/:id", h.Get)
		ev.PATCH("/:id/status", identity.RequirePermission(identity.PermTransferEvidence), h.UpdateStatus)
		ev.DELETE("/:id", identity.RequirePermission(identity.PermManageUsers), h.Delete)
		ev.GET("/:id/chain", h.Chain)
		ev.GET("/:id/chain/verify", h.Verify)
	}
}

type intakeRequest struct {
	CaseID       int64  `json:"case_id" binding:"required"`
	ItemName     string `json:"item_name" binding:"required"`
	Description  string `json:"description"`
	EvidenceType string `json:"evidence_type" binding:"required"`
	InitialHash  string `json:"initial_hash" binding:"required"`
	CustodianID  int64  `json:"custodian_id" binding:"required"`
}

// Intake handles POST /evidence — registers an item and writes its genesis
// record. The authenticated caller is recorded as the creator.
func (h *EvidenceHandler) Intake(c *gin.Context) {
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := identity.ClaimsFromCtx(c)

	item, genesis, err := h.engine.Intake(c.Request.Context(), custody.IntakeRequest{
		CaseID:       req.CaseID,
		ItemName:     req.ItemName,
		Description:  req.Description,
		EvidenceType: req.EvidenceType,
		InitialHash:  req.InitialHash,
		CreatorID:    claims.UserID,
		CustodianID:  req.CustodianID,
	})
	if err != nil {
		status := custodyStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("evidence intake", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": publicError(err)})
		return
	}

	RecordIntake()
	c.JSON(http.StatusCreated, gin.H{
		"item":    item,
		"genesis": genesis,
	})
}

// Get handles GET /evidence/:id — the item's head state.
func (h *EvidenceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.store.GetEvidence(c.Request.Context(), id)
	if err != nil {
		status := custodyStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("get evidence", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": publicError(err)})
		return
	}
	c.JSON(http.StatusOK, item)
}

type updateEvidenceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /evidence/:id/status — workflow moves like
// Under Analysis or Archived. Custody itself only changes through transfers.
func (h *EvidenceHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateEvidenceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := custody.Status(req.Status)
	switch status {
	case custody.StatusCheckedIn, custody.StatusTransferred,
		custody.StatusUnderAnalysis, custody.StatusArchived:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evidence status"})
		return
	}

	if err := h.store.UpdateStatus(c.Request.Context(), id, status); err != nil {
		code := custodyStatus(err)
		if code == http.StatusInternalServerError {
			h.logger.Error("update evidence status", zap.Error(err))
		}
		c.JSON(code, gin.H{"error": publicError(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evidence_id": id, "status": status})
}

// Delete handles DELETE /evidence/:id — removes the item and its transfer
// log. Items under analysis are protected until their status moves on.
func (h *EvidenceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteEvidence(c.Request.Context(), id); err != nil {
		code := custodyStatus(err)
		if code == http.StatusInternalServerError {
			h.logger.Error("delete evidence", zap.Error(err))
		}
		c.JSON(code, gin.H{"error": publicError(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evidence_id": id, "deleted": true})
}

// Chain handles GET /evidence/:id/chain — the full ordered transfer log.
func (h *EvidenceHandler) Chain(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.store.GetEvidence(c.Request.Context(), id); err != nil {
		c.JSON(custodyStatus(err), gin.H{"error": publicError(err)})
		return
	}
	recs, err := h.store.Transfers(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("read transfer chain", zap.Error(err))
		c.JSON(custodyStatus(err), gin.H{"error": publicError(err)})
		return
	}
	if recs == nil {
		recs = []*custody.TransferRecord{}
	}
	c.JSON(http.StatusOK, recs)
}

// Verify handles GET /evidence/:id/chain/verify — recomputes every link.
func (h *EvidenceHandler) Verify(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.engine.VerifyChain(c.Request.Context(), id)
	if err != nil {
		status := custodyStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("verify chain", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": publicError(err)})
		return
	}
	RecordVerification(res.Valid)
	c.JSON(http.StatusOK, res)
}
