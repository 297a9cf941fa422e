package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/decms-project/decms/internal/identity"
	"github.com/decms-project/decms/internal/reports"
)

// ReportHandler exposes analysis findings and assembled custody reports.
type ReportHandler struct {
	svc    *reports.ReportService
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc *reports.ReportService, tokens *identity.TokenIssuer, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the report routes on the given router group.
func (h *ReportHandler) Register(rg *gin.RouterGroup) {
	auth := identity.RequireToken(h.tokens)
	rg.POST("/reports", auth, h.CreateAnalysis)
	rg.GET("/reports/:id", auth, h.GetAnalysis)
	rg.GET("/evidence/:id/reports", auth, h.ListForEvidence)
	rg.GET("/evidence/:id/custody-report", auth, h.CustodyReport)
}

type createReportRequest struct {
	EvidenceID int64  `json:"evidence_id" binding:"required"`
	Findings   string `json:"findings" binding:"required"`
}

// CreateAnalysis handles POST /reports — records the caller's findings on an
// evidence item.
func (h *ReportHandler) CreateAnalysis(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := identity.ClaimsFromCtx(c)

	r, err := h.svc.CreateAnalysis(c.Request.Context(), req.EvidenceID, claims.UserID, req.Findings)
	if err != nil {
		status := custodyStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("create analysis report", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": publicError(err)})
		return
	}
	c.JSON(http.StatusCreated, r)
}

// GetAnalysis handles GET /reports/:id.
func (h *ReportHandler) GetAnalysis(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.svc.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		h.logger.Error("get analysis report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListForEvidence handles GET /evidence/:id/reports.
func (h *ReportHandler) ListForEvidence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.ListAnalysisForEvidence(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list analysis reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if out == nil {
		out = []*reports.AnalysisReport{}
	}
	c.JSON(http.StatusOK, out)
}

// CustodyReport handles GET /evidence/:id/custody-report — the full
// chain-of-custody view with a fresh verification pass.
func (h *ReportHandler) CustodyReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rep, err := h.svc.CustodyReport(c.Request.Context(), id)
	if err != nil {
		status := custodyStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("assemble custody report", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": publicError(err)})
		return
	}
	c.JSON(http.StatusOK, rep)
}
