package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/services"
)

// MatchHandler triggers matching runs.
type MatchHandler struct {
	matchService services.MatchServicer
	auditService services.AuditServicer
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matchService services.MatchServicer, auditService services.AuditServicer) *MatchHandler {
	return &MatchHandler{matchService: matchService, auditService: auditService}
}

// RunMatchRequest represents the payload starting a matching run. When
// transaction_ids is empty the run covers every pending transaction of the
// company.
type RunMatchRequest struct {
	CompanyID      string   `json:"company_id" binding:"required,uuid"`
	TransactionIDs []string `json:"transaction_ids" binding:"omitempty,dive,uuid"`
	UseAI          bool     `json:"use_ai"`
	MinConfidence  float64  `json:"min_confidence" binding:"omitempty,gte=0,lte=1"`
}

// RunMatch matches the requested transactions against the company's invoices
// and applies the resulting links and suggestions.
func (h *MatchHandler) RunMatch(c *gin.Context) {
	var req RunMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.matchService.Run(c.Request.Context(), services.MatchRequest{
		CompanyID:      req.CompanyID,
		TransactionIDs: req.TransactionIDs,
		UseAI:          req.UseAI,
		MinConfidence:  req.MinConfidence,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(req.CompanyID, "RUN_MATCH", "matching_run", "",
		map[string]any{
			"matched":   result.Matched,
			"suggested": result.Suggested,
			"unmatched": result.Unmatched,
			"use_ai":    req.UseAI,
		})

	c.JSON(http.StatusOK, gin.H{"result": result})
}
