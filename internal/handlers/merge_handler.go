package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/services"
)

// MergeHandler handles merging related transactions and reversing merges.
type MergeHandler struct {
	mergeService services.MergeServicer
	auditService services.AuditServicer
}

// NewMergeHandler creates a new MergeHandler.
func NewMergeHandler(mergeService services.MergeServicer, auditService services.AuditServicer) *MergeHandler {
	return &MergeHandler{mergeService: mergeService, auditService: auditService}
}

// CreateMergeRequest represents the payload merging transactions.
type CreateMergeRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=2,dive,uuid"`
}

// CreateMerge combines the given pending transactions into one synthetic
// transaction.
func (h *MergeHandler) CreateMerge(c *gin.Context) {
	var req CreateMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	merged, err := h.mergeService.Merge(req.TransactionIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(merged.CompanyID, "MERGE_TRANSACTIONS", "transaction", merged.ID,
		map[string]any{"input_ids": req.TransactionIDs})

	c.JSON(http.StatusCreated, gin.H{"transaction": merged})
}

// DeleteMerge reverses a merge: the absorbed transactions return to pending
// and the synthetic transaction is removed.
func (h *MergeHandler) DeleteMerge(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.mergeService.Unmerge(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}
