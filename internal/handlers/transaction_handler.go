package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/models"
	"matchbook/internal/pagination"
	"matchbook/internal/services"
)

// TransactionHandler handles ledger reads and reviewer actions on matches.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// ListTransactions returns a paginated transaction list with optional filters:
// company_id, account_id, statement_file_id, status, from_date, to_date.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("company_id"); v != "" {
		filter.CompanyID = &v
	}
	if v := c.Query("account_id"); v != "" {
		filter.AccountID = &v
	}
	if v := c.Query("statement_file_id"); v != "" {
		filter.StatementFileID = &v
	}

	if v := c.Query("status"); v != "" {
		status := models.TransactionStatus(v)
		switch status {
		case models.StatusPending, models.StatusResolved, models.StatusIgnored, models.StatusMerged:
			filter.Status = &status
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status, must be pending, resolved, ignored, or merged")
		}
	}

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}
	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	return filter, nil
}

// GetTransaction returns a single transaction by ID.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransaction(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// AcceptSuggestion promotes a transaction's suggested invoice to a confirmed
// link and marks the transaction resolved.
func (h *TransactionHandler) AcceptSuggestion(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.AcceptSuggested(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(transaction.CompanyID, "ACCEPT_SUGGESTION", "transaction", id,
		map[string]any{"invoice_id": transaction.InvoiceID})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// RejectSuggestion discards a transaction's suggested invoice.
func (h *TransactionHandler) RejectSuggestion(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.RejectSuggested(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(transaction.CompanyID, "REJECT_SUGGESTION", "transaction", id, nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// LinkInvoiceRequest represents the payload for a manual invoice link.
type LinkInvoiceRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required,uuid"`
}

// LinkInvoice manually links a transaction to an invoice and marks it
// resolved.
func (h *TransactionHandler) LinkInvoice(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req LinkInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.LinkManual(id, req.InvoiceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(transaction.CompanyID, "LINK_INVOICE", "transaction", id,
		map[string]any{"invoice_id": req.InvoiceID})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UnlinkInvoice removes a transaction's confirmed invoice link and returns it
// to pending.
func (h *TransactionHandler) UnlinkInvoice(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.Unlink(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(transaction.CompanyID, "UNLINK_INVOICE", "transaction", id, nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateStatusRequest represents the payload for a single status update.
type UpdateStatusRequest struct {
	Status models.TransactionStatus `json:"status" binding:"required,transaction_status"`
}

// UpdateStatus sets a transaction's reconciliation status.
func (h *TransactionHandler) UpdateStatus(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.UpdateStatus(id, req.Status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(transaction.CompanyID, "UPDATE_STATUS", "transaction", id,
		map[string]any{"status": req.Status})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateStatusBulkRequest represents the payload for a bulk status update.
type UpdateStatusBulkRequest struct {
	TransactionIDs []string                 `json:"transaction_ids" binding:"required,min=1,dive,uuid"`
	Status         models.TransactionStatus `json:"status" binding:"required,transaction_status"`
}

// UpdateStatusBulk sets the reconciliation status of many transactions in one
// call.
func (h *TransactionHandler) UpdateStatusBulk(c *gin.Context) {
	var req UpdateStatusBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updated, err := h.transactionService.UpdateStatusBulk(req.TransactionIDs, req.Status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated_count": updated})
}
