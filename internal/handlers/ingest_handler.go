package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/models"
	"matchbook/internal/services"
)

// IngestHandler receives parsed statement transactions from the processing
// pipeline. Its routes sit behind the pipeline API key middleware.
type IngestHandler struct {
	ingestService    services.IngestServicer
	statementService services.StatementServicer
	auditService     services.AuditServicer
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingestService services.IngestServicer, statementService services.StatementServicer, auditService services.AuditServicer) *IngestHandler {
	return &IngestHandler{
		ingestService:    ingestService,
		statementService: statementService,
		auditService:     auditService,
	}
}

// RegisterStatementRequest represents the payload announcing an uploaded
// statement file ahead of its transactions.
type RegisterStatementRequest struct {
	CompanyID string `json:"company_id" binding:"required,uuid"`
	AccountID string `json:"account_id" binding:"required"`
	FileName  string `json:"file_name" binding:"max=500"`
}

// RegisterStatement records a statement file for subsequent ingest batches.
func (h *IngestHandler) RegisterStatement(c *gin.Context) {
	var req RegisterStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	file, err := h.statementService.RegisterStatement(req.CompanyID, req.AccountID, req.FileName)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"statement": file})
}

// IngestTransactionRow is one parsed statement line. Dates arrive as RFC3339
// or YYYY-MM-DD strings; amounts are signed decimals in the account currency.
type IngestTransactionRow struct {
	TransactionDate  *string          `json:"transaction_date"`
	ValueDate        *string          `json:"value_date"`
	Description      *string          `json:"description" binding:"omitempty,max=1000"`
	VendorName       string           `json:"vendor_name" binding:"max=255"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency" binding:"required,iso4217"`
	OriginalAmount   *decimal.Decimal `json:"original_amount"`
	OriginalCurrency *string          `json:"original_currency" binding:"omitempty,iso4217"`
	ExchangeRate     *decimal.Decimal `json:"exchange_rate"`
}

// IngestTransactionsRequest represents one ingest batch for a statement file.
type IngestTransactionsRequest struct {
	Transactions []IngestTransactionRow `json:"transactions" binding:"required,dive"`
}

// IngestTransactions accepts a batch of parsed transactions for a statement
// file, deduplicates them against history, and inserts the rest.
func (h *IngestHandler) IngestTransactions(c *gin.Context) {
	statementID, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req IngestTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	file, err := h.statementService.GetStatement(statementID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	batch := make([]models.Transaction, 0, len(req.Transactions))
	for i := range req.Transactions {
		row, convErr := req.Transactions[i].toModel(file)
		if convErr != nil {
			respondWithError(c, convErr)
			return
		}
		batch = append(batch, row)
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), statementID, batch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(file.CompanyID, "INGEST_TRANSACTIONS", "statement_file", statementID,
		map[string]any{"new_count": result.NewCount, "duplicate_count": result.DuplicateCount})

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (r *IngestTransactionRow) toModel(file *models.StatementFile) (models.Transaction, error) {
	txn := models.Transaction{
		CompanyID:        file.CompanyID,
		AccountID:        file.AccountID,
		Description:      r.Description,
		VendorName:       r.VendorName,
		Amount:           r.Amount,
		Currency:         r.Currency,
		OriginalAmount:   r.OriginalAmount,
		OriginalCurrency: r.OriginalCurrency,
		ExchangeRate:     r.ExchangeRate,
		Status:           models.StatusPending,
	}

	if r.TransactionDate != nil && *r.TransactionDate != "" {
		t, err := parseFlexibleTime(*r.TransactionDate)
		if err != nil {
			return txn, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid transaction_date format, use RFC3339 or YYYY-MM-DD")
		}
		txn.TransactionDate = &t
	}
	if r.ValueDate != nil && *r.ValueDate != "" {
		t, err := parseFlexibleTime(*r.ValueDate)
		if err != nil {
			return txn, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid value_date format, use RFC3339 or YYYY-MM-DD")
		}
		txn.ValueDate = &t
	}

	return txn, nil
}
