package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/services"
)

// InvoiceHandler exposes read access to the invoice projection so reviewers
// can browse candidates before a manual link.
type InvoiceHandler struct {
	invoiceService services.InvoiceServicer
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService services.InvoiceServicer) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// GetInvoice returns a single invoice by ID.
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	invoice, err := h.invoiceService.GetInvoice(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

// ListCandidates returns unmatched invoice candidates filtered by supplier,
// amount window, currency, and date range.
func (h *InvoiceHandler) ListCandidates(c *gin.Context) {
	companyID := c.Query("company_id")
	if companyID == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "company_id is required"))
		return
	}

	filter := services.CandidateFilter{
		CompanyID: companyID,
		Currency:  c.Query("currency"),
	}

	if v := c.Query("supplier"); v != "" {
		filter.Supplier = &v
	}
	if v := c.Query("amount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid amount"))
			return
		}
		filter.Amount = &amount
	}
	if v := c.Query("tolerance_pct"); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil || tol < 0 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid tolerance_pct"))
			return
		}
		filter.TolerancePct = tol
	}
	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &t
	}
	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		filter.DateTo = &t
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid limit"))
			return
		}
		filter.Limit = limit
	}

	invoices, err := h.invoiceService.GetCandidates(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}
