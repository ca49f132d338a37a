package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/models"
)

const (
	defaultCandidateLimit = 50
	defaultTolerancePct   = 0.1
	defaultCurrency       = "RON"
)

// invoiceService reads the invoice projection maintained by the invoicing
// system. It is the engine's candidate provider and never writes.
type invoiceService struct {
	db *gorm.DB
}

// NewInvoiceService creates a new InvoiceServicer.
func NewInvoiceService(db *gorm.DB) InvoiceServicer {
	return &invoiceService{db: db}
}

// GetInvoice retrieves a single invoice projection by ID.
func (s *invoiceService) GetInvoice(id string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.Where("id = ?", id).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &inv, nil
}

// GetCandidates returns a bounded candidate list. When an amount is given the
// search window is amount*(1±tolerancePct) against the invoice value in the
// requested currency, using the converted RON/EUR equivalents when available.
func (s *invoiceService) GetCandidates(filter CandidateFilter) ([]models.Invoice, error) {
	if filter.CompanyID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "company ID is required")
	}

	currency := filter.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	tolerance := filter.TolerancePct
	if tolerance <= 0 {
		tolerance = defaultTolerancePct
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	q := s.db.Model(&models.Invoice{}).Where("company_id = ?", filter.CompanyID)

	if filter.Supplier != nil && strings.TrimSpace(*filter.Supplier) != "" {
		q = q.Where("LOWER(supplier) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(*filter.Supplier))+"%")
	}

	if filter.Amount != nil {
		amount := filter.Amount.Abs()
		tol := decimal.NewFromFloat(tolerance)
		low := amount.Mul(decimal.NewFromInt(1).Sub(tol))
		high := amount.Mul(decimal.NewFromInt(1).Add(tol))

		valueColumn := "invoice_value"
		switch currency {
		case "RON":
			valueColumn = "COALESCE(value_ron, invoice_value)"
		case "EUR":
			valueColumn = "COALESCE(value_eur, invoice_value)"
		}
		q = q.Where(valueColumn+" BETWEEN ? AND ?", low, high)
	}

	if filter.DateFrom != nil {
		q = q.Where("invoice_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("invoice_date <= ?", *filter.DateTo)
	}

	var invoices []models.Invoice
	if err := q.Order("invoice_date DESC").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return invoices, nil
}
