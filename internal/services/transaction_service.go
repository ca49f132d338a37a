package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/matching"
	"matchbook/internal/models"
	"matchbook/internal/pagination"
)

// transactionService handles ledger reads and the match writer.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// GetTransaction retrieves a transaction by ID.
func (s *transactionService) GetTransaction(id string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.Where("id = ?", id).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// ListTransactions retrieves a paginated, filtered list of transactions.
func (s *transactionService) ListTransactions(filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("transaction_date DESC, created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.CompanyID != nil {
		q = q.Where("company_id = ?", *f.CompanyID)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.StatementFileID != nil {
		q = q.Where("statement_file_id = ?", *f.StatementFileID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.FromDate != nil {
		q = q.Where("transaction_date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("transaction_date <= ?", *f.ToDate)
	}
	return q
}

// changes converts a TransactionUpdate into a column map for gorm Updates.
// Clear flags win over values so a single update cannot both set and clear.
func (u TransactionUpdate) changes() map[string]any {
	m := map[string]any{}
	if u.Status != nil {
		m["status"] = *u.Status
	}
	if u.ClearInvoiceID {
		m["invoice_id"] = nil
	} else if u.InvoiceID != nil {
		m["invoice_id"] = *u.InvoiceID
	}
	if u.ClearSuggestedInvoiceID {
		m["suggested_invoice_id"] = nil
	} else if u.SuggestedInvoiceID != nil {
		m["suggested_invoice_id"] = *u.SuggestedInvoiceID
	}
	if u.ClearMatchConfidence {
		m["match_confidence"] = nil
	} else if u.MatchConfidence != nil {
		m["match_confidence"] = *u.MatchConfidence
	}
	if u.ClearMatchMethod {
		m["match_method"] = nil
	} else if u.MatchMethod != nil {
		m["match_method"] = *u.MatchMethod
	}
	if u.ClearMergedIntoID {
		m["merged_into_id"] = nil
	} else if u.MergedIntoID != nil {
		m["merged_into_id"] = *u.MergedIntoID
	}
	if u.MatchedSupplier != nil {
		m["matched_supplier"] = *u.MatchedSupplier
	}
	return m
}

// update applies a partial update to one transaction row.
func (s *transactionService) update(tx *gorm.DB, id string, u TransactionUpdate) error {
	changes := u.changes()
	if len(changes) == 0 {
		return nil
	}
	res := tx.Model(&models.Transaction{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// ApplyDecisions writes a batch of match decisions onto the ledger. Auto-
// accepted decisions link the invoice and force the transaction resolved;
// suggestion decisions store the candidate for review without touching the
// status. Decisions with neither are no-ops.
func (s *transactionService) ApplyDecisions(decisions []matching.Decision) (*ApplyResult, error) {
	result := &ApplyResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, d := range decisions {
			switch {
			case d.AutoAccepted && d.InvoiceID != nil:
				resolved := models.StatusResolved
				u := TransactionUpdate{
					Status:          &resolved,
					InvoiceID:       d.InvoiceID,
					MatchConfidence: &d.Confidence,
					MatchMethod:     d.Method,
				}
				if err := s.update(tx, d.TransactionID, u); err != nil {
					return err
				}
				result.LinkedCount++
			case d.SuggestedInvoiceID != nil:
				u := TransactionUpdate{
					SuggestedInvoiceID: d.SuggestedInvoiceID,
					MatchConfidence:    &d.Confidence,
					MatchMethod:        d.Method,
				}
				if err := s.update(tx, d.TransactionID, u); err != nil {
					return err
				}
				result.SuggestedCount++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AcceptSuggested promotes a suggestion to a confirmed link: the suggested
// invoice becomes the linked invoice, the method gains its accepted tag, and
// the transaction is resolved.
func (s *transactionService) AcceptSuggested(id string) (*models.Transaction, error) {
	txn, err := s.GetTransaction(id)
	if err != nil {
		return nil, err
	}
	if txn.SuggestedInvoiceID == nil {
		return nil, apperrors.ErrNoSuggestion
	}

	resolved := models.StatusResolved
	u := TransactionUpdate{
		Status:                  &resolved,
		InvoiceID:               txn.SuggestedInvoiceID,
		ClearSuggestedInvoiceID: true,
	}
	if txn.MatchMethod != nil {
		accepted := txn.MatchMethod.Accepted()
		u.MatchMethod = &accepted
	}
	if err := s.update(s.db, id, u); err != nil {
		return nil, err
	}
	return s.GetTransaction(id)
}

// RejectSuggested discards a suggestion, leaving the status untouched.
func (s *transactionService) RejectSuggested(id string) (*models.Transaction, error) {
	txn, err := s.GetTransaction(id)
	if err != nil {
		return nil, err
	}
	if txn.SuggestedInvoiceID == nil {
		return nil, apperrors.ErrNoSuggestion
	}

	u := TransactionUpdate{
		ClearSuggestedInvoiceID: true,
		ClearMatchConfidence:    true,
		ClearMatchMethod:        true,
	}
	if err := s.update(s.db, id, u); err != nil {
		return nil, err
	}
	return s.GetTransaction(id)
}

// LinkManual links a transaction to an invoice chosen by a reviewer.
func (s *transactionService) LinkManual(id, invoiceID string) (*models.Transaction, error) {
	if invoiceID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invoice ID is required")
	}

	resolved := models.StatusResolved
	manual := models.MethodManual
	confidence := 1.0
	u := TransactionUpdate{
		Status:                  &resolved,
		InvoiceID:               &invoiceID,
		ClearSuggestedInvoiceID: true,
		MatchConfidence:         &confidence,
		MatchMethod:             &manual,
	}
	if err := s.update(s.db, id, u); err != nil {
		return nil, err
	}
	return s.GetTransaction(id)
}

// Unlink removes a confirmed invoice link and returns the transaction to the
// pending pool.
func (s *transactionService) Unlink(id string) (*models.Transaction, error) {
	pending := models.StatusPending
	u := TransactionUpdate{
		Status:               &pending,
		ClearInvoiceID:       true,
		ClearMatchConfidence: true,
		ClearMatchMethod:     true,
	}
	if err := s.update(s.db, id, u); err != nil {
		return nil, err
	}
	return s.GetTransaction(id)
}

// UpdateStatus sets a transaction's status. Ignoring a transaction clears any
// stored suggestion so an ignored row never carries match metadata.
func (s *transactionService) UpdateStatus(id string, status models.TransactionStatus) (*models.Transaction, error) {
	if err := validateStatusTarget(status); err != nil {
		return nil, err
	}
	if err := s.update(s.db, id, statusUpdate(status)); err != nil {
		return nil, err
	}
	return s.GetTransaction(id)
}

// UpdateStatusBulk sets the status on many transactions at once and returns
// how many rows changed.
func (s *transactionService) UpdateStatusBulk(ids []string, status models.TransactionStatus) (int64, error) {
	if err := validateStatusTarget(status); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.Model(&models.Transaction{}).Where("id IN ?", ids).Updates(statusUpdate(status).changes())
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}

// validateStatusTarget rejects statuses that only internal flows may set.
// "merged" is reserved for the merge manager.
func validateStatusTarget(status models.TransactionStatus) error {
	switch status {
	case models.StatusPending, models.StatusResolved, models.StatusIgnored:
		return nil
	default:
		return apperrors.ErrInvalidStatus
	}
}

func statusUpdate(status models.TransactionStatus) TransactionUpdate {
	u := TransactionUpdate{Status: &status}
	if status == models.StatusIgnored {
		u.ClearSuggestedInvoiceID = true
		u.ClearMatchConfidence = true
		u.ClearMatchMethod = true
	}
	return u
}
