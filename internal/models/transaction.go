package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the reconciliation state of a transaction.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusResolved TransactionStatus = "resolved"
	StatusIgnored  TransactionStatus = "ignored"
	StatusMerged   TransactionStatus = "merged"
)

// MatchMethod identifies which layer produced a match or suggestion.
type MatchMethod string

const (
	MethodRule      MatchMethod = "rule"
	MethodHeuristic MatchMethod = "heuristic"
	MethodAI        MatchMethod = "ai"
	MethodManual    MatchMethod = "manual"
)

// Accepted returns the method tag for a suggestion that was confirmed by a
// reviewer, e.g. "heuristic" becomes "heuristic_accepted".
func (m MatchMethod) Accepted() MatchMethod {
	return m + "_accepted"
}

// Transaction represents a single financial movement, either imported from a
// bank statement or synthesized by merging related movements.
type Transaction struct {
	Base
	CompanyID       string     `gorm:"type:uuid;not null;index" json:"company_id"`
	AccountID       string     `gorm:"not null;index" json:"account_id"`
	StatementFileID *string    `gorm:"type:uuid;index" json:"statement_file_id,omitempty"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	ValueDate       *time.Time `json:"value_date,omitempty"`
	Description     *string    `json:"description,omitempty"`

	VendorName      string  `json:"vendor_name"`
	MatchedSupplier *string `json:"matched_supplier,omitempty"`

	Amount           decimal.Decimal  `gorm:"type:numeric;not null" json:"amount"`
	Currency         string           `gorm:"not null" json:"currency"`
	OriginalAmount   *decimal.Decimal `gorm:"type:numeric" json:"original_amount,omitempty"`
	OriginalCurrency *string          `json:"original_currency,omitempty"`
	ExchangeRate     *decimal.Decimal `gorm:"type:numeric" json:"exchange_rate,omitempty"`

	Status TransactionStatus `gorm:"not null;default:pending;index" json:"status"`

	InvoiceID          *string      `gorm:"type:uuid" json:"invoice_id,omitempty"`
	SuggestedInvoiceID *string      `gorm:"type:uuid" json:"suggested_invoice_id,omitempty"`
	MatchConfidence    *float64     `json:"match_confidence,omitempty"`
	MatchMethod        *MatchMethod `json:"match_method,omitempty"`

	MergedIntoID       *string `gorm:"type:uuid;index" json:"merged_into_id,omitempty"`
	IsMergedResult     bool    `gorm:"not null;default:false" json:"is_merged_result"`
	MergedDatesDisplay *string `json:"merged_dates_display,omitempty"`
}

// EffectiveSupplier returns the supplier identity used for matching and merge
// eligibility: the normalized matched supplier when known, the raw vendor
// name otherwise.
func (t *Transaction) EffectiveSupplier() string {
	if t.MatchedSupplier != nil && strings.TrimSpace(*t.MatchedSupplier) != "" {
		return *t.MatchedSupplier
	}
	return t.VendorName
}
