package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"matchbook/internal/matching"
	"matchbook/internal/models"
	"matchbook/internal/pagination"
)

// IngestResult summarizes one ingest batch.
type IngestResult struct {
	NewIDs         []string `json:"new_ids"`
	NewCount       int      `json:"new_count"`
	DuplicateCount int      `json:"duplicate_count"`
}

// IngestServicer defines the contract for the dedup ingest pipeline.
type IngestServicer interface {
	Ingest(ctx context.Context, statementFileID string, batch []models.Transaction) (*IngestResult, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	CompanyID       *string
	AccountID       *string
	StatementFileID *string
	Status          *models.TransactionStatus
	FromDate        *time.Time
	ToDate          *time.Time
}

// TransactionUpdate is a typed partial update for a transaction. Pointer
// fields set a new value when non-nil; the Clear flags reset the matching
// column to NULL. A zero TransactionUpdate is a no-op.
type TransactionUpdate struct {
	Status *models.TransactionStatus

	InvoiceID      *string
	ClearInvoiceID bool

	SuggestedInvoiceID      *string
	ClearSuggestedInvoiceID bool

	MatchConfidence      *float64
	ClearMatchConfidence bool

	MatchMethod      *models.MatchMethod
	ClearMatchMethod bool

	MergedIntoID      *string
	ClearMergedIntoID bool

	MatchedSupplier *string
}

// ApplyResult counts what a batch of match decisions did to the ledger.
type ApplyResult struct {
	LinkedCount    int `json:"linked_count"`
	SuggestedCount int `json:"suggested_count"`
}

// TransactionServicer defines the contract for ledger reads and the match
// writer: applying decisions, promoting or rejecting suggestions, manual
// links, and status updates.
type TransactionServicer interface {
	GetTransaction(id string) (*models.Transaction, error)
	ListTransactions(filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)

	ApplyDecisions(decisions []matching.Decision) (*ApplyResult, error)
	AcceptSuggested(id string) (*models.Transaction, error)
	RejectSuggested(id string) (*models.Transaction, error)
	LinkManual(id, invoiceID string) (*models.Transaction, error)
	Unlink(id string) (*models.Transaction, error)

	UpdateStatus(id string, status models.TransactionStatus) (*models.Transaction, error)
	UpdateStatusBulk(ids []string, status models.TransactionStatus) (int64, error)
}

// CandidateFilter narrows the invoice candidate pool before scoring.
type CandidateFilter struct {
	CompanyID    string
	Supplier     *string
	Amount       *decimal.Decimal
	TolerancePct float64
	Currency     string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
}

// InvoiceServicer supplies bounded invoice candidate lists. The projection is
// read-only; this engine never mutates invoices.
type InvoiceServicer interface {
	GetCandidates(filter CandidateFilter) ([]models.Invoice, error)
	GetInvoice(id string) (*models.Invoice, error)
}

// MatchRequest selects which pending transactions to run matching for.
type MatchRequest struct {
	CompanyID      string
	TransactionIDs []string
	UseAI          bool
	MinConfidence  float64
}

// MatchRunResult is a batch matching outcome plus what was written back.
type MatchRunResult struct {
	matching.BatchResult
	Applied ApplyResult `json:"applied"`
}

// MatchServicer orchestrates candidate retrieval, the matching engine, and
// the write-back of decisions.
type MatchServicer interface {
	Run(ctx context.Context, req MatchRequest) (*MatchRunResult, error)
}

// UnmergeResult lists the transactions restored by an unmerge.
type UnmergeResult struct {
	RestoredIDs []string `json:"restored_ids"`
}

// MergeServicer aggregates pending transactions into a synthetic merge result
// and reverses such merges.
type MergeServicer interface {
	Merge(ids []string) (*models.Transaction, error)
	Unmerge(mergedID string) (*UnmergeResult, error)
}

// StatementServicer manages statement file records. Deleting a statement
// never deletes its transactions.
type StatementServicer interface {
	RegisterStatement(companyID, accountID, fileName string) (*models.StatementFile, error)
	GetStatement(id string) (*models.StatementFile, error)
	DeleteStatement(id string) error
}

// AuditServicer records reconciliation actions.
type AuditServicer interface {
	Log(companyID, action, resourceType, resourceID string, changes map[string]any)
}
