package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"matchbook/internal/models"
	"matchbook/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewCompanyID returns a fresh company identifier.
func NewCompanyID() string {
	return uuid.New()
}

// Ptr returns a pointer to v. Convenient for optional model fields.
func Ptr[T any](v T) *T {
	return &v
}

// Date builds a UTC date pointer.
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// MakeTransaction builds an unsaved pending transaction with a unique dedup
// key. Ingest tests feed these as parsed batch rows.
func MakeTransaction(companyID string) models.Transaction {
	n := nextID()
	return models.Transaction{
		CompanyID:       companyID,
		AccountID:       "acct-1",
		TransactionDate: Date(2026, time.January, 10),
		Description:     Ptr(fmt.Sprintf("Payment ref %d", n)),
		VendorName:      fmt.Sprintf("Vendor %d", n),
		Amount:          decimal.NewFromInt(-(100 + n)),
		Currency:        "RON",
		Status:          models.StatusPending,
	}
}

// CreateTestTransaction persists a pending transaction with a unique dedup key.
func CreateTestTransaction(t *testing.T, db *gorm.DB, companyID string) *models.Transaction {
	t.Helper()

	txn := MakeTransaction(companyID)
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return &txn
}

// CreateMergeableTransaction persists a pending transaction sharing the given
// supplier and currency, suitable as a merge input.
func CreateMergeableTransaction(t *testing.T, db *gorm.DB, companyID, supplier, currency string, amount int64, day int) *models.Transaction {
	t.Helper()

	n := nextID()
	txn := models.Transaction{
		CompanyID:       companyID,
		AccountID:       "acct-1",
		TransactionDate: Date(2026, time.January, day),
		ValueDate:       Date(2026, time.January, day),
		Description:     Ptr(fmt.Sprintf("Card payment %d", n)),
		VendorName:      supplier,
		Amount:          decimal.NewFromInt(amount),
		Currency:        currency,
		Status:          models.StatusPending,
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("failed to create mergeable transaction: %v", err)
	}
	return &txn
}

// CreateTestInvoice persists an invoice projection row.
func CreateTestInvoice(t *testing.T, db *gorm.DB, companyID, supplier string, value int64, date *time.Time) *models.Invoice {
	t.Helper()

	n := nextID()
	inv := models.Invoice{
		CompanyID:     companyID,
		Supplier:      supplier,
		InvoiceNumber: fmt.Sprintf("INV-%04d", n),
		InvoiceDate:   date,
		InvoiceValue:  decimal.NewFromInt(value),
		Currency:      "RON",
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("failed to create test invoice: %v", err)
	}
	return &inv
}
