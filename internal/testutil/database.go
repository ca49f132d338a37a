// Package testutil provides test helpers for setting up in-memory databases,
// creating fixtures, and making assertions.
package testutil

import (
	"testing"

	"matchbook/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// allModels is the list of all GORM models to auto-migrate in tests.
var allModels = []interface{}{
	&models.Transaction{},
	&models.Invoice{},
	&models.StatementFile{},
	&models.AuditLog{},
}

// dedupIndexSQL mirrors the partial unique index from the production
// migrations: uniqueness is only enforced when every dedup key field is
// non-null.
const dedupIndexSQL = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_dedup_key
ON transactions (company_id, account_id, transaction_date, amount, currency, description)
WHERE transaction_date IS NOT NULL AND description IS NOT NULL AND deleted_at IS NULL`

// SetupTestDB creates an in-memory SQLite database with all models migrated
// and the dedup unique index in place. TranslateError is enabled, matching
// production, so duplicate-key violations surface as gorm.ErrDuplicatedKey.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	if err := db.Exec(dedupIndexSQL).Error; err != nil {
		t.Fatalf("failed to create dedup index: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}
