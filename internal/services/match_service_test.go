package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"matchbook/internal/matching"
	"matchbook/internal/models"
	"matchbook/internal/testutil"
)

func newMatchService(db *gorm.DB, classifier matching.Classifier) MatchServicer {
	engine := matching.NewEngine(matching.DefaultConfig(), classifier)
	return NewMatchService(db, engine, NewInvoiceService(db), NewTransactionService(db))
}

func createMatchableTransaction(t *testing.T, db *gorm.DB, companyID, vendor string, amount decimal.Decimal, day int) *models.Transaction {
	t.Helper()

	txn := testutil.MakeTransaction(companyID)
	txn.VendorName = vendor
	txn.Amount = amount
	txn.TransactionDate = testutil.Date(2026, time.January, day)
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("failed to create transaction: %v", err)
	}
	return &txn
}

func TestMatchRun(t *testing.T) {
	t.Run("requires_company_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newMatchService(db, nil)

		_, err := svc.Run(context.Background(), MatchRequest{})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("links_exact_match", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newMatchService(db, nil)
		companyID := testutil.NewCompanyID()

		txn := createMatchableTransaction(t, db, companyID, "Meta", decimal.NewFromInt(-400), 10)
		inv := testutil.CreateTestInvoice(t, db, companyID, "Meta", 400, testutil.Date(2026, time.January, 5))

		result, err := svc.Run(context.Background(), MatchRequest{CompanyID: companyID})
		testutil.AssertNoError(t, err)

		if result.Matched != 1 {
			t.Fatalf("expected 1 matched, got %d", result.Matched)
		}
		if result.Applied.LinkedCount != 1 {
			t.Errorf("expected 1 linked write, got %d", result.Applied.LinkedCount)
		}

		var updated models.Transaction
		testutil.AssertNoError(t, db.Where("id = ?", txn.ID).First(&updated).Error)
		if updated.Status != models.StatusResolved {
			t.Errorf("expected resolved, got %s", updated.Status)
		}
		if updated.InvoiceID == nil || *updated.InvoiceID != inv.ID {
			t.Errorf("expected link to invoice %s, got %v", inv.ID, updated.InvoiceID)
		}
	})

	t.Run("stores_suggestion_for_close_match", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newMatchService(db, nil)
		companyID := testutil.NewCompanyID()

		// 0.5% amount difference lands in the suggestion band.
		txn := createMatchableTransaction(t, db, companyID, "Meta", decimal.NewFromFloat(-100.5), 10)
		inv := testutil.CreateTestInvoice(t, db, companyID, "Meta", 100, testutil.Date(2026, time.January, 5))

		result, err := svc.Run(context.Background(), MatchRequest{CompanyID: companyID})
		testutil.AssertNoError(t, err)

		if result.Suggested != 1 {
			t.Fatalf("expected 1 suggested, got %d", result.Suggested)
		}

		var updated models.Transaction
		testutil.AssertNoError(t, db.Where("id = ?", txn.ID).First(&updated).Error)
		if updated.Status != models.StatusPending {
			t.Errorf("expected transaction to stay pending, got %s", updated.Status)
		}
		if updated.SuggestedInvoiceID == nil || *updated.SuggestedInvoiceID != inv.ID {
			t.Errorf("expected suggestion for invoice %s, got %v", inv.ID, updated.SuggestedInvoiceID)
		}
		if updated.InvoiceID != nil {
			t.Error("suggestion must not set a confirmed link")
		}
	})

	t.Run("no_candidates_leaves_unmatched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newMatchService(db, nil)
		companyID := testutil.NewCompanyID()

		createMatchableTransaction(t, db, companyID, "Meta", decimal.NewFromInt(-400), 10)

		result, err := svc.Run(context.Background(), MatchRequest{CompanyID: companyID})
		testutil.AssertNoError(t, err)

		if result.Unmatched != 1 {
			t.Errorf("expected 1 unmatched, got %d", result.Unmatched)
		}
		if result.Applied.LinkedCount != 0 || result.Applied.SuggestedCount != 0 {
			t.Error("expected no writes for an unmatched batch")
		}
	})

	t.Run("targets_requested_transactions_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newMatchService(db, nil)
		companyID := testutil.NewCompanyID()

		target := createMatchableTransaction(t, db, companyID, "Meta", decimal.NewFromInt(-400), 10)
		other := createMatchableTransaction(t, db, companyID, "Google", decimal.NewFromInt(-600), 10)
		testutil.CreateTestInvoice(t, db, companyID, "Meta", 400, testutil.Date(2026, time.January, 5))
		testutil.CreateTestInvoice(t, db, companyID, "Google", 600, testutil.Date(2026, time.January, 5))

		result, err := svc.Run(context.Background(), MatchRequest{
			CompanyID:      companyID,
			TransactionIDs: []string{target.ID},
		})
		testutil.AssertNoError(t, err)

		if len(result.Decisions) != 1 {
			t.Fatalf("expected 1 decision, got %d", len(result.Decisions))
		}

		var untouched models.Transaction
		testutil.AssertNoError(t, db.Where("id = ?", other.ID).First(&untouched).Error)
		if untouched.InvoiceID != nil {
			t.Error("expected untargeted transaction to remain unlinked")
		}
	})

	t.Run("skips_other_companies", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newMatchService(db, nil)
		companyID := testutil.NewCompanyID()
		otherCompany := testutil.NewCompanyID()

		createMatchableTransaction(t, db, otherCompany, "Meta", decimal.NewFromInt(-400), 10)
		testutil.CreateTestInvoice(t, db, companyID, "Meta", 400, testutil.Date(2026, time.January, 5))

		result, err := svc.Run(context.Background(), MatchRequest{CompanyID: companyID})
		testutil.AssertNoError(t, err)

		if len(result.Decisions) != 0 {
			t.Errorf("expected no decisions for a company without transactions, got %d", len(result.Decisions))
		}
	})

	t.Run("min_confidence_demotes_suggestions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newMatchService(db, nil)
		companyID := testutil.NewCompanyID()

		txn := createMatchableTransaction(t, db, companyID, "Meta", decimal.NewFromFloat(-100.5), 10)
		testutil.CreateTestInvoice(t, db, companyID, "Meta", 100, testutil.Date(2026, time.January, 5))

		result, err := svc.Run(context.Background(), MatchRequest{
			CompanyID:     companyID,
			MinConfidence: 0.8,
		})
		testutil.AssertNoError(t, err)

		if result.Suggested != 0 || result.Unmatched != 1 {
			t.Fatalf("expected demotion to unmatched, got suggested=%d unmatched=%d", result.Suggested, result.Unmatched)
		}

		var updated models.Transaction
		testutil.AssertNoError(t, db.Where("id = ?", txn.ID).First(&updated).Error)
		if updated.SuggestedInvoiceID != nil {
			t.Error("expected no suggestion written below the confidence floor")
		}
	})
}
