package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/models"
	"matchbook/internal/services"
	"matchbook/internal/uuid"
)

// --- mock ingest and statement services ---

type mockIngestService struct {
	ingestFn func(ctx context.Context, statementFileID string, batch []models.Transaction) (*services.IngestResult, error)
}

func (m *mockIngestService) Ingest(ctx context.Context, statementFileID string, batch []models.Transaction) (*services.IngestResult, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, statementFileID, batch)
	}
	return &services.IngestResult{NewIDs: []string{}}, nil
}

var _ services.IngestServicer = (*mockIngestService)(nil)

type mockStatementService struct {
	registerFn func(companyID, accountID, fileName string) (*models.StatementFile, error)
	getFn      func(id string) (*models.StatementFile, error)
	deleteFn   func(id string) error
}

func (m *mockStatementService) RegisterStatement(companyID, accountID, fileName string) (*models.StatementFile, error) {
	if m.registerFn != nil {
		return m.registerFn(companyID, accountID, fileName)
	}
	return &models.StatementFile{CompanyID: companyID, AccountID: accountID, FileName: fileName}, nil
}

func (m *mockStatementService) GetStatement(id string) (*models.StatementFile, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return &models.StatementFile{CompanyID: uuid.New(), AccountID: "acct-1"}, nil
}

func (m *mockStatementService) DeleteStatement(id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(id)
	}
	return nil
}

var _ services.StatementServicer = (*mockStatementService)(nil)

func setupIngestRouter(handler *IngestHandler) *gin.Engine {
	r := gin.New()
	r.POST("/pipeline/statements", handler.RegisterStatement)
	r.POST("/pipeline/statements/:id/transactions", handler.IngestTransactions)
	return r
}

// --- tests ---

func TestIngestHandler_RegisterStatement(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		handler := NewIngestHandler(&mockIngestService{}, &mockStatementService{}, &mockAuditService{})
		r := setupIngestRouter(handler)

		rec := doRequest(r, "POST", "/pipeline/statements",
			`{"company_id":"`+uuid.New()+`","account_id":"acct-1","file_name":"january.csv"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		stmt := result["statement"].(map[string]interface{})
		if stmt["file_name"] != "january.csv" {
			t.Errorf("expected file_name january.csv, got %v", stmt["file_name"])
		}
	})

	t.Run("returns 400 on missing company_id", func(t *testing.T) {
		handler := NewIngestHandler(&mockIngestService{}, &mockStatementService{}, &mockAuditService{})
		r := setupIngestRouter(handler)

		rec := doRequest(r, "POST", "/pipeline/statements",
			`{"account_id":"acct-1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestIngestHandler_IngestTransactions(t *testing.T) {
	statementID := uuid.New()
	companyID := uuid.New()

	t.Run("returns 200 with counts", func(t *testing.T) {
		ingestSvc := &mockIngestService{
			ingestFn: func(_ context.Context, gotStatementID string, batch []models.Transaction) (*services.IngestResult, error) {
				if gotStatementID != statementID {
					t.Errorf("expected statement %s, got %s", statementID, gotStatementID)
				}
				if len(batch) != 2 {
					t.Fatalf("expected 2 rows, got %d", len(batch))
				}
				if batch[0].CompanyID != companyID {
					t.Errorf("expected rows stamped with company %s, got %s", companyID, batch[0].CompanyID)
				}
				if batch[0].TransactionDate == nil || batch[0].TransactionDate.Day() != 9 {
					t.Errorf("expected parsed transaction date day 9, got %v", batch[0].TransactionDate)
				}
				return &services.IngestResult{NewIDs: []string{uuid.New()}, NewCount: 1, DuplicateCount: 1}, nil
			},
		}
		stmtSvc := &mockStatementService{
			getFn: func(id string) (*models.StatementFile, error) {
				return &models.StatementFile{CompanyID: companyID, AccountID: "acct-1"}, nil
			},
		}
		handler := NewIngestHandler(ingestSvc, stmtSvc, &mockAuditService{})
		r := setupIngestRouter(handler)

		rec := doRequest(r, "POST", "/pipeline/statements/"+statementID+"/transactions",
			`{"transactions":[
				{"transaction_date":"2026-01-09","description":"Card payment","vendor_name":"Meta","amount":"-400","currency":"RON"},
				{"transaction_date":"2026-01-10","vendor_name":"Google","amount":"-120.50","currency":"RON"}
			]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		res := result["result"].(map[string]interface{})
		if res["new_count"].(float64) != 1 || res["duplicate_count"].(float64) != 1 {
			t.Errorf("unexpected counts: %v", res)
		}
	})

	t.Run("returns 404 for unknown statement", func(t *testing.T) {
		stmtSvc := &mockStatementService{
			getFn: func(string) (*models.StatementFile, error) {
				return nil, apperrors.ErrStatementNotFound
			},
		}
		handler := NewIngestHandler(&mockIngestService{}, stmtSvc, &mockAuditService{})
		r := setupIngestRouter(handler)

		rec := doRequest(r, "POST", "/pipeline/statements/"+uuid.New()+"/transactions",
			`{"transactions":[{"vendor_name":"Meta","amount":"-400","currency":"RON"}]}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "STATEMENT_NOT_FOUND")
	})

	t.Run("returns 400 on invalid currency", func(t *testing.T) {
		handler := NewIngestHandler(&mockIngestService{}, &mockStatementService{}, &mockAuditService{})
		r := setupIngestRouter(handler)

		rec := doRequest(r, "POST", "/pipeline/statements/"+statementID+"/transactions",
			`{"transactions":[{"vendor_name":"Meta","amount":"-400","currency":"XXX"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on malformed date", func(t *testing.T) {
		handler := NewIngestHandler(&mockIngestService{}, &mockStatementService{}, &mockAuditService{})
		r := setupIngestRouter(handler)

		rec := doRequest(r, "POST", "/pipeline/statements/"+statementID+"/transactions",
			`{"transactions":[{"transaction_date":"09.01.2026","vendor_name":"Meta","amount":"-400","currency":"RON"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing transactions field", func(t *testing.T) {
		handler := NewIngestHandler(&mockIngestService{}, &mockStatementService{}, &mockAuditService{})
		r := setupIngestRouter(handler)

		rec := doRequest(r, "POST", "/pipeline/statements/"+statementID+"/transactions", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
