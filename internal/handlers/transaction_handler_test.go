package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/matching"
	"matchbook/internal/models"
	"matchbook/internal/pagination"
	"matchbook/internal/services"
	"matchbook/internal/uuid"
	"matchbook/internal/validator"
)

// --- mock transaction service ---

type mockTransactionService struct {
	getTransactionFn   func(id string) (*models.Transaction, error)
	listTransactionsFn func(filter services.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	acceptSuggestedFn  func(id string) (*models.Transaction, error)
	rejectSuggestedFn  func(id string) (*models.Transaction, error)
	linkManualFn       func(id, invoiceID string) (*models.Transaction, error)
	unlinkFn           func(id string) (*models.Transaction, error)
	updateStatusFn     func(id string, status models.TransactionStatus) (*models.Transaction, error)
	updateStatusBulkFn func(ids []string, status models.TransactionStatus) (int64, error)
}

func (m *mockTransactionService) GetTransaction(id string) (*models.Transaction, error) {
	if m.getTransactionFn != nil {
		return m.getTransactionFn(id)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) ListTransactions(filter services.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.listTransactionsFn != nil {
		return m.listTransactionsFn(filter, page)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) ApplyDecisions(_ []matching.Decision) (*services.ApplyResult, error) {
	return &services.ApplyResult{}, nil
}

func (m *mockTransactionService) AcceptSuggested(id string) (*models.Transaction, error) {
	if m.acceptSuggestedFn != nil {
		return m.acceptSuggestedFn(id)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) RejectSuggested(id string) (*models.Transaction, error) {
	if m.rejectSuggestedFn != nil {
		return m.rejectSuggestedFn(id)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) LinkManual(id, invoiceID string) (*models.Transaction, error) {
	if m.linkManualFn != nil {
		return m.linkManualFn(id, invoiceID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) Unlink(id string) (*models.Transaction, error) {
	if m.unlinkFn != nil {
		return m.unlinkFn(id)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateStatus(id string, status models.TransactionStatus) (*models.Transaction, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(id, status)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateStatusBulk(ids []string, status models.TransactionStatus) (int64, error) {
	if m.updateStatusBulkFn != nil {
		return m.updateStatusBulkFn(ids, status)
	}
	return int64(len(ids)), nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

type mockAuditService struct{}

func (m *mockAuditService) Log(_, _, _, _ string, _ map[string]any) {}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	r.GET("/transactions", handler.ListTransactions)
	r.PATCH("/transactions/status", handler.UpdateStatusBulk)
	r.GET("/transactions/:id", handler.GetTransaction)
	r.PATCH("/transactions/:id/status", handler.UpdateStatus)
	r.POST("/transactions/:id/accept", handler.AcceptSuggestion)
	r.POST("/transactions/:id/reject", handler.RejectSuggestion)
	r.POST("/transactions/:id/link", handler.LinkInvoice)
	r.POST("/transactions/:id/unlink", handler.UnlinkInvoice)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %s, got %v", code, errObj["code"])
	}
}

// --- tests ---

func TestTransactionHandler_ListTransactions(t *testing.T) {
	t.Run("returns 200 with page", func(t *testing.T) {
		txSvc := &mockTransactionService{
			listTransactionsFn: func(filter services.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
				if filter.Status == nil || *filter.Status != models.StatusPending {
					t.Errorf("expected pending status filter, got %v", filter.Status)
				}
				resp := pagination.NewPageResponse([]models.Transaction{{VendorName: "Meta"}}, 1, 20, 1)
				return &resp, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?status=pending", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 on invalid status filter", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?status=bogus", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid from_date", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions?from_date=not-a-date", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		id := uuid.New()
		txSvc := &mockTransactionService{
			getTransactionFn: func(gotID string) (*models.Transaction, error) {
				if gotID != id {
					t.Errorf("expected id %s, got %s", id, gotID)
				}
				return &models.Transaction{VendorName: "Meta"}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions/"+id, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		tx := result["transaction"].(map[string]interface{})
		if tx["vendor_name"] != "Meta" {
			t.Errorf("expected vendor Meta, got %v", tx["vendor_name"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionFn: func(string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "GET", "/transactions/"+uuid.New(), "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})
}

func TestTransactionHandler_AcceptSuggestion(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		invoiceID := uuid.New()
		txSvc := &mockTransactionService{
			acceptSuggestedFn: func(id string) (*models.Transaction, error) {
				return &models.Transaction{
					Status:    models.StatusResolved,
					InvoiceID: &invoiceID,
				}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/"+uuid.New()+"/accept", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		tx := result["transaction"].(map[string]interface{})
		if tx["status"] != "resolved" {
			t.Errorf("expected resolved, got %v", tx["status"])
		}
	})

	t.Run("returns 409 without suggestion", func(t *testing.T) {
		txSvc := &mockTransactionService{
			acceptSuggestedFn: func(string) (*models.Transaction, error) {
				return nil, apperrors.ErrNoSuggestion
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/"+uuid.New()+"/accept", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NO_SUGGESTION")
	})
}

func TestTransactionHandler_LinkInvoice(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		invoiceID := uuid.New()
		txSvc := &mockTransactionService{
			linkManualFn: func(id, gotInvoiceID string) (*models.Transaction, error) {
				if gotInvoiceID != invoiceID {
					t.Errorf("expected invoice %s, got %s", invoiceID, gotInvoiceID)
				}
				return &models.Transaction{Status: models.StatusResolved, InvoiceID: &gotInvoiceID}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/"+uuid.New()+"/link",
			`{"invoice_id":"`+invoiceID+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 on missing invoice_id", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/"+uuid.New()+"/link", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on malformed invoice_id", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/"+uuid.New()+"/link",
			`{"invoice_id":"not-a-uuid"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateStatus(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateStatusFn: func(id string, status models.TransactionStatus) (*models.Transaction, error) {
				return &models.Transaction{Status: status}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PATCH", "/transactions/"+uuid.New()+"/status",
			`{"status":"ignored"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 on invalid status", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PATCH", "/transactions/"+uuid.New()+"/status",
			`{"status":"bogus"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateStatusBulk(t *testing.T) {
	t.Run("returns 200 with count", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateStatusBulkFn: func(ids []string, status models.TransactionStatus) (int64, error) {
				if len(ids) != 2 || status != models.StatusIgnored {
					t.Errorf("unexpected bulk args: %v %s", ids, status)
				}
				return 2, nil
			},
		}
		handler := NewTransactionHandler(txSvc, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PATCH", "/transactions/status",
			`{"transaction_ids":["`+uuid.New()+`","`+uuid.New()+`"],"status":"ignored"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["updated_count"].(float64) != 2 {
			t.Errorf("expected updated_count 2, got %v", result["updated_count"])
		}
	})

	t.Run("returns 400 on empty ids", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PATCH", "/transactions/status",
			`{"transaction_ids":[],"status":"ignored"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
