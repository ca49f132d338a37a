// Package errors provides custom error types for the Matchbook API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidStatus       = &AppError{Code: "INVALID_STATUS", Message: "Unsupported transaction status", StatusCode: http.StatusBadRequest}
	ErrNoSuggestion        = &AppError{Code: "NO_SUGGESTION", Message: "Transaction has no suggested invoice", StatusCode: http.StatusConflict}
)

// Statement errors.
var (
	ErrStatementNotFound = &AppError{Code: "STATEMENT_NOT_FOUND", Message: "Statement file not found", StatusCode: http.StatusNotFound}
)

// Invoice errors.
var (
	ErrInvoiceNotFound = &AppError{Code: "INVOICE_NOT_FOUND", Message: "Invoice not found", StatusCode: http.StatusNotFound}
)

// Merge errors. Each merge precondition has its own code so callers can
// surface the exact reason a merge was rejected.
var (
	ErrMergeTooFew           = &AppError{Code: "MERGE_TOO_FEW", Message: "At least 2 transactions are required for a merge", StatusCode: http.StatusBadRequest}
	ErrMergeMissingInputs    = &AppError{Code: "MERGE_MISSING_INPUTS", Message: "One or more transactions do not exist", StatusCode: http.StatusNotFound}
	ErrMergeNotPending       = &AppError{Code: "MERGE_NOT_PENDING", Message: "Only pending transactions can be merged", StatusCode: http.StatusConflict}
	ErrMergeAlreadyMerged    = &AppError{Code: "MERGE_ALREADY_MERGED", Message: "Transaction is already part of a merge", StatusCode: http.StatusConflict}
	ErrMergeCurrencyMismatch = &AppError{Code: "MERGE_CURRENCY_MISMATCH", Message: "Transactions must share the same currency", StatusCode: http.StatusConflict}
	ErrMergeSupplierMismatch = &AppError{Code: "MERGE_SUPPLIER_MISMATCH", Message: "Transactions must share the same supplier", StatusCode: http.StatusConflict}
	ErrNotMergeResult        = &AppError{Code: "NOT_MERGE_RESULT", Message: "Transaction is not a merge result", StatusCode: http.StatusConflict}
)
