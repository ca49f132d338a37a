package services

import (
	"context"

	"gorm.io/gorm"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/logger"
	"matchbook/internal/matching"
	"matchbook/internal/models"
)

// matchService orchestrates a matching run: it loads the transactions to
// match, fetches the candidate pool, runs the engine, and writes the
// decisions back. Candidates and transactions are read before the engine
// runs, so the AI layer never waits inside an open storage transaction.
type matchService struct {
	db           *gorm.DB
	engine       *matching.Engine
	invoices     InvoiceServicer
	transactions TransactionServicer
}

// NewMatchService creates a new MatchServicer.
func NewMatchService(db *gorm.DB, engine *matching.Engine, invoices InvoiceServicer, transactions TransactionServicer) MatchServicer {
	return &matchService{
		db:           db,
		engine:       engine,
		invoices:     invoices,
		transactions: transactions,
	}
}

// Run matches the requested transactions against the company's invoice pool
// and applies the resulting decisions.
func (s *matchService) Run(ctx context.Context, req MatchRequest) (*MatchRunResult, error) {
	if req.CompanyID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "company ID is required")
	}

	txns, err := s.loadTransactions(req)
	if err != nil {
		return nil, err
	}

	candidates, err := s.invoices.GetCandidates(CandidateFilter{CompanyID: req.CompanyID})
	if err != nil {
		return nil, err
	}

	batch := s.engine.MatchAll(ctx, txns, candidates, req.UseAI, req.MinConfidence)

	applied, err := s.transactions.ApplyDecisions(batch.Decisions)
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("matching run completed",
		"company_id", req.CompanyID,
		"transactions", len(txns),
		"candidates", len(candidates),
		"matched", batch.Matched,
		"suggested", batch.Suggested,
		"unmatched", batch.Unmatched,
	)

	return &MatchRunResult{BatchResult: batch, Applied: *applied}, nil
}

func (s *matchService) loadTransactions(req MatchRequest) ([]models.Transaction, error) {
	q := s.db.Where("company_id = ?", req.CompanyID)
	if len(req.TransactionIDs) > 0 {
		q = q.Where("id IN ?", req.TransactionIDs)
	} else {
		q = q.Where("status = ?", models.StatusPending)
	}

	var txns []models.Transaction
	if err := q.Order("created_at").Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txns, nil
}
