package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/logger"
	"matchbook/internal/models"
)

// ingestService is the dedup ingest pipeline: it filters freshly parsed
// transactions against history and inserts the rest.
type ingestService struct {
	db *gorm.DB
}

// NewIngestService creates a new IngestServicer.
func NewIngestService(db *gorm.DB) IngestServicer {
	return &ingestService{db: db}
}

// Ingest inserts the batch inside a single outer transaction. Each row is
// first checked with a NULL-safe dedup-key lookup; rows that pass the check
// are inserted inside a nested transaction (SAVEPOINT), so a duplicate-key
// violation from a concurrent writer racing between the check and the insert
// rolls back only that row and is counted as a duplicate. Any other error
// aborts the whole batch.
func (s *ingestService) Ingest(ctx context.Context, statementFileID string, batch []models.Transaction) (*IngestResult, error) {
	result := &IngestResult{NewIDs: []string{}}
	if len(batch) == 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range batch {
			row := batch[i]
			row.Base = models.Base{}
			row.Status = models.StatusPending
			if statementFileID != "" {
				row.StatementFileID = &statementFileID
			}

			exists, err := s.dedupKeyExists(tx, &row)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if exists {
				result.DuplicateCount++
				continue
			}

			insertErr := tx.Transaction(func(sp *gorm.DB) error {
				return sp.Create(&row).Error
			})
			if insertErr != nil {
				if errors.Is(insertErr, gorm.ErrDuplicatedKey) {
					// Lost the race to another writer; the savepoint
					// rollback leaves sibling inserts intact.
					logger.Get().Infow("duplicate-key race during ingest, row counted as duplicate",
						"company_id", row.CompanyID,
						"account_id", row.AccountID,
						"amount", row.Amount.String(),
					)
					result.DuplicateCount++
					continue
				}
				return apperrors.Wrap(apperrors.ErrInternalServer, insertErr)
			}

			result.NewIDs = append(result.NewIDs, row.ID)
			result.NewCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// dedupKeyExists performs a NULL-safe existence check on the dedup key
// (company, account, transaction date, amount, currency, description). Two
// NULLs compare equal here, unlike in SQL equality.
func (s *ingestService) dedupKeyExists(tx *gorm.DB, row *models.Transaction) (bool, error) {
	q := tx.Model(&models.Transaction{}).
		Where("company_id = ?", row.CompanyID).
		Where("account_id = ?", row.AccountID).
		Where("amount = ?", row.Amount).
		Where("currency = ?", row.Currency)

	if row.TransactionDate != nil {
		q = q.Where("transaction_date = ?", *row.TransactionDate)
	} else {
		q = q.Where("transaction_date IS NULL")
	}
	if row.Description != nil {
		q = q.Where("description = ?", *row.Description)
	} else {
		q = q.Where("description IS NULL")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
