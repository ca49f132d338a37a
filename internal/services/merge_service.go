package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/models"
)

const (
	mergeMinInputs           = 2
	mergeDescriptionMaxChars = 50
	mergeDescriptionJoiner   = " • "
)

// mergeService aggregates pending transactions into one synthetic merge
// result and reverses such merges. All precondition checks run before any
// write, so a rejected merge leaves the ledger untouched.
type mergeService struct {
	db *gorm.DB
}

// NewMergeService creates a new MergeServicer.
func NewMergeService(db *gorm.DB) MergeServicer {
	return &mergeService{db: db}
}

// Merge combines the given pending transactions into a new synthetic
// transaction. The inputs must share a currency and an effective supplier;
// each precondition failure is reported with its own error code and the
// offending IDs.
func (s *mergeService) Merge(ids []string) (*models.Transaction, error) {
	if len(ids) < mergeMinInputs {
		return nil, apperrors.ErrMergeTooFew
	}

	var inputs []models.Transaction
	if err := s.db.Where("id IN ?", ids).Find(&inputs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(inputs) != len(ids) {
		missing := missingIDs(ids, inputs)
		return nil, apperrors.WithMessage(apperrors.ErrMergeMissingInputs,
			fmt.Sprintf("Transactions not found: %s", strings.Join(missing, ", ")))
	}

	for i := range inputs {
		if inputs[i].Status != models.StatusPending {
			return nil, apperrors.WithMessage(apperrors.ErrMergeNotPending,
				fmt.Sprintf("Transaction %s has status %q", inputs[i].ID, inputs[i].Status))
		}
	}
	for i := range inputs {
		if inputs[i].IsMergedResult || inputs[i].MergedIntoID != nil {
			return nil, apperrors.WithMessage(apperrors.ErrMergeAlreadyMerged,
				fmt.Sprintf("Transaction %s is already part of a merge", inputs[i].ID))
		}
	}

	currency := inputs[0].Currency
	for i := range inputs[1:] {
		if inputs[i+1].Currency != currency {
			return nil, apperrors.WithMessage(apperrors.ErrMergeCurrencyMismatch,
				fmt.Sprintf("Transaction %s has currency %s, expected %s", inputs[i+1].ID, inputs[i+1].Currency, currency))
		}
	}

	supplier := inputs[0].EffectiveSupplier()
	for i := range inputs[1:] {
		if inputs[i+1].EffectiveSupplier() != supplier {
			return nil, apperrors.WithMessage(apperrors.ErrMergeSupplierMismatch,
				fmt.Sprintf("Transaction %s has supplier %q, expected %q", inputs[i+1].ID, inputs[i+1].EffectiveSupplier(), supplier))
		}
	}

	merged := buildMergedTransaction(inputs)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(merged).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		res := tx.Model(&models.Transaction{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":         models.StatusMerged,
				"merged_into_id": merged.ID,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Unmerge reverses a merge: the absorbed transactions return to pending and
// the synthetic row is removed. Children are restored unconditionally; no
// attempt is made to detect edits made to them since the merge.
func (s *mergeService) Unmerge(mergedID string) (*UnmergeResult, error) {
	var merged models.Transaction
	if err := s.db.Where("id = ?", mergedID).First(&merged).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !merged.IsMergedResult {
		return nil, apperrors.WithMessage(apperrors.ErrNotMergeResult,
			fmt.Sprintf("Transaction %s is not a merge result", mergedID))
	}

	var children []models.Transaction
	if err := s.db.Where("merged_into_id = ?", mergedID).Find(&children).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	restored := make([]string, 0, len(children))
	for i := range children {
		restored = append(restored, children[i].ID)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(restored) > 0 {
			res := tx.Model(&models.Transaction{}).
				Where("id IN ?", restored).
				Updates(map[string]any{
					"status":         models.StatusPending,
					"merged_into_id": nil,
				})
			if res.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
			}
		}
		// Hard delete so re-merging the same inputs can recreate an
		// identical synthetic row.
		if err := tx.Unscoped().Delete(&models.Transaction{}, "id = ?", mergedID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &UnmergeResult{RestoredIDs: restored}, nil
}

// buildMergedTransaction constructs the synthetic row: summed amount, latest
// dates, truncated joined descriptions, and a display string of the absorbed
// calendar days like "09/12/14.01.2026".
func buildMergedTransaction(inputs []models.Transaction) *models.Transaction {
	first := inputs[0]

	amount := decimal.Zero
	var latestDate, latestValueDate *time.Time
	descriptions := make([]string, 0, len(inputs))
	daySet := map[string]bool{}

	for i := range inputs {
		in := inputs[i]
		amount = amount.Add(in.Amount)

		if in.TransactionDate != nil {
			if latestDate == nil || in.TransactionDate.After(*latestDate) {
				d := *in.TransactionDate
				latestDate = &d
			}
			daySet[fmt.Sprintf("%02d", in.TransactionDate.Day())] = true
		}
		if in.ValueDate != nil {
			if latestValueDate == nil || in.ValueDate.After(*latestValueDate) {
				d := *in.ValueDate
				latestValueDate = &d
			}
		}
		if in.Description != nil {
			descriptions = append(descriptions, truncate(*in.Description, mergeDescriptionMaxChars))
		}
	}

	merged := &models.Transaction{
		CompanyID:       first.CompanyID,
		AccountID:       first.AccountID,
		VendorName:      first.VendorName,
		MatchedSupplier: first.MatchedSupplier,
		Amount:          amount,
		Currency:        first.Currency,
		Status:          models.StatusPending,
		IsMergedResult:  true,
		TransactionDate: latestDate,
		ValueDate:       latestValueDate,
	}

	if len(descriptions) > 0 {
		desc := strings.Join(descriptions, mergeDescriptionJoiner)
		merged.Description = &desc
	}
	if latestDate != nil && len(daySet) > 0 {
		days := make([]string, 0, len(daySet))
		for d := range daySet {
			days = append(days, d)
		}
		sort.Strings(days)
		display := strings.Join(days, "/") + latestDate.Format(".01.2006")
		merged.MergedDatesDisplay = &display
	}

	return merged
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func missingIDs(ids []string, found []models.Transaction) []string {
	present := make(map[string]bool, len(found))
	for i := range found {
		present[found[i].ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
