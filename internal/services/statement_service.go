package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "matchbook/internal/errors"
	"matchbook/internal/models"
)

// statementService manages statement file records.
type statementService struct {
	db *gorm.DB
}

// NewStatementService creates a new StatementServicer.
func NewStatementService(db *gorm.DB) StatementServicer {
	return &statementService{db: db}
}

// RegisterStatement records an uploaded statement file ahead of its
// transactions being ingested.
func (s *statementService) RegisterStatement(companyID, accountID, fileName string) (*models.StatementFile, error) {
	if companyID == "" || accountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "company ID and account ID are required")
	}

	file := &models.StatementFile{
		CompanyID:  companyID,
		AccountID:  accountID,
		FileName:   fileName,
		UploadedAt: time.Now(),
	}
	if err := s.db.Create(file).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return file, nil
}

// GetStatement retrieves a statement file by ID.
func (s *statementService) GetStatement(id string) (*models.StatementFile, error) {
	var file models.StatementFile
	if err := s.db.Where("id = ?", id).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStatementNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &file, nil
}

// DeleteStatement removes a statement file record. Its transactions are kept
// for audit: they only lose the back-reference to the deleted file.
func (s *statementService) DeleteStatement(id string) error {
	var file models.StatementFile
	if err := s.db.Where("id = ?", id).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrStatementNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).
			Where("statement_file_id = ?", id).
			Update("statement_file_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&file).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
