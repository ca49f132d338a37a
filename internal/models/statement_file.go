package models

import "time"

// StatementFile records an uploaded bank statement that transactions were
// parsed from. Deleting a statement file never deletes its transactions; the
// rows are kept for audit and only lose their back-reference.
type StatementFile struct {
	Base
	CompanyID  string    `gorm:"type:uuid;not null;index" json:"company_id"`
	AccountID  string    `gorm:"not null" json:"account_id"`
	FileName   string    `gorm:"not null" json:"file_name"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`
}
