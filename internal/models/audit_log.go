package models

// AuditLog records reconciliation actions (accepts, rejects, manual links,
// merges) for traceability.
type AuditLog struct {
	Base
	CompanyID    string `gorm:"type:uuid;index" json:"company_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Changes      string `json:"changes,omitempty"`
}
