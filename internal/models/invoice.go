package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a read-only projection of an invoice maintained by the invoicing
// system. The reconciliation engine only ever reads these rows; candidates for
// matching are filtered projections of this table.
type Invoice struct {
	Base
	CompanyID     string     `gorm:"type:uuid;not null;index" json:"company_id"`
	Supplier      string     `gorm:"not null;index" json:"supplier"`
	InvoiceNumber string     `gorm:"not null" json:"invoice_number"`
	InvoiceDate   *time.Time `json:"invoice_date,omitempty"`

	InvoiceValue decimal.Decimal `gorm:"type:numeric;not null" json:"invoice_value"`
	Currency     string          `gorm:"not null" json:"currency"`

	// Converted equivalents, populated upstream when the invoice currency
	// differs from the reporting currencies.
	ValueRON *decimal.Decimal `gorm:"type:numeric" json:"value_ron,omitempty"`
	ValueEUR *decimal.Decimal `gorm:"type:numeric" json:"value_eur,omitempty"`
}

// ValueIn returns the invoice value expressed in the given currency, falling
// back to the raw invoice value when no converted equivalent is available.
func (i *Invoice) ValueIn(currency string) decimal.Decimal {
	switch currency {
	case "RON":
		if i.ValueRON != nil {
			return *i.ValueRON
		}
	case "EUR":
		if i.ValueEUR != nil {
			return *i.ValueEUR
		}
	}
	return i.InvoiceValue
}
