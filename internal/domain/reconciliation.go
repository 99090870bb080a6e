// File: internal/domain/reconciliation.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus is the decision projected onto a ledger line.
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "beklemede"
	ReconciliationApproved ReconciliationStatus = "onaylandi"
	ReconciliationDisputed ReconciliationStatus = "itiraz"
)

// MailStatus is owned by the mail collaborator; the core only reads it.
type MailStatus string

const (
	MailNotSent MailStatus = "gonderilmedi"
	MailSent    MailStatus = "gonderildi"
	MailFailed  MailStatus = "hata"
)

// Reconciliation is one run of balance confirmations for a company.
type Reconciliation struct {
	ID        uint   `gorm:"primaryKey"`
	CompanyID uint   `gorm:"not null;index"`
	Title     string `gorm:"size:255"`
	PeriodEnd time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExcelLine is the imported ledger line a reconciliation link vouches for.
type ExcelLine struct {
	ID                   uint                 `gorm:"primaryKey"`
	ReconciliationID     uint                 `gorm:"not null;index"`
	SiraNo               int                  `gorm:"not null"`
	RecipientEmail       string               `gorm:"size:255"`
	RecipientName        string               `gorm:"size:255"`
	TaxNumber            string               `gorm:"size:32"`
	Amount               decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	BalanceType          string               `gorm:"size:16"`
	Currency             string               `gorm:"size:3;not null;default:'TRY'"`
	ReconciliationStatus ReconciliationStatus `gorm:"size:16;not null;default:'beklemede'"`
	MailStatus           MailStatus           `gorm:"size:16;not null;default:'gonderilmedi'"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// StatusFor maps a counter-party decision onto the ledger status. The second
// return value is false for decisions that must leave the line untouched.
func StatusFor(decision ResponseStatus) (ReconciliationStatus, bool) {
	switch decision {
	case ResponseAgree:
		return ReconciliationApproved, true
	case ResponseDispute:
		return ReconciliationDisputed, true
	default:
		return "", false
	}
}
