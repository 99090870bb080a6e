// File: internal/domain/reconciliation_link.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResponseStatus is the counter-party decision recorded on a link.
type ResponseStatus string

const (
	ResponsePending ResponseStatus = "pending"
	ResponseAgree   ResponseStatus = "mutabik"
	ResponseDispute ResponseStatus = "itiraz"
)

// ReconciliationLink is the one-time credential emailed to a counter-party.
// Rows are never deleted; they stay as the audit trail of the response.
type ReconciliationLink struct {
	ID               uint   `gorm:"primaryKey"`
	ReferenceCode    string `gorm:"uniqueIndex;not null;size:128"`
	ReconciliationID uint   `gorm:"not null;index"`
	RecordID         uint   `gorm:"not null;index"`

	// Snapshot of the figures being confirmed.
	RecipientEmail string          `gorm:"size:255;not null"`
	RecipientName  string          `gorm:"size:255"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BalanceType    string          `gorm:"size:16"`
	Currency       string          `gorm:"size:3;not null"`

	ExpiresAt time.Time `gorm:"not null;index"`
	IsExpired bool      `gorm:"not null;default:false"`

	IsUsed bool `gorm:"not null;default:false;index"`
	UsedAt *time.Time

	ResponseStatus   ResponseStatus      `gorm:"size:16;not null;default:'pending'"`
	ResponseNote     string              `gorm:"type:text"`
	DisputedAmount   decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	DisputedCurrency string              `gorm:"size:3"`

	// VerificationCode holds the bcrypt hash of the current OTP, never the code itself.
	VerificationCode          string `gorm:"size:72" json:"-"`
	VerificationCodeExpiresAt *time.Time
	VerificationAttempts      int `gorm:"not null;default:0"`
	VerificationLockedUntil   *time.Time

	TaxVerifiedAt *time.Time
	IsVerified    bool `gorm:"not null;default:false"`
	VerifiedAt    *time.Time

	IPAddress string `gorm:"size:64"`
	UserAgent string `gorm:"size:512"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpiredAt is the live expiry check. IsExpired is only a cache of it and
// is never consulted for access decisions.
func (l *ReconciliationLink) ExpiredAt(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// HasChallenge reports whether an OTP is on file.
func (l *ReconciliationLink) HasChallenge() bool {
	return l.VerificationCode != ""
}

// ChallengeExpiredAt reports whether the OTP on file can no longer be used.
func (l *ReconciliationLink) ChallengeExpiredAt(now time.Time) bool {
	return l.VerificationCodeExpiresAt == nil || now.After(*l.VerificationCodeExpiresAt)
}

// LockedAt returns the remaining lock duration, zero when not locked.
func (l *ReconciliationLink) LockedAt(now time.Time) time.Duration {
	if l.VerificationLockedUntil == nil || !now.Before(*l.VerificationLockedUntil) {
		return 0
	}
	return l.VerificationLockedUntil.Sub(now)
}
