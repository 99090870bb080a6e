// File: internal/domain/approval_request.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalMailStatus tracks the single-token approve/reject lifecycle.
type ApprovalMailStatus string

const (
	ApprovalMailPending  ApprovalMailStatus = "pending"
	ApprovalMailSent     ApprovalMailStatus = "sent"
	ApprovalMailApproved ApprovalMailStatus = "approved"
	ApprovalMailRejected ApprovalMailStatus = "rejected"
)

type ApprovalStatus string

const (
	ApprovalOpen     ApprovalStatus = "open"
	ApprovalResolved ApprovalStatus = "resolved"
	ApprovalDisputed ApprovalStatus = "disputed"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ApprovalRequest belongs to the simplified one-click protocol: an opaque
// token, no expiry, no identity challenge, one irreversible action.
type ApprovalRequest struct {
	ID             uint               `gorm:"primaryKey"`
	CompanyID      uint               `gorm:"not null;index"`
	ApprovalToken  string             `gorm:"uniqueIndex;not null;size:128" json:"-"`
	RecipientEmail string             `gorm:"size:255"`
	Subject        string             `gorm:"size:255"`
	Amount         decimal.Decimal    `gorm:"type:decimal(18,2)"`
	Currency       string             `gorm:"size:3"`
	MailStatus     ApprovalMailStatus `gorm:"size:16;not null;default:'pending'"`
	Status         ApprovalStatus     `gorm:"size:16;not null;default:'open'"`
	Priority       Priority           `gorm:"size:16;not null;default:'normal'"`
	RespondedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
