// File: internal/domain/company.go
package domain

import "time"

// Company owns reconciliation runs and decides which identity checks a
// counter-party must pass before a response is recorded.
type Company struct {
	ID                       uint   `gorm:"primaryKey"`
	Name                     string `gorm:"not null;size:255"`
	LogoURL                  string `gorm:"size:512"`
	RequireTaxVerification   bool   `gorm:"not null;default:false"`
	RequireOtpVerification   bool   `gorm:"not null;default:false"`
	ReconciliationCodePrefix string `gorm:"size:16"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// CompanyTemplate carries the texts shown on the response page. Only one
// template per company is expected to be active.
type CompanyTemplate struct {
	ID             uint   `gorm:"primaryKey"`
	CompanyID      uint   `gorm:"not null;index"`
	Name           string `gorm:"size:255"`
	Title          string `gorm:"size:255"`
	IntroMarkdown  string `gorm:"type:text"`
	FooterMarkdown string `gorm:"type:text"`
	IsActive       bool   `gorm:"not null;default:false;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VerificationPolicy is the company-level gate configuration.
type VerificationPolicy struct {
	RequireTax bool
	RequireOtp bool
}

func (c *Company) Policy() VerificationPolicy {
	return VerificationPolicy{
		RequireTax: c.RequireTaxVerification,
		RequireOtp: c.RequireOtpVerification,
	}
}
