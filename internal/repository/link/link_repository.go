// File: internal/repository/link/link_repository.go
package link

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iyunix/go-mutabakat/internal/domain"
)

var (
	ErrLinkNotFound = errors.New("reconciliation link not found")
	// ErrStateChanged means a conditional update matched no row: another
	// request consumed the link or the challenge first.
	ErrStateChanged = errors.New("reconciliation link state changed")
	// ErrAttemptsExhausted means the link is locked or every verification
	// attempt of the current round is already claimed.
	ErrAttemptsExhausted = errors.New("verification attempts exhausted")
)

// unlockedAt matches rows without an active lock at the given time.
const unlockedAt = "(verification_locked_until IS NULL OR verification_locked_until <= ?)"

// View is the joined read model behind the response page.
type View struct {
	Link     domain.ReconciliationLink
	Company  domain.Company
	Template *domain.CompanyTemplate
	Line     domain.ExcelLine
}

// Response is the terminal write applied to a link.
type Response struct {
	Status           domain.ResponseStatus
	Note             string
	DisputedAmount   decimal.NullDecimal
	DisputedCurrency string
	IPAddress        string
	UserAgent        string
	UsedAt           time.Time
}

// LinkRepository is the durable store for reconciliation links.
type LinkRepository interface {
	Create(ctx context.Context, link *domain.ReconciliationLink) error
	FindByReferenceCode(ctx context.Context, code string) (*domain.ReconciliationLink, error)
	FindView(ctx context.Context, code string) (*View, error)
	MarkExpired(ctx context.Context, id uint) (bool, error)
	SaveChallenge(ctx context.Context, id uint, codeHash string, expiresAt, now time.Time) error
	ClearChallenge(ctx context.Context, id uint, codeHash string) error
	ReserveAttempt(ctx context.Context, id uint, maxAttempts int, now, lockUntil time.Time) (int, error)
	Lock(ctx context.Context, id uint, lockUntil time.Time) error
	ConsumeChallenge(ctx context.Context, id uint, codeHash string, verifiedAt time.Time) error
	MarkTaxVerified(ctx context.Context, id uint, at time.Time, verified bool) error
	RecordResponse(ctx context.Context, id, recordID uint, resp Response) error
}

// GormLinkRepository implements LinkRepository using GORM
type GormLinkRepository struct {
	db *gorm.DB
}

func NewGormLinkRepository(db *gorm.DB) LinkRepository {
	return &GormLinkRepository{db: db}
}

func (r *GormLinkRepository) Create(ctx context.Context, link *domain.ReconciliationLink) error {
	if link.ReferenceCode == "" {
		return errors.New("reference code is required")
	}
	if link.ResponseStatus == "" {
		link.ResponseStatus = domain.ResponsePending
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

func (r *GormLinkRepository) FindByReferenceCode(ctx context.Context, code string) (*domain.ReconciliationLink, error) {
	var link domain.ReconciliationLink
	err := r.db.WithContext(ctx).Where("reference_code = ?", code).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("find link: %w", err)
	}
	return &link, nil
}

// viewRow flattens the join. Template columns are nullable because the
// active template is optional.
type viewRow struct {
	domain.ReconciliationLink

	CompanyID                       uint
	CompanyName                     string
	CompanyLogoURL                  string
	CompanyRequireTaxVerification   bool
	CompanyRequireOtpVerification   bool
	CompanyReconciliationCodePrefix string

	TemplateID     sql.NullInt64
	TemplateName   sql.NullString
	TemplateTitle  sql.NullString
	TemplateIntro  sql.NullString
	TemplateFooter sql.NullString

	LineSiraNo               int
	LineTaxNumber            string
	LineCurrency             string
	LineReconciliationStatus domain.ReconciliationStatus
	LineMailStatus           domain.MailStatus
}

const viewColumns = `reconciliation_links.*,
	companies.id AS company_id,
	companies.name AS company_name,
	companies.logo_url AS company_logo_url,
	companies.require_tax_verification AS company_require_tax_verification,
	companies.require_otp_verification AS company_require_otp_verification,
	companies.reconciliation_code_prefix AS company_reconciliation_code_prefix,
	company_templates.id AS template_id,
	company_templates.name AS template_name,
	company_templates.title AS template_title,
	company_templates.intro_markdown AS template_intro,
	company_templates.footer_markdown AS template_footer,
	excel_lines.sira_no AS line_sira_no,
	excel_lines.tax_number AS line_tax_number,
	excel_lines.currency AS line_currency,
	excel_lines.reconciliation_status AS line_reconciliation_status,
	excel_lines.mail_status AS line_mail_status`

// FindView joins link → reconciliation → company → active template → ledger line.
func (r *GormLinkRepository) FindView(ctx context.Context, code string) (*View, error) {
	var row viewRow
	res := r.db.WithContext(ctx).
		Table("reconciliation_links").
		Select(viewColumns).
		Joins("JOIN reconciliations ON reconciliations.id = reconciliation_links.reconciliation_id").
		Joins("JOIN companies ON companies.id = reconciliations.company_id").
		Joins("LEFT JOIN company_templates ON company_templates.company_id = companies.id AND company_templates.is_active = ?", true).
		Joins("JOIN excel_lines ON excel_lines.id = reconciliation_links.record_id").
		Where("reconciliation_links.reference_code = ?", code).
		Order("company_templates.id DESC").
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("find link view: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrLinkNotFound
	}

	view := &View{
		Link: row.ReconciliationLink,
		Company: domain.Company{
			ID:                       row.CompanyID,
			Name:                     row.CompanyName,
			LogoURL:                  row.CompanyLogoURL,
			RequireTaxVerification:   row.CompanyRequireTaxVerification,
			RequireOtpVerification:   row.CompanyRequireOtpVerification,
			ReconciliationCodePrefix: row.CompanyReconciliationCodePrefix,
		},
		Line: domain.ExcelLine{
			ID:                   row.RecordID,
			ReconciliationID:     row.ReconciliationID,
			SiraNo:               row.LineSiraNo,
			TaxNumber:            row.LineTaxNumber,
			Currency:             row.LineCurrency,
			ReconciliationStatus: row.LineReconciliationStatus,
			MailStatus:           row.LineMailStatus,
		},
	}
	if row.TemplateID.Valid {
		view.Template = &domain.CompanyTemplate{
			ID:             uint(row.TemplateID.Int64),
			CompanyID:      row.CompanyID,
			Name:           row.TemplateName.String,
			Title:          row.TemplateTitle.String,
			IntroMarkdown:  row.TemplateIntro.String,
			FooterMarkdown: row.TemplateFooter.String,
			IsActive:       true,
		}
	}
	return view, nil
}

// MarkExpired flips the cached flag once. It never sets it back to false.
func (r *GormLinkRepository) MarkExpired(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("id = ? AND is_expired = ?", id, false).
		Update("is_expired", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark link expired: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SaveChallenge replaces any previous code. It is refused while the link is
// locked; a lapsed lock is lifted together with its attempt count. Attempts
// of an unlocked link carry over, so reissuing does not buy new guesses.
func (r *GormLinkRepository) SaveChallenge(ctx context.Context, id uint, codeHash string, expiresAt, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("id = ? AND is_used = ? AND is_verified = ? AND "+unlockedAt, id, false, false, now).
		Updates(map[string]interface{}{
			"verification_code":            codeHash,
			"verification_code_expires_at": expiresAt,
			"verification_attempts":        gorm.Expr("CASE WHEN verification_locked_until IS NULL THEN verification_attempts ELSE 0 END"),
			"verification_locked_until":    nil,
		})
	if res.Error != nil {
		return fmt.Errorf("save challenge: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

// ClearChallenge drops a code that was never delivered. A newer code issued in
// the meantime is left alone.
func (r *GormLinkRepository) ClearChallenge(ctx context.Context, id uint, codeHash string) error {
	res := r.db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("id = ? AND verification_code = ?", id, codeHash).
		Updates(map[string]interface{}{
			"verification_code":            "",
			"verification_code_expires_at": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("clear challenge: %w", res.Error)
	}
	return nil
}

// ReserveAttempt claims one verification attempt before a candidate is
// compared, so concurrent guesses cannot outrun the lockout. A lapsed lock is
// lifted and the count restarts at 1. It returns the claimed attempt number,
// or ErrAttemptsExhausted while locked, once maxAttempts are claimed or after
// the link was verified.
func (r *GormLinkRepository) ReserveAttempt(ctx context.Context, id uint, maxAttempts int, now, lockUntil time.Time) (int, error) {
	var attempts int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.ReconciliationLink{}).
			Where("id = ? AND is_verified = ? AND "+unlockedAt+" AND (verification_attempts < ? OR verification_locked_until IS NOT NULL)",
				id, false, now, maxAttempts).
			Updates(map[string]interface{}{
				"verification_attempts":     gorm.Expr("CASE WHEN verification_locked_until IS NULL THEN verification_attempts + 1 ELSE 1 END"),
				"verification_locked_until": nil,
			})
		if res.Error != nil {
			return res.Error
		}

		var link domain.ReconciliationLink
		if err := tx.Select("id", "is_verified", "verification_attempts", "verification_locked_until").First(&link, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkNotFound
			}
			return err
		}
		if res.RowsAffected == 1 {
			attempts = link.VerificationAttempts
			return nil
		}

		// Every attempt is claimed but the last claimant never locked the
		// link; lock it now so the round can lapse.
		if !link.IsVerified && link.VerificationLockedUntil == nil && link.VerificationAttempts >= maxAttempts {
			if err := tx.Model(&domain.ReconciliationLink{}).
				Where("id = ? AND verification_locked_until IS NULL", id).
				Update("verification_locked_until", lockUntil).Error; err != nil {
				return err
			}
		}
		return ErrAttemptsExhausted
	})
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) || errors.Is(err, ErrAttemptsExhausted) {
			return 0, err
		}
		return 0, fmt.Errorf("reserve attempt: %w", err)
	}
	return attempts, nil
}

// Lock closes an unverified link to verification until lockUntil.
func (r *GormLinkRepository) Lock(ctx context.Context, id uint, lockUntil time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("id = ? AND is_verified = ?", id, false).
		Update("verification_locked_until", lockUntil).Error
	if err != nil {
		return fmt.Errorf("lock link: %w", err)
	}
	return nil
}

// ConsumeChallenge marks the link verified only if the code read by the
// caller is still the one on file and no lock is active, so a code can be
// consumed once and never past the lockout.
func (r *GormLinkRepository) ConsumeChallenge(ctx context.Context, id uint, codeHash string, verifiedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("id = ? AND verification_code = ? AND is_verified = ? AND "+unlockedAt, id, codeHash, false, verifiedAt).
		Updates(map[string]interface{}{
			"is_verified":                  true,
			"verified_at":                  verifiedAt,
			"verification_code":            "",
			"verification_code_expires_at": nil,
			"verification_attempts":        0,
			"verification_locked_until":    nil,
		})
	if res.Error != nil {
		return fmt.Errorf("consume challenge: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

// MarkTaxVerified records a successful tax-number match unless a lock is
// active. When verified is true the gate is satisfied as well.
func (r *GormLinkRepository) MarkTaxVerified(ctx context.Context, id uint, at time.Time, verified bool) error {
	updates := map[string]interface{}{
		"tax_verified_at":       at,
		"verification_attempts": 0,
	}
	if verified {
		updates["is_verified"] = true
		updates["verified_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("id = ? AND is_used = ? AND "+unlockedAt, id, false, at).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("mark tax verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

// RecordResponse is the terminal write. The link update is guarded by
// is_used = false and shares a transaction with the ledger projection, so of
// any number of concurrent submissions exactly one commits.
func (r *GormLinkRepository) RecordResponse(ctx context.Context, id, recordID uint, resp Response) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"is_used":         true,
			"used_at":         resp.UsedAt,
			"response_status": resp.Status,
			"response_note":   resp.Note,
			"ip_address":      resp.IPAddress,
			"user_agent":      resp.UserAgent,
		}
		if resp.DisputedAmount.Valid {
			updates["disputed_amount"] = resp.DisputedAmount
			updates["disputed_currency"] = resp.DisputedCurrency
		}

		res := tx.Model(&domain.ReconciliationLink{}).
			Where("id = ? AND is_used = ?", id, false).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}

		status, ok := domain.StatusFor(resp.Status)
		if !ok {
			return nil
		}
		return tx.Model(&domain.ExcelLine{}).
			Where("id = ?", recordID).
			Update("reconciliation_status", status).Error
	})
	if err != nil {
		if errors.Is(err, ErrStateChanged) {
			return err
		}
		return fmt.Errorf("record response: %w", err)
	}
	return nil
}
