// File: internal/services/reconciliation/resolver.go
package reconciliation

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"

	"github.com/iyunix/go-mutabakat/internal/domain"
	"github.com/iyunix/go-mutabakat/internal/repository/link"
)

// LinkProjection is the read-only view used to render the response page.
type LinkProjection struct {
	ReconciliationCode string `json:"reconciliation_code"`

	CompanyName    string `json:"company_name"`
	CompanyLogoURL string `json:"company_logo_url,omitempty"`
	TemplateTitle  string `json:"template_title,omitempty"`
	IntroHTML      string `json:"intro_html,omitempty"`
	FooterHTML     string `json:"footer_html,omitempty"`

	RecipientName string          `json:"recipient_name"`
	MaskedEmail   string          `json:"masked_email"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceType   string          `json:"balance_type"`
	Currency      string          `json:"currency"`

	ExpiresAt      time.Time             `json:"expires_at"`
	IsExpired      bool                  `json:"is_expired"`
	IsUsed         bool                  `json:"is_used"`
	ResponseStatus domain.ResponseStatus `json:"response_status"`

	RequireTaxVerification bool       `json:"require_tax_verification"`
	RequireOtpVerification bool       `json:"require_otp_verification"`
	IsVerified             bool       `json:"is_verified"`
	VerificationRequired   bool       `json:"verification_required"`
	NextCheck              Check      `json:"next_check,omitempty"`
	OtpPending             bool       `json:"otp_pending"`
	OtpExpiresAt           *time.Time `json:"otp_expires_at,omitempty"`
	LockedUntil            *time.Time `json:"locked_until,omitempty"`
}

// LinkResolver is the read path behind page load.
type LinkResolver struct {
	repo     link.LinkRepository
	gate     *VerificationGate
	markdown goldmark.Markdown
	config   *Config
	logger   Logger
}

func NewLinkResolver(repo link.LinkRepository, gate *VerificationGate, config *Config, logger Logger) *LinkResolver {
	return &LinkResolver{
		repo:     repo,
		gate:     gate,
		markdown: goldmark.New(),
		config:   config,
		logger:   logger,
	}
}

// Resolve builds the projection for code. The only write it may perform is
// flipping the cached is_expired flag to true.
func (r *LinkResolver) Resolve(ctx context.Context, code string) (*LinkProjection, error) {
	if !ValidReferenceCode(code) {
		return nil, ErrInvalidFormat
	}

	view, err := r.repo.FindView(ctx, code)
	if err != nil {
		if errors.Is(err, link.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to load link view", "error", err)
		return nil, err
	}

	now := r.config.now()
	l := &view.Link
	expired := l.ExpiredAt(now)
	if expired && !l.IsExpired {
		if _, err := r.repo.MarkExpired(ctx, l.ID); err != nil {
			// The cache heals on the next read; the live comparison already
			// decided the answer.
			r.logger.Warn("failed to persist expired flag", "link_id", l.ID, "error", err)
		} else {
			r.logger.Info("link expired", "link_id", l.ID)
		}
	}

	policy := view.Company.Policy()
	decision := r.gate.Evaluate(policy, l)
	otpPending, otpExpiresAt := OtpPending(l, now)

	p := &LinkProjection{
		ReconciliationCode:     EffectiveCode(view.Company.ReconciliationCodePrefix, r.config.DefaultCodePrefix, l.ReconciliationID, view.Line.SiraNo),
		CompanyName:            view.Company.Name,
		CompanyLogoURL:         view.Company.LogoURL,
		RecipientName:          l.RecipientName,
		MaskedEmail:            MaskEmail(l.RecipientEmail),
		Amount:                 l.Amount,
		BalanceType:            l.BalanceType,
		Currency:               currencyOf(l, &view.Line),
		ExpiresAt:              l.ExpiresAt,
		IsExpired:              expired,
		IsUsed:                 l.IsUsed,
		ResponseStatus:         l.ResponseStatus,
		RequireTaxVerification: policy.RequireTax,
		RequireOtpVerification: policy.RequireOtp,
		IsVerified:             l.IsVerified,
		VerificationRequired:   !decision.Satisfied,
		NextCheck:              decision.Next,
		OtpPending:             otpPending,
		OtpExpiresAt:           otpExpiresAt,
	}
	if l.LockedAt(now) > 0 {
		p.LockedUntil = l.VerificationLockedUntil
	}

	if view.Template != nil {
		p.TemplateTitle = view.Template.Title
		p.IntroHTML = r.render(view.Template.IntroMarkdown)
		p.FooterHTML = r.render(view.Template.FooterMarkdown)
	}

	return p, nil
}

// render converts template markdown to HTML. Raw HTML in the source is not
// passed through.
func (r *LinkResolver) render(src string) string {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		r.logger.Warn("failed to render template markdown", "error", err)
		return ""
	}
	return buf.String()
}

func currencyOf(l *domain.ReconciliationLink, line *domain.ExcelLine) string {
	if l.Currency != "" {
		return l.Currency
	}
	return line.Currency
}
