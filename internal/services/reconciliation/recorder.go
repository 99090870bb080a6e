// File: internal/services/reconciliation/recorder.go
package reconciliation

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iyunix/go-mutabakat/internal/domain"
	"github.com/iyunix/go-mutabakat/internal/ratelimit"
	"github.com/iyunix/go-mutabakat/internal/repository/link"
)

// ResponseInput is the counter-party submission.
type ResponseInput struct {
	Code             string
	Decision         string `validate:"required,oneof=mutabik itiraz"`
	Note             string `validate:"max=2000"`
	DisputedAmount   string `validate:"max=32"`
	DisputedCurrency string `validate:"omitempty,len=3,alpha"`
	SourceIP         string
	UserAgent        string
}

type ResponseResult struct {
	Accepted bool `json:"accepted"`
}

// ResponseRecorder performs the single terminal write of a link.
type ResponseRecorder struct {
	repo     link.LinkRepository
	gate     *VerificationGate
	limiter  ratelimit.Limiter
	validate *validator.Validate
	config   *Config
	logger   Logger
}

func NewResponseRecorder(repo link.LinkRepository, gate *VerificationGate, limiter ratelimit.Limiter, config *Config, logger Logger) *ResponseRecorder {
	return &ResponseRecorder{
		repo:     repo,
		gate:     gate,
		limiter:  limiter,
		validate: validator.New(),
		config:   config,
		logger:   logger,
	}
}

// Submit records the decision. Preconditions are checked in order and the
// first failure wins: rate limit, code format, existence, one-time use,
// expiry, verification gate, payload validation.
func (r *ResponseRecorder) Submit(ctx context.Context, in ResponseInput) (*ResponseResult, error) {
	if err := r.checkRate(ctx, in.SourceIP); err != nil {
		return nil, err
	}

	if !ValidReferenceCode(in.Code) {
		return nil, ErrInvalidFormat
	}

	view, err := r.repo.FindView(ctx, in.Code)
	if err != nil {
		if errors.Is(err, link.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to load link", "error", err)
		return nil, err
	}
	l := &view.Link
	now := r.config.now()

	if l.IsUsed {
		return nil, ErrAlreadyUsed
	}
	if l.ExpiredAt(now) {
		if !l.IsExpired {
			if _, err := r.repo.MarkExpired(ctx, l.ID); err != nil {
				r.logger.Warn("failed to persist expired flag", "link_id", l.ID, "error", err)
			}
		}
		return nil, ErrExpired
	}
	if decision := r.gate.Evaluate(view.Company.Policy(), l); !decision.Satisfied {
		return nil, ErrVerificationRequired
	}

	resp, err := r.buildResponse(in, currencyOf(l, &view.Line))
	if err != nil {
		return nil, err
	}
	resp.UsedAt = now

	if err := r.repo.RecordResponse(ctx, l.ID, l.RecordID, resp); err != nil {
		if errors.Is(err, link.ErrStateChanged) {
			return nil, ErrAlreadyUsed
		}
		r.logger.Error("failed to record response", "link_id", l.ID, "error", err)
		return nil, err
	}

	r.logger.Info("reconciliation response recorded",
		"link_id", l.ID,
		"reconciliation_id", l.ReconciliationID,
		"response_status", resp.Status,
		"ip_address", in.SourceIP)

	return &ResponseResult{Accepted: true}, nil
}

// checkRate fails open: a broken limiter backend must not block responses,
// one-time use still holds.
func (r *ResponseRecorder) checkRate(ctx context.Context, sourceIP string) error {
	if r.limiter == nil {
		return nil
	}
	info, err := r.limiter.Allow(ctx, sourceIP)
	if err != nil {
		r.logger.Warn("rate limiter unavailable", "error", err)
		return nil
	}
	if !info.Allowed {
		r.logger.Warn("response submission rate limited",
			"ip_address", sourceIP,
			"retry_after", info.RetryAfter.String())
		return retryError(ErrRateLimited, info.RetryAfter)
	}
	return nil
}

func (r *ResponseRecorder) buildResponse(in ResponseInput, linkCurrency string) (link.Response, error) {
	in.Note = strings.TrimSpace(in.Note)
	in.DisputedAmount = strings.TrimSpace(in.DisputedAmount)
	in.DisputedCurrency = strings.ToUpper(strings.TrimSpace(in.DisputedCurrency))

	if err := r.validate.Struct(in); err != nil {
		return link.Response{}, validationError(err)
	}

	resp := link.Response{
		Status:    domain.ResponseStatus(in.Decision),
		Note:      in.Note,
		IPAddress: in.SourceIP,
		UserAgent: in.UserAgent,
	}
	if resp.Status != domain.ResponseDispute {
		return resp, nil
	}

	if in.DisputedAmount == "" || in.Note == "" {
		return link.Response{}, newError(KindValidationFailed, "İtiraz için tutar ve açıklama zorunludur.")
	}
	amount, err := parseAmount(in.DisputedAmount)
	if err != nil || !amount.IsPositive() {
		return link.Response{}, newError(KindInvalidFormat, "İtiraz tutarı geçerli bir pozitif sayı olmalıdır.")
	}

	resp.DisputedAmount = decimal.NewNullDecimal(amount.Round(2))
	resp.DisputedCurrency = in.DisputedCurrency
	if resp.DisputedCurrency == "" {
		resp.DisputedCurrency = linkCurrency
	}
	return resp, nil
}

// parseAmount accepts "1234.56" and the decimal-comma form "1234,56".
func parseAmount(s string) (decimal.Decimal, error) {
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}

func validationError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ErrValidationFailed
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Decision":
		if fe.Tag() == "required" {
			return newError(KindValidationFailed, "Yanıt durumu zorunludur.")
		}
		return newError(KindInvalidFormat, "Yanıt durumu mutabik veya itiraz olmalıdır.")
	case "Note":
		return newError(KindValidationFailed, "Açıklama en fazla 2000 karakter olabilir.")
	case "DisputedCurrency":
		return newError(KindInvalidFormat, "Para birimi 3 harfli kod olmalıdır.")
	default:
		return newError(KindInvalidFormat, "Geçersiz format.")
	}
}
