// File: internal/services/reconciliation/otp.go
package reconciliation

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/iyunix/go-mutabakat/internal/repository/link"
)

// IssueResult is returned after a code was stored and handed to the mailer.
type IssueResult struct {
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	MaskedEmail      string `json:"masked_email"`
}

// VerifyResult reports the gate state after a verification step.
type VerifyResult struct {
	Verified    bool `json:"verified"`
	OtpRequired bool `json:"otp_required,omitempty"`
}

// OtpIssuer runs the challenge state machine:
// NO_CHALLENGE → CHALLENGE_SENT → VERIFIED | EXPIRED | LOCKED.
// It also handles the tax-number check, which shares the attempt counter.
type OtpIssuer struct {
	repo   link.LinkRepository
	mailer OtpMailer
	config *Config
	logger Logger
}

func NewOtpIssuer(repo link.LinkRepository, mailer OtpMailer, config *Config, logger Logger) *OtpIssuer {
	return &OtpIssuer{
		repo:   repo,
		mailer: mailer,
		config: config,
		logger: logger,
	}
}

// Issue generates a new code, stores its hash and mails it. Any previous
// unconsumed code is replaced. When the mail cannot be sent the stored code
// is cleared again and DispatchFailed is returned.
func (s *OtpIssuer) Issue(ctx context.Context, code string) (*IssueResult, error) {
	view, err := s.loadOpen(ctx, code)
	if err != nil {
		return nil, err
	}
	l := &view.Link
	policy := view.Company.Policy()
	now := s.config.now()

	if !policy.RequireOtp {
		return nil, newError(KindValidationFailed, "Bu mutabakat için doğrulama kodu gerekmiyor.")
	}
	if l.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if remaining := l.LockedAt(now); remaining > 0 {
		return nil, retryError(ErrLocked, remaining)
	}
	if policy.RequireTax && l.TaxVerifiedAt == nil {
		return nil, newError(KindVerificationRequired, "Önce vergi numarası doğrulanmalı.")
	}

	otp, err := generateOtp()
	if err != nil {
		s.logger.Error("failed to generate otp", "link_id", l.ID, "error", err)
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), s.config.OtpHashCost)
	if err != nil {
		s.logger.Error("failed to hash otp", "link_id", l.ID, "error", err)
		return nil, fmt.Errorf("hash otp: %w", err)
	}

	expiresAt := now.Add(s.config.OtpTTL)
	if err := s.repo.SaveChallenge(ctx, l.ID, string(hash), expiresAt, now); err != nil {
		if errors.Is(err, link.ErrStateChanged) {
			return nil, s.stateError(ctx, code, ErrAlreadyUsed)
		}
		s.logger.Error("failed to save otp challenge", "link_id", l.ID, "error", err)
		return nil, err
	}

	if err := s.mailer.SendOtpEmail(ctx, l.RecipientEmail, otp, l.RecipientName); err != nil {
		s.logger.Error("otp dispatch failed",
			"link_id", l.ID,
			"email", MaskEmail(l.RecipientEmail),
			"error", err)
		if clearErr := s.repo.ClearChallenge(ctx, l.ID, string(hash)); clearErr != nil {
			s.logger.Error("failed to roll back undelivered otp", "link_id", l.ID, "error", clearErr)
		}
		return nil, wrapError(ErrDispatchFailed, err)
	}

	s.logger.Info("otp issued",
		"link_id", l.ID,
		"email", MaskEmail(l.RecipientEmail),
		"expires_at", expiresAt)

	return &IssueResult{
		ExpiresInSeconds: int(s.config.OtpTTL.Seconds()),
		MaskedEmail:      MaskEmail(l.RecipientEmail),
	}, nil
}

// Verify checks otp against the code on file. A wrong code counts towards
// the lockout; a correct one satisfies the gate and is consumed, so replaying
// it yields NoChallenge.
func (s *OtpIssuer) Verify(ctx context.Context, code, otp string) (*VerifyResult, error) {
	if !otpPattern.MatchString(otp) {
		return nil, ErrInvalidFormat
	}
	view, err := s.loadOpen(ctx, code)
	if err != nil {
		return nil, err
	}
	l := &view.Link
	now := s.config.now()

	if remaining := l.LockedAt(now); remaining > 0 {
		return nil, retryError(ErrLocked, remaining)
	}
	if !l.HasChallenge() {
		return nil, ErrNoChallenge
	}
	if l.IsVerified {
		return &VerifyResult{Verified: true}, ErrAlreadyVerified
	}
	if l.ChallengeExpiredAt(now) {
		return nil, ErrExpired
	}

	attempt, err := s.reserveAttempt(ctx, code, l.ID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(l.VerificationCode), []byte(otp)) != nil {
		return nil, s.recordFailure(ctx, l.ID, attempt)
	}

	if err := s.repo.ConsumeChallenge(ctx, l.ID, l.VerificationCode, now); err != nil {
		if errors.Is(err, link.ErrStateChanged) {
			stateErr := s.stateError(ctx, code, ErrNoChallenge)
			if errors.Is(stateErr, ErrAlreadyVerified) {
				return &VerifyResult{Verified: true}, stateErr
			}
			return nil, stateErr
		}
		s.logger.Error("failed to consume otp", "link_id", l.ID, "error", err)
		return nil, err
	}

	s.logger.Info("otp verified", "link_id", l.ID)
	return &VerifyResult{Verified: true}, nil
}

// VerifyTaxNumber compares the supplied tax number with the ledger line.
// Under a tax-only policy a match satisfies the gate; with OTP also required
// it unlocks OTP issuance.
func (s *OtpIssuer) VerifyTaxNumber(ctx context.Context, code, taxNumber string) (*VerifyResult, error) {
	supplied := digitsOnly(taxNumber)
	if len(supplied) < 10 || len(supplied) > 11 {
		return nil, ErrInvalidFormat
	}
	view, err := s.loadOpen(ctx, code)
	if err != nil {
		return nil, err
	}
	l := &view.Link
	policy := view.Company.Policy()
	now := s.config.now()

	if !policy.RequireTax {
		return nil, newError(KindValidationFailed, "Bu mutabakat için vergi numarası doğrulaması gerekmiyor.")
	}
	if l.IsVerified {
		return &VerifyResult{Verified: true}, ErrAlreadyVerified
	}
	if l.TaxVerifiedAt != nil {
		return &VerifyResult{OtpRequired: policy.RequireOtp}, ErrAlreadyVerified
	}
	if remaining := l.LockedAt(now); remaining > 0 {
		return nil, retryError(ErrLocked, remaining)
	}

	attempt, err := s.reserveAttempt(ctx, code, l.ID)
	if err != nil {
		return nil, err
	}
	expected := digitsOnly(view.Line.TaxNumber)
	if expected == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) != 1 {
		return nil, s.recordFailure(ctx, l.ID, attempt)
	}

	gateDone := !policy.RequireOtp
	if err := s.repo.MarkTaxVerified(ctx, l.ID, now, gateDone); err != nil {
		if errors.Is(err, link.ErrStateChanged) {
			return nil, s.stateError(ctx, code, ErrAlreadyUsed)
		}
		s.logger.Error("failed to record tax verification", "link_id", l.ID, "error", err)
		return nil, err
	}

	s.logger.Info("tax number verified", "link_id", l.ID, "otp_required", policy.RequireOtp)
	return &VerifyResult{Verified: gateDone, OtpRequired: policy.RequireOtp}, nil
}

// loadOpen validates the code and returns the view of a link that can still
// change state.
func (s *OtpIssuer) loadOpen(ctx context.Context, code string) (*link.View, error) {
	if !ValidReferenceCode(code) {
		return nil, ErrInvalidFormat
	}
	view, err := s.repo.FindView(ctx, code)
	if err != nil {
		if errors.Is(err, link.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to load link", "error", err)
		return nil, err
	}
	if view.Link.IsUsed {
		return nil, ErrAlreadyUsed
	}
	if view.Link.ExpiredAt(s.config.now()) {
		return nil, ErrExpired
	}
	return view, nil
}

// reserveAttempt claims an attempt slot before any comparison runs.
func (s *OtpIssuer) reserveAttempt(ctx context.Context, code string, linkID uint) (int, error) {
	now := s.config.now()
	attempt, err := s.repo.ReserveAttempt(ctx, linkID, s.config.MaxOtpAttempts, now, now.Add(s.config.LockoutDuration))
	if err != nil {
		if errors.Is(err, link.ErrAttemptsExhausted) {
			return 0, s.stateError(ctx, code, retryError(ErrLocked, s.config.LockoutDuration))
		}
		s.logger.Error("failed to reserve verification attempt", "link_id", linkID, "error", err)
		return 0, err
	}
	return attempt, nil
}

// recordFailure locks the link when the failed attempt was the last one of
// the round.
func (s *OtpIssuer) recordFailure(ctx context.Context, linkID uint, attempt int) error {
	if attempt >= s.config.MaxOtpAttempts {
		if err := s.repo.Lock(ctx, linkID, s.config.now().Add(s.config.LockoutDuration)); err != nil {
			s.logger.Error("failed to lock link", "link_id", linkID, "error", err)
			return err
		}
		s.logger.Warn("verification locked after failed attempts",
			"link_id", linkID,
			"attempts", attempt,
			"lockout_duration", s.config.LockoutDuration.String())
		return retryError(ErrLocked, s.config.LockoutDuration)
	}
	s.logger.Warn("verification attempt failed",
		"link_id", linkID,
		"attempts", attempt,
		"max_attempts", s.config.MaxOtpAttempts)
	return ErrVerificationFailed
}

// stateError re-reads the link after a guarded write matched no row and
// reports what changed underneath the request.
func (s *OtpIssuer) stateError(ctx context.Context, code string, fallback error) error {
	view, err := s.repo.FindView(ctx, code)
	if err != nil {
		return fallback
	}
	l := &view.Link
	now := s.config.now()
	switch {
	case l.IsUsed:
		return ErrAlreadyUsed
	case l.LockedAt(now) > 0:
		return retryError(ErrLocked, l.LockedAt(now))
	case l.IsVerified:
		return ErrAlreadyVerified
	}
	return fallback
}

// generateOtp returns a uniformly random 6-digit code; leading zeros are kept.
func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
