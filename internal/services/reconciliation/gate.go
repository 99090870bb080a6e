// File: internal/services/reconciliation/gate.go
package reconciliation

import (
	"time"

	"github.com/iyunix/go-mutabakat/internal/domain"
)

// Check is one identity check a company can require.
type Check string

const (
	CheckTaxNumber Check = "tax_number"
	CheckOtp       Check = "otp"
)

// GateDecision is the outcome of evaluating a link against its company policy.
type GateDecision struct {
	Required  []Check
	Satisfied bool
	// Next is the check the counter-party has to complete now; empty when
	// the gate is satisfied.
	Next Check
}

// VerificationGate is stateless: it reads the company policy and the stored
// link flags on every call and never caches a decision.
type VerificationGate struct{}

func NewVerificationGate() *VerificationGate {
	return &VerificationGate{}
}

// Evaluate decides whether link may proceed to a response.
//
// No flags means no gate. Tax only is satisfied by a tax-number match. OTP
// only, or both flags, is satisfied exclusively by a verified OTP; with both
// flags the tax-number match is the first stage and unlocks OTP issuance.
func (g *VerificationGate) Evaluate(policy domain.VerificationPolicy, link *domain.ReconciliationLink) GateDecision {
	var required []Check
	if policy.RequireTax {
		required = append(required, CheckTaxNumber)
	}
	if policy.RequireOtp {
		required = append(required, CheckOtp)
	}

	if len(required) == 0 || link.IsVerified {
		return GateDecision{Required: required, Satisfied: true}
	}

	decision := GateDecision{Required: required}
	switch {
	case policy.RequireTax && link.TaxVerifiedAt == nil:
		decision.Next = CheckTaxNumber
	case policy.RequireOtp:
		decision.Next = CheckOtp
	default:
		// Tax-only policy with a recorded match but no verified flag cannot
		// happen through this package; require the check again.
		decision.Next = CheckTaxNumber
	}
	return decision
}

// OtpPending reports whether a challenge is on file and still usable. Only
// existence and expiry are exposed, never the code.
func OtpPending(link *domain.ReconciliationLink, now time.Time) (bool, *time.Time) {
	if !link.HasChallenge() || link.ChallengeExpiredAt(now) {
		return false, nil
	}
	return true, link.VerificationCodeExpiresAt
}
