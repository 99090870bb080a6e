package reconciliation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iyunix/go-mutabakat/internal/domain"
	"github.com/iyunix/go-mutabakat/internal/services/reconciliation"
)

func TestVerificationGate_Evaluate(t *testing.T) {
	taxAt := start
	tests := []struct {
		name          string
		policy        domain.VerificationPolicy
		link          domain.ReconciliationLink
		wantSatisfied bool
		wantNext      reconciliation.Check
	}{
		{name: "no flags", wantSatisfied: true},
		{
			name:     "tax only pending",
			policy:   domain.VerificationPolicy{RequireTax: true},
			wantNext: reconciliation.CheckTaxNumber,
		},
		{
			name:          "tax only verified",
			policy:        domain.VerificationPolicy{RequireTax: true},
			link:          domain.ReconciliationLink{IsVerified: true, TaxVerifiedAt: &taxAt},
			wantSatisfied: true,
		},
		{
			name:     "otp only pending",
			policy:   domain.VerificationPolicy{RequireOtp: true},
			wantNext: reconciliation.CheckOtp,
		},
		{
			name:          "otp only verified",
			policy:        domain.VerificationPolicy{RequireOtp: true},
			link:          domain.ReconciliationLink{IsVerified: true},
			wantSatisfied: true,
		},
		{
			name:     "both, tax first",
			policy:   domain.VerificationPolicy{RequireTax: true, RequireOtp: true},
			wantNext: reconciliation.CheckTaxNumber,
		},
		{
			name:     "both, tax done",
			policy:   domain.VerificationPolicy{RequireTax: true, RequireOtp: true},
			link:     domain.ReconciliationLink{TaxVerifiedAt: &taxAt},
			wantNext: reconciliation.CheckOtp,
		},
	}

	gate := reconciliation.NewVerificationGate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Evaluate(tt.policy, &tt.link)
			assert.Equal(t, tt.wantSatisfied, d.Satisfied)
			assert.Equal(t, tt.wantNext, d.Next)
		})
	}
}

func TestOtpPending(t *testing.T) {
	expires := start.Add(5 * time.Minute)
	l := &domain.ReconciliationLink{VerificationCode: "hash", VerificationCodeExpiresAt: &expires}

	pending, at := reconciliation.OtpPending(l, start)
	assert.True(t, pending)
	assert.Equal(t, &expires, at)

	pending, at = reconciliation.OtpPending(l, expires.Add(time.Second))
	assert.False(t, pending)
	assert.Nil(t, at)

	pending, _ = reconciliation.OtpPending(&domain.ReconciliationLink{}, start)
	assert.False(t, pending)
}
