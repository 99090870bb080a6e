package reconciliation_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-mutabakat/internal/domain"
	"github.com/iyunix/go-mutabakat/internal/services/reconciliation"
	"github.com/iyunix/go-mutabakat/internal/testutil"
)

func TestResolve_RejectsMalformedCode(t *testing.T) {
	env := newEnv(t)

	for _, code := range []string{"", "abc", "MUT-1-2", fmt.Sprintf("%063x", 1) + "g"} {
		_, err := env.resolver.Resolve(context.Background(), code)
		assert.ErrorIs(t, err, reconciliation.ErrInvalidFormat, code)
	}
}

func TestResolve_UnknownCode(t *testing.T) {
	env := newEnv(t)

	code, err := reconciliation.NewReferenceCode()
	require.NoError(t, err)

	_, err = env.resolver.Resolve(context.Background(), code)
	assert.ErrorIs(t, err, reconciliation.ErrNotFound)
}

func TestResolve_Projection(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{RequireOtp: true, CodePrefix: "ACM", WithTemplate: true})

	p, err := env.resolver.Resolve(context.Background(), f.Link.ReferenceCode)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("ACM-%d-7", f.Reconciliation.ID), p.ReconciliationCode)
	assert.Equal(t, f.Company.Name, p.CompanyName)
	assert.Equal(t, "https://cdn.example.com/logo.png", p.CompanyLogoURL)
	assert.Equal(t, "Cari Hesap Mutabakatı", p.TemplateTitle)
	assert.Contains(t, p.IntroHTML, "<strong>yetkili</strong>")
	assert.Contains(t, p.FooterHTML, "Teşekkürler.")
	assert.Equal(t, "abc***@domain.com", p.MaskedEmail)
	assert.Equal(t, "15250.75", p.Amount.StringFixed(2))
	assert.Equal(t, "TRY", p.Currency)
	assert.False(t, p.IsExpired)
	assert.False(t, p.IsUsed)
	assert.Equal(t, domain.ResponsePending, p.ResponseStatus)
	assert.True(t, p.RequireOtpVerification)
	assert.False(t, p.RequireTaxVerification)
	assert.True(t, p.VerificationRequired)
	assert.Equal(t, reconciliation.CheckOtp, p.NextCheck)
	assert.False(t, p.OtpPending)
	assert.Nil(t, p.LockedUntil)
}

func TestResolve_DefaultPrefixAndNoGate(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{})

	p, err := env.resolver.Resolve(context.Background(), f.Link.ReferenceCode)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("MUT-%d-7", f.Reconciliation.ID), p.ReconciliationCode)
	assert.False(t, p.VerificationRequired)
	assert.Empty(t, p.TemplateTitle)
	assert.Empty(t, p.IntroHTML)
}

func TestResolve_PersistsExpiryOnly(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{})
	before := testutil.ReloadLink(t, env.db, f.Link.ID)

	env.clock.Advance(5*24*time.Hour + time.Second)

	p, err := env.resolver.Resolve(context.Background(), f.Link.ReferenceCode)
	require.NoError(t, err)
	assert.True(t, p.IsExpired)

	after := testutil.ReloadLink(t, env.db, f.Link.ID)
	assert.True(t, after.IsExpired)
	assert.Equal(t, before.IsUsed, after.IsUsed)
	assert.Equal(t, before.IsVerified, after.IsVerified)
	assert.Equal(t, before.ResponseStatus, after.ResponseStatus)
	assert.Equal(t, before.VerificationAttempts, after.VerificationAttempts)
}

func TestResolve_LiveExpiryWithoutCachedFlag(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{ExpiresAt: start.Add(-time.Minute)})

	p, err := env.resolver.Resolve(context.Background(), f.Link.ReferenceCode)
	require.NoError(t, err)
	assert.True(t, p.IsExpired)
}

func TestResolve_ShowsPendingChallengeWithoutCode(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{RequireOtp: true})

	_, err := env.otp.Issue(context.Background(), f.Link.ReferenceCode)
	require.NoError(t, err)

	p, err := env.resolver.Resolve(context.Background(), f.Link.ReferenceCode)
	require.NoError(t, err)
	assert.True(t, p.OtpPending)
	require.NotNil(t, p.OtpExpiresAt)
	assert.True(t, p.OtpExpiresAt.Equal(start.Add(5*time.Minute)))

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	stored := testutil.ReloadLink(t, env.db, f.Link.ID)
	assert.NotContains(t, string(raw), stored.VerificationCode)
	assert.NotContains(t, string(raw), env.mailer.LastCode())
	assert.NotContains(t, string(raw), "abcdef@domain.com")
}
