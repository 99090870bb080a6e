package reconciliation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-mutabakat/internal/domain"
	"github.com/iyunix/go-mutabakat/internal/repository/link"
	"github.com/iyunix/go-mutabakat/internal/services"
	"github.com/iyunix/go-mutabakat/internal/services/reconciliation"
	"github.com/iyunix/go-mutabakat/internal/testutil"
)

func TestSubmit_AgreeIsRecordedOnce(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{})
	ctx := context.Background()

	res, err := env.recorder.Submit(ctx, env.agree(f.Link.ReferenceCode))
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	l := testutil.ReloadLink(t, env.db, f.Link.ID)
	assert.True(t, l.IsUsed)
	require.NotNil(t, l.UsedAt)
	assert.True(t, l.UsedAt.Equal(start))
	assert.Equal(t, domain.ResponseAgree, l.ResponseStatus)
	assert.Equal(t, "203.0.113.7", l.IPAddress)
	assert.Equal(t, "test-agent", l.UserAgent)
	assert.Equal(t, domain.ReconciliationApproved, testutil.ReloadLine(t, env.db, f.Line.ID).ReconciliationStatus)

	dispute := reconciliation.ResponseInput{
		Code:           f.Link.ReferenceCode,
		Decision:       "itiraz",
		Note:           "farklı",
		DisputedAmount: "10",
		SourceIP:       "198.51.100.1",
	}
	_, err = env.recorder.Submit(ctx, dispute)
	assert.ErrorIs(t, err, reconciliation.ErrAlreadyUsed)
	assert.Equal(t, domain.ReconciliationApproved, testutil.ReloadLine(t, env.db, f.Line.ID).ReconciliationStatus)
}

func TestSubmit_DisputeValidation(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		note     string
		wantKind reconciliation.ErrorKind
	}{
		{name: "missing amount", note: "eksik fatura", wantKind: reconciliation.KindValidationFailed},
		{name: "missing note", amount: "100", wantKind: reconciliation.KindValidationFailed},
		{name: "blank note", amount: "100", note: "   ", wantKind: reconciliation.KindValidationFailed},
		{name: "non numeric amount", amount: "yüz lira", note: "eksik fatura", wantKind: reconciliation.KindInvalidFormat},
		{name: "negative amount", amount: "-5", note: "eksik fatura", wantKind: reconciliation.KindInvalidFormat},
		{name: "zero amount", amount: "0", note: "eksik fatura", wantKind: reconciliation.KindInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)
			f := env.seed(t, testutil.LinkOptions{})

			_, err := env.recorder.Submit(context.Background(), reconciliation.ResponseInput{
				Code:           f.Link.ReferenceCode,
				Decision:       "itiraz",
				Note:           tt.note,
				DisputedAmount: tt.amount,
				SourceIP:       "203.0.113.7",
			})
			assert.Equal(t, tt.wantKind, kindOf(t, err))
			assert.False(t, testutil.ReloadLink(t, env.db, f.Link.ID).IsUsed)
		})
	}
}

func TestSubmit_DisputeStoresNormalisedAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
		wantCur  string
	}{
		{amount: "1250,5", want: "1250.50", wantCur: "TRY"},
		{amount: "10.555", currency: "usd", want: "10.56", wantCur: "USD"},
		{amount: " 99 ", currency: "EUR", want: "99.00", wantCur: "EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			env := newEnv(t)
			f := env.seed(t, testutil.LinkOptions{})

			_, err := env.recorder.Submit(context.Background(), reconciliation.ResponseInput{
				Code:             f.Link.ReferenceCode,
				Decision:         "itiraz",
				Note:             "Fatura 2026/118 kayıtlarımızda yok",
				DisputedAmount:   tt.amount,
				DisputedCurrency: tt.currency,
				SourceIP:         "203.0.113.7",
			})
			require.NoError(t, err)

			l := testutil.ReloadLink(t, env.db, f.Link.ID)
			assert.Equal(t, domain.ResponseDispute, l.ResponseStatus)
			require.True(t, l.DisputedAmount.Valid)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(l.DisputedAmount.Decimal))
			assert.Equal(t, tt.wantCur, l.DisputedCurrency)
			assert.Equal(t, domain.ReconciliationDisputed, testutil.ReloadLine(t, env.db, f.Line.ID).ReconciliationStatus)
		})
	}
}

func TestSubmit_DecisionValidation(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{})
	ctx := context.Background()

	in := env.agree(f.Link.ReferenceCode)
	in.Decision = "maybe"
	_, err := env.recorder.Submit(ctx, in)
	assert.Equal(t, reconciliation.KindInvalidFormat, kindOf(t, err))

	in.Decision = ""
	_, err = env.recorder.Submit(ctx, in)
	assert.Equal(t, reconciliation.KindValidationFailed, kindOf(t, err))

	in = env.agree(f.Link.ReferenceCode)
	in.Decision = "itiraz"
	in.Note = "x"
	in.DisputedAmount = "5"
	in.DisputedCurrency = "TL"
	_, err = env.recorder.Submit(ctx, in)
	assert.Equal(t, reconciliation.KindInvalidFormat, kindOf(t, err))
}

func TestSubmit_PreconditionOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed code", func(t *testing.T) {
		env := newEnv(t)
		_, err := env.recorder.Submit(ctx, env.agree("xyz"))
		assert.ErrorIs(t, err, reconciliation.ErrInvalidFormat)
	})

	t.Run("unknown code", func(t *testing.T) {
		env := newEnv(t)
		code, err := reconciliation.NewReferenceCode()
		require.NoError(t, err)
		_, err = env.recorder.Submit(ctx, env.agree(code))
		assert.ErrorIs(t, err, reconciliation.ErrNotFound)
	})

	t.Run("used wins over invalid payload", func(t *testing.T) {
		env := newEnv(t)
		f := env.seed(t, testutil.LinkOptions{})
		_, err := env.recorder.Submit(ctx, env.agree(f.Link.ReferenceCode))
		require.NoError(t, err)

		_, err = env.recorder.Submit(ctx, reconciliation.ResponseInput{
			Code:     f.Link.ReferenceCode,
			Decision: "itiraz",
			SourceIP: "203.0.113.7",
		})
		assert.ErrorIs(t, err, reconciliation.ErrAlreadyUsed)
	})

	t.Run("expired wins over invalid payload", func(t *testing.T) {
		env := newEnv(t)
		f := env.seed(t, testutil.LinkOptions{})
		env.clock.Advance(6 * 24 * time.Hour)

		_, err := env.recorder.Submit(ctx, reconciliation.ResponseInput{
			Code:     f.Link.ReferenceCode,
			Decision: "itiraz",
			SourceIP: "203.0.113.7",
		})
		assert.ErrorIs(t, err, reconciliation.ErrExpired)

		l := testutil.ReloadLink(t, env.db, f.Link.ID)
		assert.True(t, l.IsExpired)
		assert.False(t, l.IsUsed)
	})

	t.Run("gate before payload validation", func(t *testing.T) {
		env := newEnv(t)
		f := env.seed(t, testutil.LinkOptions{RequireOtp: true})

		_, err := env.recorder.Submit(ctx, reconciliation.ResponseInput{
			Code:     f.Link.ReferenceCode,
			Decision: "itiraz",
			SourceIP: "203.0.113.7",
		})
		assert.ErrorIs(t, err, reconciliation.ErrVerificationRequired)
	})
}

func TestSubmit_RequiresVerifiedGate(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{RequireTax: true})
	ctx := context.Background()

	_, err := env.recorder.Submit(ctx, env.agree(f.Link.ReferenceCode))
	assert.ErrorIs(t, err, reconciliation.ErrVerificationRequired)

	_, err = env.otp.VerifyTaxNumber(ctx, f.Link.ReferenceCode, "1234567890")
	require.NoError(t, err)

	res, err := env.recorder.Submit(ctx, env.agree(f.Link.ReferenceCode))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestSubmit_RateLimitedPerSource(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.recorder.Submit(ctx, env.agree("bad-code"))
		require.ErrorIs(t, err, reconciliation.ErrInvalidFormat)
		env.clock.Advance(time.Second)
	}

	_, err := env.recorder.Submit(ctx, env.agree(f.Link.ReferenceCode))
	require.ErrorIs(t, err, reconciliation.ErrRateLimited)
	var svcErr *reconciliation.Error
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 55*time.Second, svcErr.RetryAfter)
	assert.False(t, testutil.ReloadLink(t, env.db, f.Link.ID).IsUsed)

	other := env.agree(f.Link.ReferenceCode)
	other.SourceIP = "198.51.100.1"
	_, err = env.recorder.Submit(ctx, other)
	require.NoError(t, err)
}

func TestSubmit_RateLimitWindowElapses(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, _ = env.recorder.Submit(ctx, env.agree("bad-code"))
	}
	_, err := env.recorder.Submit(ctx, env.agree(f.Link.ReferenceCode))
	require.ErrorIs(t, err, reconciliation.ErrRateLimited)

	env.clock.Advance(60 * time.Second)
	res, err := env.recorder.Submit(ctx, env.agree(f.Link.ReferenceCode))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestSubmit_LimiterFailureFailsOpen(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{})
	recorder := reconciliation.NewResponseRecorder(
		link.NewGormLinkRepository(env.db),
		reconciliation.NewVerificationGate(),
		failingLimiter{},
		env.config,
		&services.NoOpLogger{},
	)

	res, err := recorder.Submit(context.Background(), env.agree(f.Link.ReferenceCode))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestSubmit_ConcurrentSubmissionsSucceedOnce(t *testing.T) {
	env := newEnv(t)
	f := env.seed(t, testutil.LinkOptions{})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := env.agree(f.Link.ReferenceCode)
			in.SourceIP = fmt.Sprintf("203.0.113.%d", i+1)
			_, err := env.recorder.Submit(context.Background(), in)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var accepted, used int
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, reconciliation.ErrAlreadyUsed):
			used++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, workers-1, used)
}
