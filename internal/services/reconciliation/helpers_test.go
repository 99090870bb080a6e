package reconciliation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/iyunix/go-mutabakat/internal/ratelimit"
	approvalrepo "github.com/iyunix/go-mutabakat/internal/repository/approval"
	"github.com/iyunix/go-mutabakat/internal/repository/link"
	"github.com/iyunix/go-mutabakat/internal/services"
	"github.com/iyunix/go-mutabakat/internal/services/reconciliation"
	"github.com/iyunix/go-mutabakat/internal/testutil"
)

var start = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db       *gorm.DB
	clock    *testutil.Clock
	mailer   *testutil.FakeMailer
	limiter  *ratelimit.MemoryRateLimiter
	config   *reconciliation.Config
	resolver *reconciliation.LinkResolver
	otp      *reconciliation.OtpIssuer
	recorder *reconciliation.ResponseRecorder
	approval *reconciliation.ApprovalService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	clock := testutil.NewClock(start)

	cfg := reconciliation.DefaultConfig()
	cfg.OtpHashCost = bcrypt.MinCost
	cfg.Now = clock.Now
	require.NoError(t, cfg.Validate())

	limiter := ratelimit.NewMemoryRateLimiter(&ratelimit.Config{WindowSize: 60 * time.Second, MaxAttempts: 5})
	limiter.SetClock(clock.Now)
	t.Cleanup(limiter.Close)

	logger := &services.NoOpLogger{}
	repo := link.NewGormLinkRepository(db)
	gate := reconciliation.NewVerificationGate()
	mailer := &testutil.FakeMailer{}

	return &testEnv{
		db:       db,
		clock:    clock,
		mailer:   mailer,
		limiter:  limiter,
		config:   cfg,
		resolver: reconciliation.NewLinkResolver(repo, gate, cfg, logger),
		otp:      reconciliation.NewOtpIssuer(repo, mailer, cfg, logger),
		recorder: reconciliation.NewResponseRecorder(repo, gate, limiter, cfg, logger),
		approval: reconciliation.NewApprovalService(approvalrepo.NewGormApprovalRepository(db), cfg, logger),
	}
}

func (e *testEnv) seed(t *testing.T, opts testutil.LinkOptions) *testutil.Fixture {
	t.Helper()
	return testutil.SeedLink(t, e.db, e.clock.Now(), opts)
}

func (e *testEnv) agree(code string) reconciliation.ResponseInput {
	return reconciliation.ResponseInput{
		Code:      code,
		Decision:  "mutabik",
		SourceIP:  "203.0.113.7",
		UserAgent: "test-agent",
	}
}

// wrongCode returns a six digit code different from code.
func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func kindOf(t *testing.T, err error) reconciliation.ErrorKind {
	t.Helper()
	var svcErr *reconciliation.Error
	require.True(t, errors.As(err, &svcErr), "expected *reconciliation.Error, got %v", err)
	return svcErr.Kind
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*ratelimit.RateLimitInfo, error) {
	return nil, errors.New("redis: connection refused")
}
