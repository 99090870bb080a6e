// Package testutil holds the database, clock and mail fakes shared by the
// package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyunix/go-mutabakat/internal/database"
	"github.com/iyunix/go-mutabakat/internal/domain"
)

// NewTestDB opens a migrated sqlite database in a temp dir. A single
// connection keeps concurrent writers serialised the way row locks would.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SentOtp is one code handed to FakeMailer.
type SentOtp struct {
	To   string
	Code string
	Name string
}

// FakeMailer records codes instead of sending them. Set Err to make every
// send fail.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []SentOtp
	Err  error
}

func (m *FakeMailer) SendOtpEmail(_ context.Context, to, code, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentOtp{To: to, Code: code, Name: name})
	return nil
}

// LastCode returns the most recently sent code, or "" when none was sent.
func (m *FakeMailer) LastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return ""
	}
	return m.Sent[len(m.Sent)-1].Code
}

// LinkOptions shapes the fixture built by SeedLink. Zero values give an
// ungated company, a TRY line and a link expiring five days after now.
type LinkOptions struct {
	RequireTax   bool
	RequireOtp   bool
	CodePrefix   string
	WithTemplate bool

	Email     string
	Name      string
	TaxNumber string
	Amount    string
	Currency  string
	SiraNo    int

	ReferenceCode string
	ExpiresAt     time.Time
}

// Fixture is everything SeedLink wrote.
type Fixture struct {
	Company        domain.Company
	Template       *domain.CompanyTemplate
	Reconciliation domain.Reconciliation
	Line           domain.ExcelLine
	Link           domain.ReconciliationLink
}

var seedSeq int
var seedMu sync.Mutex

func nextSeq() int {
	seedMu.Lock()
	defer seedMu.Unlock()
	seedSeq++
	return seedSeq
}

// SeedLink inserts company → reconciliation → line → link and returns them.
func SeedLink(t *testing.T, db *gorm.DB, now time.Time, opts LinkOptions) *Fixture {
	t.Helper()
	seq := nextSeq()

	if opts.Email == "" {
		opts.Email = "abcdef@domain.com"
	}
	if opts.Name == "" {
		opts.Name = "Acme Ltd"
	}
	if opts.TaxNumber == "" {
		opts.TaxNumber = "1234567890"
	}
	if opts.Amount == "" {
		opts.Amount = "15250.75"
	}
	if opts.Currency == "" {
		opts.Currency = "TRY"
	}
	if opts.SiraNo == 0 {
		opts.SiraNo = 7
	}
	if opts.ReferenceCode == "" {
		opts.ReferenceCode = fmt.Sprintf("%064x", seq)
	}
	if opts.ExpiresAt.IsZero() {
		opts.ExpiresAt = now.Add(5 * 24 * time.Hour)
	}

	f := &Fixture{}
	f.Company = domain.Company{
		Name:                     fmt.Sprintf("Company %d", seq),
		LogoURL:                  "https://cdn.example.com/logo.png",
		RequireTaxVerification:   opts.RequireTax,
		RequireOtpVerification:   opts.RequireOtp,
		ReconciliationCodePrefix: opts.CodePrefix,
	}
	require.NoError(t, db.Create(&f.Company).Error)

	if opts.WithTemplate {
		f.Template = &domain.CompanyTemplate{
			CompanyID:      f.Company.ID,
			Name:           "default",
			Title:          "Cari Hesap Mutabakatı",
			IntroMarkdown:  "Sayın **yetkili**, bakiyemizi onaylayınız.",
			FooterMarkdown: "Teşekkürler.",
			IsActive:       true,
		}
		require.NoError(t, db.Create(f.Template).Error)
	}

	f.Reconciliation = domain.Reconciliation{
		CompanyID: f.Company.ID,
		Title:     "2026 Q3",
		PeriodEnd: now,
	}
	require.NoError(t, db.Create(&f.Reconciliation).Error)

	amount := decimal.RequireFromString(opts.Amount)
	f.Line = domain.ExcelLine{
		ReconciliationID:     f.Reconciliation.ID,
		SiraNo:               opts.SiraNo,
		RecipientEmail:       opts.Email,
		RecipientName:        opts.Name,
		TaxNumber:            opts.TaxNumber,
		Amount:               amount,
		BalanceType:          "B",
		Currency:             opts.Currency,
		ReconciliationStatus: domain.ReconciliationPending,
		MailStatus:           domain.MailSent,
	}
	require.NoError(t, db.Create(&f.Line).Error)

	f.Link = domain.ReconciliationLink{
		ReferenceCode:    opts.ReferenceCode,
		ReconciliationID: f.Reconciliation.ID,
		RecordID:         f.Line.ID,
		RecipientEmail:   opts.Email,
		RecipientName:    opts.Name,
		Amount:           amount,
		BalanceType:      "B",
		Currency:         opts.Currency,
		ExpiresAt:        opts.ExpiresAt,
		ResponseStatus:   domain.ResponsePending,
	}
	require.NoError(t, db.Create(&f.Link).Error)
	return f
}

// ReloadLink reads the link row back from the database.
func ReloadLink(t *testing.T, db *gorm.DB, id uint) domain.ReconciliationLink {
	t.Helper()
	var l domain.ReconciliationLink
	require.NoError(t, db.First(&l, id).Error)
	return l
}

// ReloadLine reads the ledger line back from the database.
func ReloadLine(t *testing.T, db *gorm.DB, id uint) domain.ExcelLine {
	t.Helper()
	var line domain.ExcelLine
	require.NoError(t, db.First(&line, id).Error)
	return line
}

// SeedApproval inserts an approval request in the given mail status.
func SeedApproval(t *testing.T, db *gorm.DB, token string, status domain.ApprovalMailStatus) domain.ApprovalRequest {
	t.Helper()
	req := domain.ApprovalRequest{
		CompanyID:      1,
		ApprovalToken:  token,
		RecipientEmail: "finance@domain.com",
		Subject:        "Bakiye onayı",
		Amount:         decimal.RequireFromString("1000.00"),
		Currency:       "TRY",
		MailStatus:     status,
		Status:         domain.ApprovalOpen,
		Priority:       domain.PriorityNormal,
	}
	require.NoError(t, db.Create(&req).Error)
	return req
}
