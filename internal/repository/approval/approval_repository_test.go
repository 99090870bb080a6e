package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-mutabakat/internal/domain"
	"github.com/iyunix/go-mutabakat/internal/repository/approval"
	"github.com/iyunix/go-mutabakat/internal/testutil"
)

func TestFindByToken(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := approval.NewGormApprovalRepository(db)
	seeded := testutil.SeedApproval(t, db, "MUT-find-by-token", domain.ApprovalMailSent)

	got, err := repo.FindByToken(context.Background(), "MUT-find-by-token")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)

	_, err = repo.FindByToken(context.Background(), "MUT-missing")
	assert.ErrorIs(t, err, approval.ErrRequestNotFound)
}

func TestApply_GuardedByFromStatus(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := approval.NewGormApprovalRepository(db)
	req := testutil.SeedApproval(t, db, "MUT-apply-guard", domain.ApprovalMailSent)
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	reject := approval.Transition{
		From:        domain.ApprovalMailSent,
		To:          domain.ApprovalMailRejected,
		Status:      domain.ApprovalDisputed,
		Priority:    domain.PriorityUrgent,
		RespondedAt: at,
	}
	require.NoError(t, repo.Apply(context.Background(), req.ID, reject))

	got, err := repo.FindByToken(context.Background(), "MUT-apply-guard")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalMailRejected, got.MailStatus)
	assert.Equal(t, domain.ApprovalDisputed, got.Status)
	assert.Equal(t, domain.PriorityUrgent, got.Priority)
	require.NotNil(t, got.RespondedAt)

	err = repo.Apply(context.Background(), req.ID, reject)
	assert.ErrorIs(t, err, approval.ErrNotTransitioned)
}

func TestCreate_RequiresToken(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := approval.NewGormApprovalRepository(db)

	assert.Error(t, repo.Create(context.Background(), &domain.ApprovalRequest{}))
}
