// File: internal/repository/approval/approval_repository.go
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/iyunix/go-mutabakat/internal/domain"
)

var (
	ErrRequestNotFound = errors.New("approval request not found")
	ErrNotTransitioned = errors.New("approval request not in expected state")
)

// Transition describes one guarded move of the approve/reject state machine.
type Transition struct {
	From        domain.ApprovalMailStatus
	To          domain.ApprovalMailStatus
	Status      domain.ApprovalStatus
	Priority    domain.Priority // empty leaves priority unchanged
	RespondedAt time.Time
}

type ApprovalRepository interface {
	Create(ctx context.Context, req *domain.ApprovalRequest) error
	FindByToken(ctx context.Context, token string) (*domain.ApprovalRequest, error)
	Apply(ctx context.Context, id uint, t Transition) error
}

type gormApprovalRepository struct {
	db *gorm.DB
}

func NewGormApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &gormApprovalRepository{db: db}
}

func (r *gormApprovalRepository) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	if req.ApprovalToken == "" {
		return errors.New("approval token is required")
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	return nil
}

func (r *gormApprovalRepository) FindByToken(ctx context.Context, token string) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	err := r.db.WithContext(ctx).Where("approval_token = ?", token).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("find approval request: %w", err)
	}
	return &req, nil
}

// Apply performs the transition only while the request is still in t.From.
func (r *gormApprovalRepository) Apply(ctx context.Context, id uint, t Transition) error {
	updates := map[string]interface{}{
		"mail_status":  t.To,
		"status":       t.Status,
		"responded_at": t.RespondedAt,
	}
	if t.Priority != "" {
		updates["priority"] = t.Priority
	}

	res := r.db.WithContext(ctx).Model(&domain.ApprovalRequest{}).
		Where("id = ? AND mail_status = ?", id, t.From).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("apply approval transition: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotTransitioned
	}
	return nil
}
