// File: internal/services/reconciliation/approval.go
package reconciliation

import (
	"context"
	"errors"

	"github.com/iyunix/go-mutabakat/internal/domain"
	"github.com/iyunix/go-mutabakat/internal/repository/approval"
)

// ApprovalOutcome is returned by the single-token flow.
type ApprovalOutcome struct {
	MailStatus domain.ApprovalMailStatus `json:"mail_status"`
	Status     domain.ApprovalStatus     `json:"status"`
	Priority   domain.Priority           `json:"priority"`
}

// ApprovalService is the single-token approve/reject flow. It has no expiry,
// OTP or gate; one irreversible action per token.
type ApprovalService struct {
	repo   approval.ApprovalRepository
	config *Config
	logger Logger
}

func NewApprovalService(repo approval.ApprovalRepository, config *Config, logger Logger) *ApprovalService {
	return &ApprovalService{
		repo:   repo,
		config: config,
		logger: logger,
	}
}

// Approve moves sent → approved and resolves the request.
func (s *ApprovalService) Approve(ctx context.Context, token string) (*ApprovalOutcome, error) {
	return s.apply(ctx, token, approval.Transition{
		From:   domain.ApprovalMailSent,
		To:     domain.ApprovalMailApproved,
		Status: domain.ApprovalResolved,
	})
}

// Reject moves sent → rejected, marks the request disputed and escalates it.
func (s *ApprovalService) Reject(ctx context.Context, token string) (*ApprovalOutcome, error) {
	return s.apply(ctx, token, approval.Transition{
		From:     domain.ApprovalMailSent,
		To:       domain.ApprovalMailRejected,
		Status:   domain.ApprovalDisputed,
		Priority: domain.PriorityUrgent,
	})
}

func (s *ApprovalService) apply(ctx context.Context, token string, t approval.Transition) (*ApprovalOutcome, error) {
	if !ValidApprovalToken(token) {
		return nil, ErrInvalidFormat
	}

	req, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, approval.ErrRequestNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to load approval request", "error", err)
		return nil, err
	}

	if req.MailStatus != t.From {
		return nil, conflictFor(req.MailStatus)
	}

	t.RespondedAt = s.config.now()
	if err := s.repo.Apply(ctx, req.ID, t); err != nil {
		if errors.Is(err, approval.ErrNotTransitioned) {
			latest, findErr := s.repo.FindByToken(ctx, token)
			if findErr != nil {
				return nil, ErrConflict
			}
			return nil, conflictFor(latest.MailStatus)
		}
		s.logger.Error("failed to apply approval transition", "request_id", req.ID, "error", err)
		return nil, err
	}

	priority := req.Priority
	if t.Priority != "" {
		priority = t.Priority
	}

	s.logger.Info("approval request answered",
		"request_id", req.ID,
		"mail_status", t.To,
		"status", t.Status)

	return &ApprovalOutcome{
		MailStatus: t.To,
		Status:     t.Status,
		Priority:   priority,
	}, nil
}

func conflictFor(current domain.ApprovalMailStatus) *Error {
	switch current {
	case domain.ApprovalMailApproved:
		return newError(KindConflict, "Bu talep zaten onaylanmış.")
	case domain.ApprovalMailRejected:
		return newError(KindConflict, "Bu talep zaten reddedilmiş.")
	default:
		return newError(KindConflict, "Bu talep henüz yanıtlanabilir durumda değil.")
	}
}
