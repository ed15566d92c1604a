package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

// AccessReviewService resolves advisor access requests. A pending request is
// mutated exactly once; approve and reject are both terminal, and the
// compare-and-swap refuses a second review.
type AccessReviewService struct {
	Repo   repository.Repository
	Audit  *AuditRecorder
	Logger *zap.Logger
}

func (s *AccessReviewService) Approve(ctx context.Context, id uint64, rate decimal.Decimal, adminNotes string, actor Actor) (*models.AdvisorPledgeAccessRequest, error) {
	if s == nil || s.Repo == nil || id == 0 {
		return nil, nil
	}
	if !rate.IsPositive() {
		return nil, invalid("approved_commission_rate must be greater than zero")
	}
	request, err := s.Repo.GetAccessRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrNotFound
	}
	if request.Status != models.AccessPending {
		return nil, ErrConflict
	}
	now := time.Now().UTC()
	ok, err := s.Repo.CASAccessStatus(ctx, id, models.AccessApproved, map[string]any{
		"approved_commission_rate": rate,
		"admin_notes":              strings.TrimSpace(adminNotes),
		"reviewed_by":              actor.ID,
		"reviewed_at":              &now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if s.Audit != nil {
		s.Audit.RecordBestEffort(ctx, AuditEntry{
			Actor:  actor,
			Action: models.ActionAccessApproved,
			Target: "advisor_access_request",
			Payload: map[string]any{
				"request_id":               id,
				"advisor_id":               request.AdvisorID,
				"approved_commission_rate": rate,
			},
			Success: true,
		})
	}
	return s.Repo.GetAccessRequestByID(ctx, id)
}

func (s *AccessReviewService) Reject(ctx context.Context, id uint64, reason, adminNotes string, actor Actor) (*models.AdvisorPledgeAccessRequest, error) {
	if s == nil || s.Repo == nil || id == 0 {
		return nil, nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("rejection_reason is required")
	}
	request, err := s.Repo.GetAccessRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrNotFound
	}
	if request.Status != models.AccessPending {
		return nil, ErrConflict
	}
	now := time.Now().UTC()
	ok, err := s.Repo.CASAccessStatus(ctx, id, models.AccessRejected, map[string]any{
		"rejection_reason": reason,
		"admin_notes":      strings.TrimSpace(adminNotes),
		"reviewed_by":      actor.ID,
		"reviewed_at":      &now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if s.Audit != nil {
		s.Audit.RecordBestEffort(ctx, AuditEntry{
			Actor:  actor,
			Action: models.ActionAccessRejected,
			Target: "advisor_access_request",
			Payload: map[string]any{
				"request_id":       id,
				"advisor_id":       request.AdvisorID,
				"rejection_reason": reason,
			},
			Success: true,
		})
	}
	return s.Repo.GetAccessRequestByID(ctx, id)
}
