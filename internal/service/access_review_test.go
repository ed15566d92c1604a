package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"pledgedesk/internal/models"
)

func seedAccessRequest(repo *stubRepo) *models.AdvisorPledgeAccessRequest {
	request := &models.AdvisorPledgeAccessRequest{
		AdvisorID:               "adv-9",
		AdvisorName:             "R. Mehta",
		SEBIRegistration:        "INH000001234",
		ExperienceYears:         6,
		TradingVolumeEstimate:   models.VolumeHigh,
		CommissionRateRequested: decimal.RequireFromString("1.5"),
		Status:                  models.AccessPending,
	}
	_ = repo.InsertAccessRequest(context.Background(), request)
	return request
}

func TestApproveAssignsCommissionRate(t *testing.T) {
	repo := newStubRepo()
	svc := &AccessReviewService{Repo: repo, Audit: &AuditRecorder{Repo: repo}}
	request := seedAccessRequest(repo)

	var verr *ValidationError
	if _, err := svc.Approve(context.Background(), request.ID, decimal.Zero, "", Actor{ID: "admin-1"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for zero rate, got %v", err)
	}

	approved, err := svc.Approve(context.Background(), request.ID, decimal.RequireFromString("1.25"), "capped per tier", Actor{ID: "admin-1", Role: "admin"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.AccessApproved {
		t.Fatalf("status = %s", approved.Status)
	}
	if approved.ApprovedCommissionRate == nil || !approved.ApprovedCommissionRate.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("rate = %v", approved.ApprovedCommissionRate)
	}
	if approved.ReviewedBy != "admin-1" || approved.ReviewedAt == nil {
		t.Fatalf("reviewer not stamped: %+v", approved)
	}
	if approved.AdminNotes != "capped per tier" {
		t.Fatalf("notes = %q", approved.AdminNotes)
	}
}

func TestReviewIsTerminal(t *testing.T) {
	repo := newStubRepo()
	svc := &AccessReviewService{Repo: repo}
	request := seedAccessRequest(repo)

	if _, err := svc.Reject(context.Background(), request.ID, "registration lapsed", "", Actor{ID: "admin-1"}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := svc.Approve(context.Background(), request.ID, decimal.RequireFromString("1"), "", Actor{ID: "admin-2"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on second review, got %v", err)
	}
	if _, err := svc.Reject(context.Background(), request.ID, "again", "", Actor{ID: "admin-2"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on repeated reject, got %v", err)
	}

	stored, _ := repo.GetAccessRequestByID(context.Background(), request.ID)
	if stored.Status != models.AccessRejected || stored.RejectionReason != "registration lapsed" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestRejectRequiresReasonText(t *testing.T) {
	repo := newStubRepo()
	svc := &AccessReviewService{Repo: repo}
	request := seedAccessRequest(repo)

	var verr *ValidationError
	if _, err := svc.Reject(context.Background(), request.ID, "   ", "", Actor{ID: "admin-1"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, _ := repo.GetAccessRequestByID(context.Background(), request.ID)
	if stored.Status != models.AccessPending {
		t.Fatalf("request mutated by failed validation: %s", stored.Status)
	}
}
