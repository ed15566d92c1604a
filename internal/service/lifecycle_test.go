package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"pledgedesk/internal/models"
	"pledgedesk/internal/repository"
)

func newLifecycle(repo *stubRepo) *LifecycleService {
	return &LifecycleService{Repo: repo, Audit: &AuditRecorder{Repo: repo}}
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	repo := newStubRepo()
	svc := newLifecycle(repo)
	actor := Actor{ID: "admin-1", Role: "admin"}

	if _, err := svc.Create(context.Background(), CreateSessionInput{StockName: "No Symbol"}, actor); err == nil {
		t.Fatalf("expected validation error for missing symbol")
	}
	var verr *ValidationError
	_, err := svc.Create(context.Background(), CreateSessionInput{
		StockSymbol: "TCS",
		StockName:   "Tata Consultancy",
		SessionMode: "weekly",
	}, actor)
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for unknown mode, got %v", err)
	}

	session, err := svc.Create(context.Background(), CreateSessionInput{
		StockSymbol: " tcs ",
		StockName:   "Tata Consultancy",
		StockPrice:  decimal.RequireFromString("3500"),
	}, actor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.StockSymbol != "TCS" {
		t.Fatalf("symbol not normalized: %q", session.StockSymbol)
	}
	if session.Status != models.SessionDraft {
		t.Fatalf("status = %s", session.Status)
	}
	if session.SessionMode != models.ModeSingleExecution || session.ConvenienceFeeType != models.FeeFlat {
		t.Fatalf("defaults not applied: %s %s", session.SessionMode, session.ConvenienceFeeType)
	}
	if session.CreatedBy != "admin-1" {
		t.Fatalf("created_by = %q", session.CreatedBy)
	}
}

func TestApprovalFlowStampsReviewer(t *testing.T) {
	repo := newStubRepo()
	svc := newLifecycle(repo)
	actor := Actor{ID: "admin-1", Role: "admin"}

	session, _ := svc.Create(context.Background(), CreateSessionInput{StockSymbol: "INFY", StockName: "Infosys"}, actor)

	submitted, err := svc.Submit(context.Background(), session.ID, actor)
	if err != nil || submitted.Status != models.SessionPendingApproval {
		t.Fatalf("submit: %v status=%s", err, submitted.Status)
	}

	approved, err := svc.Approve(context.Background(), session.ID, Actor{ID: "admin-2", Role: "admin"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.SessionApproved || approved.ApprovedBy != "admin-2" || approved.ApprovedAt == nil {
		t.Fatalf("approved = %+v", approved)
	}

	active, err := svc.Activate(context.Background(), session.ID, actor)
	if err != nil || active.Status != models.SessionActive {
		t.Fatalf("activate: %v", err)
	}

	actions := []string{
		models.ActionSessionSubmitted,
		models.ActionSessionApproved,
		models.ActionSessionActivated,
	}
	for _, action := range actions {
		a := action
		logs, _ := repo.ListAuditLogs(context.Background(), repository.ListAuditLogsParams{Action: &a})
		if len(logs) != 1 {
			t.Fatalf("expected one %s audit entry, got %d", action, len(logs))
		}
	}
}

func TestApproveStraightFromDraft(t *testing.T) {
	repo := newStubRepo()
	svc := newLifecycle(repo)
	actor := Actor{ID: "admin-1"}

	session, _ := svc.Create(context.Background(), CreateSessionInput{StockSymbol: "SBIN", StockName: "State Bank"}, actor)
	approved, err := svc.Approve(context.Background(), session.ID, actor)
	if err != nil || approved.Status != models.SessionApproved {
		t.Fatalf("approve from draft: %v", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	repo := newStubRepo()
	svc := newLifecycle(repo)
	actor := Actor{ID: "admin-1"}

	session, _ := svc.Create(context.Background(), CreateSessionInput{StockSymbol: "HDFC", StockName: "HDFC Bank"}, actor)
	if _, err := svc.Reject(context.Background(), session.ID, "  ", actor); err == nil {
		t.Fatalf("expected validation error for blank reason")
	}
	rejected, err := svc.Reject(context.Background(), session.ID, "incomplete KYC mandate", actor)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.SessionRejected || rejected.RejectedReason != "incomplete KYC mandate" {
		t.Fatalf("rejected = %+v", rejected)
	}
}

func TestIllegalTransitionRefused(t *testing.T) {
	repo := newStubRepo()
	svc := newLifecycle(repo)
	actor := Actor{ID: "admin-1"}

	session, _ := svc.Create(context.Background(), CreateSessionInput{StockSymbol: "WIPRO", StockName: "Wipro"}, actor)
	_, err := svc.Activate(context.Background(), session.ID, actor)
	var terr *models.ErrIllegalTransition
	if !errors.As(err, &terr) {
		t.Fatalf("expected illegal transition, got %v", err)
	}

	// Terminal states accept nothing.
	rejected, _ := svc.Reject(context.Background(), session.ID, "not viable", actor)
	if rejected.Status != models.SessionRejected {
		t.Fatalf("setup failed: %s", rejected.Status)
	}
	if _, err := svc.Submit(context.Background(), session.ID, actor); err == nil {
		t.Fatalf("expected error submitting a rejected session")
	}
}

func TestCloseAndCancelFromActive(t *testing.T) {
	repo := newStubRepo()
	svc := newLifecycle(repo)
	actor := Actor{ID: "admin-1"}

	first, _ := svc.Create(context.Background(), CreateSessionInput{StockSymbol: "ITC", StockName: "ITC"}, actor)
	_, _ = svc.Approve(context.Background(), first.ID, actor)
	_, _ = svc.Activate(context.Background(), first.ID, actor)
	closed, err := svc.Close(context.Background(), first.ID, actor)
	if err != nil || closed.Status != models.SessionClosed {
		t.Fatalf("close: %v", err)
	}

	second, _ := svc.Create(context.Background(), CreateSessionInput{StockSymbol: "LT", StockName: "Larsen"}, actor)
	_, _ = svc.Approve(context.Background(), second.ID, actor)
	_, _ = svc.Activate(context.Background(), second.ID, actor)
	cancelled, err := svc.Cancel(context.Background(), second.ID, actor)
	if err != nil || cancelled.Status != models.SessionCancelled {
		t.Fatalf("cancel: %v", err)
	}
}

func TestDeleteRefusedWhilePledgesExist(t *testing.T) {
	repo := newStubRepo()
	svc := newLifecycle(repo)
	actor := Actor{ID: "admin-1"}

	session, _ := svc.Create(context.Background(), CreateSessionInput{StockSymbol: "ONGC", StockName: "ONGC"}, actor)
	seedPledge(repo, session.ID, "u1", models.SideBuy, models.PledgeReadyForExecution, "1", nil)

	var verr *ValidationError
	if err := svc.Delete(context.Background(), session.ID); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	empty, _ := svc.Create(context.Background(), CreateSessionInput{StockSymbol: "NTPC", StockName: "NTPC"}, actor)
	if err := svc.Delete(context.Background(), empty.ID); err != nil {
		t.Fatalf("delete empty session: %v", err)
	}
	if got, _ := repo.GetSessionByID(context.Background(), empty.ID); got != nil {
		t.Fatalf("session not deleted")
	}
}
