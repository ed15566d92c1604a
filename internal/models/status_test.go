package models

import (
	"errors"
	"testing"
)

func TestSessionTransitions(t *testing.T) {
	tests := []struct {
		from SessionStatus
		to   SessionStatus
		ok   bool
	}{
		{SessionDraft, SessionPendingApproval, true},
		{SessionDraft, SessionApproved, true},
		{SessionDraft, SessionRejected, true},
		{SessionDraft, SessionActive, false},
		{SessionPendingApproval, SessionApproved, true},
		{SessionPendingApproval, SessionRejected, true},
		{SessionPendingApproval, SessionDraft, false},
		{SessionApproved, SessionActive, true},
		{SessionApproved, SessionExecuting, false},
		{SessionActive, SessionExecuting, true},
		{SessionActive, SessionClosed, true},
		{SessionActive, SessionCancelled, true},
		{SessionExecuting, SessionAwaitingSellExec, true},
		{SessionExecuting, SessionCompleted, true},
		{SessionExecuting, SessionActive, true},
		{SessionAwaitingSellExec, SessionExecuting, true},
		{SessionAwaitingSellExec, SessionCompleted, true},
		{SessionCompleted, SessionActive, false},
		{SessionClosed, SessionActive, false},
		{SessionCancelled, SessionActive, false},
		{SessionRejected, SessionPendingApproval, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, status := range []SessionStatus{SessionCompleted, SessionClosed, SessionCancelled, SessionRejected} {
		if !status.Terminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	for _, status := range []SessionStatus{SessionDraft, SessionActive, SessionExecuting, SessionAwaitingSellExec} {
		if status.Terminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
}

func TestCheckSessionTransitionError(t *testing.T) {
	err := CheckSessionTransition(SessionDraft, SessionCompleted)
	var terr *ErrIllegalTransition
	if !errors.As(err, &terr) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if terr.From != SessionDraft || terr.To != SessionCompleted {
		t.Fatalf("error fields = %+v", terr)
	}
	if CheckSessionTransition(SessionActive, SessionExecuting) != nil {
		t.Fatalf("legal transition rejected")
	}
}
