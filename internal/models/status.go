package models

import "fmt"

// SessionStatus is the closed set of pledge-session lifecycle states.
// Status writes must go through the transition table; free-form writes
// are how the legacy dashboard ended up with sessions stuck in limbo.
type SessionStatus string

const (
	SessionDraft            SessionStatus = "draft"
	SessionPendingApproval  SessionStatus = "pending_approval"
	SessionApproved         SessionStatus = "approved"
	SessionActive           SessionStatus = "active"
	SessionExecuting        SessionStatus = "executing"
	SessionAwaitingSellExec SessionStatus = "awaiting_sell_execution"
	SessionCompleted        SessionStatus = "completed"
	SessionClosed           SessionStatus = "closed"
	SessionCancelled        SessionStatus = "cancelled"
	SessionRejected         SessionStatus = "rejected"
)

type SessionMode string

const (
	ModeSingleExecution SessionMode = "single_execution"
	ModeBuySellCycle    SessionMode = "buy_sell_cycle"
)

type FeeType string

const (
	FeeFlat       FeeType = "flat"
	FeePercentage FeeType = "percentage"
)

type PledgeSide string

const (
	SideBuy  PledgeSide = "buy"
	SideSell PledgeSide = "sell"
)

type PledgeStatus string

const (
	PledgeReadyForExecution PledgeStatus = "ready_for_execution"
	PledgeExecuted          PledgeStatus = "executed"
	PledgeCancelled         PledgeStatus = "cancelled"
	PledgeFailed            PledgeStatus = "failed"
)

type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

type AccessStatus string

const (
	AccessPending  AccessStatus = "pending"
	AccessApproved AccessStatus = "approved"
	AccessRejected AccessStatus = "rejected"
)

// sessionTransitions maps each state to the states an admin action may move it to.
// Terminal states (completed, closed, cancelled, rejected) have no outgoing edges.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionDraft:            {SessionPendingApproval, SessionApproved, SessionRejected},
	SessionPendingApproval:  {SessionApproved, SessionRejected},
	SessionApproved:         {SessionActive},
	SessionActive:           {SessionExecuting, SessionClosed, SessionCancelled},
	SessionExecuting:        {SessionAwaitingSellExec, SessionCompleted, SessionActive},
	SessionAwaitingSellExec: {SessionExecuting, SessionCompleted},
}

func (s SessionStatus) CanTransitionTo(to SessionStatus) bool {
	for _, next := range sessionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s SessionStatus) Terminal() bool {
	return len(sessionTransitions[s]) == 0
}

// ErrIllegalTransition reports a session status move the table does not allow.
type ErrIllegalTransition struct {
	From SessionStatus
	To   SessionStatus
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal session transition %s -> %s", e.From, e.To)
}

func CheckSessionTransition(from, to SessionStatus) error {
	if !from.CanTransitionTo(to) {
		return &ErrIllegalTransition{From: from, To: to}
	}
	return nil
}
