package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions written by the execution engine and lifecycle controller.
const (
	ActionBuyExecutionCompleted  = "buy_execution_completed"
	ActionBuyExecutionFailed     = "buy_execution_failed"
	ActionSellExecutionCompleted = "sell_execution_completed"
	ActionSellExecutionFailed    = "sell_execution_failed"
	ActionSellExecutionSkipped   = "sell_execution_skipped"
	ActionSessionSubmitted       = "session_submitted"
	ActionSessionApproved        = "session_approved"
	ActionSessionRejected        = "session_rejected"
	ActionSessionActivated       = "session_activated"
	ActionSessionClosed          = "session_closed"
	ActionSessionCancelled       = "session_cancelled"
	ActionSessionExecutionStart  = "session_execution_started"
	ActionSessionExecutionRevert = "session_execution_reverted"
	ActionAccessApproved         = "access_request_approved"
	ActionAccessRejected         = "access_request_rejected"
)

// PledgeAuditLog is the compliance trail: one append-only entry per meaningful
// state transition or execution outcome. Never updated, never deleted.
type PledgeAuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	ActorID   string `gorm:"type:varchar(100);not null;index" json:"actor_id"`
	ActorRole string `gorm:"type:varchar(30);not null" json:"actor_role"`
	Action    string `gorm:"type:varchar(60);not null;index" json:"action"`

	TargetType      string  `gorm:"type:varchar(40);not null" json:"target_type"`
	TargetPledgeID  *uint64 `gorm:"index" json:"target_pledge_id,omitempty"`
	TargetSessionID *uint64 `gorm:"index" json:"target_session_id,omitempty"`

	PayloadJSON datatypes.JSON `gorm:"type:jsonb" json:"payload_json,omitempty"`
	Success     bool           `gorm:"not null;default:true;index" json:"success"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (PledgeAuditLog) TableName() string {
	return "pledge_audit_logs"
}
