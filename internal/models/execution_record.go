package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PledgeExecutionRecord is one immutable ledger entry per (pledge, side)
// execution attempt. A buy_sell_cycle session produces up to two records per
// pledge. Rows are append-only; the repository exposes no update for them.
type PledgeExecutionRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchRef  string `gorm:"type:varchar(40);not null;index" json:"batch_ref"`
	PledgeID  uint64 `gorm:"not null;index" json:"pledge_id"`
	SessionID uint64 `gorm:"not null;index" json:"session_id"`
	UserID    string `gorm:"type:varchar(100);not null;index" json:"user_id"`

	Side PledgeSide `gorm:"type:varchar(4);not null;index" json:"side"`

	PledgedQty  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"pledged_qty"`
	ExecutedQty decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"executed_qty"`

	ExecutedPrice       decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"executed_price"`
	TotalExecutionValue decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0" json:"total_execution_value"`

	PlatformCommission decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0" json:"platform_commission"`
	CommissionRate     decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"commission_rate"`
	NetAmount          decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0" json:"net_amount"`

	Status       ExecutionStatus `gorm:"type:varchar(12);not null;index" json:"status"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`

	ExecutedAt     time.Time `gorm:"type:timestamptz;not null;index" json:"executed_at"`
	SettlementDate time.Time `gorm:"type:timestamptz;not null" json:"settlement_date"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (PledgeExecutionRecord) TableName() string {
	return "pledge_execution_records"
}
