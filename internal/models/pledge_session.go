package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PledgeSession is a stock-specific pooling unit: many user pledges are
// aggregated under one session and executed as a batch.
type PledgeSession struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	StockSymbol string `gorm:"type:varchar(30);not null;index" json:"stock_symbol"`
	StockName   string `gorm:"type:varchar(120);not null" json:"stock_name"`
	Description string `gorm:"type:text" json:"description"`

	SessionMode SessionMode   `gorm:"type:varchar(20);not null;default:'single_execution'" json:"session_mode"`
	Status      SessionStatus `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`

	StockPrice           decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"stock_price"`
	ConvenienceFeeType   FeeType         `gorm:"type:varchar(12);not null;default:'flat'" json:"convenience_fee_type"`
	ConvenienceFeeAmount decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"convenience_fee_amount"`

	// Aggregate stats over pledges in ready_for_execution or executed status.
	// Stale until StatsService recomputes them after a pledge mutation.
	TotalPledges     int64           `gorm:"not null;default:0" json:"total_pledges"`
	TotalPledgeValue decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0" json:"total_pledge_value"`
	BuyPledgesCount  int64           `gorm:"not null;default:0" json:"buy_pledges_count"`
	SellPledgesCount int64           `gorm:"not null;default:0" json:"sell_pledges_count"`
	BuyPledgesValue  decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0" json:"buy_pledges_value"`
	SellPledgesValue decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0" json:"sell_pledges_value"`

	CreatedBy          string  `gorm:"type:varchar(100);not null" json:"created_by"`
	CreatedByAdvisorID *string `gorm:"type:varchar(100);index" json:"created_by_advisor_id,omitempty"`

	ApprovedBy     string     `gorm:"type:varchar(100)" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `gorm:"type:timestamptz" json:"approved_at,omitempty"`
	RejectedReason string     `gorm:"type:text" json:"rejected_reason,omitempty"`

	LastExecutedAt   *time.Time `gorm:"type:timestamptz" json:"last_executed_at,omitempty"`
	NotificationSent bool       `gorm:"not null;default:false" json:"notification_sent"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (PledgeSession) TableName() string {
	return "pledge_sessions"
}
