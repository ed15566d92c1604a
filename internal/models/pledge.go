package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pledge is one user's commitment to buy or sell a quantity of the session's
// stock at a target price. Owned by the user; referenced by the session.
type Pledge struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uint64 `gorm:"not null;index" json:"session_id"`
	UserID    string `gorm:"type:varchar(100);not null;index" json:"user_id"`

	StockSymbol string     `gorm:"type:varchar(30);not null" json:"stock_symbol"`
	Side        PledgeSide `gorm:"type:varchar(4);not null" json:"side"`

	Qty decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"qty"`
	// PriceTarget nil means "execute at the session's stock price".
	PriceTarget *decimal.Decimal `gorm:"type:numeric(20,4)" json:"price_target,omitempty"`

	Status         PledgeStatus `gorm:"type:varchar(30);not null;default:'ready_for_execution';index" json:"status"`
	DematAccountID string       `gorm:"type:varchar(60);not null" json:"demat_account_id"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Pledge) TableName() string {
	return "pledges"
}
