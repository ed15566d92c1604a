package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradingVolume string

const (
	VolumeLow      TradingVolume = "low"
	VolumeMedium   TradingVolume = "medium"
	VolumeHigh     TradingVolume = "high"
	VolumeVeryHigh TradingVolume = "very_high"
)

// AdvisorPledgeAccessRequest is an advisor's application for permission to
// create pledge sessions. Mutated exactly once, by the admin decision;
// approved and rejected requests are terminal.
type AdvisorPledgeAccessRequest struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	AdvisorID string `gorm:"type:varchar(100);not null;index" json:"advisor_id"`

	AdvisorName      string `gorm:"type:varchar(120);not null" json:"advisor_name"`
	SEBIRegistration string `gorm:"column:sebi_registration;type:varchar(40);not null" json:"sebi_registration"`
	ExperienceYears  int    `gorm:"not null;default:0" json:"experience_years"`

	TradingVolumeEstimate   TradingVolume   `gorm:"type:varchar(12);not null;default:'low'" json:"trading_volume_estimate"`
	CommissionRateRequested decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"commission_rate_requested"`
	Reason                  string          `gorm:"type:text" json:"reason"`

	Status AccessStatus `gorm:"type:varchar(12);not null;default:'pending';index" json:"status"`

	ApprovedCommissionRate *decimal.Decimal `gorm:"type:numeric(10,4)" json:"approved_commission_rate,omitempty"`
	AdminNotes             string           `gorm:"type:text" json:"admin_notes,omitempty"`
	RejectionReason        string           `gorm:"type:text" json:"rejection_reason,omitempty"`

	ReviewedBy string     `gorm:"type:varchar(100)" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `gorm:"type:timestamptz" json:"reviewed_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (AdvisorPledgeAccessRequest) TableName() string {
	return "advisor_pledge_access_requests"
}
