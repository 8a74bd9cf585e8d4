package models

import (
	"github.com/shopspring/decimal"
)

// Referral is one directed edge of the referral graph: ReferrerID earns from
// ReferralID's deposits and ROI payouts at the given level (1..3).
// The (referrer_id, referral_id, level) triple is unique; a user never appears
// as its own ancestor at any level.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ReferrerID string `gorm:"uniqueIndex:uniq_referral_edge;index;type:uuid;not null" json:"referrer_id"`
	ReferralID string `gorm:"uniqueIndex:uniq_referral_edge;index;type:uuid;not null" json:"referral_id"`
	Level      int    `gorm:"uniqueIndex:uniq_referral_edge;not null" json:"level"`

	// Running total paid out along this edge.
	TotalEarned decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"total_earned"`

	Timestamps
}

func (Referral) TableName() string { return "referral_relationships" }

// ReferralEarning is an append-only record of one reward payment on a
// referral edge. Paid flips true when the amount is credited to balance;
// the processor credits immediately, so rows are created already paid.
type ReferralEarning struct {
	ID         string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ReferralID string `gorm:"index;type:uuid;not null" json:"referral_id"` // FK to referral_relationships

	Amount decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`
	Paid   bool            `gorm:"not null;default:true" json:"paid"`

	// Settlement reference: tx hash for on-chain sources, otherwise an
	// internal token like "internal_balance_roi".
	TxRef      string `gorm:"size:255" json:"tx_ref"`
	RewardType string `gorm:"size:20;index" json:"reward_type"` // deposit | roi

	Timestamps
}

func (ReferralEarning) TableName() string { return "referral_earnings" }
