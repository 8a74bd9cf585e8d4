package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformUser is the investor account. Balance and TotalEarned are mutated
// only through atomic conditional updates (see services.RewardProcessor and
// services.AccrualService), never read-modify-write in application code.
type PlatformUser struct {
	ID         string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalID int64  `gorm:"uniqueIndex;not null" json:"external_id"` // chat-platform user id
	Username   string `gorm:"index" json:"username"`

	Balance      decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"balance"`
	BonusBalance decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"bonus_balance"`
	TotalEarned  decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"total_earned"`

	// Self-referential referrer link. Nullable: root users have no sponsor.
	ReferrerID   *string `gorm:"index;type:uuid" json:"referrer_id,omitempty"`
	ReferralCode *string `gorm:"uniqueIndex;size:32" json:"referral_code,omitempty"`

	EarningsBlocked bool `gorm:"not null;default:false" json:"earnings_blocked"`

	LastSeen *time.Time `json:"last_seen,omitempty"`

	Timestamps
}

func (PlatformUser) TableName() string { return "users" }
