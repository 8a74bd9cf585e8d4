package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardNotification is an outbox row for the delivery collaborator. Written
// in the same transaction as the payout it announces; delivery is
// fire-and-forget and never feeds back into the ledger.
type RewardNotification struct {
	ID string `gorm:"primaryKey;type:uuid;not null" json:"id"`

	ReferrerExternalID int64           `gorm:"not null" json:"referrer_external_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`
	Level              int             `gorm:"not null" json:"level"`
	SourceUsername     string          `gorm:"size:255" json:"source_username"`
	SourceExternalID   int64           `gorm:"not null" json:"source_external_id"`
	RewardType         string          `gorm:"size:20;not null" json:"reward_type"`

	Delivered   bool       `gorm:"not null;default:false;index" json:"delivered"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	Timestamps
}

func (RewardNotification) TableName() string { return "reward_notifications" }
