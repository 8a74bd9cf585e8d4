package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositStatus is the lifecycle state of a deposit.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusFailed    DepositStatus = "failed"
)

// Deposit is a user's buy-in at one tier. Once confirmed it accrues ROI daily
// through the embedded CappedAccrual until the cap is reached.
type Deposit struct {
	ID     string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID string `gorm:"index;type:uuid;not null" json:"user_id"`

	// Tier identity: TierType is the ordered name (test, level_1..level_5),
	// Level the numeric form (0..5) used for sequence checks.
	TierType string `gorm:"size:20;not null;index" json:"tier_type"`
	Level    int    `gorm:"not null;index" json:"level"`

	Amount    decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`
	MinAmount decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"min_amount"`
	MaxAmount decimal.Decimal `gorm:"type:decimal(18,8);not null;default:0" json:"max_amount"`

	Status DepositStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`

	// Blockchain settlement data, filled by the (external) wallet scanner.
	TxHash        *string `gorm:"size:255;uniqueIndex" json:"tx_hash,omitempty"`
	WalletAddress *string `gorm:"size:255" json:"wallet_address,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	CappedAccrual `gorm:"embedded"`

	Timestamps
}

func (Deposit) TableName() string { return "deposits" }
