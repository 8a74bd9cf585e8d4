package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusCredit is an admin-granted virtual deposit. It earns ROI exactly like
// a Deposit (same embedded CappedAccrual) but carries a grant/cancel audit
// trail instead of blockchain data.
type BonusCredit struct {
	ID     string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID string `gorm:"index;type:uuid;not null" json:"user_id"`

	// Operator who granted the bonus (external admin identity).
	GrantedBy string `gorm:"size:64;not null" json:"granted_by"`
	Reason    string `gorm:"type:text;not null" json:"reason"`

	Amount decimal.Decimal `gorm:"type:decimal(18,8);not null" json:"amount"`

	CappedAccrual `gorm:"embedded"`

	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy  *string    `gorm:"size:64" json:"cancelled_by,omitempty"`
	CancelReason *string    `gorm:"type:text" json:"cancel_reason,omitempty"`

	Timestamps
}

func (BonusCredit) TableName() string { return "bonus_credits" }
