package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CappedAccrual is the shared principal/cap/paid bookkeeping embedded by both
// Deposit and BonusCredit. Invariants: 0 <= ROIPaidAmount <= ROICapAmount,
// and IsROICompleted implies !IsActive.
// Column names are pinned explicitly: the services address these columns in
// conditional updates and aggregates, and the derived name for ROIPaidAmount
// would not match.
type CappedAccrual struct {
	ROICapMultiplier decimal.Decimal `gorm:"column:roi_cap_multiplier;type:decimal(5,2);not null;default:5.00" json:"roi_cap_multiplier"`
	ROICapAmount     decimal.Decimal `gorm:"column:roi_cap_amount;type:decimal(18,8);not null;default:0" json:"roi_cap_amount"`
	ROIPaidAmount    decimal.Decimal `gorm:"column:roi_paid_amount;type:decimal(18,8);not null;default:0" json:"roi_paid_amount"`

	// No column default on IsActive: a pending deposit is created inactive,
	// and a bool default would swallow that zero value on insert.
	IsActive       bool `gorm:"column:is_active;not null;index" json:"is_active"`
	IsROICompleted bool `gorm:"column:is_roi_completed;not null;default:false" json:"is_roi_completed"`

	NextAccrualAt *time.Time `gorm:"column:next_accrual_at;index" json:"next_accrual_at,omitempty"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

// NewCappedAccrual computes the cap once at creation time.
func NewCappedAccrual(principal, capMultiplier decimal.Decimal, firstDue time.Time) CappedAccrual {
	due := firstDue
	return CappedAccrual{
		ROICapMultiplier: capMultiplier,
		ROICapAmount:     principal.Mul(capMultiplier),
		ROIPaidAmount:    decimal.Zero,
		IsActive:         true,
		NextAccrualAt:    &due,
	}
}

// ApplyAccrual adds increment to the paid amount, clamped at the cap. When the
// cap is reached the accrual completes and deactivates; otherwise the next due
// time advances by one period. Returns the amount actually credited (the
// increment, trimmed so the cap is never overrun) and whether this call
// completed the cap. Callers must hold the row lock for the enclosing
// transaction.
func (a *CappedAccrual) ApplyAccrual(increment decimal.Decimal, now time.Time, period time.Duration) (decimal.Decimal, bool) {
	credited := increment
	newPaid := a.ROIPaidAmount.Add(increment)
	if newPaid.GreaterThanOrEqual(a.ROICapAmount) {
		credited = a.ROICapAmount.Sub(a.ROIPaidAmount)
		a.ROIPaidAmount = a.ROICapAmount
		a.IsROICompleted = true
		a.IsActive = false
		a.NextAccrualAt = nil
		completed := now
		a.CompletedAt = &completed
		return credited, true
	}

	a.ROIPaidAmount = newPaid
	next := now.Add(period)
	a.NextAccrualAt = &next
	return credited, false
}

// ROIRemaining returns how much ROI is still payable before the cap.
func (a *CappedAccrual) ROIRemaining() decimal.Decimal {
	return a.ROICapAmount.Sub(a.ROIPaidAmount)
}

// ROIProgressPercent returns paid/cap as a percentage for display.
func (a *CappedAccrual) ROIProgressPercent() float64 {
	if a.ROICapAmount.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	pct, _ := a.ROIPaidAmount.Div(a.ROICapAmount).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
