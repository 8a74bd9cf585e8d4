package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewCappedAccrual(t *testing.T) {
	due := time.Now().UTC().Add(24 * time.Hour)
	a := NewCappedAccrual(decimal.NewFromInt(200), decimal.NewFromInt(5), due)

	require.True(t, a.ROICapAmount.Equal(decimal.NewFromInt(1000)), "cap should be principal x multiplier")
	require.True(t, a.ROIPaidAmount.IsZero())
	require.True(t, a.IsActive)
	require.False(t, a.IsROICompleted)
	require.NotNil(t, a.NextAccrualAt)
	require.True(t, a.NextAccrualAt.Equal(due))
	require.Nil(t, a.CompletedAt)
}

func TestApplyAccrualAdvancesSchedule(t *testing.T) {
	now := time.Now().UTC()
	a := NewCappedAccrual(decimal.NewFromInt(200), decimal.NewFromInt(5), now)

	credited, completed := a.ApplyAccrual(decimal.NewFromInt(4), now, 24*time.Hour)

	require.True(t, credited.Equal(decimal.NewFromInt(4)))
	require.False(t, completed)
	require.True(t, a.ROIPaidAmount.Equal(decimal.NewFromInt(4)))
	require.True(t, a.IsActive)
	require.NotNil(t, a.NextAccrualAt)
	require.True(t, a.NextAccrualAt.Equal(now.Add(24*time.Hour)))
}

func TestApplyAccrualClampsOvershoot(t *testing.T) {
	now := time.Now().UTC()
	a := NewCappedAccrual(decimal.NewFromInt(200), decimal.NewFromInt(5), now)
	a.ROIPaidAmount = decimal.NewFromInt(750)

	credited, completed := a.ApplyAccrual(decimal.NewFromInt(300), now, 24*time.Hour)

	require.True(t, credited.Equal(decimal.NewFromInt(250)), "only the gap to the cap is credited, got %s", credited)
	require.True(t, completed)
	require.True(t, a.ROIPaidAmount.Equal(a.ROICapAmount))
	require.False(t, a.IsActive, "completion must deactivate the accrual")
	require.True(t, a.IsROICompleted)
	require.Nil(t, a.NextAccrualAt)
	require.NotNil(t, a.CompletedAt)
}

func TestApplyAccrualExactCapCompletes(t *testing.T) {
	now := time.Now().UTC()
	a := NewCappedAccrual(decimal.NewFromInt(100), decimal.NewFromInt(5), now)
	a.ROIPaidAmount = decimal.NewFromInt(498)

	credited, completed := a.ApplyAccrual(decimal.NewFromInt(2), now, 24*time.Hour)

	require.True(t, credited.Equal(decimal.NewFromInt(2)))
	require.True(t, completed)
	require.True(t, a.ROIPaidAmount.Equal(decimal.NewFromInt(500)))
	require.False(t, a.IsActive)
}

func TestAccrualFullLifecycle(t *testing.T) {
	now := time.Now().UTC()
	a := NewCappedAccrual(decimal.NewFromInt(200), decimal.NewFromInt(5), now)
	increment := decimal.NewFromInt(250)

	total := decimal.Zero
	var completed bool
	for i := 0; i < 4; i++ {
		require.False(t, completed, "must not complete before the cap is reached")
		var credited decimal.Decimal
		credited, completed = a.ApplyAccrual(increment, now, 24*time.Hour)
		total = total.Add(credited)
	}

	require.True(t, completed)
	require.True(t, total.Equal(decimal.NewFromInt(1000)), "lifetime payout must equal the cap, got %s", total)
	require.True(t, a.ROIPaidAmount.Equal(a.ROICapAmount))
	require.False(t, a.IsActive)

	// Further applications must never pay past the cap.
	credited, _ := a.ApplyAccrual(increment, now, 24*time.Hour)
	require.True(t, credited.IsZero())
	require.True(t, a.ROIPaidAmount.Equal(a.ROICapAmount))
}

func TestROIRemainingAndProgress(t *testing.T) {
	now := time.Now().UTC()
	a := NewCappedAccrual(decimal.NewFromInt(100), decimal.NewFromInt(5), now)
	a.ROIPaidAmount = decimal.NewFromInt(125)

	require.True(t, a.ROIRemaining().Equal(decimal.NewFromInt(375)))
	require.InDelta(t, 25.0, a.ROIProgressPercent(), 0.0001)

	empty := CappedAccrual{}
	require.Zero(t, empty.ROIProgressPercent())
}
