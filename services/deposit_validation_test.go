// services/deposit_validation_test.go
package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCanPurchaseUnknownTier(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositValidationService(db, nil)
	user := createUser(t, db, "alice", 1)

	err := svc.CanPurchase(user.ID, TierType("platinum"))
	require.ErrorIs(t, err, ErrUnknownTier)
}

func TestCanPurchaseDisabledTier(t *testing.T) {
	db := newTestDB(t)
	tiers := []TierConfig{
		{Type: TierTest, Level: 0, MinAmount: decimal.NewFromInt(30), MaxAmount: decimal.NewFromInt(100), DisplayName: "Test tier", DailyROIPercent: decimal.NewFromFloat(2.0), ROICapMultiplier: decimal.NewFromInt(5), Enabled: false},
	}
	svc := NewDepositValidationService(db, tiers)
	user := createUser(t, db, "alice", 1)

	err := svc.CanPurchase(user.ID, TierTest)
	require.ErrorIs(t, err, ErrTierDisabled)
}

func TestCanPurchaseEnforcesSequence(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositValidationService(db, nil)
	user := createUser(t, db, "alice", 1)

	// Fresh account: only the entry tier is reachable.
	require.NoError(t, svc.CanPurchase(user.ID, TierTest))
	require.ErrorIs(t, svc.CanPurchase(user.ID, TierLevel1), ErrOutOfOrder)

	seedConfirmedDeposit(t, db, user.ID, TierTest, 0, decimal.NewFromInt(50))
	seedConfirmedDeposit(t, db, user.ID, TierLevel1, 1, decimal.NewFromInt(200))

	require.NoError(t, svc.CanPurchase(user.ID, TierLevel2))
	require.ErrorIs(t, svc.CanPurchase(user.ID, TierLevel3), ErrOutOfOrder)
	require.ErrorIs(t, svc.CanPurchase(user.ID, TierLevel1), ErrDuplicateTier)
	require.ErrorIs(t, svc.CanPurchase(user.ID, TierTest), ErrDuplicateTier)
}

func TestPendingDepositsDoNotCount(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositValidationService(db, nil)
	rewards := NewRewardProcessor(db, DefaultRewardConfig)
	accrual := NewAccrualService(db, DefaultAccrualConfig, rewards, svc)
	deposits := NewDepositService(db, svc, accrual, rewards)
	user := createUser(t, db, "alice", 1)

	_, err := deposits.CreateDeposit(user.ID, TierTest, decimal.NewFromInt(50), nil)
	require.NoError(t, err)

	// The pending test deposit neither blocks a re-buy nor unlocks tier 1.
	require.NoError(t, svc.CanPurchase(user.ID, TierTest))
	require.ErrorIs(t, svc.CanPurchase(user.ID, TierLevel1), ErrOutOfOrder)
}

func TestValidateAmountCorridor(t *testing.T) {
	svc := NewDepositValidationService(newTestDB(t), nil)

	require.ErrorIs(t, svc.ValidateAmount(TierTest, decimal.NewFromInt(29)), ErrAmountOutsideCorridor)
	require.NoError(t, svc.ValidateAmount(TierTest, decimal.NewFromInt(30)))
	require.NoError(t, svc.ValidateAmount(TierTest, decimal.NewFromInt(100)))
	require.ErrorIs(t, svc.ValidateAmount(TierTest, decimal.NewFromInt(101)), ErrAmountOutsideCorridor)
	require.ErrorIs(t, svc.ValidateAmount(TierType("platinum"), decimal.NewFromInt(50)), ErrUnknownTier)
}

func TestCanPurchaseRequiresPartners(t *testing.T) {
	db := newTestDB(t)
	tiers := make([]TierConfig, len(DefaultTierTable))
	copy(tiers, DefaultTierTable)
	tiers[1].PartnersRequired = 2 // level_1 demands two active partners
	svc := NewDepositValidationService(db, tiers)
	referrals := NewReferralService(db)

	alice := createUser(t, db, "alice", 1)
	seedConfirmedDeposit(t, db, alice.ID, TierTest, 0, decimal.NewFromInt(50))

	bob := createUser(t, db, "bob", 2)
	require.NoError(t, referrals.RegisterReferral(bob.ID, alice.ID))
	seedConfirmedDeposit(t, db, bob.ID, TierTest, 0, decimal.NewFromInt(50))

	// One partner with a confirmed deposit is not enough.
	require.ErrorIs(t, svc.CanPurchase(alice.ID, TierLevel1), ErrInsufficientPartners)

	// A second referral without any deposit still does not count.
	carol := createUser(t, db, "carol", 3)
	require.NoError(t, referrals.RegisterReferral(carol.ID, alice.ID))
	require.ErrorIs(t, svc.CanPurchase(alice.ID, TierLevel1), ErrInsufficientPartners)

	seedConfirmedDeposit(t, db, carol.ID, TierTest, 0, decimal.NewFromInt(50))
	require.NoError(t, svc.CanPurchase(alice.ID, TierLevel1))
}

func TestAvailableTiersProjection(t *testing.T) {
	db := newTestDB(t)
	svc := NewDepositValidationService(db, nil)
	user := createUser(t, db, "alice", 1)
	seedConfirmedDeposit(t, db, user.ID, TierTest, 0, decimal.NewFromInt(50))

	tiers, err := svc.AvailableTiers(user.ID)
	require.NoError(t, err)
	require.Len(t, tiers, len(DefaultTierTable))

	byTier := make(map[TierType]TierAvailability, len(tiers))
	for _, entry := range tiers {
		byTier[entry.Tier] = entry
	}

	require.Equal(t, "active", byTier[TierTest].Status)
	require.Equal(t, "available", byTier[TierLevel1].Status)
	require.Equal(t, "unavailable", byTier[TierLevel2].Status)
	require.NotEmpty(t, byTier[TierLevel2].Reason)
	require.Equal(t, "unavailable", byTier[TierLevel5].Status)
}
