// services/bonus_service_test.go
package services

import (
	"testing"

	"invest-engine/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBonusFixture(t *testing.T) (*gorm.DB, *BonusService) {
	t.Helper()
	db := newTestDB(t)
	validator := NewDepositValidationService(db, nil)
	rewards := NewRewardProcessor(db, DefaultRewardConfig)
	accrual := NewAccrualService(db, DefaultAccrualConfig, rewards, validator)
	return db, NewBonusService(db, accrual)
}

func TestGrantBonus(t *testing.T) {
	db, svc := newBonusFixture(t)
	user := createUser(t, db, "alice", 1)

	bonus, err := svc.GrantBonus(user.ID, decimal.NewFromInt(100), "welcome promo", "admin", nil)
	require.NoError(t, err)

	requireDecimal(t, "500", bonus.ROICapAmount)
	require.True(t, bonus.IsActive)
	require.NotNil(t, bonus.NextAccrualAt)
	require.Equal(t, "admin", bonus.GrantedBy)

	reloaded := reloadUser(t, db, user.ID)
	requireDecimal(t, "100", reloaded.BonusBalance)
	require.True(t, reloaded.Balance.IsZero(), "grants touch the bonus balance only")
}

func TestGrantBonusCustomMultiplier(t *testing.T) {
	db, svc := newBonusFixture(t)
	user := createUser(t, db, "alice", 1)

	multiplier := decimal.NewFromInt(2)
	bonus, err := svc.GrantBonus(user.ID, decimal.NewFromInt(100), "promo", "admin", &multiplier)
	require.NoError(t, err)
	requireDecimal(t, "200", bonus.ROICapAmount)
}

func TestGrantBonusValidation(t *testing.T) {
	db, svc := newBonusFixture(t)
	user := createUser(t, db, "alice", 1)

	_, err := svc.GrantBonus(user.ID, decimal.Zero, "promo", "admin", nil)
	require.ErrorIs(t, err, ErrNonPositiveBonus)

	_, err = svc.GrantBonus(uuid.NewString(), decimal.NewFromInt(10), "promo", "admin", nil)
	require.ErrorIs(t, err, ErrBonusUserNotFound)
}

func TestCancelBonusClawsBackPrincipal(t *testing.T) {
	db, svc := newBonusFixture(t)
	user := createUser(t, db, "alice", 1)

	bonus, err := svc.GrantBonus(user.ID, decimal.NewFromInt(100), "promo", "admin", nil)
	require.NoError(t, err)

	require.NoError(t, svc.CancelBonus(bonus.ID, "admin", "terms violation"))

	reloaded := reloadUser(t, db, user.ID)
	require.True(t, reloaded.BonusBalance.IsZero())

	var stored models.BonusCredit
	require.NoError(t, db.First(&stored, "id = ?", bonus.ID).Error)
	require.False(t, stored.IsActive)
	require.NotNil(t, stored.CancelReason)
	require.Equal(t, "terms violation", *stored.CancelReason)
}

func TestCancelBonusClampsAtZero(t *testing.T) {
	db, svc := newBonusFixture(t)
	user := createUser(t, db, "alice", 1)

	bonus, err := svc.GrantBonus(user.ID, decimal.NewFromInt(100), "promo", "admin", nil)
	require.NoError(t, err)

	// Part of the bonus balance was already spent elsewhere.
	require.NoError(t, db.Model(&models.PlatformUser{}).
		Where("id = ?", user.ID).
		Update("bonus_balance", decimal.NewFromInt(40)).Error)

	require.NoError(t, svc.CancelBonus(bonus.ID, "admin", "fraud"))

	reloaded := reloadUser(t, db, user.ID)
	require.True(t, reloaded.BonusBalance.IsZero(), "clawback never drives the balance negative, got %s", reloaded.BonusBalance)
}

func TestCancelBonusErrors(t *testing.T) {
	db, svc := newBonusFixture(t)
	user := createUser(t, db, "alice", 1)

	require.ErrorIs(t, svc.CancelBonus(uuid.NewString(), "admin", "ghost"), ErrBonusNotFound)

	bonus, err := svc.GrantBonus(user.ID, decimal.NewFromInt(100), "promo", "admin", nil)
	require.NoError(t, err)
	require.NoError(t, svc.CancelBonus(bonus.ID, "admin", "first"))
	require.ErrorIs(t, svc.CancelBonus(bonus.ID, "admin", "second"), ErrAlreadyInactive)
}

func TestCancelBonusFailureLeavesBalance(t *testing.T) {
	db, svc := newBonusFixture(t)
	user := createUser(t, db, "alice", 1)

	first, err := svc.GrantBonus(user.ID, decimal.NewFromInt(100), "promo", "admin", nil)
	require.NoError(t, err)
	_, err = svc.GrantBonus(user.ID, decimal.NewFromInt(50), "contest", "admin", nil)
	require.NoError(t, err)

	require.NoError(t, svc.CancelBonus(first.ID, "admin", "revoked"))
	requireDecimal(t, "50", reloadUser(t, db, user.ID).BonusBalance)

	// A cancel that fails must roll back whole: no second clawback.
	require.ErrorIs(t, svc.CancelBonus(first.ID, "admin", "again"), ErrAlreadyInactive)
	requireDecimal(t, "50", reloadUser(t, db, user.ID).BonusBalance)
}

func TestGetUserBonusStats(t *testing.T) {
	db, svc := newBonusFixture(t)
	user := createUser(t, db, "alice", 1)

	first, err := svc.GrantBonus(user.ID, decimal.NewFromInt(100), "promo", "admin", nil)
	require.NoError(t, err)
	_, err = svc.GrantBonus(user.ID, decimal.NewFromInt(50), "contest", "admin", nil)
	require.NoError(t, err)
	require.NoError(t, svc.CancelBonus(first.ID, "admin", "revoked"))

	stats, err := svc.GetUserBonusStats(user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.ActiveCount)
	requireDecimal(t, "150", stats.TotalGranted)
	require.True(t, stats.TotalROIPaid.IsZero())

	bonuses, err := svc.GetUserBonuses(user.ID)
	require.NoError(t, err)
	require.Len(t, bonuses, 2)
}
