// services/testutil_test.go
package services

import (
	"testing"
	"time"

	"invest-engine/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory database and migrates the full schema. The
// pool is pinned to one connection so every query sees the same memory DB.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.PlatformUser{},
		&models.Referral{},
		&models.ReferralEarning{},
		&models.Deposit{},
		&models.BonusCredit{},
		&models.RewardNotification{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, externalID int64) *models.PlatformUser {
	t.Helper()
	user := &models.PlatformUser{
		ID:           uuid.NewString(),
		ExternalID:   externalID,
		Username:     username,
		Balance:      decimal.Zero,
		BonusBalance: decimal.Zero,
		TotalEarned:  decimal.Zero,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedConfirmedDeposit inserts a confirmed deposit with a freshly initialized
// accrual, bypassing the purchase flow.
func seedConfirmedDeposit(t *testing.T, db *gorm.DB, userID string, tier TierType, level int, amount decimal.Decimal) *models.Deposit {
	t.Helper()
	now := time.Now().UTC()
	dep := &models.Deposit{
		ID:            uuid.NewString(),
		UserID:        userID,
		TierType:      string(tier),
		Level:         level,
		Amount:        amount,
		MinAmount:     decimal.Zero,
		MaxAmount:     decimal.Zero,
		Status:        models.DepositStatusConfirmed,
		ConfirmedAt:   &now,
		CappedAccrual: models.NewCappedAccrual(amount, decimal.NewFromInt(5), now),
	}
	require.NoError(t, db.Create(dep).Error)
	return dep
}

func reloadUser(t *testing.T, db *gorm.DB, id string) *models.PlatformUser {
	t.Helper()
	var user models.PlatformUser
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return &user
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	want := decimal.RequireFromString(expected)
	require.True(t, actual.Equal(want), "expected %s, got %s", want, actual)
}
