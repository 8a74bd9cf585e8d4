// services/bonus_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"invest-engine/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrBonusNotFound     = errors.New("bonus credit not found")
	ErrNonPositiveBonus  = errors.New("bonus amount must be positive")
	ErrBonusUserNotFound = errors.New("bonus recipient not found")
)

// DefaultBonusCapMultiplier mirrors the deposit cap: 5x = 500%.
var DefaultBonusCapMultiplier = decimal.NewFromInt(5)

// BonusService manages admin-granted bonus credits, which accrue ROI like
// deposits through the same capped-accrual machinery.
type BonusService struct {
	DB      *gorm.DB
	Accrual *AccrualService
}

func NewBonusService(db *gorm.DB, accrual *AccrualService) *BonusService {
	return &BonusService{DB: db, Accrual: accrual}
}

// GrantBonus creates an active bonus credit with its cap computed once and
// its first accrual scheduled one period out, and bumps the recipient's
// bonus balance.
func (s *BonusService) GrantBonus(userID string, amount decimal.Decimal, reason, grantedBy string, capMultiplier *decimal.Decimal) (*models.BonusCredit, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNonPositiveBonus
	}

	multiplier := DefaultBonusCapMultiplier
	if capMultiplier != nil {
		multiplier = *capMultiplier
	}

	var bonus models.BonusCredit
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.PlatformUser
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBonusUserNotFound
			}
			return err
		}

		now := time.Now().UTC()
		bonus = models.BonusCredit{
			ID:            uuid.NewString(),
			UserID:        userID,
			GrantedBy:     grantedBy,
			Reason:        reason,
			Amount:        amount,
			CappedAccrual: models.NewCappedAccrual(amount, multiplier, now.Add(s.Accrual.Config.Period)),
		}
		if err := tx.Create(&bonus).Error; err != nil {
			return fmt.Errorf("failed to create bonus credit: %w", err)
		}

		return tx.Model(&models.PlatformUser{}).
			Where("id = ?", userID).
			UpdateColumn("bonus_balance", gorm.Expr("bonus_balance + ?", amount)).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[BONUS] granted %s to user %s by %s (cap %s)", amount.String(), userID, grantedBy, bonus.ROICapAmount.String())
	return &bonus, nil
}

// CancelBonus deactivates a bonus and claws the un-accrued principal back out
// of the recipient's bonus balance (never below zero; paid-out ROI stays).
// Deactivation and clawback commit in one transaction.
func (s *BonusService) CancelBonus(bonusID, cancelledBy, reason string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var bonus models.BonusCredit
		if err := tx.First(&bonus, "id = ?", bonusID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBonusNotFound
			}
			return err
		}

		if err := s.Accrual.cancelBonus(tx, bonusID, cancelledBy, reason); err != nil {
			return err
		}

		// bonus_balance = max(0, bonus_balance - amount), done in SQL so two
		// cancellations for the same user cannot interleave badly.
		return tx.Model(&models.PlatformUser{}).
			Where("id = ?", bonus.UserID).
			UpdateColumn("bonus_balance", gorm.Expr(
				"CASE WHEN bonus_balance > ? THEN bonus_balance - ? ELSE 0 END",
				bonus.Amount, bonus.Amount)).Error
	})
}

// BonusStats aggregates a user's bonus credits for the admin view.
type BonusStats struct {
	ActiveCount  int64           `json:"active_count"`
	TotalGranted decimal.Decimal `json:"total_granted"`
	TotalROIPaid decimal.Decimal `json:"total_roi_paid"`
}

func (s *BonusService) GetUserBonusStats(userID string) (BonusStats, error) {
	stats := BonusStats{TotalGranted: decimal.Zero, TotalROIPaid: decimal.Zero}

	err := s.DB.Model(&models.BonusCredit{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&stats.ActiveCount).Error
	if err != nil {
		return stats, err
	}

	row := struct {
		TotalGranted decimal.Decimal
		TotalROIPaid decimal.Decimal
	}{}
	err = s.DB.Model(&models.BonusCredit{}).
		Select("COALESCE(SUM(amount), 0) AS total_granted, COALESCE(SUM(roi_paid_amount), 0) AS total_roi_paid").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return stats, err
	}
	stats.TotalGranted = row.TotalGranted
	stats.TotalROIPaid = row.TotalROIPaid
	return stats, nil
}

// GetUserBonuses lists a user's bonus credits, newest first.
func (s *BonusService) GetUserBonuses(userID string) ([]models.BonusCredit, error) {
	var bonuses []models.BonusCredit
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&bonuses).Error
	return bonuses, err
}
