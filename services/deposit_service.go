// services/deposit_service.go
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
	ErrDepositNotFound   = errors.New("deposit not found")
	ErrDepositNotPending = errors.New("deposit is not pending")
	ErrDuplicateTxHash   = errors.New("transaction hash already used")
)

// DepositService owns the deposit lifecycle: create (pending) and confirm
// (accrual starts, referral rewards fan out).
type DepositService struct {
	DB        *gorm.DB
	Validator *DepositValidationService
	Accrual   *AccrualService
	Rewards   *RewardProcessor
}

func NewDepositService(db *gorm.DB, validator *DepositValidationService, accrual *AccrualService, rewards *RewardProcessor) *DepositService {
	return &DepositService{DB: db, Validator: validator, Accrual: accrual, Rewards: rewards}
}

// CreateDeposit validates eligibility and the amount corridor, then records a
// pending deposit. Settlement (tx hash, confirmation) arrives later from the
// wallet-scanning collaborator.
func (s *DepositService) CreateDeposit(userID string, tier TierType, amount decimal.Decimal, txHash *string) (*models.Deposit, error) {
	if err := s.Validator.CanPurchase(userID, tier); err != nil {
		return nil, err
	}
	if err := s.Validator.ValidateAmount(tier, amount); err != nil {
		return nil, err
	}

	cfg := s.Validator.TierByType(tier)

	if txHash != nil {
		var count int64
		if err := s.DB.Model(&models.Deposit{}).Where("tx_hash = ?", *txHash).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrDuplicateTxHash
		}
	}

	deposit := models.Deposit{
		ID:        uuid.NewString(),
		UserID:    userID,
		TierType:  string(tier),
		Level:     cfg.Level,
		Amount:    amount,
		MinAmount: cfg.MinAmount,
		MaxAmount: cfg.MaxAmount,
		Status:    models.DepositStatusPending,
		TxHash:    txHash,
		CappedAccrual: models.CappedAccrual{
			ROICapMultiplier: cfg.ROICapMultiplier,
			IsActive:         false, // accrual starts at confirmation
		},
	}
	if err := s.DB.Create(&deposit).Error; err != nil {
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}

	log.Printf("[DEPOSIT] created pending %s deposit %s for user %s (%s)", tier, deposit.ID, userID, amount.String())
	return &deposit, nil
}

// ConfirmDeposit flips a pending deposit to confirmed, initializes its capped
// accrual and fans out deposit referral rewards — all one transaction, so the
// payouts are never observable without the confirmation.
func (s *DepositService) ConfirmDeposit(depositID string) (*models.Deposit, RewardResult, error) {
	var deposit models.Deposit
	var rewards RewardResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deposit, "id = ?", depositID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDepositNotFound
			}
			return err
		}

		now := time.Now().UTC()
		accrual := models.NewCappedAccrual(deposit.Amount, deposit.ROICapMultiplier, now.Add(s.Accrual.Config.Period))

		// Conditional transition guards against a concurrent double-confirm.
		res := tx.Model(&models.Deposit{}).
			Where("id = ? AND status = ?", depositID, models.DepositStatusPending).
			Updates(map[string]interface{}{
				"status":           models.DepositStatusConfirmed,
				"confirmed_at":     now,
				"roi_cap_amount":   accrual.ROICapAmount,
				"roi_paid_amount":  decimal.Zero,
				"is_active":        true,
				"is_roi_completed": false,
				"next_accrual_at":  accrual.NextAccrualAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDepositNotPending
		}

		deposit.Status = models.DepositStatusConfirmed
		deposit.ConfirmedAt = &now
		deposit.CappedAccrual = accrual

		ref := ""
		if deposit.TxHash != nil {
			ref = *deposit.TxHash
		}
		result, err := s.Rewards.ProcessRewards(tx, deposit.UserID, deposit.Amount, RewardTypeDeposit, ref)
		if err != nil {
			return err
		}
		rewards = result
		return nil
	})
	if err != nil {
		return nil, RewardResult{}, err
	}

	log.Printf("[DEPOSIT] confirmed deposit %s: cap %s, %d referral payouts",
		deposit.ID, deposit.ROICapAmount.String(), rewards.RewardsCount)
	return &deposit, rewards, nil
}

// GetUserDeposits lists a user's deposits, newest first.
func (s *DepositService) GetUserDeposits(userID string) ([]models.Deposit, error) {
	var deposits []models.Deposit
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&deposits).Error
	return deposits, err
}
