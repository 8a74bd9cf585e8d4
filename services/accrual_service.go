// services/accrual_service.go
package services

import (
	"errors"
	"log"
	"time"

	"invest-engine/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyInactive distinguishes "nothing to cancel" from a successful
// cancellation: completed or previously cancelled ledgers report it.
var ErrAlreadyInactive = errors.New("accrual is already inactive")

// AccrualConfig drives the ROI schedule.
type AccrualConfig struct {
	Period    time.Duration // one accrual cycle, 24h in production
	BatchSize int           // due rows claimed per transaction
}

var DefaultAccrualConfig = AccrualConfig{
	Period:    24 * time.Hour,
	BatchSize: 50,
}

// AccrualRunStats summarizes one scheduler pass.
type AccrualRunStats struct {
	DepositsAdvanced int
	BonusesAdvanced  int
	Completed        int
	TotalCredited    decimal.Decimal
}

// AccrualService advances capped accruals (deposits and bonus credits),
// credits owners, and re-enters the reward processor for the ROI case.
type AccrualService struct {
	DB        *gorm.DB
	Config    AccrualConfig
	Rewards   *RewardProcessor
	Validator *DepositValidationService // tier table lookup for daily rates
}

func NewAccrualService(db *gorm.DB, cfg AccrualConfig, rewards *RewardProcessor, validator *DepositValidationService) *AccrualService {
	if cfg.Period == 0 {
		cfg = DefaultAccrualConfig
	}
	return &AccrualService{DB: db, Config: cfg, Rewards: rewards, Validator: validator}
}

// dueScope narrows a query to rows eligible for accrual right now.
func dueScope(tx *gorm.DB, now time.Time) *gorm.DB {
	return tx.Where("is_active = ? AND is_roi_completed = ? AND next_accrual_at <= ?", true, false, now)
}

// lockedDueQuery row-locks due rows with SKIP LOCKED, which lets a fleet of
// workers partition the due set instead of queueing: a row claimed by one
// transaction is invisible to every concurrent selector until that transaction
// ends, which is what makes double-payment impossible.
func (s *AccrualService) lockedDueQuery(tx *gorm.DB, now time.Time) *gorm.DB {
	return dueScope(tx, now).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Order("next_accrual_at ASC").
		Limit(s.Config.BatchSize)
}

func (s *AccrualService) claimDueDeposits(tx *gorm.DB, now time.Time) ([]models.Deposit, error) {
	var deposits []models.Deposit
	err := s.lockedDueQuery(tx, now).
		Where("status = ?", models.DepositStatusConfirmed).
		Find(&deposits).Error
	return deposits, err
}

func (s *AccrualService) claimDueBonuses(tx *gorm.DB, now time.Time) ([]models.BonusCredit, error) {
	var bonuses []models.BonusCredit
	err := s.lockedDueQuery(tx, now).
		Find(&bonuses).Error
	return bonuses, err
}

// DailyRateFor returns the daily accrual fraction for a tier (2.0% -> 0.02).
// Bonus credits accrue at the level-1 tier rate, as admin grants always have.
func (s *AccrualService) DailyRateFor(tier TierType) decimal.Decimal {
	cfg := s.Validator.TierByType(tier)
	if cfg == nil {
		cfg = s.Validator.TierByType(TierLevel1)
	}
	return cfg.DailyROIPercent.Div(decimal.NewFromInt(100))
}

// ownerBlocked reports whether accruals for this owner must be skipped.
// A vanished owner is treated as blocked.
func (s *AccrualService) ownerBlocked(tx *gorm.DB, userID string) (bool, error) {
	var user models.PlatformUser
	if err := tx.Select("earnings_blocked").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, err
	}
	return user.EarningsBlocked, nil
}

// postponeAccrual pushes a skipped row's due time one period out without
// touching the cap, so the scheduler does not reclaim it in the same pass.
func (s *AccrualService) postponeAccrual(tx *gorm.DB, model interface{}, id string, now time.Time) error {
	return tx.Model(model).
		Where("id = ?", id).
		UpdateColumn("next_accrual_at", now.Add(s.Config.Period)).Error
}

// AdvanceDeposit applies one accrual cycle to a claimed deposit inside tx:
// clamps the increment at the cap, credits the owner's balance atomically,
// persists the accrual fields, and fans out ROI referral rewards. The caller
// must hold the row lock (claimDueDeposits) or otherwise own the row.
// A blocked owner skips the whole cycle: no cap consumption, no payout, no
// referral fan-out.
func (s *AccrualService) AdvanceDeposit(tx *gorm.DB, deposit *models.Deposit, now time.Time) (decimal.Decimal, bool, error) {
	blocked, err := s.ownerBlocked(tx, deposit.UserID)
	if err != nil {
		return decimal.Zero, false, err
	}
	if blocked {
		log.Printf("[ACCRUAL] ⚠️ deposit %s skipped: owner %s has earnings blocked", deposit.ID, deposit.UserID)
		return decimal.Zero, false, s.postponeAccrual(tx, &models.Deposit{}, deposit.ID, now)
	}

	increment := deposit.Amount.Mul(s.DailyRateFor(TierType(deposit.TierType)))
	credited, completed := deposit.ApplyAccrual(increment, now, s.Config.Period)

	if err := s.persistAccrual(tx, &models.Deposit{}, deposit.ID, &deposit.CappedAccrual); err != nil {
		return decimal.Zero, false, err
	}

	if err := s.creditOwner(tx, deposit.UserID, credited); err != nil {
		return decimal.Zero, false, err
	}

	if _, err := s.Rewards.ProcessRewards(tx, deposit.UserID, credited, RewardTypeROI, ""); err != nil {
		return decimal.Zero, false, err
	}

	return credited, completed, nil
}

// AdvanceBonus is AdvanceDeposit for a bonus credit.
func (s *AccrualService) AdvanceBonus(tx *gorm.DB, bonus *models.BonusCredit, now time.Time) (decimal.Decimal, bool, error) {
	blocked, err := s.ownerBlocked(tx, bonus.UserID)
	if err != nil {
		return decimal.Zero, false, err
	}
	if blocked {
		log.Printf("[ACCRUAL] ⚠️ bonus %s skipped: owner %s has earnings blocked", bonus.ID, bonus.UserID)
		return decimal.Zero, false, s.postponeAccrual(tx, &models.BonusCredit{}, bonus.ID, now)
	}

	increment := bonus.Amount.Mul(s.DailyRateFor(TierLevel1))
	credited, completed := bonus.ApplyAccrual(increment, now, s.Config.Period)

	if err := s.persistAccrual(tx, &models.BonusCredit{}, bonus.ID, &bonus.CappedAccrual); err != nil {
		return decimal.Zero, false, err
	}

	if err := s.creditOwner(tx, bonus.UserID, credited); err != nil {
		return decimal.Zero, false, err
	}

	if _, err := s.Rewards.ProcessRewards(tx, bonus.UserID, credited, RewardTypeROI, ""); err != nil {
		return decimal.Zero, false, err
	}

	return credited, completed, nil
}

// persistAccrual writes only the accrual columns of a claimed row.
func (s *AccrualService) persistAccrual(tx *gorm.DB, model interface{}, id string, a *models.CappedAccrual) error {
	return tx.Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"roi_paid_amount":  a.ROIPaidAmount,
			"is_active":        a.IsActive,
			"is_roi_completed": a.IsROICompleted,
			"next_accrual_at":  a.NextAccrualAt,
			"completed_at":     a.CompletedAt,
		}).Error
}

// creditOwner adds an ROI payment to the owner's balance with the same
// conditional-update discipline the reward processor uses.
func (s *AccrualService) creditOwner(tx *gorm.DB, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	res := tx.Model(&models.PlatformUser{}).
		Where("id = ? AND earnings_blocked = ?", userID, false).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"total_earned": gorm.Expr("total_earned + ?", amount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("[ACCRUAL] ⚠️ owner %s not credited (missing or earnings blocked)", userID)
	}
	return nil
}

// ProcessDueAccruals is the scheduler entry point: claim a batch of due rows,
// advance each, commit, repeat until the due set is drained. Safe to run from
// any number of concurrent workers.
func (s *AccrualService) ProcessDueAccruals(now time.Time) (AccrualRunStats, error) {
	stats := AccrualRunStats{TotalCredited: decimal.Zero}

	for {
		n := 0
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			deposits, err := s.claimDueDeposits(tx, now)
			if err != nil {
				return err
			}
			n = len(deposits)
			for i := range deposits {
				credited, completed, err := s.AdvanceDeposit(tx, &deposits[i], now)
				if err != nil {
					return err
				}
				stats.DepositsAdvanced++
				stats.TotalCredited = stats.TotalCredited.Add(credited)
				if completed {
					stats.Completed++
					log.Printf("[ACCRUAL] deposit %s reached its cap (%s)", deposits[i].ID, deposits[i].ROICapAmount.String())
				}
			}
			return nil
		})
		if err != nil {
			return stats, err
		}
		if n < s.Config.BatchSize {
			break
		}
	}

	for {
		n := 0
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			bonuses, err := s.claimDueBonuses(tx, now)
			if err != nil {
				return err
			}
			n = len(bonuses)
			for i := range bonuses {
				credited, completed, err := s.AdvanceBonus(tx, &bonuses[i], now)
				if err != nil {
					return err
				}
				stats.BonusesAdvanced++
				stats.TotalCredited = stats.TotalCredited.Add(credited)
				if completed {
					stats.Completed++
					log.Printf("[ACCRUAL] bonus %s reached its cap (%s)", bonuses[i].ID, bonuses[i].ROICapAmount.String())
				}
			}
			return nil
		})
		if err != nil {
			return stats, err
		}
		if n < s.Config.BatchSize {
			break
		}
	}

	return stats, nil
}

// CancelBonus deactivates an active bonus credit. Paid-out ROI is untouched;
// only the active flag flips, with an audit trail. Cancelling an inactive
// bonus (completed or already cancelled) fails with ErrAlreadyInactive.
func (s *AccrualService) CancelBonus(bonusID, cancelledBy, reason string) error {
	return s.cancelBonus(s.DB, bonusID, cancelledBy, reason)
}

// cancelBonus runs inside the caller's transaction so the deactivation can
// commit together with dependent balance adjustments.
func (s *AccrualService) cancelBonus(tx *gorm.DB, bonusID, cancelledBy, reason string) error {
	now := time.Now().UTC()
	res := tx.Model(&models.BonusCredit{}).
		Where("id = ? AND is_active = ?", bonusID, true).
		Updates(map[string]interface{}{
			"is_active":       false,
			"next_accrual_at": nil,
			"cancelled_at":    now,
			"cancelled_by":    cancelledBy,
			"cancel_reason":   reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var bonus models.BonusCredit
		if err := tx.First(&bonus, "id = ?", bonusID).Error; err != nil {
			return err
		}
		return ErrAlreadyInactive
	}
	log.Printf("[ACCRUAL] bonus %s cancelled by %s: %s", bonusID, cancelledBy, reason)
	return nil
}
