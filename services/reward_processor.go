// services/reward_processor.go
package services

import (
	"errors"
	"fmt"
	"log"

	"invest-engine/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RewardType tags the event that triggered a referral fan-out.
type RewardType string

const (
	RewardTypeDeposit RewardType = "deposit"
	RewardTypeROI     RewardType = "roi"
)

// RewardConfig is the injected rate table. Rates are keyed by referral level;
// a missing or zero rate makes that level a no-op.
type RewardConfig struct {
	Depth int
	Rates map[int]decimal.Decimal
}

var DefaultRewardConfig = RewardConfig{
	Depth: ReferralDepth,
	Rates: map[int]decimal.Decimal{
		1: decimal.NewFromFloat(0.05),
		2: decimal.NewFromFloat(0.05),
		3: decimal.NewFromFloat(0.05),
	},
}

// RewardNotice is one queued notification for the delivery collaborator.
type RewardNotice struct {
	ReferrerExternalID int64           `json:"referrer_external_id"`
	Amount             decimal.Decimal `json:"amount"`
	Level              int             `json:"level"`
	SourceUsername     string          `json:"source_username"`
	SourceExternalID   int64           `json:"source_external_id"`
	RewardType         RewardType      `json:"reward_type"`
}

// RewardResult aggregates one ProcessRewards call.
type RewardResult struct {
	TotalDistributed decimal.Decimal `json:"total_distributed"`
	RewardsCount     int             `json:"rewards_count"`
	Notifications    []RewardNotice  `json:"notifications"`
}

// RewardProcessor fans a percentage of a triggering event out to the acting
// user's referral chain. One processor handles both deposit and ROI events;
// the two differ only in the reward type tag on the earning records.
type RewardProcessor struct {
	DB     *gorm.DB
	Config RewardConfig
}

func NewRewardProcessor(db *gorm.DB, cfg RewardConfig) *RewardProcessor {
	if cfg.Depth == 0 {
		cfg = DefaultRewardConfig
	}
	return &RewardProcessor{DB: db, Config: cfg}
}

// ProcessRewards credits each ancestor of userID with rate(level) * amount.
// It runs inside the caller's transaction so the payouts commit with the
// triggering event. Per-level failures (a vanished referrer) degrade that
// level to a no-op and never abort the remaining levels; rewards are purely
// additive, so there is no compensation path.
func (p *RewardProcessor) ProcessRewards(tx *gorm.DB, userID string, amount decimal.Decimal, rewardType RewardType, sourceRef string) (RewardResult, error) {
	result := RewardResult{TotalDistributed: decimal.Zero}

	var relationships []models.Referral
	err := tx.Where("referral_id = ? AND level <= ?", userID, p.Config.Depth).
		Order("level ASC").
		Find(&relationships).Error
	if err != nil {
		return result, err
	}

	// Having no referrer is normal, not an error.
	if len(relationships) == 0 {
		return result, nil
	}

	var source models.PlatformUser
	sourceUsername := ""
	var sourceExternalID int64
	if err := tx.First(&source, "id = ?", userID).Error; err == nil {
		sourceUsername = source.Username
		sourceExternalID = source.ExternalID
	}

	if sourceRef == "" {
		sourceRef = fmt.Sprintf("internal_balance_%s", rewardType)
	}

	for _, rel := range relationships {
		rate, ok := p.Config.Rates[rel.Level]
		if !ok || rate.IsZero() {
			continue
		}
		reward := amount.Mul(rate)
		if reward.LessThanOrEqual(decimal.Zero) {
			continue
		}

		var referrer models.PlatformUser
		if err := tx.First(&referrer, "id = ?", rel.ReferrerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[REWARDS] ⚠️ referrer %s missing for level %d, skipping", rel.ReferrerID, rel.Level)
				continue
			}
			return result, err
		}

		// Single conditional update keyed by id: removes the read-modify-write
		// race between concurrent fan-outs targeting the same sponsor. Zero
		// rows affected means the row vanished underneath us; skip the level.
		res := tx.Model(&models.PlatformUser{}).
			Where("id = ?", rel.ReferrerID).
			Updates(map[string]interface{}{
				"balance":      gorm.Expr("balance + ?", reward),
				"total_earned": gorm.Expr("total_earned + ?", reward),
			})
		if res.Error != nil {
			return result, res.Error
		}
		if res.RowsAffected == 0 {
			log.Printf("[REWARDS] ⚠️ balance update hit zero rows for referrer %s (level %d), skipping", rel.ReferrerID, rel.Level)
			continue
		}

		earning := models.ReferralEarning{
			ID:         uuid.NewString(),
			ReferralID: rel.ID,
			Amount:     reward,
			Paid:       true, // credited straight to internal balance
			TxRef:      sourceRef,
			RewardType: string(rewardType),
		}
		if err := tx.Create(&earning).Error; err != nil {
			return result, err
		}

		if err := tx.Model(&models.Referral{}).
			Where("id = ?", rel.ID).
			UpdateColumn("total_earned", gorm.Expr("total_earned + ?", reward)).Error; err != nil {
			return result, err
		}

		notice := RewardNotice{
			ReferrerExternalID: referrer.ExternalID,
			Amount:             reward,
			Level:              rel.Level,
			SourceUsername:     sourceUsername,
			SourceExternalID:   sourceExternalID,
			RewardType:         rewardType,
		}
		result.Notifications = append(result.Notifications, notice)

		// Outbox row for the notifier worker, same transaction as the credit.
		outbox := models.RewardNotification{
			ID:                 uuid.NewString(),
			ReferrerExternalID: referrer.ExternalID,
			Amount:             reward,
			Level:              rel.Level,
			SourceUsername:     sourceUsername,
			SourceExternalID:   sourceExternalID,
			RewardType:         string(rewardType),
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return result, err
		}

		result.TotalDistributed = result.TotalDistributed.Add(reward)
		result.RewardsCount++
	}

	log.Printf("[REWARDS] processed %s rewards for user %s: %d payouts, %s total",
		rewardType, userID, result.RewardsCount, result.TotalDistributed.String())
	return result, nil
}
