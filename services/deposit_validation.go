// services/deposit_validation.go
package services

import (
	"errors"
	"fmt"
	"log"

	"invest-engine/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TierType identifies one deposit tier. Tiers unlock strictly in order:
// test -> level_1 -> level_2 -> level_3 -> level_4 -> level_5.
type TierType string

const (
	TierTest   TierType = "test"
	TierLevel1 TierType = "level_1"
	TierLevel2 TierType = "level_2"
	TierLevel3 TierType = "level_3"
	TierLevel4 TierType = "level_4"
	TierLevel5 TierType = "level_5"
)

// TierConfig holds the purchase corridor and accrual parameters of one tier.
type TierConfig struct {
	Type             TierType
	Level            int // 0 for test, 1-5 for the numbered tiers
	MinAmount        decimal.Decimal
	MaxAmount        decimal.Decimal
	DisplayName      string
	DailyROIPercent  decimal.Decimal // percent of principal accrued per period
	ROICapMultiplier decimal.Decimal // 5.00 = 500% cap
	Enabled          bool
	PartnersRequired int // level-1 partners with a confirmed deposit; 0 = check off
}

// DefaultTierTable is the ordered tier sequence. Partner requirements are
// carried but zeroed: the check exists and can be re-enabled per tier without
// code changes.
var DefaultTierTable = []TierConfig{
	{Type: TierTest, Level: 0, MinAmount: decimal.NewFromInt(30), MaxAmount: decimal.NewFromInt(100), DisplayName: "Test tier", DailyROIPercent: decimal.NewFromFloat(2.0), ROICapMultiplier: decimal.NewFromInt(5), Enabled: true},
	{Type: TierLevel1, Level: 1, MinAmount: decimal.NewFromInt(100), MaxAmount: decimal.NewFromInt(500), DisplayName: "Tier 1", DailyROIPercent: decimal.NewFromFloat(2.0), ROICapMultiplier: decimal.NewFromInt(5), Enabled: true},
	{Type: TierLevel2, Level: 2, MinAmount: decimal.NewFromInt(700), MaxAmount: decimal.NewFromInt(1200), DisplayName: "Tier 2", DailyROIPercent: decimal.NewFromFloat(2.0), ROICapMultiplier: decimal.NewFromInt(5), Enabled: true},
	{Type: TierLevel3, Level: 3, MinAmount: decimal.NewFromInt(1400), MaxAmount: decimal.NewFromInt(2200), DisplayName: "Tier 3", DailyROIPercent: decimal.NewFromFloat(2.0), ROICapMultiplier: decimal.NewFromInt(5), Enabled: true},
	{Type: TierLevel4, Level: 4, MinAmount: decimal.NewFromInt(2500), MaxAmount: decimal.NewFromInt(4000), DisplayName: "Tier 4", DailyROIPercent: decimal.NewFromFloat(2.0), ROICapMultiplier: decimal.NewFromInt(5), Enabled: true},
	{Type: TierLevel5, Level: 5, MinAmount: decimal.NewFromInt(4000), MaxAmount: decimal.NewFromInt(7000), DisplayName: "Tier 5", DailyROIPercent: decimal.NewFromFloat(2.0), ROICapMultiplier: decimal.NewFromInt(5), Enabled: true},
}

// Eligibility error taxonomy. Callers match with errors.Is; the wrapped
// message is safe to show to the end user.
var (
	ErrUnknownTier           = errors.New("unknown deposit tier")
	ErrTierDisabled          = errors.New("deposit tier is disabled")
	ErrDuplicateTier         = errors.New("deposit tier already purchased")
	ErrOutOfOrder            = errors.New("previous deposit tiers missing")
	ErrInsufficientPartners  = errors.New("not enough active partners")
	ErrAmountOutsideCorridor = errors.New("amount outside tier corridor")
)

// TierAvailability is the read-only projection for tier selection screens.
type TierAvailability struct {
	Tier        TierType `json:"tier"`
	DisplayName string   `json:"display_name"`
	Status      string   `json:"status"` // active | available | unavailable
	Reason      string   `json:"reason,omitempty"`
}

type DepositValidationService struct {
	DB    *gorm.DB
	Tiers []TierConfig
}

func NewDepositValidationService(db *gorm.DB, tiers []TierConfig) *DepositValidationService {
	if tiers == nil {
		tiers = DefaultTierTable
	}
	return &DepositValidationService{DB: db, Tiers: tiers}
}

// TierByType returns the config for a tier, or nil when unknown.
func (s *DepositValidationService) TierByType(tier TierType) *TierConfig {
	for i := range s.Tiers {
		if s.Tiers[i].Type == tier {
			return &s.Tiers[i]
		}
	}
	return nil
}

// ownedLevels returns the set of tier levels the user holds with a confirmed
// deposit.
func (s *DepositValidationService) ownedLevels(userID string) (map[int]bool, error) {
	var levels []int
	err := s.DB.Model(&models.Deposit{}).
		Where("user_id = ? AND status = ?", userID, models.DepositStatusConfirmed).
		Distinct().
		Pluck("level", &levels).Error
	if err != nil {
		return nil, err
	}
	owned := make(map[int]bool, len(levels))
	for _, l := range levels {
		owned[l] = true
	}
	return owned, nil
}

// CanPurchase checks tier purchase eligibility. Checks run in order and
// short-circuit: enabled, no duplicate, strict sequence, partner count.
// A nil return means the purchase is allowed.
func (s *DepositValidationService) CanPurchase(userID string, tier TierType) error {
	cfg := s.TierByType(tier)
	if cfg == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}

	if !cfg.Enabled {
		return fmt.Errorf("%w: %s", ErrTierDisabled, cfg.DisplayName)
	}

	owned, err := s.ownedLevels(userID)
	if err != nil {
		return err
	}

	if owned[cfg.Level] {
		return fmt.Errorf("%w: %s can only be bought once", ErrDuplicateTier, cfg.DisplayName)
	}

	for _, prev := range s.Tiers {
		if prev.Level >= cfg.Level {
			break
		}
		if !owned[prev.Level] {
			return fmt.Errorf("%w: buy %s first", ErrOutOfOrder, prev.DisplayName)
		}
	}

	if cfg.PartnersRequired > 0 {
		active, err := s.countActivePartners(userID)
		if err != nil {
			return err
		}
		if active < cfg.PartnersRequired {
			return fmt.Errorf("%w: %s needs %d level-1 partners with a confirmed deposit, you have %d",
				ErrInsufficientPartners, cfg.DisplayName, cfg.PartnersRequired, active)
		}
	}

	return nil
}

// ValidateAmount checks the purchase amount against the tier corridor.
func (s *DepositValidationService) ValidateAmount(tier TierType, amount decimal.Decimal) error {
	cfg := s.TierByType(tier)
	if cfg == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	if amount.LessThan(cfg.MinAmount) || amount.GreaterThan(cfg.MaxAmount) {
		return fmt.Errorf("%w: %s accepts %s-%s", ErrAmountOutsideCorridor,
			cfg.DisplayName, cfg.MinAmount.String(), cfg.MaxAmount.String())
	}
	return nil
}

// AvailableTiers projects every tier to active/available/unavailable for the
// purchase menu. Derived from the same checks as CanPurchase.
func (s *DepositValidationService) AvailableTiers(userID string) ([]TierAvailability, error) {
	owned, err := s.ownedLevels(userID)
	if err != nil {
		return nil, err
	}

	out := make([]TierAvailability, 0, len(s.Tiers))
	for _, cfg := range s.Tiers {
		entry := TierAvailability{Tier: cfg.Type, DisplayName: cfg.DisplayName}
		if owned[cfg.Level] {
			entry.Status = "active"
			out = append(out, entry)
			continue
		}
		if err := s.CanPurchase(userID, cfg.Type); err != nil {
			if isInternalError(err) {
				return nil, err
			}
			entry.Status = "unavailable"
			entry.Reason = err.Error()
		} else {
			entry.Status = "available"
		}
		out = append(out, entry)
	}
	return out, nil
}

// countActivePartners counts direct (level-1) referrals that hold at least one
// confirmed deposit.
func (s *DepositValidationService) countActivePartners(userID string) (int, error) {
	var count int64
	err := s.DB.Model(&models.Referral{}).
		Where("referrer_id = ? AND level = 1", userID).
		Where("EXISTS (SELECT 1 FROM deposits d WHERE d.user_id = referral_relationships.referral_id AND d.status = ?)",
			models.DepositStatusConfirmed).
		Count(&count).Error
	if err != nil {
		log.Printf("[VALIDATION] partner count failed for user %s: %v", userID, err)
		return 0, err
	}
	return int(count), nil
}

// isInternalError separates eligibility outcomes from real failures.
func isInternalError(err error) bool {
	for _, known := range []error{
		ErrUnknownTier, ErrTierDisabled, ErrDuplicateTier,
		ErrOutOfOrder, ErrInsufficientPartners, ErrAmountOutsideCorridor,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
