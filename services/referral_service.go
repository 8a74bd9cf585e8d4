// services/referral_service.go
package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"invest-engine/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReferralDepth is how many ancestor levels earn from a user's activity.
const ReferralDepth = 3

// Registration error taxonomy. All are terminal: callers must not retry the
// same call unchanged.
var (
	ErrSelfReferral     = errors.New("cannot refer yourself")
	ErrReferrerNotFound = errors.New("referrer not found")
	ErrReferralCycle    = errors.New("referral chain would form a cycle")
)

type ReferralService struct {
	DB    *gorm.DB
	Depth int
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{DB: db, Depth: ReferralDepth}
}

// GetReferralChain walks referrer links starting from userID and returns up
// to depth ancestors, nearest first. The walk is bounded by depth, so it
// terminates even if stored data contains a loop; a missing ancestor simply
// ends the chain early.
func (s *ReferralService) GetReferralChain(tx *gorm.DB, userID string, depth int) ([]models.PlatformUser, error) {
	var start models.PlatformUser
	if err := tx.First(&start, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	chain := make([]models.PlatformUser, 0, depth)
	next := start.ReferrerID
	for level := 0; level < depth && next != nil; level++ {
		var ancestor models.PlatformUser
		if err := tx.First(&ancestor, "id = ?", *next).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return nil, err
		}
		chain = append(chain, ancestor)
		next = ancestor.ReferrerID
	}
	return chain, nil
}

// RegisterReferral records the full referral chain for a newly registered
// user: one relationship row per ancestor level, all in one transaction.
// Re-registration is idempotent per (referrer, referral, level) triple.
func (s *ReferralService) RegisterReferral(newUserID, directReferrerID string) error {
	if newUserID == directReferrerID {
		return ErrSelfReferral
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var directReferrer models.PlatformUser
		if err := tx.First(&directReferrer, "id = ?", directReferrerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReferrerNotFound
			}
			return err
		}

		// Candidate ancestors: the direct referrer plus their own chain.
		ancestors, err := s.GetReferralChain(tx, directReferrerID, s.Depth-1)
		if err != nil {
			return err
		}
		candidates := append([]models.PlatformUser{directReferrer}, ancestors...)

		for _, c := range candidates {
			if c.ID == newUserID {
				log.Printf("[REFERRAL] cycle detected: user %s already present in chain of %s", newUserID, directReferrerID)
				return ErrReferralCycle
			}
		}

		if len(candidates) > s.Depth {
			candidates = candidates[:s.Depth]
		}

		for i, referrer := range candidates {
			level := i + 1

			var existing models.Referral
			err := tx.Where("referrer_id = ? AND referral_id = ? AND level = ?",
				referrer.ID, newUserID, level).First(&existing).Error
			if err == nil {
				continue // already recorded
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			rel := models.Referral{
				ID:          uuid.NewString(),
				ReferrerID:  referrer.ID,
				ReferralID:  newUserID,
				Level:       level,
				TotalEarned: decimal.Zero,
			}
			if err := tx.Create(&rel).Error; err != nil {
				return fmt.Errorf("failed to create level %d relationship: %w", level, err)
			}
		}

		// Stamp the direct referrer link on the user record.
		if err := tx.Model(&models.PlatformUser{}).
			Where("id = ? AND referrer_id IS NULL", newUserID).
			Update("referrer_id", directReferrerID).Error; err != nil {
			return err
		}

		log.Printf("[REFERRAL] chain recorded for user %s under %s (%d levels)", newUserID, directReferrerID, len(candidates))
		return nil
	})
}

// GetOrCreateReferralCode returns the user's invite code, generating a unique
// one on first use. Codes are a slugified username prefix plus a random hex
// suffix; collisions retry with a fresh suffix.
func (s *ReferralService) GetOrCreateReferralCode(userID string) (string, error) {
	var user models.PlatformUser
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	prefix := slug.Make(user.Username)
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	if prefix == "" {
		prefix = "ref"
	}

	for i := 0; i < 10; i++ {
		b := make([]byte, 4)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		code := fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(b))

		res := s.DB.Model(&models.PlatformUser{}).
			Where("id = ? AND referral_code IS NULL", userID).
			Update("referral_code", code)
		if res.Error == nil && res.RowsAffected == 1 {
			return code, nil
		}
		if res.Error == nil {
			// Another writer set a code concurrently; read it back.
			if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
				return "", err
			}
			if user.ReferralCode != nil {
				return *user.ReferralCode, nil
			}
			continue
		}
		// Unique violation on the code column: retry with a new suffix.
	}
	return "", fmt.Errorf("failed to generate a unique referral code after retries")
}

// GetUserByReferralCode resolves an invite code to its owner.
func (s *ReferralService) GetUserByReferralCode(code string) (*models.PlatformUser, error) {
	var user models.PlatformUser
	if err := s.DB.First(&user, "referral_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LevelStat aggregates one referral level for the stats screen.
type LevelStat struct {
	Level       int             `json:"level"`
	Count       int64           `json:"count"`
	TotalEarned decimal.Decimal `json:"total_earned"`
}

// GetLevelStats returns per-level referral counts and earnings in a single
// GROUP BY query. All levels up to Depth are present, zeroed when empty.
func (s *ReferralService) GetLevelStats(userID string) ([]LevelStat, error) {
	var rows []LevelStat
	err := s.DB.Model(&models.Referral{}).
		Select("level, COUNT(id) AS count, COALESCE(SUM(total_earned), 0) AS total_earned").
		Where("referrer_id = ?", userID).
		Group("level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byLevel := make(map[int]LevelStat, len(rows))
	for _, r := range rows {
		byLevel[r.Level] = r
	}

	stats := make([]LevelStat, 0, s.Depth)
	for level := 1; level <= s.Depth; level++ {
		if st, ok := byLevel[level]; ok {
			stats = append(stats, st)
		} else {
			stats = append(stats, LevelStat{Level: level, TotalEarned: decimal.Zero})
		}
	}
	return stats, nil
}
