package services

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"habit-reward-system/models"
)

// AdminService carries the operator overrides. Every mutation keeps the
// Level/XP pair consistent by recomputing Level from the curve.
type AdminService struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{DB: db, now: time.Now}
}

func (s *AdminService) progress(userID string) (*models.UserProgress, error) {
	if err := ensureUserRows(s.DB, userID, ""); err != nil {
		return nil, err
	}
	var prog models.UserProgress
	if err := s.DB.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		return nil, err
	}
	return &prog, nil
}

// SetUserXP overwrites total XP and recomputes the level from it.
func (s *AdminService) SetUserXP(userID string, xp int64) (*models.UserProgress, error) {
	if xp < 0 {
		return nil, fmt.Errorf("xp must not be negative, got %d", xp)
	}
	prog, err := s.progress(userID)
	if err != nil {
		return nil, err
	}
	prog.XP = xp
	prog.Level = levelForXP(xp)
	if err := s.DB.Save(prog).Error; err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": userID, "xp": xp, "level": prog.Level}).Info("admin set xp")
	return prog, nil
}

func (s *AdminService) SetUserCoins(userID string, coins int64) (*models.UserProgress, error) {
	if coins < 0 {
		return nil, fmt.Errorf("coins must not be negative, got %d", coins)
	}
	prog, err := s.progress(userID)
	if err != nil {
		return nil, err
	}
	prog.Coins = coins
	if err := s.DB.Save(prog).Error; err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": userID, "coins": coins}).Info("admin set coins")
	return prog, nil
}

// SetUserLevel sets XP to the exact floor of the requested level, so the
// stored pair round-trips through the curve.
func (s *AdminService) SetUserLevel(userID string, level int) (*models.UserProgress, error) {
	if level < 1 {
		return nil, fmt.Errorf("level must be at least 1, got %d", level)
	}
	prog, err := s.progress(userID)
	if err != nil {
		return nil, err
	}
	prog.XP = int64(TotalXPForLevel(level))
	prog.Level = level
	if err := s.DB.Save(prog).Error; err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": userID, "level": level, "xp": prog.XP}).Info("admin set level")
	return prog, nil
}

// ResetUserProgress zeroes the progress and streak rows. The reward ledger
// and activity history are kept; they record what actually happened.
func (s *AdminService) ResetUserProgress(userID string) (*models.UserProgress, error) {
	prog, err := s.progress(userID)
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		prog.XP = 0
		prog.Level = 1
		prog.Coins = 0
		prog.WeeklyXP = 0
		prog.MonthlyXP = 0
		prog.Achievements = models.StringSet{}
		prog.UnlockedTitles = models.StringSet{}
		prog.ActiveTitle = ""
		if err := tx.Save(prog).Error; err != nil {
			return err
		}
		return tx.Model(&models.Streak{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"current_streak": 0,
				"longest_streak": 0,
				"last_checkin":   nil,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	log.WithField("user_id", userID).Warn("admin reset user progress")
	return prog, nil
}

// SetPremiumStatus flips the premium flag. durationDays <= 0 means lifetime.
func (s *AdminService) SetPremiumStatus(userID string, isPremium bool, durationDays int) (*models.UserProgress, error) {
	prog, err := s.progress(userID)
	if err != nil {
		return nil, err
	}
	prog.IsPremium = isPremium
	if isPremium && durationDays > 0 {
		expires := s.now().AddDate(0, 0, durationDays)
		prog.PremiumExpiresAt = &expires
	} else {
		prog.PremiumExpiresAt = nil
	}
	if err := s.DB.Save(prog).Error; err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"user_id":    userID,
		"is_premium": isPremium,
		"duration":   durationDays,
	}).Info("admin set premium status")
	return prog, nil
}
