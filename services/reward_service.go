package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"habit-reward-system/models"
)

// RewardRule defines the grant amounts and anti-abuse limits for one source type.
type RewardRule struct {
	XP        int64
	Coins     int64
	MinAge    time.Duration // the source must be at least this old when rewarded
	MaxPerDay int
}

// RewardRules is keyed by source type. Tasks and goals carry a five minute
// cooldown against instant create-and-complete farming; calendar events
// have none.
var RewardRules = map[models.SourceType]RewardRule{
	models.SourceTask:  {XP: 10, Coins: 2, MinAge: 5 * time.Minute, MaxPerDay: 20},
	models.SourceGoal:  {XP: 50, Coins: 10, MinAge: 5 * time.Minute, MaxPerDay: 10},
	models.SourceEvent: {XP: 20, Coins: 5, MinAge: 0, MaxPerDay: 15},
}

// errLedgerConflict aborts the transaction when the ledger key already
// exists; the caller converts it to an already_rewarded outcome. A race
// loser is a normal result, not an error.
var errLedgerConflict = errors.New("reward ledger key already exists")

// RewardService orchestrates one reward grant per qualifying action.
type RewardService struct {
	DB      *gorm.DB
	Streaks *StreakService
	now     func() time.Time
}

func NewRewardService(db *gorm.DB, streaks *StreakService) *RewardService {
	return &RewardService{DB: db, Streaks: streaks, now: time.Now}
}

// ApplyReward grants the reward for one completed source action at most
// once. Preconditions are checked in order and short-circuit with a reason
// code and no side effects. On success everything happens in a single
// transaction, locking rows in the engine's fixed order:
// source → progress → inventory → daily counter → daily activity → streak.
func (s *RewardService) ApplyReward(userID string, sourceType models.SourceType, sourceID string) (*models.RewardOutcome, error) {
	table, ok := models.TableForSource(sourceType)
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", sourceType)
	}
	rule := RewardRules[sourceType]
	now := s.now()
	day := dayKey(now)

	if err := ensureUserRows(s.DB, userID, day); err != nil {
		return nil, fmt.Errorf("ensure user rows: %w", err)
	}

	var outcome *models.RewardOutcome
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		src, err := fetchSource(tx, table, sourceID, userID)
		if isNotFound(err) {
			outcome = models.Rejected(models.ReasonSourceNotFound)
			return nil
		}
		if err != nil {
			return err
		}
		if src.RewardedAt != nil {
			outcome = models.Rejected(models.ReasonAlreadyRewarded)
			return nil
		}
		if !src.Completed {
			outcome = models.Rejected(models.ReasonNotCompleted)
			return nil
		}
		if now.Sub(src.CreatedAt) < rule.MinAge {
			outcome = models.Rejected(models.ReasonCooldownNotReached)
			return nil
		}

		prog, err := progressForUpdate(tx, userID)
		if err != nil {
			return err
		}
		inv, err := inventoryForUpdate(tx, userID)
		if err != nil {
			return err
		}
		counter, err := counterForUpdate(tx, userID, day)
		if err != nil {
			return err
		}
		if counter.CountFor(sourceType) >= rule.MaxPerDay {
			outcome = models.Rejected(models.ReasonDailyLimitReached)
			return nil
		}
		activity, err := activityForUpdate(tx, userID, day)
		if err != nil {
			return err
		}

		// Strongest single active boost wins; boosts never stack additively.
		xpMult := strongestBoost(inv.Powerups, models.PowerupXPBoost, now)
		coinMult := strongestBoost(inv.Powerups, models.PowerupCoinBoost, now)
		awardedXP := int64(math.Round(float64(rule.XP) * xpMult))
		awardedCoins := int64(math.Round(float64(rule.Coins) * coinMult))

		entry := models.RewardLedgerEntry{
			UserID:     userID,
			SourceType: sourceType,
			SourceID:   sourceID,
			XP:         awardedXP,
			Coins:      awardedCoins,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errLedgerConflict
			}
			return err
		}

		if err := tx.Table(table).Where("id = ?", sourceID).Update("rewarded_at", now).Error; err != nil {
			return err
		}

		counter.Increment(sourceType)
		counter.XPTotal += awardedXP
		counter.CoinsTotal += awardedCoins
		if err := tx.Save(counter).Error; err != nil {
			return err
		}

		activity.IncrementCompleted(sourceType)
		activity.XPEarned += awardedXP
		activity.CoinsEarned += awardedCoins
		if err := tx.Save(activity).Error; err != nil {
			return err
		}

		streakOut, err := s.Streaks.CheckIn(tx, userID, inv, now)
		if err != nil {
			return err
		}

		stats, err := lifetimeStats(tx, userID, now)
		if err != nil {
			return err
		}
		stats.CurrentStreak = int64(streakOut.CurrentStreak)
		stats.LongestStreak = int64(streakOut.LongestStreak)

		result := EvaluateAchievements(prog.Achievements, stats)

		levelJumpXP := consumeInstantLevels(&inv.Powerups, prog.XP+awardedXP+result.BonusXP, now)
		if levelJumpXP > 0 {
			if err := tx.Save(inv).Error; err != nil {
				return err
			}
		}
		if extra := result.BonusXP + levelJumpXP; extra > 0 {
			activity.XPEarned += extra
			if err := tx.Save(activity).Error; err != nil {
				return err
			}
		}

		totalXP := awardedXP + result.BonusXP + levelJumpXP
		prog.XP += totalXP
		prog.Level = levelForXP(prog.XP)
		prog.Coins += awardedCoins
		prog.WeeklyXP += totalXP
		prog.MonthlyXP += totalXP
		prog.Achievements = result.Achievements
		prog.UnlockedTitles = prog.UnlockedTitles.Union(unlockedTitleIDs(result.Unlocked))
		if err := tx.Save(prog).Error; err != nil {
			return err
		}

		outcome = &models.RewardOutcome{
			Awarded:      true,
			XP:           totalXP,
			Coins:        awardedCoins,
			Achievements: unlockedIDs(result.Unlocked),
			Streak:       streakOut,
		}
		return nil
	})
	if errors.Is(err, errLedgerConflict) {
		outcome = models.Rejected(models.ReasonAlreadyRewarded)
		err = nil
	}
	if err != nil {
		return nil, err
	}

	if outcome.Awarded {
		log.WithFields(log.Fields{
			"user_id":     userID,
			"source_type": sourceType,
			"source_id":   sourceID,
			"xp":          outcome.XP,
			"coins":       outcome.Coins,
			"unlocked":    outcome.Achievements,
		}).Info("reward applied")
	} else {
		log.WithFields(log.Fields{
			"user_id":     userID,
			"source_type": sourceType,
			"source_id":   sourceID,
			"reason":      outcome.Reason,
		}).Debug("reward rejected")
	}
	return outcome, nil
}

// GetProgress returns the user's progress row, creating it lazily on first
// reference. Expired powerups are pruned from the inventory on the way.
func (s *RewardService) GetProgress(userID string) (*models.UserProgress, error) {
	if err := ensureUserRows(s.DB, userID, ""); err != nil {
		return nil, err
	}
	var prog models.UserProgress
	if err := s.DB.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		return nil, err
	}

	var inv models.Inventory
	if err := s.DB.Where("user_id = ?", userID).First(&inv).Error; err == nil {
		if inv.Powerups.Prune(s.now()) {
			if err := s.DB.Save(&inv).Error; err != nil {
				return nil, err
			}
		}
	} else if !isNotFound(err) {
		return nil, err
	}
	return &prog, nil
}

// SetActiveTitle selects one of the user's unlocked titles for display.
// An empty title clears the selection.
func (s *RewardService) SetActiveTitle(userID, title string) (*models.UserProgress, error) {
	prog, err := s.GetProgress(userID)
	if err != nil {
		return nil, err
	}
	if title != "" && !prog.UnlockedTitles.Has(title) {
		return nil, fmt.Errorf("title %q is not unlocked", title)
	}
	prog.ActiveTitle = title
	if err := s.DB.Save(prog).Error; err != nil {
		return nil, err
	}
	return prog, nil
}

// consumeInstantLevels spends active instant_level powerups, returning the
// XP that finishes the corresponding number of levels starting from xp.
// Value is the number of levels one entry jumps; spent entries are removed.
func consumeInstantLevels(list *models.PowerupList, xp int64, now time.Time) int64 {
	var bonus int64
	kept := list.Items[:0]
	for _, p := range list.Items {
		if p.Type == models.PowerupInstantLevel && !p.Expired(now) {
			for i := 0; i < int(p.Value); i++ {
				next := LevelFromXP(float64(xp+bonus)) + 1
				bonus = int64(TotalXPForLevel(next)) - xp
			}
			continue
		}
		kept = append(kept, p)
	}
	list.Items = kept
	return bonus
}

// strongestBoost returns the multiplier of the strongest active boost of the
// given type, never less than 1.
func strongestBoost(list models.PowerupList, t models.PowerupType, now time.Time) float64 {
	mult := 1.0
	for _, p := range list.Active(t, now) {
		if p.Value > mult {
			mult = p.Value
		}
	}
	return mult
}
