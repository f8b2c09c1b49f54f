package services

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"habit-reward-system/models"
)

// WeekKey returns the ISO date (UTC) of the Sunday starting the week that
// contains t. All weekly challenge state is addressed by (userID, weekKey).
func WeekKey(t time.Time) string {
	d := dateOnly(t)
	return d.AddDate(0, 0, -int(d.Weekday())).Format("2006-01-02")
}

// challengePools are the fixed per-difficulty template pools the weekly draw
// picks from. Template ids are stable; never reuse an id for a different
// objective.
var challengePools = map[models.ChallengeDifficulty][]models.Challenge{
	models.DifficultyEasy: {
		{ID: "easy_tasks_5", Type: models.ChallengeTasksCompleted, Description: "Complete 5 tasks this week", Target: 5, RewardXP: 40, RewardCoins: 10, Difficulty: models.DifficultyEasy},
		{ID: "easy_events_2", Type: models.ChallengeEventsCompleted, Description: "Attend 2 calendar events this week", Target: 2, RewardXP: 30, RewardCoins: 8, Difficulty: models.DifficultyEasy},
		{ID: "easy_streak_2", Type: models.ChallengeStreakDays, Description: "Keep a 2-day streak going", Target: 2, RewardXP: 35, RewardCoins: 10, Difficulty: models.DifficultyEasy},
		{ID: "easy_xp_100", Type: models.ChallengeXPEarned, Description: "Earn 100 XP this week", Target: 100, RewardXP: 40, RewardCoins: 10, Difficulty: models.DifficultyEasy},
	},
	models.DifficultyMedium: {
		{ID: "med_tasks_15", Type: models.ChallengeTasksCompleted, Description: "Complete 15 tasks this week", Target: 15, RewardXP: 100, RewardCoins: 25, Difficulty: models.DifficultyMedium},
		{ID: "med_goals_2", Type: models.ChallengeGoalsCompleted, Description: "Finish 2 goals this week", Target: 2, RewardXP: 120, RewardCoins: 30, Difficulty: models.DifficultyMedium},
		{ID: "med_events_5", Type: models.ChallengeEventsCompleted, Description: "Attend 5 calendar events this week", Target: 5, RewardXP: 90, RewardCoins: 22, Difficulty: models.DifficultyMedium},
		{ID: "med_streak_5", Type: models.ChallengeStreakDays, Description: "Reach a 5-day streak", Target: 5, RewardXP: 110, RewardCoins: 28, Difficulty: models.DifficultyMedium},
		{ID: "med_xp_400", Type: models.ChallengeXPEarned, Description: "Earn 400 XP this week", Target: 400, RewardXP: 100, RewardCoins: 25, Difficulty: models.DifficultyMedium},
	},
	models.DifficultyHard: {
		{ID: "hard_tasks_35", Type: models.ChallengeTasksCompleted, Description: "Complete 35 tasks this week", Target: 35, RewardXP: 300, RewardCoins: 75, Difficulty: models.DifficultyHard},
		{ID: "hard_goals_5", Type: models.ChallengeGoalsCompleted, Description: "Finish 5 goals this week", Target: 5, RewardXP: 350, RewardCoins: 90, Difficulty: models.DifficultyHard},
		{ID: "hard_streak_7", Type: models.ChallengeStreakDays, Description: "Hold a full 7-day streak", Target: 7, RewardXP: 320, RewardCoins: 80, Difficulty: models.DifficultyHard},
		{ID: "hard_xp_1000", Type: models.ChallengeXPEarned, Description: "Earn 1000 XP this week", Target: 1000, RewardXP: 300, RewardCoins: 75, Difficulty: models.DifficultyHard},
	},
}

func challengeHash(seed string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return h.Sum32()
}

// GenerateChallenges produces the weekly draw for a user: 1 easy, 2 distinct
// medium, 1 hard, picked by hashing userID:weekKey:slot into each pool.
// Pure and deterministic: identical inputs always yield the identical
// ordered set. Used as the seed for first-time creation only; the persisted
// row is authoritative afterwards.
func GenerateChallenges(userID, weekKey string) []models.Challenge {
	slots := []models.ChallengeDifficulty{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyMedium,
		models.DifficultyHard,
	}

	picks := make([]models.Challenge, 0, len(slots))
	taken := make(map[string]bool, len(slots))
	for slot, difficulty := range slots {
		pool := challengePools[difficulty]
		seed := fmt.Sprintf("%s:%s:%d", userID, weekKey, slot)

		var filtered []models.Challenge
		for _, c := range pool {
			if !taken[c.ID] {
				filtered = append(filtered, c)
			}
		}
		var pick models.Challenge
		if len(filtered) == 0 {
			// Filtered pool exhausted: fall back to the full pool.
			pick = pool[challengeHash(seed)%uint32(len(pool))]
		} else {
			pick = filtered[challengeHash(seed)%uint32(len(filtered))]
		}
		taken[pick.ID] = true
		picks = append(picks, pick)
	}
	return picks
}

// ChallengeService generates, scores and resolves weekly challenges.
type ChallengeService struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewChallengeService(db *gorm.DB) *ChallengeService {
	return &ChallengeService{DB: db, now: time.Now}
}

// EnsureWeeklySet fetches the persisted set for (userID, weekKey), inserting
// the generated one when absent. Create-if-absent, not create-or-fail: on a
// duplicate-key race the winner's row is re-fetched exactly once, never in
// a loop.
func (s *ChallengeService) EnsureWeeklySet(userID, weekKey string) (*models.WeeklyChallengeSet, error) {
	var set models.WeeklyChallengeSet
	err := s.DB.Where("user_id = ? AND week_key = ?", userID, weekKey).First(&set).Error
	if err == nil {
		return &set, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	set = models.WeeklyChallengeSet{
		UserID:  userID,
		WeekKey: weekKey,
		Challenges: models.ChallengeList{
			Version: models.ChallengeListVersion,
			Items:   GenerateChallenges(userID, weekKey),
		},
	}
	if err := s.DB.Create(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var winner models.WeeklyChallengeSet
			if err := s.DB.Where("user_id = ? AND week_key = ?", userID, weekKey).First(&winner).Error; err != nil {
				return nil, err
			}
			return &winner, nil
		}
		return nil, err
	}
	return &set, nil
}

// weekTotals sums the activity aggregates of the seven days starting at weekKey.
type weekTotals struct {
	Tasks  int64
	Goals  int64
	Events int64
	XP     int64
}

func (s *ChallengeService) weekTotalsFor(userID, weekKey string) (weekTotals, error) {
	start, err := time.Parse("2006-01-02", weekKey)
	if err != nil {
		return weekTotals{}, fmt.Errorf("bad week key %q: %w", weekKey, err)
	}
	end := dayKey(start.AddDate(0, 0, 7))

	var row struct {
		Tasks  int64
		Goals  int64
		Events int64
		XP     int64
	}
	err = s.DB.Model(&models.DailyActivityAggregate{}).
		Select(
			"COALESCE(SUM(tasks_completed),0) AS tasks, "+
				"COALESCE(SUM(goals_completed),0) AS goals, "+
				"COALESCE(SUM(events_completed),0) AS events, "+
				"COALESCE(SUM(xp_earned),0) AS xp").
		Where("user_id = ? AND day >= ? AND day < ?", userID, weekKey, end).
		Scan(&row).Error
	if err != nil {
		return weekTotals{}, err
	}
	return weekTotals{Tasks: row.Tasks, Goals: row.Goals, Events: row.Events, XP: row.XP}, nil
}

func challengeCurrent(c models.Challenge, totals weekTotals, currentStreak int) int {
	switch c.Type {
	case models.ChallengeTasksCompleted:
		return int(totals.Tasks)
	case models.ChallengeGoalsCompleted:
		return int(totals.Goals)
	case models.ChallengeEventsCompleted:
		return int(totals.Events)
	case models.ChallengeStreakDays:
		return currentStreak
	case models.ChallengeXPEarned:
		return int(totals.XP)
	}
	return 0
}

// GetChallenges returns the current week's set with live progress computed
// from the week's activity aggregates and the streak row.
func (s *ChallengeService) GetChallenges(userID string) ([]models.ChallengeProgress, error) {
	weekKey := WeekKey(s.now())
	set, err := s.EnsureWeeklySet(userID, weekKey)
	if err != nil {
		return nil, err
	}

	totals, err := s.weekTotalsFor(userID, weekKey)
	if err != nil {
		return nil, err
	}

	currentStreak := 0
	var streak models.Streak
	if err := s.DB.Where("user_id = ?", userID).First(&streak).Error; err == nil {
		currentStreak = streak.CurrentStreak
	} else if !isNotFound(err) {
		return nil, err
	}

	out := make([]models.ChallengeProgress, 0, len(set.Challenges.Items))
	for _, c := range set.Challenges.Items {
		current := challengeCurrent(c, totals, currentStreak)
		out = append(out, models.ChallengeProgress{
			Challenge: c,
			Current:   current,
			Completed: current >= c.Target || c.ClaimedAt != nil,
		})
	}
	return out, nil
}

// Claim resolves one challenge of the current week's set. The ledger entry
// keyed (userID, "challenge", weekKey:challengeID) makes the claim
// at-most-once; a key collision means already_claimed. Other challenges in
// the set are left untouched.
func (s *ChallengeService) Claim(userID, challengeID string) (*models.RewardOutcome, error) {
	now := s.now()
	weekKey := WeekKey(now)
	day := dayKey(now)

	set, err := s.EnsureWeeklySet(userID, weekKey)
	if err != nil {
		return nil, err
	}
	ch := set.Challenges.Find(challengeID)
	if ch == nil {
		return models.Rejected(models.ReasonInvalidChallenge), nil
	}
	if ch.ClaimedAt != nil {
		return models.Rejected(models.ReasonAlreadyClaimed), nil
	}

	totals, err := s.weekTotalsFor(userID, weekKey)
	if err != nil {
		return nil, err
	}
	currentStreak := 0
	var streakRow models.Streak
	if err := s.DB.Where("user_id = ?", userID).First(&streakRow).Error; err == nil {
		currentStreak = streakRow.CurrentStreak
	} else if !isNotFound(err) {
		return nil, err
	}
	if challengeCurrent(*ch, totals, currentStreak) < ch.Target {
		return models.Rejected(models.ReasonChallengeNotCompleted), nil
	}

	if err := ensureUserRows(s.DB, userID, day); err != nil {
		return nil, err
	}

	var outcome *models.RewardOutcome
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		entry := models.RewardLedgerEntry{
			UserID:     userID,
			SourceType: models.SourceChallenge,
			SourceID:   models.ChallengeSourceID(weekKey, challengeID),
			XP:         ch.RewardXP,
			Coins:      ch.RewardCoins,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errLedgerConflict
			}
			return err
		}

		prog, err := progressForUpdate(tx, userID)
		if err != nil {
			return err
		}
		activity, err := activityForUpdate(tx, userID, day)
		if err != nil {
			return err
		}

		stats, err := lifetimeStats(tx, userID, now)
		if err != nil {
			return err
		}
		stats.CurrentStreak = int64(currentStreak)
		stats.LongestStreak = int64(streakRow.LongestStreak)

		result := EvaluateAchievements(prog.Achievements, stats)
		totalXP := ch.RewardXP + result.BonusXP

		prog.XP += totalXP
		prog.Level = levelForXP(prog.XP)
		prog.Coins += ch.RewardCoins
		prog.WeeklyXP += totalXP
		prog.MonthlyXP += totalXP
		prog.Achievements = result.Achievements
		prog.UnlockedTitles = prog.UnlockedTitles.Union(unlockedTitleIDs(result.Unlocked))
		if err := tx.Save(prog).Error; err != nil {
			return err
		}

		activity.XPEarned += totalXP
		activity.CoinsEarned += ch.RewardCoins
		if err := tx.Save(activity).Error; err != nil {
			return err
		}

		var lockedSet models.WeeklyChallengeSet
		if err := forUpdate(tx).Where("user_id = ? AND week_key = ?", userID, weekKey).First(&lockedSet).Error; err != nil {
			return err
		}
		claimed := lockedSet.Challenges.Find(challengeID)
		if claimed == nil {
			return fmt.Errorf("challenge %s vanished from weekly set", challengeID)
		}
		claimed.ClaimedAt = &now
		if err := tx.Save(&lockedSet).Error; err != nil {
			return err
		}

		outcome = &models.RewardOutcome{
			Awarded:      true,
			XP:           totalXP,
			Coins:        ch.RewardCoins,
			Achievements: unlockedIDs(result.Unlocked),
		}
		return nil
	})
	if errors.Is(err, errLedgerConflict) {
		return models.Rejected(models.ReasonAlreadyClaimed), nil
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":      userID,
		"week_key":     weekKey,
		"challenge_id": challengeID,
		"xp":           outcome.XP,
		"coins":        outcome.Coins,
	}).Info("weekly challenge claimed")
	return outcome, nil
}
