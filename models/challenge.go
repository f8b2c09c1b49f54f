package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChallengeType is the metric a weekly challenge is scored against.
type ChallengeType string

const (
	ChallengeTasksCompleted  ChallengeType = "tasks_completed"
	ChallengeGoalsCompleted  ChallengeType = "goals_completed"
	ChallengeEventsCompleted ChallengeType = "events_completed"
	ChallengeStreakDays      ChallengeType = "streak_days"
	ChallengeXPEarned        ChallengeType = "xp_earned"
)

// ChallengeDifficulty buckets challenges for the weekly draw
// (1 easy + 2 medium + 1 hard per user per week).
type ChallengeDifficulty string

const (
	DifficultyEasy   ChallengeDifficulty = "easy"
	DifficultyMedium ChallengeDifficulty = "medium"
	DifficultyHard   ChallengeDifficulty = "hard"
)

// Challenge is one time-boxed objective inside a weekly set.
type Challenge struct {
	ID          string              `json:"id"`
	Type        ChallengeType       `json:"type"`
	Description string              `json:"description"`
	Target      int                 `json:"target"`
	RewardXP    int64               `json:"reward_xp"`
	RewardCoins int64               `json:"reward_coins"`
	Difficulty  ChallengeDifficulty `json:"difficulty"`
	ClaimedAt   *time.Time          `json:"claimed_at,omitempty"`
}

// ChallengeListVersion is the current serialization version of ChallengeList.
const ChallengeListVersion = 1

// ChallengeList is the versioned collection stored as JSON on the weekly set row.
type ChallengeList struct {
	Version int         `json:"version"`
	Items   []Challenge `json:"items"`
}

// Find returns a pointer into Items for the challenge with the given id.
func (l *ChallengeList) Find(id string) *Challenge {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return &l.Items[i]
		}
	}
	return nil
}

// WeeklyChallengeSet is the persisted draw for one user and ISO week.
// Generated deterministically when first referenced; never regenerated once
// a row exists for the week.
type WeeklyChallengeSet struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	UserID     string        `gorm:"uniqueIndex:idx_weekly_set;not null" json:"user_id"`
	WeekKey    string        `gorm:"uniqueIndex:idx_weekly_set;not null;size:10" json:"week_key"`
	Challenges ChallengeList `json:"challenges" gorm:"serializer:json"`

	Timestamps
}

func (s *WeeklyChallengeSet) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Challenges.Version == 0 {
		s.Challenges.Version = ChallengeListVersion
	}
	return nil
}

// ChallengeProgress is a challenge plus its live progress for the caller.
type ChallengeProgress struct {
	Challenge
	Current   int  `json:"current"`
	Completed bool `json:"completed"`
}
