package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Streak holds daily check-in continuity for one user.
// LongestStreak >= CurrentStreak at all times; LastCheckin only moves forward.
type Streak struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	UserID        string     `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentStreak int        `json:"current_streak" gorm:"default:0"`
	LongestStreak int        `json:"longest_streak" gorm:"default:0"`
	LastCheckin   *time.Time `json:"last_checkin,omitempty"`

	Timestamps
}

func (s *Streak) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// StreakOutcome reports what a check-in did to the streak.
type StreakOutcome struct {
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	FreezeUsed    bool `json:"freeze_used"`
	ResetOccurred bool `json:"reset_occurred"`
}
