package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyActivityAggregate records what a user got done on one calendar day.
// It feeds both achievement lifetime stats (trailing ~364-day window) and
// weekly challenge progress.
type DailyActivityAggregate struct {
	ID              string `gorm:"primaryKey;size:36" json:"id"`
	UserID          string `gorm:"uniqueIndex:idx_daily_activity;not null" json:"user_id"`
	Day             string `gorm:"uniqueIndex:idx_daily_activity;not null;size:10" json:"day"`
	TasksCompleted  int    `json:"tasks_completed" gorm:"default:0"`
	GoalsCompleted  int    `json:"goals_completed" gorm:"default:0"`
	EventsCompleted int    `json:"events_completed" gorm:"default:0"`
	XPEarned        int64  `json:"xp_earned" gorm:"default:0"`
	CoinsEarned     int64  `json:"coins_earned" gorm:"default:0"`

	Timestamps
}

func (a *DailyActivityAggregate) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// IncrementCompleted bumps the completion count matching the source type.
func (a *DailyActivityAggregate) IncrementCompleted(t SourceType) {
	switch t {
	case SourceTask:
		a.TasksCompleted++
	case SourceGoal:
		a.GoalsCompleted++
	case SourceEvent:
		a.EventsCompleted++
	}
}
