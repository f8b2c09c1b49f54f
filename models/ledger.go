package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardLedgerEntry is the append-only record of every reward grant.
// The composite unique key (user_id, source_type, source_id) is what makes
// reward application at-most-once: a second insert for the same action hits
// the constraint and is treated as "already rewarded", never overwritten.
type RewardLedgerEntry struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"uniqueIndex:idx_ledger_key;not null" json:"user_id"`
	SourceType SourceType `gorm:"uniqueIndex:idx_ledger_key;not null;size:16" json:"source_type"`
	SourceID   string     `gorm:"uniqueIndex:idx_ledger_key;not null" json:"source_id"`
	XP         int64      `json:"xp"`
	Coins      int64      `json:"coins"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (e *RewardLedgerEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// ChallengeSourceID builds the ledger source id for a weekly challenge claim.
func ChallengeSourceID(weekKey, challengeID string) string {
	return weekKey + ":" + challengeID
}

// RewardDailyCounter enforces per-source-type daily caps. One row per user
// per calendar day (server-side UTC day, YYYY-MM-DD).
type RewardDailyCounter struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	UserID     string `gorm:"uniqueIndex:idx_daily_counter;not null" json:"user_id"`
	Day        string `gorm:"uniqueIndex:idx_daily_counter;not null;size:10" json:"day"`
	TaskCount  int    `json:"task_count" gorm:"default:0"`
	GoalCount  int    `json:"goal_count" gorm:"default:0"`
	EventCount int    `json:"event_count" gorm:"default:0"`
	XPTotal    int64  `json:"xp_total" gorm:"default:0"`
	CoinsTotal int64  `json:"coins_total" gorm:"default:0"`

	Timestamps
}

func (c *RewardDailyCounter) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CountFor returns the day's grant count for one source type.
func (c *RewardDailyCounter) CountFor(t SourceType) int {
	switch t {
	case SourceTask:
		return c.TaskCount
	case SourceGoal:
		return c.GoalCount
	case SourceEvent:
		return c.EventCount
	}
	return 0
}

// Increment bumps the day's grant count for one source type.
func (c *RewardDailyCounter) Increment(t SourceType) {
	switch t {
	case SourceTask:
		c.TaskCount++
	case SourceGoal:
		c.GoalCount++
	case SourceEvent:
		c.EventCount++
	}
}
