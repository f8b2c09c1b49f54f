package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SourceType identifies what kind of action earned a reward.
type SourceType string

const (
	SourceTask  SourceType = "task"
	SourceGoal  SourceType = "goal"
	SourceEvent SourceType = "event"
	// SourceChallenge is used only for ledger entries of weekly challenge
	// claims; it has no backing source table.
	SourceChallenge SourceType = "challenge"
)

// TableForSource maps a rewardable source type to its table. Returns false
// for types that have no source row (challenge) or are unknown.
func TableForSource(t SourceType) (string, bool) {
	switch t {
	case SourceTask:
		return "tasks", true
	case SourceGoal:
		return "goals", true
	case SourceEvent:
		return "events", true
	}
	return "", false
}

// SourceRow is the slice of a task/goal/event row the reward engine reads.
// The rows themselves are owned by other subsystems; the engine only locks
// them and stamps rewarded_at once.
type SourceRow struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Completed  bool       `json:"completed"`
	CreatedAt  time.Time  `json:"created_at"`
	RewardedAt *time.Time `json:"rewarded_at"`
}

// Task is a user to-do item. Owned by the task subsystem; listed here so the
// shared store migrates it and tests can seed it.
type Task struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"index;not null" json:"user_id"`
	Title      string     `json:"title"`
	Completed  bool       `json:"completed" gorm:"default:false"`
	RewardedAt *time.Time `json:"rewarded_at,omitempty"`

	Timestamps
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Goal is a longer-horizon objective. Owned by the goal subsystem.
type Goal struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"index;not null" json:"user_id"`
	Title      string     `json:"title"`
	Completed  bool       `json:"completed" gorm:"default:false"`
	RewardedAt *time.Time `json:"rewarded_at,omitempty"`

	Timestamps
}

func (g *Goal) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// Event is a calendar event. Owned by the calendar subsystem.
type Event struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"index;not null" json:"user_id"`
	Title      string     `json:"title"`
	Completed  bool       `json:"completed" gorm:"default:false"`
	RewardedAt *time.Time `json:"rewarded_at,omitempty"`

	Timestamps
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
