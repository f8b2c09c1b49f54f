package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProgress tracks gamified progression for each user (denormalized for performance).
// Created lazily on first reference to a user; never deleted while the user exists.
type UserProgress struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // authenticated id from the calling layer

	// Core progression. Level is always derivable from XP; it is stored
	// denormalized and recomputed on every write.
	XP    int64 `json:"xp" gorm:"default:0"`
	Level int   `json:"level" gorm:"default:1"`
	Coins int64 `json:"coins" gorm:"default:0"`

	// Unlocked achievement ids. Grows monotonically, never shrinks.
	Achievements   StringSet `json:"achievements" gorm:"serializer:json"`
	UnlockedTitles StringSet `json:"unlocked_titles" gorm:"serializer:json"`
	ActiveTitle    string    `json:"active_title"`

	// Rolling counters zeroed by the scheduler's reset jobs.
	WeeklyXP  int64 `json:"weekly_xp" gorm:"default:0"`
	MonthlyXP int64 `json:"monthly_xp" gorm:"default:0"`

	IsPremium        bool       `json:"is_premium" gorm:"default:false"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at,omitempty"`

	Timestamps
}

func (p *UserProgress) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// StringSet is an id set stored as a JSON array on the owning row.
type StringSet []string

func (s StringSet) Has(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Union returns the set extended with any ids not already present,
// preserving insertion order.
func (s StringSet) Union(ids []string) StringSet {
	out := s
	for _, id := range ids {
		if !out.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
