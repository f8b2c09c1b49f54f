package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StreamAccount links a user to their account on the external streaming
// provider and carries the passive-reward bookkeeping for the live sweep.
// LastCheckedAt is the start of the next billable window; advancing it is
// what prevents the same elapsed hours from being rewarded twice.
type StreamAccount struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	UserID            string    `gorm:"uniqueIndex;not null" json:"user_id"`
	ProviderUserID    string    `gorm:"index;not null" json:"provider_user_id"`
	OptedIn           bool      `json:"opted_in" gorm:"default:false"`
	AutoRewardEnabled bool      `json:"auto_reward_enabled" gorm:"default:false"`
	LastCheckedAt     time.Time `json:"last_checked_at"`

	Timestamps
}

func (a *StreamAccount) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
