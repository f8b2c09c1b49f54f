package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PowerupType enumerates the modifier kinds a user can hold.
type PowerupType string

const (
	PowerupXPBoost      PowerupType = "xp_boost"
	PowerupCoinBoost    PowerupType = "coin_boost"
	PowerupStreakFreeze PowerupType = "streak_freeze"
	PowerupInstantLevel PowerupType = "instant_level"
)

// Powerup is one active modifier. For boosts Value is the multiplier;
// for streak_freeze it is the remaining charge count (non-negative).
type Powerup struct {
	ItemID      string      `json:"item_id"`
	Type        PowerupType `json:"type"`
	Value       float64     `json:"value"`
	ActivatedAt time.Time   `json:"activated_at"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// Expired reports whether the powerup is past its expiry at the given instant.
func (p Powerup) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// PowerupListVersion is the current serialization version of PowerupList.
const PowerupListVersion = 1

// PowerupList is the versioned collection of active powerups stored as JSON
// on the inventory row. The version field gives a migration path if the item
// shape ever changes.
type PowerupList struct {
	Version int       `json:"version"`
	Items   []Powerup `json:"items"`
}

// Prune drops expired entries in place and reports whether anything changed.
func (l *PowerupList) Prune(now time.Time) bool {
	kept := l.Items[:0]
	for _, p := range l.Items {
		if !p.Expired(now) {
			kept = append(kept, p)
		}
	}
	changed := len(kept) != len(l.Items)
	l.Items = kept
	if l.Version == 0 {
		l.Version = PowerupListVersion
	}
	return changed
}

// Active returns the non-expired entries of the given type.
func (l PowerupList) Active(t PowerupType, now time.Time) []Powerup {
	var out []Powerup
	for _, p := range l.Items {
		if p.Type == t && !p.Expired(now) {
			out = append(out, p)
		}
	}
	return out
}

// Inventory holds one user's purchased items and active powerups.
type Inventory struct {
	ID               string      `gorm:"primaryKey;size:36" json:"id"`
	UserID           string      `gorm:"uniqueIndex;not null" json:"user_id"`
	PurchasedItemIDs StringSet   `json:"purchased_item_ids" gorm:"serializer:json"`
	Powerups         PowerupList `json:"powerups" gorm:"serializer:json"`

	Timestamps
}

func (i *Inventory) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Powerups.Version == 0 {
		i.Powerups.Version = PowerupListVersion
	}
	return nil
}
