package services

import (
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"habit-reward-system/models"
)

// StreakService maintains daily check-in continuity, bridging missed days
// with streak-freeze charges when the inventory holds enough of them.
type StreakService struct {
	DB *gorm.DB
}

func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{DB: db}
}

// CheckIn records a check-in for "now" inside the caller's transaction.
// The caller must already hold the inventory lock (the engine's fixed lock
// order puts inventory before the streak row, which is locked here, last).
// The inventory is persisted only when freeze charges were consumed.
func (s *StreakService) CheckIn(tx *gorm.DB, userID string, inv *models.Inventory, now time.Time) (*models.StreakOutcome, error) {
	streak, err := streakForUpdate(tx, userID)
	if err != nil {
		return nil, err
	}

	outcome := &models.StreakOutcome{}
	today := dateOnly(now)

	switch {
	case streak.LastCheckin == nil:
		streak.CurrentStreak = 1

	case !dateOnly(*streak.LastCheckin).Before(today):
		// Already checked in today. No-op.
		outcome.CurrentStreak = streak.CurrentStreak
		outcome.LongestStreak = streak.LongestStreak
		return outcome, nil

	default:
		days := int(today.Sub(dateOnly(*streak.LastCheckin)).Hours() / 24)
		if days == 1 {
			streak.CurrentStreak++
		} else {
			// gap = missed days between the last check-in and today
			gap := days - 1
			if consumeFreezeCharges(&inv.Powerups, gap, now) {
				streak.CurrentStreak++
				outcome.FreezeUsed = true
				if err := tx.Save(inv).Error; err != nil {
					return nil, err
				}
				log.WithFields(log.Fields{
					"user_id": userID,
					"gap":     gap,
				}).Debug("streak gap bridged with freeze charges")
			} else {
				streak.CurrentStreak = 1
				outcome.ResetOccurred = true
			}
		}
	}

	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	streak.LastCheckin = &now

	if err := tx.Save(streak).Error; err != nil {
		return nil, err
	}

	outcome.CurrentStreak = streak.CurrentStreak
	outcome.LongestStreak = streak.LongestStreak
	return outcome, nil
}

// consumeFreezeCharges removes exactly `gap` charges from active
// streak_freeze powerups, soonest expiry first so future capacity is wasted
// least. All-or-nothing: when fewer than `gap` charges are available the
// list is left untouched and false is returned. Entries that reach zero
// charges are dropped; partially consumed entries keep their remainder.
func consumeFreezeCharges(list *models.PowerupList, gap int, now time.Time) bool {
	if gap <= 0 {
		return true
	}

	var idx []int
	for i, p := range list.Items {
		if p.Type == models.PowerupStreakFreeze && !p.Expired(now) && p.Value > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := list.Items[idx[a]], list.Items[idx[b]]
		if pa.ExpiresAt == nil {
			return false
		}
		if pb.ExpiresAt == nil {
			return true
		}
		return pa.ExpiresAt.Before(*pb.ExpiresAt)
	})

	available := 0
	for _, i := range idx {
		available += int(list.Items[i].Value)
	}
	if available < gap {
		return false
	}

	remaining := gap
	for _, i := range idx {
		if remaining == 0 {
			break
		}
		take := int(list.Items[i].Value)
		if take > remaining {
			take = remaining
		}
		list.Items[i].Value -= float64(take)
		remaining -= take
	}

	kept := list.Items[:0]
	for _, p := range list.Items {
		if p.Type == models.PowerupStreakFreeze && p.Value <= 0 {
			continue
		}
		kept = append(kept, p)
	}
	list.Items = kept
	return true
}
