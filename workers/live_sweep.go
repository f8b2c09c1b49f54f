package workers

import (
	"context"
	"errors"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-reward-system/models"
	"habit-reward-system/services"
)

// forUpdate mirrors the row-lock helper in services: FOR UPDATE on Postgres,
// plain reads on dialects that reject the clause.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// maxRewardableHours caps how many elapsed hours a single sweep pass may
// reward, so an account that sat unchecked for days cannot cash them all in.
const maxRewardableHours = 6

// LiveSweepWorker periodically rewards opted-in users for time spent
// broadcasting. Live hours bypass the reward ledger; the advancing
// LastCheckedAt watermark on the stream account is what makes the sweep
// idempotent.
type LiveSweepWorker struct {
	DB        *gorm.DB
	Client    *services.LiveStatusClient
	XPPerHour int64
	now       func() time.Time
}

func NewLiveSweepWorker(db *gorm.DB, client *services.LiveStatusClient, xpPerHour int64) *LiveSweepWorker {
	return &LiveSweepWorker{DB: db, Client: client, XPPerHour: xpPerHour, now: time.Now}
}

// Run sweeps every opted-in stream account once. A failing account is logged
// and skipped; it never blocks the rest of the batch.
func (w *LiveSweepWorker) Run(ctx context.Context) error {
	var accounts []models.StreamAccount
	if err := w.DB.Where("opted_in = ?", true).Find(&accounts).Error; err != nil {
		return err
	}

	for _, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.sweepAccount(ctx, account); err != nil {
			log.WithError(err).WithField("user_id", account.UserID).Warn("live sweep failed for account")
		}
	}
	return nil
}

func (w *LiveSweepWorker) sweepAccount(ctx context.Context, account models.StreamAccount) error {
	// Provider round trip stays outside the transaction.
	status, err := w.Client.GetStreamStatus(ctx, account.ProviderUserID)
	if err != nil {
		return err
	}
	now := w.now()

	return w.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.StreamAccount
		if err := forUpdate(tx).Where("id = ?", account.ID).First(&locked).Error; err != nil {
			return err
		}

		if status != nil && locked.AutoRewardEnabled && !locked.LastCheckedAt.IsZero() {
			elapsed := math.Floor(now.Sub(locked.LastCheckedAt).Hours())
			hours := int64(math.Min(elapsed, maxRewardableHours))
			if hours > 0 {
				xp := hours * w.XPPerHour
				var prog models.UserProgress
				if err := forUpdate(tx).Where("user_id = ?", locked.UserID).First(&prog).Error; err == nil {
					prog.XP += xp
					prog.Level = services.LevelFromXP(float64(prog.XP))
					prog.WeeklyXP += xp
					prog.MonthlyXP += xp
					if err := tx.Save(&prog).Error; err != nil {
						return err
					}
					log.WithFields(log.Fields{
						"user_id": locked.UserID,
						"hours":   hours,
						"xp":      xp,
					}).Info("live hours rewarded")
				} else if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			}
		}

		// The watermark advances on every successful observation, live or
		// not, so offline stretches are never billable later.
		return tx.Model(&locked).Update("last_checked_at", now).Error
	})
}
