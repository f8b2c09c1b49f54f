package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-reward-system/models"
)

// dayKey returns the server-side calendar day (UTC) as YYYY-MM-DD.
// Daily boundaries are fixed to the server calendar, not the user's timezone.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// dateOnly truncates to midnight UTC.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// forUpdate adds a row lock on dialects that support it. The sqlite driver
// used by the test suite serializes writers on its own and rejects FOR UPDATE
// syntax, so the clause is applied only against Postgres.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ensureUserRows creates the per-user and per-day bookkeeping rows if they do
// not exist yet. It runs before the grant transaction so concurrent grants
// never race on row creation while holding locks; ON CONFLICT DO NOTHING
// keeps it idempotent.
func ensureUserRows(db *gorm.DB, userID, day string) error {
	rows := []interface{}{
		&models.UserProgress{UserID: userID, Level: 1},
		&models.Inventory{UserID: userID},
		&models.Streak{UserID: userID},
	}
	if day != "" {
		rows = append(rows,
			&models.RewardDailyCounter{UserID: userID, Day: day},
			&models.DailyActivityAggregate{UserID: userID, Day: day},
		)
	}
	for _, row := range rows {
		// A chained *gorm.DB carries statement state; each Create needs
		// its own clause chain.
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

func progressForUpdate(tx *gorm.DB, userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	if err := forUpdate(tx).Where("user_id = ?", userID).First(&prog).Error; err != nil {
		return nil, err
	}
	return &prog, nil
}

func inventoryForUpdate(tx *gorm.DB, userID string) (*models.Inventory, error) {
	var inv models.Inventory
	if err := forUpdate(tx).Where("user_id = ?", userID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func counterForUpdate(tx *gorm.DB, userID, day string) (*models.RewardDailyCounter, error) {
	var counter models.RewardDailyCounter
	if err := forUpdate(tx).Where("user_id = ? AND day = ?", userID, day).First(&counter).Error; err != nil {
		return nil, err
	}
	return &counter, nil
}

func activityForUpdate(tx *gorm.DB, userID, day string) (*models.DailyActivityAggregate, error) {
	var activity models.DailyActivityAggregate
	if err := forUpdate(tx).Where("user_id = ? AND day = ?", userID, day).First(&activity).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func streakForUpdate(tx *gorm.DB, userID string) (*models.Streak, error) {
	var streak models.Streak
	if err := forUpdate(tx).Where("user_id = ?", userID).First(&streak).Error; err != nil {
		return nil, err
	}
	return &streak, nil
}

// statsWindowDays is the trailing window achievement stats are computed over.
const statsWindowDays = 364

// lifetimeStats aggregates the user's activity over the trailing window.
// Days with no completions do not count toward DaysActive. Streak fields are
// left zero; callers fill them from the streak row they already hold.
func lifetimeStats(tx *gorm.DB, userID string, now time.Time) (LifetimeStats, error) {
	cutoff := dayKey(now.AddDate(0, 0, -statsWindowDays))
	var row struct {
		Tasks  int64
		Goals  int64
		Events int64
		Days   int64
	}
	err := tx.Model(&models.DailyActivityAggregate{}).
		Select(
			"COALESCE(SUM(tasks_completed),0) AS tasks, "+
				"COALESCE(SUM(goals_completed),0) AS goals, "+
				"COALESCE(SUM(events_completed),0) AS events, "+
				"COUNT(CASE WHEN tasks_completed + goals_completed + events_completed > 0 THEN 1 END) AS days").
		Where("user_id = ? AND day >= ?", userID, cutoff).
		Scan(&row).Error
	if err != nil {
		return LifetimeStats{}, err
	}
	return LifetimeStats{
		TasksCompleted:  row.Tasks,
		GoalsCompleted:  row.Goals,
		EventsCompleted: row.Events,
		DaysActive:      row.Days,
	}, nil
}

// fetchSource reads the slice of a task/goal/event row the engine cares
// about, locking it for the rest of the transaction.
func fetchSource(tx *gorm.DB, table, sourceID, userID string) (*models.SourceRow, error) {
	var src models.SourceRow
	err := forUpdate(tx).Table(table).
		Where("id = ? AND user_id = ?", sourceID, userID).
		Take(&src).Error
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
