package workers

import (
	"context"
	"testing"
	"time"

	"habit-reward-system/models"
)

func TestSchedulerResetJobs(t *testing.T) {
	db := openTestDB(t)
	for _, userID := range []string{"a", "b"} {
		prog := models.UserProgress{UserID: userID, Level: 1, WeeklyXP: 120, MonthlyXP: 400}
		if err := db.Create(&prog).Error; err != nil {
			t.Fatalf("seed progress: %v", err)
		}
	}

	sched, err := NewScheduler(db, NewLiveSweepWorker(db, nil, 50), nil, 15*time.Minute)
	if err != nil {
		t.Fatalf("build scheduler: %v", err)
	}
	t.Cleanup(func() { sched.Stop() })

	if err := sched.weeklyReset(context.Background()); err != nil {
		t.Fatalf("weekly reset: %v", err)
	}
	var progs []models.UserProgress
	if err := db.Find(&progs).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	for _, p := range progs {
		if p.WeeklyXP != 0 {
			t.Fatalf("weekly xp not zeroed: %+v", p)
		}
		if p.MonthlyXP != 400 {
			t.Fatalf("weekly reset touched monthly xp: %+v", p)
		}
	}

	if err := sched.monthlyReset(context.Background()); err != nil {
		t.Fatalf("monthly reset: %v", err)
	}
	if err := db.Find(&progs).Error; err != nil {
		t.Fatalf("reload progress: %v", err)
	}
	for _, p := range progs {
		if p.MonthlyXP != 0 {
			t.Fatalf("monthly xp not zeroed: %+v", p)
		}
	}
}
