package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"habit-reward-system/models"
)

func newTestRewardService(t *testing.T) (*RewardService, *gorm.DB, *time.Time) {
	t.Helper()
	db := openTestDB(t)
	svc := NewRewardService(db, NewStreakService(db))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }
	return svc, db, clock
}

func seedTask(t *testing.T, db *gorm.DB, userID string, completed bool, createdAt time.Time) string {
	t.Helper()
	task := models.Task{
		UserID:    userID,
		Title:     "write report",
		Completed: completed,
	}
	task.CreatedAt = createdAt
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task.ID
}

func TestApplyRewardGrantsTask(t *testing.T) {
	svc, db, clock := newTestRewardService(t)
	userID := "user-1"
	taskID := seedTask(t, db, userID, true, clock.Add(-10*time.Minute))

	out, err := svc.ApplyReward(userID, models.SourceTask, taskID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.Awarded {
		t.Fatalf("outcome = %+v, want awarded", out)
	}
	// 10 task XP plus the first_task achievement bonus.
	if out.Coins != 2 {
		t.Fatalf("coins = %d, want 2", out.Coins)
	}
	if out.XP != 10+10 {
		t.Fatalf("xp = %d, want 20", out.XP)
	}
	if out.Streak == nil || out.Streak.CurrentStreak != 1 {
		t.Fatalf("streak = %+v, want current 1", out.Streak)
	}
	if len(out.Achievements) != 1 || out.Achievements[0] != "first_task" {
		t.Fatalf("achievements = %v, want [first_task]", out.Achievements)
	}

	var prog models.UserProgress
	if err := db.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if prog.XP != 20 || prog.Coins != 2 || prog.WeeklyXP != 20 || prog.MonthlyXP != 20 {
		t.Fatalf("progress = %+v", prog)
	}
	if !prog.UnlockedTitles.Has("getting-started") {
		t.Fatalf("titles = %v, want getting-started", prog.UnlockedTitles)
	}

	var task models.Task
	if err := db.First(&task, "id = ?", taskID).Error; err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.RewardedAt == nil {
		t.Fatal("rewarded_at not stamped")
	}
}

func TestApplyRewardIdempotent(t *testing.T) {
	svc, db, clock := newTestRewardService(t)
	userID := "user-2"
	taskID := seedTask(t, db, userID, true, clock.Add(-10*time.Minute))

	if out, err := svc.ApplyReward(userID, models.SourceTask, taskID); err != nil || !out.Awarded {
		t.Fatalf("first apply: %+v, %v", out, err)
	}
	out, err := svc.ApplyReward(userID, models.SourceTask, taskID)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if out.Awarded || out.Reason != models.ReasonAlreadyRewarded {
		t.Fatalf("second outcome = %+v, want already_rewarded", out)
	}

	var prog models.UserProgress
	if err := db.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if prog.Coins != 2 {
		t.Fatalf("coins doubled: %+v", prog)
	}
}

func TestApplyRewardLedgerConflictRollsBack(t *testing.T) {
	svc, db, clock := newTestRewardService(t)
	userID := "user-race"
	// Completed, old enough, not yet stamped: a concurrent grant won the
	// ledger insert but its rewarded_at stamp is not visible yet.
	taskID := seedTask(t, db, userID, true, clock.Add(-10*time.Minute))
	entry := models.RewardLedgerEntry{
		UserID:     userID,
		SourceType: models.SourceTask,
		SourceID:   taskID,
		XP:         10,
		Coins:      2,
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("seed ledger entry: %v", err)
	}

	out, err := svc.ApplyReward(userID, models.SourceTask, taskID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Awarded || out.Reason != models.ReasonAlreadyRewarded {
		t.Fatalf("outcome = %+v, want already_rewarded", out)
	}

	// The losing transaction rolled back completely.
	var prog models.UserProgress
	if err := db.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if prog.XP != 0 || prog.Coins != 0 {
		t.Fatalf("loser wrote progress: %+v", prog)
	}
	var task models.Task
	if err := db.First(&task, "id = ?", taskID).Error; err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.RewardedAt != nil {
		t.Fatal("loser stamped rewarded_at")
	}
	var counter models.RewardDailyCounter
	if err := db.Where("user_id = ?", userID).First(&counter).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if counter.TaskCount != 0 {
		t.Fatalf("loser bumped counter: %+v", counter)
	}
}

func TestApplyRewardRejections(t *testing.T) {
	svc, db, clock := newTestRewardService(t)
	userID := "user-3"

	// Unknown source id.
	out, err := svc.ApplyReward(userID, models.SourceTask, "nope")
	if err != nil || out.Reason != models.ReasonSourceNotFound {
		t.Fatalf("missing source: %+v, %v", out, err)
	}

	// Not completed.
	openID := seedTask(t, db, userID, false, clock.Add(-10*time.Minute))
	out, err = svc.ApplyReward(userID, models.SourceTask, openID)
	if err != nil || out.Reason != models.ReasonNotCompleted {
		t.Fatalf("open task: %+v, %v", out, err)
	}

	// Too fresh: two minutes old against a five minute cooldown.
	freshID := seedTask(t, db, userID, true, clock.Add(-2*time.Minute))
	out, err = svc.ApplyReward(userID, models.SourceTask, freshID)
	if err != nil || out.Reason != models.ReasonCooldownNotReached {
		t.Fatalf("fresh task: %+v, %v", out, err)
	}

	// Someone else's task is invisible.
	otherID := seedTask(t, db, "someone-else", true, clock.Add(-10*time.Minute))
	out, err = svc.ApplyReward(userID, models.SourceTask, otherID)
	if err != nil || out.Reason != models.ReasonSourceNotFound {
		t.Fatalf("foreign task: %+v, %v", out, err)
	}

	// Unknown source type is a caller bug, not an outcome.
	if _, err := svc.ApplyReward(userID, models.SourceType("bogus"), "x"); err == nil {
		t.Fatal("expected error for unknown source type")
	}
}

func TestApplyRewardDailyLimit(t *testing.T) {
	svc, db, clock := newTestRewardService(t)
	userID := "user-4"
	rule := RewardRules[models.SourceTask]

	for i := 0; i < rule.MaxPerDay; i++ {
		taskID := seedTask(t, db, userID, true, clock.Add(-10*time.Minute))
		out, err := svc.ApplyReward(userID, models.SourceTask, taskID)
		if err != nil || !out.Awarded {
			t.Fatalf("grant %d: %+v, %v", i, out, err)
		}
	}

	taskID := seedTask(t, db, userID, true, clock.Add(-10*time.Minute))
	out, err := svc.ApplyReward(userID, models.SourceTask, taskID)
	if err != nil {
		t.Fatalf("over-limit apply: %v", err)
	}
	if out.Awarded || out.Reason != models.ReasonDailyLimitReached {
		t.Fatalf("over-limit outcome = %+v", out)
	}

	// The next day the cap resets.
	*clock = clock.AddDate(0, 0, 1)
	out, err = svc.ApplyReward(userID, models.SourceTask, taskID)
	if err != nil || !out.Awarded {
		t.Fatalf("next-day apply: %+v, %v", out, err)
	}
}

func TestApplyRewardXPBoost(t *testing.T) {
	svc, db, clock := newTestRewardService(t)
	userID := "user-5"

	if err := ensureUserRows(db, userID, ""); err != nil {
		t.Fatalf("ensure rows: %v", err)
	}
	expires := clock.Add(time.Hour)
	var inv models.Inventory
	if err := db.Where("user_id = ?", userID).First(&inv).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	inv.Powerups.Items = append(inv.Powerups.Items,
		models.Powerup{ItemID: "boost-a", Type: models.PowerupXPBoost, Value: 1.5, ExpiresAt: &expires},
		models.Powerup{ItemID: "boost-b", Type: models.PowerupXPBoost, Value: 2.0, ExpiresAt: &expires},
	)
	if err := db.Save(&inv).Error; err != nil {
		t.Fatalf("save inventory: %v", err)
	}

	taskID := seedTask(t, db, userID, true, clock.Add(-10*time.Minute))
	out, err := svc.ApplyReward(userID, models.SourceTask, taskID)
	if err != nil || !out.Awarded {
		t.Fatalf("apply: %+v, %v", out, err)
	}
	// Strongest boost only: 10 * 2.0 = 20, plus the first_task bonus of 10.
	if out.XP != 30 {
		t.Fatalf("xp = %d, want 30", out.XP)
	}
	// Coins are unaffected by an xp boost.
	if out.Coins != 2 {
		t.Fatalf("coins = %d, want 2", out.Coins)
	}
}

func TestApplyRewardConsumesInstantLevel(t *testing.T) {
	svc, db, clock := newTestRewardService(t)
	userID := "user-instant"

	if err := ensureUserRows(db, userID, ""); err != nil {
		t.Fatalf("ensure rows: %v", err)
	}
	var inv models.Inventory
	if err := db.Where("user_id = ?", userID).First(&inv).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	inv.Powerups.Items = append(inv.Powerups.Items,
		models.Powerup{ItemID: "jump", Type: models.PowerupInstantLevel, Value: 1},
	)
	if err := db.Save(&inv).Error; err != nil {
		t.Fatalf("save inventory: %v", err)
	}

	taskID := seedTask(t, db, userID, true, clock.Add(-10*time.Minute))
	out, err := svc.ApplyReward(userID, models.SourceTask, taskID)
	if err != nil || !out.Awarded {
		t.Fatalf("apply: %+v, %v", out, err)
	}
	// 10 task XP + 10 first_task bonus, then the jump tops up to the
	// level 2 floor of 100.
	if out.XP != 100 {
		t.Fatalf("xp = %d, want 100", out.XP)
	}

	var prog models.UserProgress
	if err := db.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if prog.XP != 100 || prog.Level != 2 {
		t.Fatalf("progress = xp %d level %d, want 100/2", prog.XP, prog.Level)
	}

	// The powerup is spent.
	if err := db.Where("user_id = ?", userID).First(&inv).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	for _, p := range inv.Powerups.Items {
		if p.Type == models.PowerupInstantLevel {
			t.Fatalf("instant level not consumed: %+v", inv.Powerups.Items)
		}
	}
}

func TestConsumeInstantLevelsIgnoresExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	list := models.PowerupList{Items: []models.Powerup{
		{ItemID: "stale", Type: models.PowerupInstantLevel, Value: 1, ExpiresAt: &past},
	}}

	if got := consumeInstantLevels(&list, 0, now); got != 0 {
		t.Fatalf("expired jump granted %d xp", got)
	}
}

func TestSetActiveTitle(t *testing.T) {
	svc, db, clock := newTestRewardService(t)
	userID := "user-6"
	taskID := seedTask(t, db, userID, true, clock.Add(-10*time.Minute))
	if out, err := svc.ApplyReward(userID, models.SourceTask, taskID); err != nil || !out.Awarded {
		t.Fatalf("apply: %+v, %v", out, err)
	}

	prog, err := svc.SetActiveTitle(userID, "getting-started")
	if err != nil {
		t.Fatalf("set title: %v", err)
	}
	if prog.ActiveTitle != "getting-started" {
		t.Fatalf("active title = %q", prog.ActiveTitle)
	}

	if _, err := svc.SetActiveTitle(userID, "unstoppable"); err == nil {
		t.Fatal("expected rejection for locked title")
	}

	prog, err = svc.SetActiveTitle(userID, "")
	if err != nil || prog.ActiveTitle != "" {
		t.Fatalf("clear title: %+v, %v", prog, err)
	}
}
