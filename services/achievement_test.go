package services

import (
	"testing"

	"habit-reward-system/models"
)

func TestEvaluateAchievementsFirstTask(t *testing.T) {
	result := EvaluateAchievements(models.StringSet{}, LifetimeStats{TasksCompleted: 1})

	if len(result.Unlocked) != 1 || result.Unlocked[0].ID != "first_task" {
		t.Fatalf("unlocked = %+v, want exactly first_task", result.Unlocked)
	}
	if result.BonusXP != 10 {
		t.Fatalf("bonus = %d, want 10", result.BonusXP)
	}
	if !result.Achievements.Has("first_task") {
		t.Fatal("first_task missing from achievement set")
	}
}

func TestEvaluateAchievementsSkipsKnown(t *testing.T) {
	known := models.StringSet{"first_task"}
	result := EvaluateAchievements(known, LifetimeStats{TasksCompleted: 5})

	if len(result.Unlocked) != 0 {
		t.Fatalf("unlocked = %+v, want none", result.Unlocked)
	}
	if result.BonusXP != 0 {
		t.Fatalf("bonus = %d, want 0", result.BonusXP)
	}
	if len(known) != 1 {
		t.Fatalf("input set mutated: %+v", known)
	}
}

func TestEvaluateAchievementsMultipleAtOnce(t *testing.T) {
	result := EvaluateAchievements(models.StringSet{}, LifetimeStats{
		TasksCompleted: 10,
		CurrentStreak:  3,
	})

	wantIDs := map[string]bool{"first_task": true, "task_10": true, "streak_3": true}
	if len(result.Unlocked) != len(wantIDs) {
		t.Fatalf("unlocked %d rules, want %d: %+v", len(result.Unlocked), len(wantIDs), result.Unlocked)
	}
	var wantBonus int64
	for _, r := range result.Unlocked {
		if !wantIDs[r.ID] {
			t.Fatalf("unexpected unlock %s", r.ID)
		}
		wantBonus += r.BonusXP
	}
	if result.BonusXP != wantBonus {
		t.Fatalf("bonus = %d, want %d", result.BonusXP, wantBonus)
	}
}

func TestEvaluateAchievementsLongestStreakRules(t *testing.T) {
	// streak_30 keys on the longest streak, so it survives a later reset.
	result := EvaluateAchievements(models.StringSet{}, LifetimeStats{
		CurrentStreak: 1,
		LongestStreak: 30,
	})
	found := false
	for _, r := range result.Unlocked {
		if r.ID == "streak_30" {
			found = true
		}
	}
	if !found {
		t.Fatalf("streak_30 not unlocked: %+v", result.Unlocked)
	}
}

func TestAchievementRuleTitleIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range AchievementRules {
		id := r.TitleID()
		if id == "" {
			t.Fatalf("rule %s has empty title id", r.ID)
		}
		if seen[id] {
			t.Fatalf("duplicate title id %s", id)
		}
		seen[id] = true
	}
}
