package services

import (
	"github.com/gosimple/slug"

	"habit-reward-system/models"
)

// AchievementMetric names the lifetime stat a rule is scored against.
type AchievementMetric string

const (
	MetricTasksCompleted  AchievementMetric = "tasks_completed"
	MetricGoalsCompleted  AchievementMetric = "goals_completed"
	MetricEventsCompleted AchievementMetric = "events_completed"
	MetricCurrentStreak   AchievementMetric = "current_streak"
	MetricLongestStreak   AchievementMetric = "longest_streak"
	MetricDaysActive      AchievementMetric = "days_active"
)

// AchievementRule is one row of the rule table: unlock when the named metric
// reaches the threshold. Rules are data, evaluated by a single comparator;
// unlocking is irreversible.
type AchievementRule struct {
	ID        string
	Title     string
	Metric    AchievementMetric
	Threshold int64
	BonusXP   int64
}

// TitleID is the stable display-title id granted alongside the achievement.
func (r AchievementRule) TitleID() string {
	return slug.Make(r.Title)
}

// AchievementRules is evaluated in order on every progress-affecting write.
var AchievementRules = []AchievementRule{
	{ID: "first_task", Title: "Getting Started", Metric: MetricTasksCompleted, Threshold: 1, BonusXP: 10},
	{ID: "task_10", Title: "Checklist Regular", Metric: MetricTasksCompleted, Threshold: 10, BonusXP: 25},
	{ID: "task_50", Title: "Task Machine", Metric: MetricTasksCompleted, Threshold: 50, BonusXP: 75},
	{ID: "task_250", Title: "Productivity Engine", Metric: MetricTasksCompleted, Threshold: 250, BonusXP: 200},
	{ID: "first_goal", Title: "Dreamer", Metric: MetricGoalsCompleted, Threshold: 1, BonusXP: 20},
	{ID: "goal_10", Title: "Goal Getter", Metric: MetricGoalsCompleted, Threshold: 10, BonusXP: 100},
	{ID: "goal_50", Title: "Ambition Incarnate", Metric: MetricGoalsCompleted, Threshold: 50, BonusXP: 300},
	{ID: "first_event", Title: "Scheduler", Metric: MetricEventsCompleted, Threshold: 1, BonusXP: 10},
	{ID: "event_25", Title: "Calendar Keeper", Metric: MetricEventsCompleted, Threshold: 25, BonusXP: 50},
	{ID: "streak_3", Title: "Warming Up", Metric: MetricCurrentStreak, Threshold: 3, BonusXP: 15},
	{ID: "streak_7", Title: "One Week Wonder", Metric: MetricCurrentStreak, Threshold: 7, BonusXP: 50},
	{ID: "streak_30", Title: "Habit Forged", Metric: MetricLongestStreak, Threshold: 30, BonusXP: 200},
	{ID: "streak_100", Title: "Unstoppable", Metric: MetricLongestStreak, Threshold: 100, BonusXP: 500},
	{ID: "active_30", Title: "Regular", Metric: MetricDaysActive, Threshold: 30, BonusXP: 100},
	{ID: "active_180", Title: "Veteran", Metric: MetricDaysActive, Threshold: 180, BonusXP: 350},
}

// LifetimeStats are the metrics achievements are scored against, computed
// over a trailing ~364-day window of daily activity plus the streak row.
type LifetimeStats struct {
	TasksCompleted  int64
	GoalsCompleted  int64
	EventsCompleted int64
	DaysActive      int64
	CurrentStreak   int64
	LongestStreak   int64
}

func (s LifetimeStats) metric(m AchievementMetric) int64 {
	switch m {
	case MetricTasksCompleted:
		return s.TasksCompleted
	case MetricGoalsCompleted:
		return s.GoalsCompleted
	case MetricEventsCompleted:
		return s.EventsCompleted
	case MetricCurrentStreak:
		return s.CurrentStreak
	case MetricLongestStreak:
		return s.LongestStreak
	case MetricDaysActive:
		return s.DaysActive
	}
	return 0
}

// AchievementResult is the outcome of one evaluation pass.
type AchievementResult struct {
	Achievements models.StringSet  // known ∪ newly unlocked
	Unlocked     []AchievementRule // newly unlocked this pass, in table order
	BonusXP      int64
}

// EvaluateAchievements scores lifetime stats against the rule table.
// Already-known ids are skipped; no rule ever removes an id.
func EvaluateAchievements(known models.StringSet, stats LifetimeStats) AchievementResult {
	result := AchievementResult{
		Achievements: append(models.StringSet{}, known...),
	}
	for _, rule := range AchievementRules {
		if result.Achievements.Has(rule.ID) {
			continue
		}
		if stats.metric(rule.Metric) >= rule.Threshold {
			result.Achievements = append(result.Achievements, rule.ID)
			result.Unlocked = append(result.Unlocked, rule)
			result.BonusXP += rule.BonusXP
		}
	}
	return result
}

// unlockedIDs extracts the ids of newly unlocked rules.
func unlockedIDs(rules []AchievementRule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.ID)
	}
	return out
}

// unlockedTitleIDs extracts the display-title ids of newly unlocked rules.
func unlockedTitleIDs(rules []AchievementRule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.TitleID())
	}
	return out
}
