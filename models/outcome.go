package models

// Stable reason codes returned when a reward or claim is rejected.
// These are expected, structured outcomes that callers branch on; they are
// never surfaced as errors.
const (
	ReasonSourceNotFound        = "source_not_found"
	ReasonAlreadyRewarded       = "already_rewarded"
	ReasonNotCompleted          = "not_completed"
	ReasonCooldownNotReached    = "cooldown_not_reached"
	ReasonDailyLimitReached     = "daily_limit_reached"
	ReasonInvalidChallenge      = "invalid_challenge"
	ReasonAlreadyClaimed        = "already_claimed"
	ReasonChallengeNotCompleted = "challenge_not_completed"
)

// RewardOutcome is the structured result of ApplyReward and Claim.
type RewardOutcome struct {
	Awarded      bool           `json:"awarded"`
	Reason       string         `json:"reason,omitempty"`
	XP           int64          `json:"xp"`
	Coins        int64          `json:"coins"`
	Achievements []string       `json:"achievements"`
	Streak       *StreakOutcome `json:"streak,omitempty"`
}

// Rejected builds a no-side-effect rejection outcome.
func Rejected(reason string) *RewardOutcome {
	return &RewardOutcome{Awarded: false, Reason: reason, Achievements: []string{}}
}
