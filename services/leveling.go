package services

import "math"

// Leveling curve: each level costs 1.5x the previous one, starting at 100 XP.
// The curve is computed in float64 so it stays total for arbitrarily large
// levels; stored XP values are small integers in practice.

// XPForLevel returns the XP cost of the given level, i.e. the amount needed
// to move from the start of `level` to the start of `level+1`. Strictly
// increasing for level >= 1; zero below that.
func XPForLevel(level int) float64 {
	if level < 1 {
		return 0
	}
	return math.Floor(100 * math.Pow(1.5, float64(level-1)))
}

// TotalXPForLevel returns the cumulative XP required to reach the start of
// the given level. Zero for level <= 1.
func TotalXPForLevel(level int) float64 {
	var total float64
	for l := 1; l < level; l++ {
		total += XPForLevel(l)
	}
	return total
}

// LevelFromXP returns the smallest level whose cumulative XP range contains
// xp. Walks upward accumulating thresholds; levels stay small in practice.
func LevelFromXP(xp float64) int {
	if xp < 0 {
		return 1
	}
	level := 1
	cum := XPForLevel(1)
	for xp >= cum {
		level++
		cum += XPForLevel(level)
	}
	return level
}

// levelForXP is the engine-facing wrapper over stored integer XP.
func levelForXP(xp int64) int {
	return LevelFromXP(float64(xp))
}
