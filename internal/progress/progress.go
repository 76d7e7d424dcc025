// Package progress holds the pure aggregates shown next to synchronized
// collections: available XP, completion ratios and level math.
package progress

import "math"

// XPPerLevel is the width of every level band.
const XPPerLevel = 1000

// Rewarded is anything that carries an XP reward and a completion flag.
type Rewarded interface {
	RewardXP() int
	IsCompleted() bool
}

// TotalAvailableReward sums the XP of entities that are not completed yet.
func TotalAvailableReward[T Rewarded](items []T) int {
	total := 0
	for _, item := range items {
		if !item.IsCompleted() {
			total += item.RewardXP()
		}
	}
	return total
}

// CountCompleted returns how many items are completed.
func CountCompleted[T Rewarded](items []T) int {
	n := 0
	for _, item := range items {
		if item.IsCompleted() {
			n++
		}
	}
	return n
}

// CompletionRatio is completed/total, or 0 when total is not positive.
func CompletionRatio(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total)
}

// CompletionPercent is CompletionRatio rounded to a whole percent.
func CompletionPercent(completed, total int) int {
	return int(math.Round(CompletionRatio(completed, total) * 100))
}

// DerivedLevel is floor(totalXP/1000)+1. Leaderboard entries and the profile
// both go through here so a user's level is the same everywhere.
func DerivedLevel(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/XPPerLevel + 1
}

// NextLevelThreshold is the total XP at which the next level starts.
func NextLevelThreshold(totalXP int) int {
	return DerivedLevel(totalXP) * XPPerLevel
}

func XPToNextLevel(totalXP int) int {
	return NextLevelThreshold(totalXP) - max(totalXP, 0)
}

// LevelProgress is how far into the current level band totalXP is, in [0, 1).
func LevelProgress(totalXP int) float64 {
	if totalXP < 0 {
		return 0
	}
	return float64(totalXP%XPPerLevel) / XPPerLevel
}
