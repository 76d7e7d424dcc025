package leaderboard

import (
	"fmt"

	"lifeQuestClient/internal/progress"
)

type Entry struct {
	Position          int    `json:"position"`
	Name              string `json:"name"`
	XP                int    `json:"xp"`
	AchievementsCount int    `json:"achievementsCount"`
}

// Level uses the same formula as the profile screen.
func (e Entry) Level() int {
	return progress.DerivedLevel(e.XP)
}

type CurrentUser struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	XP       int    `json:"xp"`
}

func (c CurrentUser) Level() int {
	return progress.DerivedLevel(c.XP)
}

type Board struct {
	Entries     []Entry     `json:"leaderboard"`
	CurrentUser CurrentUser `json:"currentUser"`
}

// CheckPositions verifies that positions are exactly 1..n in order.
func CheckPositions(entries []Entry) error {
	for i, e := range entries {
		if e.Position != i+1 {
			return fmt.Errorf("leaderboard entry %d has position %d, want %d", i, e.Position, i+1)
		}
	}
	return nil
}
