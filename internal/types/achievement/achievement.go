package achievement

import "lifeQuestClient/internal/types/task"

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Rank orders rarities: common < rare < epic < legendary. Unknown values rank 0.
func (r Rarity) Rank() int {
	switch r {
	case RarityCommon:
		return 1
	case RarityRare:
		return 2
	case RarityEpic:
		return 3
	case RarityLegendary:
		return 4
	default:
		return 0
	}
}

// Achievement is unlocked iff Progress >= Requirement; a server-sent flag is ignored.
type Achievement struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        string        `json:"type"`
	Rarity      Rarity        `json:"rarity"`
	Category    task.Category `json:"category"`
	Requirement int           `json:"requirement"`
	Progress    int           `json:"progress"`
	XPReward    int           `json:"xpReward"`
	Icon        string        `json:"icon,omitempty"`
}

func (a Achievement) Unlocked() bool {
	return a.Requirement >= 0 && a.Progress >= a.Requirement
}

// MaxProgress is the threshold shown on the progress bar.
func (a Achievement) MaxProgress() int { return a.Requirement }

// Normalize clamps progress into [0, requirement].
func (a Achievement) Normalize() Achievement {
	if a.Requirement < 0 {
		a.Requirement = 0
	}
	if a.Progress < 0 {
		a.Progress = 0
	}
	if a.Progress > a.Requirement {
		a.Progress = a.Requirement
	}
	return a
}

const NoTrend = "no data"

type PeriodProgress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Trend     string `json:"trend"`
}

type ProgressStats struct {
	Daily   PeriodProgress `json:"daily"`
	Weekly  PeriodProgress `json:"weekly"`
	Monthly PeriodProgress `json:"monthly"`
}

// For returns the progress bucket of the given period.
func (p ProgressStats) For(period task.Period) PeriodProgress {
	switch period {
	case task.PeriodWeekly:
		return p.Weekly
	case task.PeriodMonthly:
		return p.Monthly
	default:
		return p.Daily
	}
}

type Stats struct {
	TotalXP              int           `json:"totalXP"`
	AchievementsUnlocked int           `json:"achievementsUnlocked"`
	TotalAchievements    int           `json:"totalAchievements"`
	ProgressStats        ProgressStats `json:"progressStats"`
}

// WireStats is the flat stats object of GET /achievements.
type WireStats struct {
	TotalXP              int    `json:"totalXP"`
	AchievementsUnlocked int    `json:"achievementsUnlocked"`
	TotalAchievements    int    `json:"totalAchievements"`
	DailyCompleted       int    `json:"dailyCompleted"`
	DailyTotal           int    `json:"dailyTotal"`
	DailyTrend           string `json:"dailyTrend,omitempty"`
	WeeklyCompleted      int    `json:"weeklyCompleted"`
	WeeklyTotal          int    `json:"weeklyTotal"`
	WeeklyTrend          string `json:"weeklyTrend,omitempty"`
	MonthlyCompleted     int    `json:"monthlyCompleted"`
	MonthlyTotal         int    `json:"monthlyTotal"`
	MonthlyTrend         string `json:"monthlyTrend,omitempty"`
}

func (w WireStats) Stats() Stats {
	return Stats{
		TotalXP:              w.TotalXP,
		AchievementsUnlocked: w.AchievementsUnlocked,
		TotalAchievements:    w.TotalAchievements,
		ProgressStats: ProgressStats{
			Daily:   PeriodProgress{Completed: w.DailyCompleted, Total: w.DailyTotal, Trend: trendOrDefault(w.DailyTrend)},
			Weekly:  PeriodProgress{Completed: w.WeeklyCompleted, Total: w.WeeklyTotal, Trend: trendOrDefault(w.WeeklyTrend)},
			Monthly: PeriodProgress{Completed: w.MonthlyCompleted, Total: w.MonthlyTotal, Trend: trendOrDefault(w.MonthlyTrend)},
		},
	}
}

func trendOrDefault(t string) string {
	if t == "" {
		return NoTrend
	}
	return t
}

// ListResponse is the body of GET /achievements.
type ListResponse struct {
	Achievements []Achievement `json:"achievements"`
	Stats        WireStats     `json:"stats"`
}
