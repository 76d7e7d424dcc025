package store

import (
	"time"

	"lifeQuestClient/internal/types/achievement"
	"lifeQuestClient/internal/types/challenge"
	"lifeQuestClient/internal/types/task"
)

const (
	achievementTypeCount  = "count"
	achievementTypeStreak = "streak"
)

type taskTemplate struct {
	category    task.Category
	title       string
	description string
	xp          int
}

var taskTemplates = map[task.Period][]taskTemplate{
	task.PeriodDaily: {
		{task.CategoryFinance, "Review expenses", "Look through last week's spending", 50},
		{task.CategoryRelationships, "Call someone close", "Spend some time talking with family", 30},
		{task.CategoryMindfulness, "Meditate", "15 minutes of mindful practice", 40},
		{task.CategoryMeaning, "Reflect on the day", "Write down three main takeaways", 35},
	},
	task.PeriodWeekly: {
		{task.CategoryFinance, "Plan the budget", "Set spending limits for next week", 120},
		{task.CategoryEntertainment, "Try something new", "Visit a place you have never been", 100},
		{task.CategoryRelationships, "Meet a friend", "Arrange an offline meeting", 90},
	},
	task.PeriodMonthly: {
		{task.CategoryMeaning, "Read a book", "Finish one book this month", 400},
		{task.CategoryMindfulness, "Digital detox day", "Spend a full day without social media", 300},
	},
}

func seedTasks(period task.Period, now time.Time, newID func() string) []task.Task {
	templates := taskTemplates[period]
	out := make([]task.Task, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, task.Task{
			ID:          newID(),
			Title:       tpl.title,
			Description: tpl.description,
			Category:    tpl.category,
			Period:      period,
			XP:          tpl.xp,
			CreatedAt:   now,
		})
	}
	return out
}

func seedAchievements() []achievement.Achievement {
	return []achievement.Achievement{
		{
			ID:          "finance_master",
			Title:       "Finance master",
			Description: "Complete 50 finance tasks",
			Type:        achievementTypeCount,
			Rarity:      achievement.RarityEpic,
			Category:    task.CategoryFinance,
			Requirement: 50,
			XPReward:    500,
			Icon:        "star",
		},
		{
			ID:          "mindfulness_guru",
			Title:       "Mindfulness guru",
			Description: "Stay active 30 days in a row",
			Type:        achievementTypeStreak,
			Rarity:      achievement.RarityLegendary,
			Category:    task.CategoryMindfulness,
			Requirement: 30,
			XPReward:    1000,
			Icon:        "medal",
		},
		{
			ID:          "first_call",
			Title:       "Keeping in touch",
			Description: "Complete 5 relationship tasks",
			Type:        achievementTypeCount,
			Rarity:      achievement.RarityCommon,
			Category:    task.CategoryRelationships,
			Requirement: 5,
			XPReward:    100,
			Icon:        "heart",
		},
		{
			ID:          "seeker",
			Title:       "Seeker",
			Description: "Complete 10 meaning tasks",
			Type:        achievementTypeCount,
			Rarity:      achievement.RarityRare,
			Category:    task.CategoryMeaning,
			Requirement: 10,
			XPReward:    250,
			Icon:        "compass",
		},
	}
}

func seedChallenges() []challenge.Challenge {
	return []challenge.Challenge{
		{
			ID:           "meditation_30",
			Title:        "30 days of meditation",
			Description:  "Meditate every day and build focus together with the community.",
			Type:         challenge.TypeMonthly,
			Participants: 1234,
			Comments:     89,
			Likes:        432,
			Reward:       "Golden meditation badge",
			Duration:     "30 days",
			StartDate:    "April 1",
			XP:           1000,
		},
		{
			ID:           "book_marathon",
			Title:        "Book marathon",
			Description:  "Read one book a week with the community and share what you learned.",
			Type:         challenge.TypeWeekly,
			Participants: 856,
			Comments:     156,
			Likes:        367,
			Reward:       "Bookworm badge",
			Duration:     "7 days",
			StartDate:    "April 5",
			XP:           500,
		},
	}
}
