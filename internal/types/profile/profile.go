package profile

import (
	"time"

	"lifeQuestClient/internal/progress"
)

type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Profile never stores a level; it is derived from TotalXP so it cannot drift.
type Profile struct {
	ID         int64     `json:"id"`
	TelegramID string    `json:"telegramId"`
	Username   string    `json:"username"`
	FirstName  string    `json:"firstName"`
	LastName   *string   `json:"lastName"`
	TotalXP    int       `json:"totalXP"`
	Streak     Streak    `json:"streak"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (p Profile) Level() int         { return progress.DerivedLevel(p.TotalXP) }
func (p Profile) NextLevelXP() int   { return progress.NextLevelThreshold(p.TotalXP) }
func (p Profile) XPToNextLevel() int { return progress.XPToNextLevel(p.TotalXP) }

func (p Profile) DisplayName() string {
	name := p.FirstName
	if p.LastName != nil && *p.LastName != "" {
		name += " " + *p.LastName
	}
	if name == "" {
		name = p.Username
	}
	return name
}

type PeriodCounts struct {
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
	Total   int `json:"total"`
}

type CategoryCounts struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type AchievementCounts struct {
	Unlocked int `json:"unlocked"`
	Total    int `json:"total"`
}

type Stats struct {
	TasksCompleted PeriodCounts              `json:"tasksCompleted"`
	Categories     map[string]CategoryCounts `json:"categories"`
	Achievements   AchievementCounts         `json:"achievements"`
}

// Update is the body of PUT /profile.
type Update struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Username  *string `json:"username,omitempty"`
}

func (u Update) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Username == nil
}
