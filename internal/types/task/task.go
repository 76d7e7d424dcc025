package task

import (
	"time"
)

type Category string

const (
	CategoryFinance       Category = "finance"
	CategoryRelationships Category = "relationships"
	CategoryMindfulness   Category = "mindfulness"
	CategoryEntertainment Category = "entertainment"
	CategoryMeaning       Category = "meaning"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryFinance,
	CategoryRelationships,
	CategoryMindfulness,
	CategoryEntertainment,
	CategoryMeaning,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

func (r Repeat) Valid() bool {
	return r == RepeatNone || r == RepeatDaily || r == RepeatWeekly || r == RepeatMonthly
}

// DateLayout is the wire format of deadlines.
const DateLayout = "2006-01-02"

// Task is a system-recommended task for one period.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Period      Period    `json:"period,omitempty"`
	XP          int       `json:"xp"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (t Task) RewardXP() int     { return t.XP }
func (t Task) IsCompleted() bool { return t.Completed }

// UserTask is a task created by the user from the task list screen.
type UserTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	Repeat      Repeat    `json:"repeat"`
	Deadline    *string   `json:"deadline,omitempty"`
	XP          int       `json:"xp"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (t UserTask) RewardXP() int     { return t.XP }
func (t UserTask) IsCompleted() bool { return t.Completed }

// DeadlineTime parses the deadline; ok is false when it is unset or malformed.
func (t UserTask) DeadlineTime() (time.Time, bool) {
	if t.Deadline == nil || *t.Deadline == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, *t.Deadline)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ListResponse is the body of GET /tasks and GET /system-tasks.
type ListResponse struct {
	Tasks   []Task `json:"tasks"`
	TotalXP *int   `json:"totalXP,omitempty"`
}

type UserTaskListResponse struct {
	Tasks []UserTask `json:"tasks"`
}

// CompleteResponse is the {xpEarned, totalXP} completion body some backend
// revisions return instead of the updated task.
type CompleteResponse struct {
	XPEarned int  `json:"xpEarned"`
	TotalXP  *int `json:"totalXP,omitempty"`
}
