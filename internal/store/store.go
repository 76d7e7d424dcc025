// Package store is the in-memory backend state served by the development
// server. Nothing is persisted; every account lives until the process exits.
package store

import (
	"errors"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifeQuestClient/internal/identity"
	"lifeQuestClient/internal/progress"
	"lifeQuestClient/internal/types/achievement"
	"lifeQuestClient/internal/types/challenge"
	"lifeQuestClient/internal/types/leaderboard"
	"lifeQuestClient/internal/types/profile"
	"lifeQuestClient/internal/types/task"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCompleted = errors.New("task already completed")
)

const leaderboardSize = 10

type account struct {
	profile      profile.Profile
	tasks        map[task.Period][]task.Task
	userTasks    []task.UserTask
	achievements []achievement.Achievement
	completed    profile.PeriodCounts
	categories   map[task.Category]profile.CategoryCounts
	lastActive   time.Time
}

type Memory struct {
	mu         sync.Mutex
	accounts   map[int64]*account
	challenges []challenge.Challenge
	now        func() time.Time
	newID      func() string
}

type Option func(*Memory)

// WithClock replaces time.Now, mostly for streak tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(m *Memory) { m.newID = gen }
}

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		accounts:   make(map[int64]*account),
		challenges: seedChallenges(),
		now:        time.Now,
		newID:      func() string { return "task_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Touch creates the account on first sight and refreshes its display fields.
func (m *Memory) Touch(u identity.User) profile.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.accountLocked(u.ID)
	if u.FirstName != "" {
		acc.profile.FirstName = u.FirstName
	}
	if u.LastName != "" {
		last := u.LastName
		acc.profile.LastName = &last
	}
	if u.Username != "" {
		acc.profile.Username = u.Username
	}
	return acc.profile
}

func (m *Memory) accountLocked(userID int64) *account {
	if acc, ok := m.accounts[userID]; ok {
		return acc
	}
	now := m.now()
	acc := &account{
		profile: profile.Profile{
			ID:         userID,
			TelegramID: strconv.FormatInt(userID, 10),
			CreatedAt:  now,
		},
		tasks:        make(map[task.Period][]task.Task, len(task.Periods)),
		userTasks:    []task.UserTask{},
		achievements: seedAchievements(),
		categories:   make(map[task.Category]profile.CategoryCounts),
	}
	for _, p := range task.Periods {
		acc.tasks[p] = seedTasks(p, now, m.newID)
	}
	m.accounts[userID] = acc
	return acc
}

// Tasks returns the recommended tasks of one period and the account total.
func (m *Memory) Tasks(userID int64, period task.Period) ([]task.Task, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)
	return slices.Clone(acc.tasks[period]), acc.profile.TotalXP
}

// CompleteTask grants the task XP. Completing a completed task is rejected.
func (m *Memory) CompleteTask(userID int64, id string) (task.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)

	for _, p := range task.Periods {
		for i, t := range acc.tasks[p] {
			if t.ID != id {
				continue
			}
			if t.Completed {
				return task.Task{}, 0, ErrAlreadyCompleted
			}
			t.Completed = true
			acc.tasks[p][i] = t
			m.recordCompletionLocked(acc, p, t.Category, t.XP)
			return t, acc.profile.TotalXP, nil
		}
	}
	return task.Task{}, 0, ErrNotFound
}

func (m *Memory) UserTasks(userID int64) []task.UserTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.accountLocked(userID).userTasks)
}

func (m *Memory) CreateUserTask(userID int64, d task.Draft) (task.UserTask, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return task.UserTask{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)

	t := task.UserTask{
		ID:          m.newID(),
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Priority:    d.Priority,
		Repeat:      d.Repeat,
		Deadline:    d.Deadline,
		XP:          d.XP,
		CreatedAt:   m.now(),
	}
	acc.userTasks = append(acc.userTasks, t)
	counts := acc.categories[t.Category]
	counts.Total++
	acc.categories[t.Category] = counts
	return t, nil
}

func (m *Memory) CompleteUserTask(userID int64, id string) (task.CompleteResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)

	i := slices.IndexFunc(acc.userTasks, func(t task.UserTask) bool { return t.ID == id })
	if i < 0 {
		return task.CompleteResponse{}, ErrNotFound
	}
	t := acc.userTasks[i]
	if t.Completed {
		return task.CompleteResponse{}, ErrAlreadyCompleted
	}
	t.Completed = true
	acc.userTasks[i] = t
	bonus := m.recordCompletionLocked(acc, "", t.Category, t.XP)

	total := acc.profile.TotalXP
	return task.CompleteResponse{XPEarned: t.XP + bonus, TotalXP: &total}, nil
}

func (m *Memory) UpdateUserTask(userID int64, id string, p task.Patch) (task.UserTask, error) {
	if err := p.Validate(); err != nil {
		return task.UserTask{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)

	i := slices.IndexFunc(acc.userTasks, func(t task.UserTask) bool { return t.ID == id })
	if i < 0 {
		return task.UserTask{}, ErrNotFound
	}
	acc.userTasks[i] = p.Apply(acc.userTasks[i])
	return acc.userTasks[i], nil
}

func (m *Memory) DeleteUserTask(userID int64, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)

	i := slices.IndexFunc(acc.userTasks, func(t task.UserTask) bool { return t.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	acc.userTasks = slices.Delete(acc.userTasks, i, i+1)
	return nil
}

func (m *Memory) Achievements(userID int64) achievement.ListResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)

	resp := achievement.ListResponse{
		Achievements: slices.Clone(acc.achievements),
		Stats: achievement.WireStats{
			TotalXP:           acc.profile.TotalXP,
			TotalAchievements: len(acc.achievements),
		},
	}
	for _, a := range acc.achievements {
		if a.Unlocked() {
			resp.Stats.AchievementsUnlocked++
		}
	}
	resp.Stats.DailyCompleted, resp.Stats.DailyTotal = periodProgress(acc.tasks[task.PeriodDaily])
	resp.Stats.WeeklyCompleted, resp.Stats.WeeklyTotal = periodProgress(acc.tasks[task.PeriodWeekly])
	resp.Stats.MonthlyCompleted, resp.Stats.MonthlyTotal = periodProgress(acc.tasks[task.PeriodMonthly])
	return resp
}

func periodProgress(tasks []task.Task) (completed, total int) {
	return progress.CountCompleted(tasks), len(tasks)
}

// Leaderboard ranks every account by XP and returns the top page plus the
// caller's own position.
func (m *Memory) Leaderboard(userID int64) leaderboard.Board {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountLocked(userID)

	type ranked struct {
		id   int64
		name string
		xp   int
		ach  int
	}
	all := make([]ranked, 0, len(m.accounts))
	for id, acc := range m.accounts {
		unlocked := 0
		for _, a := range acc.achievements {
			if a.Unlocked() {
				unlocked++
			}
		}
		all = append(all, ranked{id: id, name: acc.profile.DisplayName(), xp: acc.profile.TotalXP, ach: unlocked})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].xp != all[j].xp {
			return all[i].xp > all[j].xp
		}
		return all[i].id < all[j].id
	})

	board := leaderboard.Board{Entries: make([]leaderboard.Entry, 0, min(len(all), leaderboardSize))}
	for i, r := range all {
		if i < leaderboardSize {
			board.Entries = append(board.Entries, leaderboard.Entry{
				Position:          i + 1,
				Name:              r.name,
				XP:                r.xp,
				AchievementsCount: r.ach,
			})
		}
		if r.id == userID {
			board.CurrentUser = leaderboard.CurrentUser{Position: i + 1, Name: r.name, XP: r.xp}
		}
	}
	return board
}

func (m *Memory) Profile(userID int64) profile.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accountLocked(userID).profile
}

func (m *Memory) Stats(userID int64) profile.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)

	st := profile.Stats{
		TasksCompleted: acc.completed,
		Categories:     make(map[string]profile.CategoryCounts, len(task.Categories)),
		Achievements:   profile.AchievementCounts{Total: len(acc.achievements)},
	}
	for _, c := range task.Categories {
		counts := acc.categories[c]
		for _, p := range task.Periods {
			for _, t := range acc.tasks[p] {
				if t.Category == c {
					counts.Total++
				}
			}
		}
		st.Categories[string(c)] = counts
	}
	for _, a := range acc.achievements {
		if a.Unlocked() {
			st.Achievements.Unlocked++
		}
	}
	return st
}

func (m *Memory) UpdateProfile(userID int64, u profile.Update) (profile.Profile, error) {
	if u.Empty() {
		return profile.Profile{}, errors.New("nothing to update")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountLocked(userID)
	if u.FirstName != nil {
		acc.profile.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		last := *u.LastName
		acc.profile.LastName = &last
	}
	if u.Username != nil {
		acc.profile.Username = *u.Username
	}
	return acc.profile, nil
}

func (m *Memory) Challenges(typ challenge.Type) []challenge.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]challenge.Challenge, 0, len(m.challenges))
	for _, c := range m.challenges {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// recordCompletionLocked updates XP, counters, the streak and achievement
// progress. An empty period counts toward the total only. It returns the XP
// granted by achievements this completion unlocked.
func (m *Memory) recordCompletionLocked(acc *account, period task.Period, category task.Category, xp int) int {
	acc.profile.TotalXP += xp

	switch period {
	case task.PeriodDaily:
		acc.completed.Daily++
	case task.PeriodWeekly:
		acc.completed.Weekly++
	case task.PeriodMonthly:
		acc.completed.Monthly++
	}
	acc.completed.Total++

	counts := acc.categories[category]
	counts.Completed++
	acc.categories[category] = counts

	m.touchStreakLocked(acc)

	bonus := 0
	for i, a := range acc.achievements {
		if a.Unlocked() {
			continue
		}
		switch a.Type {
		case achievementTypeStreak:
			a.Progress = acc.profile.Streak.Current
		default:
			if a.Category == category {
				a.Progress++
			}
		}
		a = a.Normalize()
		if a.Unlocked() {
			acc.profile.TotalXP += a.XPReward
			bonus += a.XPReward
		}
		acc.achievements[i] = a
	}
	return bonus
}

func (m *Memory) touchStreakLocked(acc *account) {
	today := truncateDay(m.now())
	switch {
	case acc.lastActive.Equal(today):
		return
	case acc.lastActive.Equal(today.AddDate(0, 0, -1)):
		acc.profile.Streak.Current++
	default:
		acc.profile.Streak.Current = 1
	}
	acc.lastActive = today
	acc.profile.Streak.Longest = max(acc.profile.Streak.Longest, acc.profile.Streak.Current)
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
