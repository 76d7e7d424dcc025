package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeQuestClient/handlers"
	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/identity"
	"lifeQuestClient/internal/progress"
	"lifeQuestClient/internal/store"
	"lifeQuestClient/internal/types/challenge"
	"lifeQuestClient/internal/types/profile"
	"lifeQuestClient/internal/types/task"
)

var testUser = identity.Static{User: identity.User{ID: 1001, FirstName: "Alex", Username: "alex"}, Hash: "query_id=1"}

func newClient(t *testing.T, h http.Handler) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := apiclient.New(srv.URL+"/api", testUser)
	require.NoError(t, err)
	return c
}

func newStubClient(t *testing.T) (*apiclient.Client, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return newClient(t, handlers.NewRouter(handlers.RouterConfig{Store: mem})), mem
}

// countingHandler counts requests per method+path prefix before delegating.
type countingHandler struct {
	next  http.Handler
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[r.Method+" "+r.URL.Path]++
	c.mu.Unlock()
	c.next.ServeHTTP(w, r)
}

func (c *countingHandler) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

func TestDashboardConfirmedCompletion(t *testing.T) {
	client, _ := newStubClient(t)
	dash, svc := NewDashboard(client, DashboardEndpoints, nil)
	t.Cleanup(dash.Close)

	ctx := context.Background()
	require.NoError(t, dash.Load(ctx, task.PeriodDaily))
	items := dash.Items()
	require.Len(t, items, 4)
	available := progress.TotalAvailableReward(items)

	var events []collection.CompletionEvent
	dash.OnComplete(func(e collection.CompletionEvent) { events = append(events, e) })

	first := items[0]
	require.NoError(t, dash.Complete(ctx, first.ID))

	got, ok := dash.Find(first.ID)
	require.True(t, ok)
	assert.True(t, got.Completed)
	assert.Equal(t, available-first.XP, progress.TotalAvailableReward(dash.Items()))

	require.Len(t, events, 1)
	assert.Equal(t, first.XP, events[0].Granted)

	assert.ErrorIs(t, dash.Complete(ctx, first.ID), collection.ErrAlreadyCompleted)

	require.NoError(t, dash.Load(ctx, task.PeriodDaily))
	total, ok := svc.TotalXP()
	require.True(t, ok)
	assert.Equal(t, first.XP, total)
}

func TestSystemTaskEndpoints(t *testing.T) {
	counter := &countingHandler{next: handlers.NewRouter(handlers.RouterConfig{Store: store.NewMemory()})}
	client := newClient(t, counter)
	dash, _ := NewDashboard(client, SystemTaskEndpoints, nil)
	t.Cleanup(dash.Close)

	require.NoError(t, dash.Load(context.Background(), task.PeriodMonthly))
	assert.Len(t, dash.Items(), 2)
	assert.Equal(t, 1, counter.count("GET /api/system-tasks"))

	err := dash.Load(context.Background(), task.Period("yearly"))
	var lerr *collection.LoadError
	assert.True(t, errors.As(err, &lerr))
	assert.Len(t, dash.Items(), 2)
}

func TestUserTaskCreateAppearsOnce(t *testing.T) {
	client, _ := newStubClient(t)
	tasks := NewUserTasks(client, nil)
	t.Cleanup(tasks.Close)

	ctx := context.Background()
	require.NoError(t, tasks.Load(ctx, progress.FilterAll))
	assert.True(t, tasks.Snapshot().Empty())

	d := task.NewDraft("Read")
	d.Category = task.CategoryMeaning
	d.Priority = task.PriorityLow
	created, err := tasks.Create(ctx, d)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.ID, "task_"))
	assert.False(t, created.Completed)

	require.NoError(t, tasks.Reload(ctx))
	items := tasks.Items()
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
}

func TestUserTaskValidationSendsNothing(t *testing.T) {
	counter := &countingHandler{next: handlers.NewRouter(handlers.RouterConfig{Store: store.NewMemory()})}
	tasks := NewUserTasks(newClient(t, counter), nil)
	t.Cleanup(tasks.Close)

	_, err := tasks.Create(context.Background(), task.Draft{Category: task.CategoryFinance})
	var verr *task.ValidationError
	require.True(t, errors.As(err, &verr))
	var cerr *collection.CreateError[task.Draft]
	assert.False(t, errors.As(err, &cerr))
	assert.Nil(t, tasks.Snapshot().MutationErr)
	assert.Zero(t, counter.count("POST /api/user-tasks"))
}

func TestUserTaskCompleteUpdateDelete(t *testing.T) {
	client, _ := newStubClient(t)
	tasks := NewUserTasks(client, nil)
	t.Cleanup(tasks.Close)
	ctx := context.Background()

	require.NoError(t, tasks.Load(ctx, progress.FilterAll))
	created, err := tasks.Create(ctx, task.NewDraft("Run"))
	require.NoError(t, err)

	var granted atomic.Int64
	tasks.OnComplete(func(e collection.CompletionEvent) { granted.Add(int64(e.Granted)) })
	require.NoError(t, tasks.Complete(ctx, created.ID))
	assert.Equal(t, int64(10), granted.Load())
	got, _ := tasks.Find(created.ID)
	assert.True(t, got.Completed)

	prio := task.PriorityHigh
	require.NoError(t, tasks.Update(ctx, created.ID, task.Patch{Priority: &prio}))
	got, _ = tasks.Find(created.ID)
	assert.Equal(t, task.PriorityHigh, got.Priority)

	require.NoError(t, tasks.Delete(ctx, created.ID))
	assert.Empty(t, tasks.Items())
}

func TestFailedDeleteKeepsTask(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user-tasks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tasks":[{"id":"task_123","title":"Read","category":"meaning","priority":"low","repeat":"none","xp":10,"completed":false}]}`))
	})
	mux.HandleFunc("DELETE /api/user-tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database down"}`))
	})
	tasks := NewUserTasks(newClient(t, mux), nil)
	t.Cleanup(tasks.Close)
	ctx := context.Background()

	require.NoError(t, tasks.Load(ctx, progress.FilterAll))
	err := tasks.Delete(ctx, "task_123")

	var se *apiclient.ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Status)

	items := tasks.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "task_123", items[0].ID)
	assert.Equal(t, err, tasks.Snapshot().MutationErr)
}

func TestOptimisticRollbackOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user-tasks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tasks":[{"id":"task_1","title":"A","category":"finance","priority":"low","repeat":"none","xp":10,"completed":false}]}`))
	})
	mux.HandleFunc("POST /api/user-tasks/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	tasks := NewUserTasks(newClient(t, mux), nil)
	t.Cleanup(tasks.Close)

	ctx := context.Background()
	require.NoError(t, tasks.Load(ctx, progress.FilterAll))
	assert.Error(t, tasks.Complete(ctx, "task_1"))
	got, _ := tasks.Find("task_1")
	assert.False(t, got.Completed)
}

func TestUserTaskFilterIsLocal(t *testing.T) {
	client, _ := newStubClient(t)
	tasks := NewUserTasks(client, nil)
	t.Cleanup(tasks.Close)
	ctx := context.Background()

	require.NoError(t, tasks.Load(ctx, progress.FilterAll))
	a, err := tasks.Create(ctx, task.NewDraft("a"))
	require.NoError(t, err)
	_, err = tasks.Create(ctx, task.NewDraft("b"))
	require.NoError(t, err)
	require.NoError(t, tasks.Complete(ctx, a.ID))

	require.NoError(t, tasks.Load(ctx, progress.FilterCompleted))
	items := tasks.Items()
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	require.NoError(t, tasks.Load(ctx, progress.FilterActive))
	assert.Len(t, tasks.Items(), 1)
}

func TestAchievementOverview(t *testing.T) {
	client, _ := newStubClient(t)
	svc := NewAchievementService(client)

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ov.Achievements)
	assert.Equal(t, len(ov.Achievements), ov.Stats.TotalAchievements)
	assert.Equal(t, "no data", ov.Stats.ProgressStats.Daily.Trend)
	assert.Equal(t, 4, ov.Stats.ProgressStats.Daily.Total)
	require.Len(t, ov.Board.Entries, 1)
	assert.Equal(t, "Alex", ov.Board.CurrentUser.Name)
	assert.Equal(t, 1, ov.Board.Entries[0].Level())

	achievements := NewAchievements(svc, nil)
	t.Cleanup(achievements.Close)
	require.NoError(t, achievements.Load(context.Background(), struct{}{}))
	assert.Len(t, achievements.Items(), len(ov.Achievements))
}

func TestAchievementsClampProgress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/achievements", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"achievements":[{"id":"a","requirement":30,"progress":45,"unlocked":false}],"stats":{"totalXP":10,"weeklyTrend":"+2"}}`))
	})
	svc := NewAchievementService(newClient(t, mux))

	items, stats, err := svc.GetAchievements(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 30, items[0].Progress)
	assert.True(t, items[0].Unlocked())
	assert.Equal(t, "+2", stats.ProgressStats.Weekly.Trend)
	assert.Equal(t, 10, svc.Stats().TotalXP)
}

func TestLeaderboardRejectsBrokenPositions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/achievements/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"leaderboard":[{"position":1,"name":"A","xp":15000},{"position":3,"name":"B","xp":12500}],"currentUser":{"position":1,"name":"A","xp":15000}}`))
	})
	svc := NewAchievementService(newClient(t, mux))
	board := NewLeaderboard(svc, nil)
	t.Cleanup(board.Close)

	err := board.Load(context.Background(), struct{}{})
	var de *apiclient.DecodeError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, collection.StatusError, board.Snapshot().Status)
}

func TestProfileService(t *testing.T) {
	client, _ := newStubClient(t)
	svc := NewProfileService(client)
	ctx := context.Background()

	p, err := svc.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), p.ID)
	assert.Equal(t, 1, p.Level())
	assert.Equal(t, 1000, p.XPToNextLevel())

	_, err = svc.UpdateProfile(ctx, profile.Update{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)

	name := "@alexander"
	p, err = svc.UpdateProfile(ctx, profile.Update{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "alexander", p.Username)

	st, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Len(t, st.Categories, len(task.Categories))
}

func TestChallenges(t *testing.T) {
	client, _ := newStubClient(t)
	challenges := NewChallenges(client, nil)
	t.Cleanup(challenges.Close)

	require.NoError(t, challenges.Load(context.Background(), challenge.TypeWeekly))
	items := challenges.Items()
	require.Len(t, items, 1)
	assert.Equal(t, challenge.TypeWeekly, items[0].Type)
}

func TestDecodeCompletionShapes(t *testing.T) {
	xp := func(tk task.Task) int { return tk.XP }
	tests := []struct {
		name    string
		body    string
		granted int
		entity  bool
		total   *int
		wantErr bool
	}{
		{name: "entity", body: `{"id":"t1","xp":40,"completed":true}`, granted: 40, entity: true},
		{name: "wrapped", body: `{"task":{"id":"t1","xp":25,"completed":true},"totalXP":1025}`, granted: 25, entity: true, total: ptr(1025)},
		{name: "counts", body: `{"xpEarned":50,"totalXP":1250}`, granted: 50, total: ptr(1250)},
		{name: "unknown", body: `{"ok":true}`, wantErr: true},
		{name: "not an object", body: `[1,2]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := decodeCompletion("/tasks/t1/complete", []byte(tt.body), xp)
			if tt.wantErr {
				var de *apiclient.DecodeError
				assert.True(t, errors.As(err, &de))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.granted, res.Granted)
			assert.Equal(t, tt.entity, res.Entity != nil)
			assert.Equal(t, tt.total, res.TotalXP)
		})
	}
}

func ptr(n int) *int { return &n }
