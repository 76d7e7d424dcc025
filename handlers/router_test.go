package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeQuestClient/internal/identity"
	"lifeQuestClient/internal/store"
	"lifeQuestClient/internal/types/task"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{Store: store.NewMemory(), MetricsUser: "admin", MetricsPass: "pw"})
}

func do(t *testing.T, h http.Handler, method, target, body string, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != 0 {
		v, err := identity.Assertion{User: identity.User{ID: userID, FirstName: "Test"}}.HeaderValue()
		require.NoError(t, err)
		req.Header.Set(identity.HeaderName, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIRequiresIdentity(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/tasks?type=daily", "", 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/health", "", 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestTasksByPeriod(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/tasks?type=weekly", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp task.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Tasks)
	for _, tk := range resp.Tasks {
		assert.Equal(t, task.PeriodWeekly, tk.Period)
	}
	require.NotNil(t, resp.TotalXP)

	rec = do(t, h, http.MethodGet, "/api/system-tasks?period=monthly", "", 1)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/tasks?type=yearly", "", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteTaskTwiceConflicts(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/tasks?type=daily", "", 1)
	var resp task.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id := resp.Tasks[0].ID

	rec = do(t, h, http.MethodPost, "/api/tasks/"+id+"/complete", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	var done task.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.True(t, done.Completed)

	rec = do(t, h, http.MethodPost, "/api/tasks/"+id+"/complete", "", 1)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/tasks/task_nope/complete", "", 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserTaskCRUD(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/user-tasks",
		`{"title":"Read","category":"meaning","priority":"low","repeat":"none","deadline":null,"xp":10}`, 3)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created task.UserTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.ID, "task_"))

	rec = do(t, h, http.MethodPatch, "/api/user-tasks/"+created.ID, `{"priority":"high"}`, 3)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/user-tasks/"+created.ID+"/complete", "", 3)
	require.Equal(t, http.StatusOK, rec.Code)
	var cr task.CompleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cr))
	assert.Equal(t, 10, cr.XPEarned)

	rec = do(t, h, http.MethodDelete, "/api/user-tasks/"+created.ID, "", 3)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/user-tasks", "", 3)
	var list task.UserTaskListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Tasks)
}

func TestCreateUserTaskValidation(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/user-tasks", `{"title":"","category":"finance","priority":"low","repeat":"none"}`, 3)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title")

	rec = do(t, h, http.MethodPost, "/api/user-tasks", `{`, 3)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChallengesType(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/challenges?type=monthly", "", 1)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "meditation_30")

	rec = do(t, h, http.MethodGet, "/api/challenges?type=daily", "", 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsRequiresBasicAuth(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/metrics", "", 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	do(t, h, http.MethodGet, "/health", "", 0)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("admin", "pw")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCORSPreflightAllowsIdentityHeader(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "https://web.telegram.org")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", identity.HeaderName)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
