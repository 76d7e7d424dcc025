package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeQuestClient/internal/identity"
)

const botToken = "123456:TEST-TOKEN"

func whoAmI(w http.ResponseWriter, r *http.Request) {
	u, ok := GetTelegramUser(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(strconv.FormatInt(u.ID, 10)))
}

func headerFor(t *testing.T, a identity.Assertion) string {
	t.Helper()
	v, err := a.HeaderValue()
	require.NoError(t, err)
	return v
}

func TestTelegramAuthRequiresHeader(t *testing.T) {
	h := NewTelegramAuth("", 0, nil).Middleware(http.HandlerFunc(whoAmI))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], identity.HeaderName)
}

func TestTelegramAuthWithoutTokenTrustsHeader(t *testing.T) {
	h := NewTelegramAuth("", 0, nil).Middleware(http.HandlerFunc(whoAmI))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set(identity.HeaderName, headerFor(t, identity.Assertion{User: identity.User{ID: 77}}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "77", rec.Body.String())
}

func TestTelegramAuthVerifiesSignature(t *testing.T) {
	user := identity.User{ID: 5, FirstName: "Kim"}
	b, err := json.Marshal(user)
	require.NoError(t, err)
	v := url.Values{}
	v.Set("user", string(b))
	v.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	signed := identity.SignInitData(v, botToken)

	h := NewTelegramAuth(botToken, time.Hour, nil).Middleware(http.HandlerFunc(whoAmI))

	tests := []struct {
		name string
		hash string
		want int
	}{
		{"valid", signed, http.StatusOK},
		{"wrong token", identity.SignInitData(v, "other"), http.StatusUnauthorized},
		{"no hash", "user=x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(identity.HeaderName, headerFor(t, identity.Assertion{User: user, Hash: tt.hash}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.getLimiter("10.0.0.1")
	rl.evict(0)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.visitors)
}

func TestMonitorMiddlewareUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := mux.NewRouter()
	r.Use(m.MonitorMiddleware)
	r.HandleFunc("/api/user-tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"task_1", "task_2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/user-tasks/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/user-tasks/{id}", http.MethodDelete, "204")))
}

func TestBasicAuthMiddleware(t *testing.T) {
	h := BasicAuthMiddleware("admin", "secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	closed := BasicAuthMiddleware("", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("", "")
	rec = httptest.NewRecorder()
	closed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
