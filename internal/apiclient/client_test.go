package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeQuestClient/internal/identity"
)

type rotatingSource struct {
	n atomic.Int64
}

func (r *rotatingSource) Assertion(context.Context) (identity.Assertion, bool) {
	id := r.n.Add(1)
	return identity.Assertion{User: identity.User{ID: id, FirstName: "User"}, Hash: "hash"}, true
}

func newTestClient(t *testing.T, h http.HandlerFunc, src identity.Source, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", src, opts...)
	require.NoError(t, err)
	return c
}

func TestAttachesIdentityHeaderFreshPerRequest(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get(identity.HeaderName))
		mu.Unlock()
		assert.Equal(t, "true", r.Header.Get("ngrok-skip-browser-warning"))
		w.Write([]byte(`{}`))
	}, &rotatingSource{})

	ctx := context.Background()
	require.NoError(t, c.Get(ctx, "/profile", "", nil, &struct{}{}))
	require.NoError(t, c.Get(ctx, "/profile", "", nil, &struct{}{}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	first, err := identity.ParseHeader(seen[0])
	require.NoError(t, err)
	second, err := identity.ParseHeader(seen[1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.User.ID)
	assert.Equal(t, int64(2), second.User.ID)
}

func TestAnonymousRequestStillSent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Empty(t, r.Header.Get(identity.HeaderName))
		w.Write([]byte(`{"tasks":[]}`))
	}, identity.Anonymous{})

	var out struct {
		Tasks []any `json:"tasks"`
	}
	require.NoError(t, c.Get(context.Background(), "/tasks", "", nil, &out))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPathAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks", r.URL.Path)
		assert.Equal(t, "weekly", r.URL.Query().Get("type"))
		w.Write([]byte(`{}`))
	}, nil)
	require.NoError(t, c.Get(context.Background(), "tasks", "", url.Values{"type": {"weekly"}}, &struct{}{}))
}

func TestServerErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"task not found"}`, "task not found"},
		{"message field", `{"message":"nope"}`, "nope"},
		{"plain text", "boom", "boom"},
		{"empty", "", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			}, nil)
			err := c.Delete(context.Background(), "/user-tasks/1", "/user-tasks/{id}")
			var se *ServerError
			require.True(t, errors.As(err, &se), "got %T", err)
			assert.Equal(t, http.StatusInternalServerError, se.Status)
			assert.Equal(t, tt.want, se.Message)
		})
	}
}

func TestNotFoundHelper(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"missing"}`))
	}, nil)
	err := c.Get(context.Background(), "/profile", "", nil, &struct{}{})
	assert.True(t, IsNotFound(err))
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"xp":"lots"}`))
	}, nil)
	var out struct {
		XP int `json:"xp"`
	}
	err := c.Get(context.Background(), "/profile", "", nil, &out)
	var de *DecodeError
	require.True(t, errors.As(err, &de), "got %T", err)
	assert.Equal(t, "/profile", de.Path)
}

func TestEmptyBodyWithOutputIsDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, nil)
	err := c.Get(context.Background(), "/profile", "", nil, &struct{}{})
	var de *DecodeError
	assert.True(t, errors.As(err, &de))

	assert.NoError(t, c.Delete(context.Background(), "/user-tasks/1", ""))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(base, nil, WithTimeout(time.Second))
	require.NoError(t, err)
	err = c.Get(context.Background(), "/profile", "", nil, &struct{}{})
	var ne *NetworkError
	require.True(t, errors.As(err, &ne), "got %T", err)
	assert.Equal(t, http.MethodGet, ne.Method)
}

func TestCancelledContextIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, nil, WithRateLimit(1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Get(ctx, "/profile", "", nil, &struct{}{})
	var ne *NetworkError
	assert.True(t, errors.As(err, &ne))
}

func TestRequestBodyAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Read", body["title"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"task_1"}`))
	}, nil, WithMetrics(m))

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, c.Post(context.Background(), "/user-tasks", "/user-tasks", map[string]string{"title": "Read"}, &out))
	assert.Equal(t, "task_1", out.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/user-tasks", http.MethodPost, "201")))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", nil)
	assert.Error(t, err)
	_, err = New("://", nil)
	assert.Error(t, err)
}
