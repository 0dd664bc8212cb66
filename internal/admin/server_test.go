package admin

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/session"
)

type fakeStats []session.Stats

func (f fakeStats) AllStats() []session.Stats { return f }

func (f fakeStats) Stats(repo string) (session.Stats, bool) {
	for _, s := range f {
		if s.Repository == repo {
			return s, true
		}
	}
	return session.Stats{}, false
}

var stats = fakeStats{
	{Repository: "main", Capacity: 4, Active: 1, Idle: 2, Borrowed: 10, BorrowTimeouts: 3, Destroyed: 1},
	{Repository: "audit", Capacity: 2},
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Routes(t *testing.T) {
	h := NewServer(Config{Stats: stats, Logger: testutil.NewTestLogger(t)}).Handler()

	t.Run("healthz", func(t *testing.T) {
		rec := get(t, h, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, float64(2), body["repositories"])
	})

	t.Run("pools", func(t *testing.T) {
		rec := get(t, h, "/pools")
		require.Equal(t, http.StatusOK, rec.Code)

		var got []session.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, []session.Stats(stats), got)
		assert.Contains(t, rec.Body.String(), `"borrow_timeouts_total": 3`)
	})

	t.Run("single pool", func(t *testing.T) {
		rec := get(t, h, "/pools/main")
		require.Equal(t, http.StatusOK, rec.Code)

		var got session.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, stats[0], got)
	})

	t.Run("unknown pool", func(t *testing.T) {
		rec := get(t, h, "/pools/missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `unknown repository \"missing\"`)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := get(t, h, "/metrics")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		for _, line := range []string{
			`leapstore_pool_capacity{repository="main"} 4`,
			`leapstore_pool_active_sessions{repository="main"} 1`,
			`leapstore_pool_idle_sessions{repository="main"} 2`,
			`leapstore_pool_borrowed_total{repository="main"} 10`,
			`leapstore_pool_borrow_timeouts_total{repository="main"} 3`,
			`leapstore_pool_destroyed_total{repository="main"} 1`,
			`leapstore_pool_capacity{repository="audit"} 2`,
			`# TYPE leapstore_pool_destroyed_total counter`,
			`# TYPE leapstore_pool_idle_sessions gauge`,
		} {
			assert.Contains(t, body, line)
		}
		assert.NotContains(t, body, "go_goroutines", "runtime metrics are opt-in")
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pools", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestServer_RuntimeMetrics(t *testing.T) {
	h := NewServer(Config{Stats: fakeStats{}, RuntimeMetrics: true}).Handler()
	rec := get(t, h, "/metrics")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_ServeListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(Config{Stats: stats, Logger: testutil.NewTestLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/pools/main")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"repository": "main"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_ServeBadAddr(t *testing.T) {
	err := NewServer(Config{Addr: "256.0.0.1:http", Stats: stats}).Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
