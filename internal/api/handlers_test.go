package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neexbeast/routebot/internal/api"
	"github.com/neexbeast/routebot/internal/bot"
	"github.com/neexbeast/routebot/internal/discovery"
	"github.com/neexbeast/routebot/internal/metrics"
	"github.com/neexbeast/routebot/internal/myfly"
	"github.com/neexbeast/routebot/internal/storage"
)

// ---- mock implementations ----

type mockPoster struct {
	composeFn    func(ctx context.Context) (string, *discovery.Result, error)
	postFn       func(ctx context.Context, force bool) (string, error)
	postedFn     func(ctx context.Context) (bool, error)
	composeCalls int
}

func (m *mockPoster) Compose(ctx context.Context) (string, *discovery.Result, error) {
	m.composeCalls++
	return m.composeFn(ctx)
}
func (m *mockPoster) Post(ctx context.Context, force bool) (string, error) {
	return m.postFn(ctx, force)
}
func (m *mockPoster) PostedToday(ctx context.Context) (bool, error) {
	if m.postedFn == nil {
		return false, nil
	}
	return m.postedFn(ctx)
}

type mockHistory struct {
	recentFn func(ctx context.Context, limit int) ([]storage.Post, error)
}

func (m *mockHistory) RecentPosts(ctx context.Context, limit int) ([]storage.Post, error) {
	return m.recentFn(ctx, limit)
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// ---- helpers ----

const testToken = "secret-token"

func sampleResult() *discovery.Result {
	return &discovery.Result{
		Origin:      myfly.Airport{"id": 1, "iata": "AAA", "name": "Alpha"},
		Destination: myfly.Airport{"id": 2, "iata": "BBB", "name": "Beta"},
		Attempts:    3,
	}
}

func composingPoster() *mockPoster {
	return &mockPoster{
		composeFn: func(_ context.Context) (string, *discovery.Result, error) {
			return "Random Route of the Day", sampleResult(), nil
		},
		postFn: func(_ context.Context, _ bool) (string, error) { return "posted text", nil },
	}
}

func buildRouter(poster api.RoutePoster, history api.PostHistory, db, redis api.Pinger) http.Handler {
	log := zap.NewNop().Sugar()
	handlers := api.NewHandlers(poster, history, log)
	return api.NewRouter(handlers, testToken, db, redis, prometheus.NewRegistry(), log)
}

func do(router http.Handler, method, target string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- GET /api/v1/routes/preview ----

func TestPreview_ComposesAndCaches(t *testing.T) {
	poster := composingPoster()
	router := buildRouter(poster, nil, nil, nil)

	w := do(router, http.MethodGet, "/api/v1/routes/preview", true)
	require.Equal(t, http.StatusOK, w.Code)

	var got api.PreviewResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Random Route of the Day", got.Message)
	assert.Equal(t, "AAA (Alpha)", got.Origin)
	assert.Equal(t, "BBB (Beta)", got.Destination)
	assert.Equal(t, 3, got.Attempts)
	assert.False(t, got.Cached)

	w = do(router, http.MethodGet, "/api/v1/routes/preview", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.True(t, got.Cached)
	assert.Equal(t, 1, poster.composeCalls, "second preview should be served from cache")
}

func TestPreview_RefreshBypassesCache(t *testing.T) {
	poster := composingPoster()
	router := buildRouter(poster, nil, nil, nil)

	do(router, http.MethodGet, "/api/v1/routes/preview", true)
	w := do(router, http.MethodGet, "/api/v1/routes/preview?refresh=true", true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, poster.composeCalls)
}

func TestPreview_ReportsPostedToday(t *testing.T) {
	posted := false
	poster := composingPoster()
	poster.postedFn = func(_ context.Context) (bool, error) { return posted, nil }
	router := buildRouter(poster, nil, nil, nil)

	var got api.PreviewResponse
	w := do(router, http.MethodGet, "/api/v1/routes/preview", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.False(t, got.PostedToday)

	posted = true
	w = do(router, http.MethodGet, "/api/v1/routes/preview", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.True(t, got.Cached)
	assert.True(t, got.PostedToday, "cached previews still read the live ledger")
}

func TestPreview_LedgerErrorReportsNotPosted(t *testing.T) {
	poster := composingPoster()
	poster.postedFn = func(_ context.Context) (bool, error) { return false, fmt.Errorf("redis down") }

	w := do(buildRouter(poster, nil, nil, nil), http.MethodGet, "/api/v1/routes/preview", true)
	require.Equal(t, http.StatusOK, w.Code)

	var got api.PreviewResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.False(t, got.PostedToday)
}

func TestPreview_ComposeError(t *testing.T) {
	poster := &mockPoster{
		composeFn: func(_ context.Context) (string, *discovery.Result, error) {
			return "", nil, discovery.ErrAttemptsExhausted
		},
	}

	w := do(buildRouter(poster, nil, nil, nil), http.MethodGet, "/api/v1/routes/preview", true)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// ---- POST /api/v1/routes/post ----

func TestPost_Success(t *testing.T) {
	var gotForce bool
	poster := composingPoster()
	poster.postFn = func(_ context.Context, force bool) (string, error) {
		gotForce = force
		return "posted text", nil
	}

	w := do(buildRouter(poster, nil, nil, nil), http.MethodPost, "/api/v1/routes/post?force=true", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotForce)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "posted", body["status"])
	assert.Equal(t, "posted text", body["message"])
}

func TestPost_AlreadyPosted(t *testing.T) {
	poster := composingPoster()
	poster.postFn = func(_ context.Context, _ bool) (string, error) { return "", bot.ErrAlreadyPosted }

	w := do(buildRouter(poster, nil, nil, nil), http.MethodPost, "/api/v1/routes/post", true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPost_Failure(t *testing.T) {
	poster := composingPoster()
	poster.postFn = func(_ context.Context, _ bool) (string, error) { return "", fmt.Errorf("discord down") }

	w := do(buildRouter(poster, nil, nil, nil), http.MethodPost, "/api/v1/routes/post", true)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPost_InvalidatesPreview(t *testing.T) {
	poster := composingPoster()
	router := buildRouter(poster, nil, nil, nil)

	do(router, http.MethodGet, "/api/v1/routes/preview", true)
	do(router, http.MethodPost, "/api/v1/routes/post", true)
	do(router, http.MethodGet, "/api/v1/routes/preview", true)

	assert.Equal(t, 2, poster.composeCalls)
}

// ---- GET /api/v1/posts ----

func TestRecentPosts(t *testing.T) {
	var gotLimit int
	history := &mockHistory{
		recentFn: func(_ context.Context, limit int) ([]storage.Post, error) {
			gotLimit = limit
			return []storage.Post{{
				ID:         uuid.New(),
				ChannelID:  "123",
				OriginCode: "AAA",
				PostedAt:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			}}, nil
		},
	}

	tests := []struct {
		target    string
		wantCode  int
		wantLimit int
	}{
		{"/api/v1/posts", http.StatusOK, 20},
		{"/api/v1/posts?limit=5", http.StatusOK, 5},
		{"/api/v1/posts?limit=500", http.StatusOK, 100},
		{"/api/v1/posts?limit=0", http.StatusBadRequest, 0},
		{"/api/v1/posts?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			gotLimit = 0
			w := do(buildRouter(composingPoster(), history, nil, nil), http.MethodGet, tc.target, true)
			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantLimit, gotLimit)

			if tc.wantCode == http.StatusOK {
				var posts []storage.Post
				require.NoError(t, json.NewDecoder(w.Body).Decode(&posts))
				require.Len(t, posts, 1)
				assert.Equal(t, "AAA", posts[0].OriginCode)
			}
		})
	}
}

func TestRecentPosts_HistoryDisabled(t *testing.T) {
	w := do(buildRouter(composingPoster(), nil, nil, nil), http.MethodGet, "/api/v1/posts", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecentPosts_DBError(t *testing.T) {
	history := &mockHistory{
		recentFn: func(_ context.Context, _ int) ([]storage.Post, error) { return nil, fmt.Errorf("db down") },
	}

	w := do(buildRouter(composingPoster(), history, nil, nil), http.MethodGet, "/api/v1/posts", true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ---- GET /api/v1/health ----

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db, redis  api.Pinger
		wantCode   int
		wantStatus string
		wantDB     string
		wantRedis  string
	}{
		{"all ok", &mockPinger{}, &mockPinger{}, http.StatusOK, "ok", "ok", "ok"},
		{"nothing configured", nil, nil, http.StatusOK, "ok", "disabled", "disabled"},
		{"db down", &mockPinger{err: fmt.Errorf("db unreachable")}, &mockPinger{}, http.StatusServiceUnavailable, "degraded", "error", "ok"},
		{"redis down", nil, &mockPinger{err: fmt.Errorf("redis unreachable")}, http.StatusServiceUnavailable, "degraded", "disabled", "error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(buildRouter(composingPoster(), nil, tc.db, tc.redis), http.MethodGet, "/api/v1/health", false)
			assert.Equal(t, tc.wantCode, w.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.wantStatus, body["status"])
			assert.Equal(t, tc.wantDB, body["db"])
			assert.Equal(t, tc.wantRedis, body["redis"])
		})
	}
}

// ---- GET /metrics ----

func TestMetrics_NoAuth(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).ObservePost("sent")

	log := zap.NewNop().Sugar()
	router := api.NewRouter(api.NewHandlers(composingPoster(), nil, log), testToken, nil, nil, reg, log)

	w := do(router, http.MethodGet, "/metrics", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `routebot_posts_total{outcome="sent"} 1`)
}

// ---- Auth middleware ----

func TestBearerAuth(t *testing.T) {
	router := buildRouter(composingPoster(), nil, nil, nil)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong token", "Bearer wrong-token"},
		{"missing bearer prefix", testToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/routes/preview", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestBearerAuth_EmptyConfiguredToken(t *testing.T) {
	log := zap.NewNop().Sugar()
	router := api.NewRouter(api.NewHandlers(composingPoster(), nil, log), "", nil, nil, prometheus.NewRegistry(), log)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/routes/preview", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
