package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightfallstudio/bugboard/internal/cache"
	"github.com/nightfallstudio/bugboard/internal/config"
	"github.com/nightfallstudio/bugboard/internal/kvstore"
	"github.com/nightfallstudio/bugboard/internal/models"
	"github.com/nightfallstudio/bugboard/internal/patchnotes"
	"github.com/nightfallstudio/bugboard/internal/ratelimit"
	"github.com/nightfallstudio/bugboard/internal/token"
	"github.com/nightfallstudio/bugboard/internal/upstream"
)

// fakeUpstream implements upstream.API in memory, counting calls so tests
// can observe cache behavior.
type fakeUpstream struct {
	mu sync.Mutex

	issues   map[string][]models.Issue // keyed by state
	releases []upstream.Release

	listCalls   int
	createCalls int

	created      []createdIssue
	replacedWith map[int][]string
	nextNumber   int

	listErr    error
	createErr  error
	replaceErr error
}

type createdIssue struct {
	title  string
	body   string
	labels []string
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		issues:       map[string][]models.Issue{},
		replacedWith: map[int][]string{},
		nextNumber:   100,
	}
}

func (f *fakeUpstream) ListIssues(_ context.Context, opts upstream.ListOptions) ([]models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	state := opts.State
	if state == "" {
		state = "open"
	}
	if state == "all" {
		return append(append([]models.Issue{}, f.issues["open"]...), f.issues["closed"]...), nil
	}
	return f.issues[state], nil
}

func (f *fakeUpstream) CreateIssue(_ context.Context, title, body string, labels []string) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextNumber++
	f.created = append(f.created, createdIssue{title: title, body: body, labels: labels})
	return &models.Issue{
		Number: f.nextNumber,
		Title:  title,
		State:  "open",
		Labels: labels,
		URL:    "https://github.com/acme/tracker/issues/42",
	}, nil
}

func (f *fakeUpstream) ReplaceLabels(_ context.Context, number int, labels []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	f.replacedWith[number] = labels
	return labels, nil
}

func (f *fakeUpstream) ListReleases(context.Context) ([]upstream.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.releases, nil
}

func (f *fakeUpstream) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// testEnvelope mirrors the response envelope for assertions.
type testEnvelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, api *fakeUpstream) http.Handler {
	t.Helper()

	kv := kvstore.NewMemory()
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins: []string{"http://localhost:3000", "https://bugs.example.com"},
		},
		Cache: config.CacheConfig{
			IssuesTTL: 5 * time.Minute,
			StatsTTL:  30 * time.Minute,
			StaticTTL: time.Hour,
		},
	}
	tokens := token.NewStore(kv, "bugboard-", 720*time.Hour)
	gate := ratelimit.New(kv, 10, time.Hour)
	notes := patchnotes.NewSource("", api)

	srv := NewServer(cfg, api, tokens, gate, cache.New(kv), notes, nil)
	return srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any, header map[string]string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, newFakeUpstream())
	rec, env := doJSON(t, h, http.MethodGet, "/api/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", env.Data["status"])
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t, newFakeUpstream())
	rec, env := doJSON(t, h, http.MethodGet, "/api/nope", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestCORSListedOriginEchoed(t *testing.T) {
	h := newTestServer(t, newFakeUpstream())
	rec, _ := doJSON(t, h, http.MethodGet, "/api/health", nil, map[string]string{
		"Origin": "https://bugs.example.com",
	})

	assert.Equal(t, "https://bugs.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORSUnlistedOriginFallsBack(t *testing.T) {
	h := newTestServer(t, newFakeUpstream())
	rec, _ := doJSON(t, h, http.MethodGet, "/api/health", nil, map[string]string{
		"Origin": "https://evil.example.com",
	})

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, newFakeUpstream())
	rec, _ := doJSON(t, h, http.MethodOptions, "/api/submit-bug", nil, map[string]string{
		"Origin": "http://localhost:3000",
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
	assert.Equal(t, "GET, POST, PUT, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-App-Token", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestListIssuesDerivedFields(t *testing.T) {
	api := newFakeUpstream()
	api.issues["open"] = []models.Issue{
		{Number: 1, Title: "Crash", State: "open", Labels: []string{"bug", "status:testing", "severity:high"}},
		{Number: 2, Title: "Typo", State: "open", Labels: []string{"bug"}},
	}
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodGet, "/api/issues", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, float64(2), env.Data["count"])

	issues := env.Data["issues"].([]any)
	first := issues[0].(map[string]any)
	assert.Equal(t, "testing", first["column"])
	assert.Equal(t, "high", first["severity"])
	second := issues[1].(map[string]any)
	assert.Equal(t, "backlog", second["column"], "open unlabeled issues land in backlog")
	assert.Equal(t, "general", second["category"])
}

func TestListIssuesCached(t *testing.T) {
	api := newFakeUpstream()
	api.issues["open"] = []models.Issue{{Number: 1, Title: "Crash", State: "open"}}
	h := newTestServer(t, api)

	rec1, _ := doJSON(t, h, http.MethodGet, "/api/issues?state=open", nil, nil)
	rec2, _ := doJSON(t, h, http.MethodGet, "/api/issues?state=open", nil, nil)

	assert.Equal(t, 1, api.listCallCount(), "second request within TTL is served from cache")
	assert.Equal(t, rec1.Body.Bytes(), rec2.Body.Bytes(), "cache hit is byte-identical")
}

func TestListIssuesDistinctFiltersDistinctEntries(t *testing.T) {
	api := newFakeUpstream()
	h := newTestServer(t, api)

	doJSON(t, h, http.MethodGet, "/api/issues?state=open", nil, nil)
	doJSON(t, h, http.MethodGet, "/api/issues?state=closed", nil, nil)

	assert.Equal(t, 2, api.listCallCount())
}

func TestListIssuesValidation(t *testing.T) {
	h := newTestServer(t, newFakeUpstream())

	tests := []struct {
		name   string
		target string
	}{
		{"bad state", "/api/issues?state=banana"},
		{"bad sort", "/api/issues?sort=priority"},
		{"bad direction", "/api/issues?direction=sideways"},
		{"bad page", "/api/issues?page=0"},
		{"bad per_page", "/api/issues?per_page=500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doJSON(t, h, http.MethodGet, tt.target, nil, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "validation_error", env.Error.Code)
		})
	}
}

func TestListIssuesUpstreamUnavailable(t *testing.T) {
	api := newFakeUpstream()
	api.listErr = &upstream.UnavailableError{Err: assert.AnError}
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodGet, "/api/issues", nil, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "upstream_unavailable", env.Error.Code)

	// Failures are never cached; the next request tries upstream again.
	doJSON(t, h, http.MethodGet, "/api/issues", nil, nil)
	assert.Equal(t, 2, api.listCallCount())
}

func TestSubmitBugAnonymous(t *testing.T) {
	api := newFakeUpstream()
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodPost, "/api/submit-bug", map[string]string{
		"title":       "Crash on launch",
		"description": "The app crashes immediately after the splash screen.",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, float64(101), env.Data["issueNumber"])
	assert.NotEmpty(t, env.Data["issueUrl"])

	require.Len(t, api.created, 1)
	got := api.created[0]
	assert.Equal(t, "Crash on launch", got.title)
	assert.Equal(t, []string{"bug", "severity:medium", "category:general", "web-submission"}, got.labels)
	assert.Contains(t, got.body, "The app crashes immediately")
	assert.Contains(t, got.body, "Source: web form")
}

func TestSubmitBugTrusted(t *testing.T) {
	api := newFakeUpstream()
	h := newTestServer(t, api)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/submit-bug", map[string]string{
		"title":       "Settings not persisted",
		"description": "Toggling dark mode does not survive a restart.",
		"severity":    "low",
		"category":    "ui",
	}, map[string]string{"X-App-Token": "bugboard-client-7f3a"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, api.created, 1)
	got := api.created[0]
	assert.Equal(t, []string{"bug", "severity:low", "category:ui"}, got.labels)
	assert.NotContains(t, got.labels, "web-submission")
	assert.Contains(t, got.body, "Source: application")
}

func TestSubmitBugValidation(t *testing.T) {
	api := newFakeUpstream()
	h := newTestServer(t, api)

	t.Run("missing title", func(t *testing.T) {
		rec, env := doJSON(t, h, http.MethodPost, "/api/submit-bug", map[string]string{
			"description": "something broke",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "validation_error", env.Error.Code)
	})

	t.Run("missing description", func(t *testing.T) {
		rec, _ := doJSON(t, h, http.MethodPost, "/api/submit-bug", map[string]string{
			"title": "broken",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/submit-bug", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	assert.Equal(t, 0, api.createCalls, "invalid reports never reach the upstream")
}

func TestSubmitBugRateLimited(t *testing.T) {
	api := newFakeUpstream()
	h := newTestServer(t, api)

	report := map[string]string{"title": "bug", "description": "details"}
	for i := 1; i <= 10; i++ {
		rec, _ := doJSON(t, h, http.MethodPost, "/api/submit-bug", report, nil)
		require.Equal(t, http.StatusCreated, rec.Code, "submission %d should be admitted", i)
	}

	rec, env := doJSON(t, h, http.MethodPost, "/api/submit-bug", report, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "rate_limited", env.Error.Code)
	assert.Equal(t, 10, api.createCalls, "the rejected submission never reaches the upstream")
}

func TestSubmitBugInvalidatesIssueCache(t *testing.T) {
	api := newFakeUpstream()
	h := newTestServer(t, api)

	doJSON(t, h, http.MethodGet, "/api/issues", nil, nil)
	doJSON(t, h, http.MethodGet, "/api/issues", nil, nil)
	require.Equal(t, 1, api.listCallCount())

	rec, _ := doJSON(t, h, http.MethodPost, "/api/submit-bug", map[string]string{
		"title": "bug", "description": "details",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	doJSON(t, h, http.MethodGet, "/api/issues", nil, nil)
	assert.Equal(t, 2, api.listCallCount(), "a write invalidates the listing cache")
}

func TestReplaceLabels(t *testing.T) {
	api := newFakeUpstream()
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodPut, "/api/issues/42/labels", map[string]any{
		"labels": []string{"bug", "severity:high", "status:in-progress"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, float64(42), env.Data["number"])
	assert.Equal(t, []string{"bug", "severity:high", "status:in-progress"}, api.replacedWith[42])
}

func TestReplaceLabelsCollapsesDuplicateFamilies(t *testing.T) {
	api := newFakeUpstream()
	h := newTestServer(t, api)

	rec, _ := doJSON(t, h, http.MethodPut, "/api/issues/42/labels", map[string]any{
		"labels": []string{"status:todo", "status:done", "severity:low", "severity:high", "bug"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"status:todo", "severity:low", "bug"}, api.replacedWith[42],
		"only the first label per family survives")
}

func TestReplaceLabelsValidation(t *testing.T) {
	h := newTestServer(t, newFakeUpstream())

	t.Run("non-numeric issue number", func(t *testing.T) {
		rec, _ := doJSON(t, h, http.MethodPut, "/api/issues/abc/labels", map[string]any{
			"labels": []string{"bug"},
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing labels field", func(t *testing.T) {
		rec, env := doJSON(t, h, http.MethodPut, "/api/issues/42/labels", map[string]any{}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "validation_error", env.Error.Code)
	})

	t.Run("empty labels array is accepted", func(t *testing.T) {
		rec, _ := doJSON(t, h, http.MethodPut, "/api/issues/42/labels", map[string]any{
			"labels": []string{},
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestReplaceLabelsNotFound(t *testing.T) {
	api := newFakeUpstream()
	api.replaceErr = upstream.ErrNotFound
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodPut, "/api/issues/9999/labels", map[string]any{
		"labels": []string{"bug"},
	}, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestStats(t *testing.T) {
	api := newFakeUpstream()
	api.issues["open"] = []models.Issue{
		{Number: 1, State: "open", Labels: []string{"status:in-progress", "severity:high"}},
		{Number: 2, State: "open"},
	}
	api.issues["closed"] = []models.Issue{
		{Number: 3, State: "closed"},
	}
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), env.Data["total"])
	assert.Equal(t, float64(2), env.Data["open"])
	assert.Equal(t, float64(1), env.Data["closed"])

	perColumn := env.Data["perColumn"].(map[string]any)
	assert.Equal(t, float64(1), perColumn["in-progress"])
	assert.Equal(t, float64(1), perColumn["backlog"])
	assert.Equal(t, float64(1), perColumn["done"], "closed unlabeled issues count as done")
	assert.Equal(t, float64(0), perColumn["todo"], "empty columns are present with zero counts")

	// Both listings were fetched; a repeat is served from cache.
	require.Equal(t, 2, api.listCallCount())
	doJSON(t, h, http.MethodGet, "/api/stats", nil, nil)
	assert.Equal(t, 2, api.listCallCount())
}

func TestStatsPartialFailureFailsWhole(t *testing.T) {
	api := newFakeUpstream()
	api.listErr = &upstream.UnavailableError{Err: assert.AnError}
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodGet, "/api/stats", nil, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "upstream_unavailable", env.Error.Code)
}

func TestPatchNotes(t *testing.T) {
	api := newFakeUpstream()
	api.releases = []upstream.Release{
		{TagName: "v1.2.0", Name: "Spring cleanup", Body: "Fixes.", URL: "https://example.com/v1.2.0"},
		{TagName: "v1.1.0", Name: "Initial", Body: "First.", URL: "https://example.com/v1.1.0"},
	}
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodGet, "/api/patch-notes", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := env.Data["notes"].([]any)
	require.Len(t, notes, 2)
	first := notes[0].(map[string]any)
	assert.Equal(t, "v1.2.0", first["version"])
}

func TestLatestVersion(t *testing.T) {
	api := newFakeUpstream()
	api.releases = []upstream.Release{
		{TagName: "v2.0.0-rc1", Prerelease: true},
		{TagName: "v1.2.0", URL: "https://example.com/v1.2.0"},
	}
	h := newTestServer(t, api)

	rec, env := doJSON(t, h, http.MethodGet, "/api/latest-version", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1.2.0", env.Data["version"], "prereleases are skipped")
}

func TestLatestVersionNoReleases(t *testing.T) {
	h := newTestServer(t, newFakeUpstream())

	rec, env := doJSON(t, h, http.MethodGet, "/api/latest-version", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}
