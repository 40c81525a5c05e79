package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/ptc-frontdesk/internal/archive"
	"github.com/garyellow/ptc-frontdesk/internal/bot"
	"github.com/garyellow/ptc-frontdesk/internal/config"
	"github.com/garyellow/ptc-frontdesk/internal/intent"
	"github.com/garyellow/ptc-frontdesk/internal/knowledge"
	"github.com/garyellow/ptc-frontdesk/internal/logger"
	"github.com/garyellow/ptc-frontdesk/internal/metrics"
	"github.com/garyellow/ptc-frontdesk/internal/r2client"
	"github.com/garyellow/ptc-frontdesk/internal/ratelimit"
	"github.com/garyellow/ptc-frontdesk/internal/reply"
	"github.com/garyellow/ptc-frontdesk/internal/session"
	"github.com/garyellow/ptc-frontdesk/internal/storage"
)

type testSetup struct {
	cfg      *config.Config
	sessions session.Store
	recorder storage.Recorder
	archives archive.Fetcher
}

type testOption func(*testSetup)

func withConfig(fn func(*config.Config)) testOption {
	return func(s *testSetup) { fn(s.cfg) }
}

func withSessions(store session.Store) testOption {
	return func(s *testSetup) { s.sessions = store }
}

func withRecorder(rec storage.Recorder) testOption {
	return func(s *testSetup) { s.recorder = rec }
}

func withArchives(f archive.Fetcher) testOption {
	return func(s *testSetup) { s.archives = f }
}

// newTestApp wires an Application on in-memory stores without starting a server.
func newTestApp(t *testing.T, opts ...testOption) *Application {
	t.Helper()

	setup := &testSetup{
		cfg: &config.Config{
			StatsBackend:     config.StatsBackendMemory,
			LogMaxInputChars: 500,
			MaxInputLength:   2000,
			MetricsUsername:  "prometheus",
			Session: config.SessionConfig{
				Backend:          config.SessionBackendMemory,
				TTL:              time.Hour,
				CleanupInterval:  time.Minute,
				RateBurst:        20,
				RateRefillPerSec: 1,
			},
		},
		recorder: storage.NewMemoryRecorder(),
	}
	mem := session.NewMemoryStore(setup.cfg.Session.TTL)
	setup.sessions = mem
	for _, opt := range opts {
		opt(setup)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	log := logger.NewWithWriter("error", io.Discard)

	a := &Application{
		cfg:         setup.cfg,
		logger:      log,
		metrics:     m,
		registry:    registry,
		recorder:    setup.recorder,
		sessions:    setup.sessions,
		memSessions: mem,
		archives:    setup.archives,
		engine: bot.NewEngine(bot.EngineConfig{
			Classifier:       intent.Default(),
			Composer:         reply.NewComposer(knowledge.MustDefault()),
			Sessions:         setup.sessions,
			Recorder:         setup.recorder,
			Logger:           log,
			Metrics:          m,
			LogMaxInputChars: setup.cfg.LogMaxInputChars,
		}),
		chatLimiter: ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:       "session",
			Burst:      setup.cfg.Session.RateBurst,
			RefillRate: setup.cfg.Session.RateRefillPerSec,
			Metrics:    m,
		}),
	}
	a.router = a.newRouter()
	t.Cleanup(a.chatLimiter.Stop)
	return a
}

func (a *Application) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
	Goal      string `json:"goal"`
	Reply     string `json:"reply"`
}

func (a *Application) chat(t *testing.T, sessionID, message string) chatResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/chat", chatRequest{SessionID: sessionID, Message: message})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

// failingSessions fails every lookup and delete.
type failingSessions struct {
	session.Store
	err error
}

func (f failingSessions) Get(context.Context, string) (*session.Session, error) { return nil, f.err }
func (f failingSessions) Delete(context.Context, string) error                  { return f.err }

// failingRecorder fails reads.
type failingRecorder struct {
	storage.Recorder
}

func (failingRecorder) Counters(context.Context) (storage.Counters, error) {
	return storage.Counters{}, fmt.Errorf("disk gone")
}

func TestLivenessCheck(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	w := a.do(t, http.MethodGet, "/livez", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestReadinessCheck(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		a := newTestApp(t)
		w := a.do(t, http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Status   string          `json:"status"`
			Features map[string]bool `json:"features"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, map[string]bool{"line": false, "archive": false, "admin": false}, body.Features)
	})

	t.Run("stats store down", func(t *testing.T) {
		t.Parallel()
		a := newTestApp(t, withRecorder(failingRecorder{storage.NewMemoryRecorder()}))
		w := a.do(t, http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "stats store unavailable")
	})
}

func TestMiddleware_HeadersAndRequestID(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	w := a.do(t, http.MethodGet, "/livez", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestWelcome(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	w := a.do(t, http.MethodGet, "/api/welcome", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body welcomeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, reply.Welcome(), body.Reply)
	assert.Equal(t, reply.Topics(), body.Topics)
}

func TestChat_Pricing(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	res := a.chat(t, "", "Was kostet die Mitgliedschaft?")

	assert.Len(t, res.SessionID, 36, "a new session ID is assigned")
	assert.Equal(t, "pricing", res.Intent)
	assert.Empty(t, res.Goal)
	assert.Contains(t, res.Reply, reply.PricingPolicy)
	assert.NotContains(t, res.Reply, "€")
}

func TestChat_GoalMemoryAndHistory(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	first := a.chat(t, "web-1", "Ich möchte abnehmen")
	assert.Equal(t, "weight_loss", first.Goal)

	second := a.chat(t, "web-1", "Welche Kurse gibt es?")
	assert.Equal(t, "courses", second.Intent)
	assert.Equal(t, "weight_loss", second.Goal)
	assert.Contains(t, second.Reply, "„Abnehmen“")

	w := a.do(t, http.MethodGet, "/api/sessions/web-1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var hist struct {
		SessionID  string         `json:"session_id"`
		Goal       string         `json:"goal"`
		GoalLabel  string         `json:"goal_label"`
		Asked      []string       `json:"asked"`
		Transcript []session.Turn `json:"transcript"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, "web-1", hist.SessionID)
	assert.Equal(t, "weight_loss", hist.Goal)
	assert.Equal(t, "Abnehmen", hist.GoalLabel)
	assert.Equal(t, []string{"courses"}, hist.Asked)
	require.Len(t, hist.Transcript, 4)
	assert.Equal(t, "Ich möchte abnehmen", hist.Transcript[0].Text)
	assert.Equal(t, second.Reply, hist.Transcript[3].Text)
}

func TestChat_EmptyMessageFallsBack(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	res := a.chat(t, "s", "")
	assert.Equal(t, "fallback", res.Intent)
	assert.Contains(t, res.Reply, reply.ClarifyingQuestion)
}

func TestChat_Rejections(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, withConfig(func(c *config.Config) { c.MaxInputLength = 10 }))

	tests := []struct {
		name      string
		body      any
		errorType string
	}{
		{"not json", "{oops", "invalid_request"},
		{"empty body", "", "invalid_request"},
		{"too long", chatRequest{Message: "Rückenschmerzen!"}, "message_too_long"},
		{"session id too long", chatRequest{SessionID: strings.Repeat("x", 200), Message: "Hallo"}, "invalid_session"},
	}
	for _, tt := range tests {
		w := a.do(t, http.MethodPost, "/api/chat", tt.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.name)
		assert.Contains(t, w.Body.String(), `"error"`, tt.name)
		assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.HTTPErrorsTotal.WithLabelValues(tt.errorType, "chat")), tt.name)
	}

	// exactly at the limit is accepted
	a.chat(t, "", strings.Repeat("ü", 10))
}

func TestChat_RateLimitPerSession(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, withConfig(func(c *config.Config) {
		c.Session.RateBurst = 1
		c.Session.RateRefillPerSec = 0.001
	}))

	a.chat(t, "busy", "Hallo")

	w := a.do(t, http.MethodPost, "/api/chat", chatRequest{SessionID: "busy", Message: "Hallo?"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.RateLimiterDropped.WithLabelValues("session")))

	// other sessions are unaffected
	a.chat(t, "calm", "Hallo")
}

func TestChat_ResetCommand(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	a.chat(t, "s1", "Ich will Muskeln aufbauen")
	res := a.chat(t, "s1", "neu")
	assert.Equal(t, "reset", res.Intent)
	assert.Equal(t, reply.ResetConfirmation, res.Reply)

	after := a.chat(t, "s1", "Welche Kurse gibt es?")
	assert.Empty(t, after.Goal)
}

func TestResetEndpoint(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	a.chat(t, "s1", "Ich möchte abnehmen")

	w := a.do(t, http.MethodPost, "/api/sessions/s1/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(t, http.MethodGet, "/api/sessions/s1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_id":"s1","goal":"","asked":[],"transcript":[]}`, w.Body.String())

	res := a.chat(t, "s1", "Kurse")
	assert.Empty(t, res.Goal)
	assert.NotContains(t, res.Reply, "„Abnehmen“")

	// resetting an unknown session is fine
	w = a.do(t, http.MethodPost, "/api/sessions/nobody/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestChat_SessionStoreFailure(t *testing.T) {
	t.Parallel()
	store := failingSessions{Store: session.NewMemoryStore(time.Hour), err: fmt.Errorf("redis down")}
	a := newTestApp(t, withSessions(store))

	res := a.chat(t, "s1", "Was kostet das?")
	assert.Equal(t, "fallback", res.Intent)
	assert.Equal(t, a.engine.Fallback(), res.Reply)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.HTTPErrorsTotal.WithLabelValues("engine", "chat")))

	w := a.do(t, http.MethodPost, "/api/sessions/s1/reset", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "redis")

	w = a.do(t, http.MethodGet, "/api/sessions/s1/history", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestChat_RecordsMetrics(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	a.chat(t, "s1", "Wann habt ihr am Samstag auf?")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.ChatRequestsTotal.WithLabelValues("info", Transport)))
}

func TestSessionCleanup_SetsGauge(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	a.chat(t, "s1", "Hallo")
	a.chat(t, "s2", "Hallo")
	a.runSessionCleanup()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.metrics.ActiveSessions))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, withConfig(func(c *config.Config) { c.MetricsPassword = "scrape" }))
	a.chat(t, "s1", "Probetraining")

	w := a.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prometheus", "scrape")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ptc_chat_requests_total")
}

func TestAdmin_Disabled(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	for _, path := range []string{"/admin/stats", "/admin/stats/download", "/admin/interactions/download"} {
		w := a.do(t, http.MethodGet, path+"?admin=x", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestAdmin_Stats(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, withConfig(func(c *config.Config) { c.AdminKey = "k" }))

	a.chat(t, "s1", "Was kostet das?")
	a.chat(t, "s1", "Was kostet die Mitgliedschaft?")
	a.chat(t, "s2", "blabla")

	w := a.do(t, http.MethodGet, "/admin/stats", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodGet, "/admin/stats?admin=k&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body statsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Total)
	assert.Equal(t, int64(2), body.Counters.Intents["pricing"])
	assert.Equal(t, int64(1), body.Counters.Fallback)
	require.Len(t, body.Interactions, 2)
	assert.Equal(t, "s2", body.Interactions[0].SessionID, "newest first")

	w = a.do(t, http.MethodGet, "/admin/stats?admin=k&limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_Downloads(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, withConfig(func(c *config.Config) { c.AdminKey = "k" }))

	a.chat(t, "s1", "Schreiben Sie mir an anna@example.com wegen Probetraining")
	a.chat(t, "s1", "Welche Kurse gibt es?")

	w := a.do(t, http.MethodGet, "/admin/stats/download?admin=k", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), storage.StatsFileName)
	var counters storage.Counters
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counters))
	assert.Equal(t, int64(2), counters.Total())

	w = a.do(t, http.MethodGet, "/admin/interactions/download?admin=k", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), storage.InteractionsFileName)
	assert.NotContains(t, w.Body.String(), "anna@example.com")
	assert.Contains(t, w.Body.String(), "[email]")

	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(w.Body.Bytes()))
	for sc.Scan() {
		var in storage.Interaction
		require.NoError(t, json.Unmarshal(sc.Bytes(), &in))
		lines++
	}
	assert.Equal(t, 2, lines)
}

// fakeArchives serves objects from memory.
type fakeArchives struct {
	objects map[string][]byte
}

func (f fakeArchives) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", r2client.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "etag", nil
}

func (f fakeArchives) HeadObject(_ context.Context, key string) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", r2client.ErrNotFound
	}
	return "etag", nil
}

func TestAdmin_Archives(t *testing.T) {
	t.Parallel()

	rec := storage.NewMemoryRecorder()
	in := storage.NewInteraction(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "s1", "trial", "", "Probetraining", 500)
	require.NoError(t, rec.RecordTurn(context.Background(), in))
	var compressed bytes.Buffer
	require.NoError(t, archive.Compress(context.Background(), rec, &compressed))

	key := archive.KeyPrefix + "20260301-abc.jsonl.zst"
	store := fakeArchives{objects: map[string][]byte{
		key:                              compressed.Bytes(),
		archive.ClaimPrefix + "20260301": []byte(`{}`),
	}}
	a := newTestApp(t,
		withConfig(func(c *config.Config) { c.AdminKey = "k" }),
		withArchives(store),
	)

	w := a.do(t, http.MethodGet, "/admin/archives/status/20260301?admin=k", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"day":"20260301","archived":true}`, w.Body.String())

	w = a.do(t, http.MethodGet, "/admin/archives/status/20260302?admin=k", nil)
	assert.JSONEq(t, `{"day":"20260302","archived":false}`, w.Body.String())

	w = a.do(t, http.MethodGet, "/admin/archives/status/yesterday?admin=k", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/admin/archives/download?admin=k&key="+key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "20260301-abc.jsonl")
	assert.Contains(t, w.Body.String(), `"intent":"trial"`)

	w = a.do(t, http.MethodGet, "/admin/archives/download?admin=k&key="+archive.KeyPrefix+"20260101-x.jsonl.zst", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/admin/archives/download?admin=k&key=../etc/passwd", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_ArchivesNotMountedWithoutR2(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, withConfig(func(c *config.Config) { c.AdminKey = "k" }))

	w := a.do(t, http.MethodGet, "/admin/archives/status/20260301?admin=k", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
