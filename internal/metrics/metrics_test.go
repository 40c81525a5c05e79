package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEverything(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := New(registry)

	// touch every vector so it shows up in Gather
	m.RecordChat("pricing", "http", 0.001)
	m.RecordGoal("weight_loss")
	m.RecordPatternError("pricing")
	m.RecordPersistenceError("storage:record_turn")
	m.RecordWebhook("message", "success", 0.2)
	m.RecordHTTPError("rate_limit", "chat")
	m.RecordRateLimiterDrop("session")
	m.SetActiveSessions(3)
	m.RecordArchiveRun("success")

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	for _, want := range []string{
		"ptc_chat_requests_total",
		"ptc_chat_duration_seconds",
		"ptc_goal_inferred_total",
		"ptc_pattern_errors_total",
		"ptc_persistence_errors_total",
		"ptc_webhook_requests_total",
		"ptc_webhook_duration_seconds",
		"ptc_http_errors_total",
		"ptc_rate_limiter_dropped_total",
		"ptc_active_sessions",
		"ptc_archive_runs_total",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRecordChat(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.RecordChat("pricing", "http", 0.001)
	m.RecordChat("pricing", "http", 0.002)
	m.RecordChat("fallback", "line", 0.003)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("pricing", "http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("fallback", "line")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ChatDurationSeconds))
}

func TestActiveSessionsGauge(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.SetActiveSessions(7)
	m.SetActiveSessions(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestArchiveRuns(t *testing.T) {
	t.Parallel()
	m := New(prometheus.NewRegistry())

	m.RecordArchiveRun("success")
	m.RecordArchiveRun("error")
	m.RecordArchiveRun("error")

	expected := `
# HELP ptc_archive_runs_total Interaction log archive uploads by status
# TYPE ptc_archive_runs_total counter
ptc_archive_runs_total{status="error"} 2
ptc_archive_runs_total{status="success"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(m.ArchiveRunsTotal, strings.NewReader(expected)))
}

func TestNew_SeparateRegistries(t *testing.T) {
	t.Parallel()
	// registering twice on distinct registries must not panic
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
