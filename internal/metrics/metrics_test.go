package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunObserver(t *testing.T) {
	reg := NewRegistry()
	obs := NewRunObserver(reg)

	obs.ObserveStrategy("v1", 200*time.Millisecond, 3, 72.5, false)
	obs.ObserveStrategy("v1", 50*time.Millisecond, 1, 80, false)
	obs.ObserveStrategy("v2", time.Second, 0, 0, true)

	assert.Equal(t, 2.0, reg.Counter(StrategyRunsTotal).Value("v1", "success"))
	assert.Equal(t, 1.0, reg.Counter(StrategyRunsTotal).Value("v2", "failure"))
	assert.Equal(t, 1.0, reg.Gauge(StrategyGap).Value("v1"))
	assert.Equal(t, 80.0, reg.Gauge(StrategyPercent).Value("v1"))
	assert.Equal(t, 2, reg.Histogram(StrategyDuration).Count("v1"))

	// 失败的策略不覆盖质量指标
	assert.Equal(t, 0.0, reg.Gauge(StrategyGap).Value("v2"))
}

func TestHistogramBuckets(t *testing.T) {
	reg := NewRegistry()
	h := reg.NewHistogram("test_latency", "test", nil, []float64{1, 5})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(10)

	var b strings.Builder
	_, err := reg.WriteTo(&b)
	require.NoError(t, err)
	out := b.String()

	assert.Contains(t, out, "test_latency_bucket{le=\"1\"} 1\n")
	assert.Contains(t, out, "test_latency_bucket{le=\"5\"} 2\n")
	assert.Contains(t, out, "test_latency_bucket{le=\"+Inf\"} 3\n")
	assert.Contains(t, out, "test_latency_sum 13.5\n")
	assert.Contains(t, out, "test_latency_count 3\n")
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	reg.RecordRequest(http.MethodPost, "/api/v1/roster/generate", 200, 30*time.Millisecond)
	reg.RecordBatch(true)
	reg.SetDBConnections(4, 1, 3)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "# TYPE roster_http_requests_total counter")
	assert.Contains(t, body, `roster_http_requests_total{method="POST",path="/api/v1/roster/generate",status="200"} 1`)
	assert.Contains(t, body, `roster_batch_runs_total{status="success"} 1`)
	assert.Contains(t, body, `roster_db_connections{state="idle"} 3`)

	// 输出稳定
	rec2 := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, body, rec2.Body.String())
}
