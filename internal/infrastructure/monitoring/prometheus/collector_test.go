package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/testutil"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func newTestCollector(t *testing.T) Collector {
	t.Helper()
	c, err := NewCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, c Collector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func value(t *testing.T, m any) float64 {
	t.Helper()
	col, ok := m.(prometheus.Collector)
	require.True(t, ok)
	return promtest.ToFloat64(col)
}

func TestNewCollector_RequiresNamespace(t *testing.T) {
	_, err := NewCollector(CollectorConfig{}, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestNewCollector_ProcessMetrics(t *testing.T) {
	c, err := NewCollector(CollectorConfig{Namespace: "test", EnableProcessMetrics: true, EnableGoMetrics: true}, nil)
	require.NoError(t, err)
	out := scrape(t, c)
	assert.Contains(t, out, "go_goroutines")
}

func TestCounter_GetOrCreate(t *testing.T) {
	c := newTestCollector(t)
	c.Counter("requests_total", "help", "method").WithLabelValues("GET").Inc()
	again := c.Counter("requests_total", "help", "method").WithLabelValues("GET")
	again.Add(2)

	assert.Equal(t, 3.0, value(t, again))
	assert.Contains(t, scrape(t, c), `test_unit_requests_total{method="GET"} 3`)
}

func TestGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	g := c.Gauge("depth", "help").WithLabelValues()
	g.Set(4)
	g.Add(-1)
	assert.Equal(t, 3.0, value(t, g))

	h := c.Histogram("latency_seconds", "help", nil)
	h.WithLabelValues().Observe(0.2)
	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_latency_seconds_bucket")
	assert.Contains(t, out, "test_unit_latency_seconds_count 1")
}

func TestTypeConflictReturnsNoop(t *testing.T) {
	c, err := NewCollector(CollectorConfig{Namespace: "test"}, testutil.NewMockLogger())
	require.NoError(t, err)
	c.Counter("conflict", "help").WithLabelValues().Inc()

	c.Gauge("conflict", "help").WithLabelValues().Set(10)
	c.Histogram("conflict", "help", nil).WithLabelValues().Observe(1)
	assert.Contains(t, scrape(t, c), "# TYPE test_conflict counter")
}

func TestRegisterFailureIsLogged(t *testing.T) {
	log := testutil.NewMockLogger()
	c, err := NewCollector(CollectorConfig{Namespace: "test"}, log)
	require.NoError(t, err)
	c.Registry().MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Namespace: "test", Name: "taken"}))

	c.Counter("taken", "help").WithLabelValues().Inc()
	assert.True(t, log.HasMessage("error", "Failed to register counter"))
}

func TestConcurrentRegistration(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Counter("concurrent_total", "help", "id").WithLabelValues("1").Inc()
		}()
	}
	wg.Wait()
	assert.Contains(t, scrape(t, c), `test_unit_concurrent_total{id="1"} 50`)
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	timer := NewTimer(c.Histogram("timer_seconds", "help", nil).WithLabelValues())
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.ObserveDuration(), 5*time.Millisecond)
	assert.Contains(t, scrape(t, c), "test_unit_timer_seconds_count 1")

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}

//Personal.AI order the ending
