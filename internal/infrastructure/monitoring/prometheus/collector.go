package prometheus

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Collector owns a private registry and hands out get-or-create vectors.
type Collector interface {
	Counter(name, help string, labels ...string) CounterVec
	Gauge(name, help string, labels ...string) GaugeVec
	Histogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Handler() http.Handler
	Registry() *prometheus.Registry
}

// CounterVec is a labelled counter family.
type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

// Counter only goes up.
type Counter interface {
	Inc()
	Add(delta float64)
}

// GaugeVec is a labelled gauge family.
type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

// Gauge is a settable value.
type Gauge interface {
	Set(value float64)
	Add(delta float64)
}

// HistogramVec is a labelled histogram family.
type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

// Histogram records observations into buckets.
type Histogram interface {
	Observe(value float64)
}

// CollectorConfig configures NewCollector.
type CollectorConfig struct {
	Namespace            string
	Subsystem            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
	DefaultBuckets       []float64
	ConstLabels          map[string]string
}

type collector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	mu       sync.Mutex
	known    map[string]prometheus.Collector
	logger   logging.Logger
}

// NewCollector creates a Collector.  Namespace is required.
func NewCollector(cfg CollectorConfig, log logging.Logger) (Collector, error) {
	if cfg.Namespace == "" {
		return nil, errors.InvalidParam("metrics namespace is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	reg := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		reg.MustRegister(collectors.NewGoCollector())
	}
	if cfg.DefaultBuckets == nil {
		cfg.DefaultBuckets = prometheus.DefBuckets
	}
	return &collector{registry: reg, config: cfg, known: map[string]prometheus.Collector{}, logger: log}, nil
}

func (c *collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *collector) Registry() *prometheus.Registry { return c.registry }

func (c *collector) register(name string, fresh prometheus.Collector) (prometheus.Collector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fq := prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, name)
	if existing, ok := c.known[fq]; ok {
		return existing, nil
	}
	if err := c.registry.Register(fresh); err != nil {
		return nil, err
	}
	c.known[fq] = fresh
	return fresh, nil
}

func (c *collector) Counter(name, help string, labels ...string) CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels,
	}, labels)
	got, err := c.register(name, vec)
	if err != nil {
		c.logger.Error("Failed to register counter", logging.String("name", name), logging.Err(err))
		return noopCounterVec{}
	}
	if v, ok := got.(*prometheus.CounterVec); ok {
		return counterVec{v}
	}
	c.logger.Warn("Metric type mismatch", logging.String("name", name), logging.String("want", "counter"))
	return noopCounterVec{}
}

func (c *collector) Gauge(name, help string, labels ...string) GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels,
	}, labels)
	got, err := c.register(name, vec)
	if err != nil {
		c.logger.Error("Failed to register gauge", logging.String("name", name), logging.Err(err))
		return noopGaugeVec{}
	}
	if v, ok := got.(*prometheus.GaugeVec); ok {
		return gaugeVec{v}
	}
	c.logger.Warn("Metric type mismatch", logging.String("name", name), logging.String("want", "gauge"))
	return noopGaugeVec{}
}

func (c *collector) Histogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = c.config.DefaultBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels, Buckets: buckets,
	}, labels)
	got, err := c.register(name, vec)
	if err != nil {
		c.logger.Error("Failed to register histogram", logging.String("name", name), logging.Err(err))
		return noopHistogramVec{}
	}
	if v, ok := got.(*prometheus.HistogramVec); ok {
		return histogramVec{v}
	}
	c.logger.Warn("Metric type mismatch", logging.String("name", name), logging.String("want", "histogram"))
	return noopHistogramVec{}
}

type counterVec struct{ v *prometheus.CounterVec }

func (v counterVec) WithLabelValues(lvs ...string) Counter { return v.v.WithLabelValues(lvs...) }

type gaugeVec struct{ v *prometheus.GaugeVec }

func (v gaugeVec) WithLabelValues(lvs ...string) Gauge { return v.v.WithLabelValues(lvs...) }

type histogramVec struct{ v *prometheus.HistogramVec }

func (v histogramVec) WithLabelValues(lvs ...string) Histogram { return v.v.WithLabelValues(lvs...) }

type noopCounterVec struct{}

func (noopCounterVec) WithLabelValues(...string) Counter { return noop{} }

type noopGaugeVec struct{}

func (noopGaugeVec) WithLabelValues(...string) Gauge { return noop{} }

type noopHistogramVec struct{}

func (noopHistogramVec) WithLabelValues(...string) Histogram { return noop{} }

type noop struct{}

func (noop) Inc()            {}
func (noop) Add(float64)     {}
func (noop) Set(float64)     {}
func (noop) Observe(float64) {}

// Timer observes elapsed seconds into a histogram.
type Timer struct {
	h     Histogram
	start time.Time
}

// NewTimer starts a timer.
func NewTimer(h Histogram) *Timer { return &Timer{h: h, start: time.Now()} }

// ObserveDuration records the time since NewTimer.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	if t.h != nil {
		t.h.Observe(d.Seconds())
	}
	return d
}

//Personal.AI order the ending
