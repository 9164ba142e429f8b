package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
)

// Buckets used by the training families.
var (
	StepDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	HTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5}
)

// TrainingMetrics are the families exported while a model trains.
type TrainingMetrics struct {
	Steps        CounterVec
	Examples     CounterVec
	Skipped      GaugeVec
	Mismatches   CounterVec
	Epochs       CounterVec
	Loss         GaugeVec
	Accuracy     GaugeVec
	Beta         GaugeVec
	LearningRate GaugeVec
	GradNorm     GaugeVec
	StepDuration HistogramVec

	CacheLookups CounterVec

	HTTPRequests HistogramVec
}

// NewTrainingMetrics registers the training families on c.
func NewTrainingMetrics(c Collector) *TrainingMetrics {
	return &TrainingMetrics{
		Steps:        c.Counter("train_steps_total", "Optimiser steps taken", "run_id"),
		Examples:     c.Counter("train_examples_total", "Examples consumed", "run_id"),
		Skipped:      c.Gauge("train_skipped_steps", "Steps skipped for non-finite loss so far", "run_id"),
		Mismatches:   c.Counter("train_assembly_mismatches_total", "Examples whose assembly target was not found", "run_id"),
		Epochs:       c.Counter("train_epochs_total", "Completed epochs", "run_id"),
		Loss:         c.Gauge("train_loss", "Latest loss term value", "run_id", "term"),
		Accuracy:     c.Gauge("train_accuracy", "Latest prediction accuracy", "run_id", "head"),
		Beta:         c.Gauge("train_kl_beta", "Current KL weight", "run_id"),
		LearningRate: c.Gauge("train_learning_rate", "Current learning rate", "run_id"),
		GradNorm:     c.Gauge("train_grad_norm", "Gradient norm before clipping", "run_id"),
		StepDuration: c.Histogram("train_step_duration_seconds", "Wall time per step", StepDurationBuckets, "run_id"),
		CacheLookups: c.Counter("decomposition_cache_lookups_total", "Decomposition cache lookups", "result"),
		HTTPRequests: c.Histogram("http_request_duration_seconds", "HTTP request duration", HTTPDurationBuckets, "method", "path", "status"),
	}
}

// Record implements training.MetricsSink.
func (m *TrainingMetrics) Record(_ context.Context, s training.StepMetrics) error {
	id := s.RunID
	if s.Summary {
		m.Epochs.WithLabelValues(id).Inc()
		return nil
	}
	m.Steps.WithLabelValues(id).Inc()
	m.Examples.WithLabelValues(id).Add(float64(s.Examples))
	m.Mismatches.WithLabelValues(id).Add(float64(s.Mismatches))
	m.Skipped.WithLabelValues(id).Set(float64(s.Skipped))

	for term, v := range map[string]float64{
		"word": s.Word, "topo": s.Topo, "assm": s.Assm, "stereo": s.Stereo, "kl": s.KL, "total": s.Total,
	} {
		m.Loss.WithLabelValues(id, term).Set(v)
	}
	m.Accuracy.WithLabelValues(id, "word").Set(s.WordAcc)
	m.Accuracy.WithLabelValues(id, "topo").Set(s.TopoAcc)
	m.Accuracy.WithLabelValues(id, "assm").Set(s.AssmAcc)
	m.Beta.WithLabelValues(id).Set(s.Beta)
	m.LearningRate.WithLabelValues(id).Set(s.LearningRate)
	m.GradNorm.WithLabelValues(id).Set(s.GradNorm)
	m.StepDuration.WithLabelValues(id).Observe(s.Elapsed.Seconds())
	return nil
}

// RecordCacheLookup counts a decomposition cache hit or miss.
func (m *TrainingMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// InstrumentCache counts hits and misses of cache.
func (m *TrainingMetrics) InstrumentCache(cache junction.Cache) junction.Cache {
	return &countingCache{inner: cache, metrics: m}
}

type countingCache struct {
	inner   junction.Cache
	metrics *TrainingMetrics
}

func (c *countingCache) Get(ctx context.Context, smiles string) (*junction.Tree, bool) {
	t, ok := c.inner.Get(ctx, smiles)
	c.metrics.RecordCacheLookup(ok)
	return t, ok
}

func (c *countingCache) Put(ctx context.Context, smiles string, t *junction.Tree) {
	c.inner.Put(ctx, smiles, t)
}

// RecordHTTPRequest observes one served request.
func (m *TrainingMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

//Personal.AI order the ending
