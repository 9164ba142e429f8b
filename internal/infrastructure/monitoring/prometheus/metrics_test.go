package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
)

func TestTrainingMetrics_Record(t *testing.T) {
	c := newTestCollector(t)
	m := NewTrainingMetrics(c)
	ctx := context.Background()

	step := training.StepMetrics{
		RunID: "r1", Step: 1, Word: 2.5, Topo: 0.7, Total: 3.2, KL: 0.1,
		WordAcc: 0.5, Beta: 0.01, LearningRate: 1e-3, GradNorm: 4,
		Examples: 8, Mismatches: 1, Skipped: 2, Elapsed: 30 * time.Millisecond,
	}
	require.NoError(t, m.Record(ctx, step))
	step.Step = 2
	require.NoError(t, m.Record(ctx, step))
	require.NoError(t, m.Record(ctx, training.StepMetrics{RunID: "r1", Summary: true}))

	assert.Equal(t, 2.0, value(t, m.Steps.WithLabelValues("r1")))
	assert.Equal(t, 16.0, value(t, m.Examples.WithLabelValues("r1")))
	assert.Equal(t, 2.0, value(t, m.Mismatches.WithLabelValues("r1")))
	assert.Equal(t, 2.0, value(t, m.Skipped.WithLabelValues("r1")))
	assert.Equal(t, 1.0, value(t, m.Epochs.WithLabelValues("r1")))
	assert.Equal(t, 2.5, value(t, m.Loss.WithLabelValues("r1", "word")))
	assert.Equal(t, 3.2, value(t, m.Loss.WithLabelValues("r1", "total")))
	assert.Equal(t, 0.5, value(t, m.Accuracy.WithLabelValues("r1", "word")))
	assert.Equal(t, 4.0, value(t, m.GradNorm.WithLabelValues("r1")))
	assert.Contains(t, scrape(t, c), `test_unit_train_step_duration_seconds_count{run_id="r1"} 2`)
}

func TestTrainingMetrics_SharedCollector(t *testing.T) {
	c := newTestCollector(t)
	a := NewTrainingMetrics(c)
	b := NewTrainingMetrics(c)
	a.Steps.WithLabelValues("x").Inc()
	b.Steps.WithLabelValues("x").Inc()
	assert.Equal(t, 2.0, value(t, a.Steps.WithLabelValues("x")))
}

type mapCache map[string]*junction.Tree

func (c mapCache) Get(_ context.Context, s string) (*junction.Tree, bool) {
	t, ok := c[s]
	return t, ok
}

func (c mapCache) Put(_ context.Context, s string, t *junction.Tree) { c[s] = t }

func TestInstrumentCache(t *testing.T) {
	m := NewTrainingMetrics(newTestCollector(t))
	cache := m.InstrumentCache(mapCache{})
	ctx := context.Background()

	tree, err := junction.DecomposeSMILES("CCO")
	require.NoError(t, err)
	_, ok := cache.Get(ctx, "CCO")
	assert.False(t, ok)
	cache.Put(ctx, "CCO", tree)
	got, ok := cache.Get(ctx, "CCO")
	assert.True(t, ok)
	assert.Same(t, tree, got)

	assert.Equal(t, 1.0, value(t, m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, value(t, m.CacheLookups.WithLabelValues("miss")))
}

func TestRecordHTTPRequest(t *testing.T) {
	c := newTestCollector(t)
	m := NewTrainingMetrics(c)
	m.RecordHTTPRequest("GET", "/healthz", 200, 3*time.Millisecond)
	assert.Contains(t, scrape(t, c), `test_unit_http_request_duration_seconds_count{method="GET",path="/healthz",status="200"} 1`)
}

//Personal.AI order the ending
