package opensearch

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

func TestNewStepIndex_Validation(t *testing.T) {
	_, err := NewStepIndex(nil, "steps")
	assert.Error(t, err)

	_, idx := newIndex(t)
	_, err = NewStepIndex(idx.client, "")
	assert.Error(t, err)
}

func TestStepIndex_EnsureIndex_Creates(t *testing.T) {
	fc, idx := newIndex(t)
	fc.handle("PUT /steps", func(w http.ResponseWriter, _ string) {
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})

	require.NoError(t, idx.EnsureIndex(context.Background()))

	put, ok := fc.find(http.MethodPut, "/steps")
	require.True(t, ok)
	props := decode(t, put.body)["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "keyword", props["run_id"].(map[string]any)["type"])
}

func TestStepIndex_EnsureIndex_Existing(t *testing.T) {
	fc, idx := newIndex(t)
	fc.handle("HEAD /steps", status(http.StatusOK))

	require.NoError(t, idx.EnsureIndex(context.Background()))
	_, created := fc.find(http.MethodPut, "/steps")
	assert.False(t, created)
}

func TestStepIndex_EnsureIndex_CreateFails(t *testing.T) {
	fc, idx := newIndex(t)
	fc.handle("PUT /steps", func(w http.ResponseWriter, _ string) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := idx.EnsureIndex(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExternalService, errors.GetCode(err))
	assert.Contains(t, err.Error(), "failed to create index")
}

func TestStepIndex_Record(t *testing.T) {
	fc, idx := newIndex(t)
	fc.handle("PUT /steps/_doc/run-1-40", status(http.StatusCreated))
	fc.handle("PUT /steps/_doc/run-1-40-epoch", status(http.StatusCreated))

	m := training.StepMetrics{RunID: "run-1", Step: 40, Epoch: 2, Total: 3.5, Beta: 0.01}
	require.NoError(t, idx.Record(context.Background(), m))

	doc, ok := fc.find(http.MethodPut, "/steps/_doc/run-1-40")
	require.True(t, ok)
	body := decode(t, doc.body)
	assert.Equal(t, "run-1", body["run_id"])
	assert.InDelta(t, 3.5, body["total"], 1e-9)

	m.Summary = true
	require.NoError(t, idx.Record(context.Background(), m))
	_, ok = fc.find(http.MethodPut, "/steps/_doc/run-1-40-epoch")
	assert.True(t, ok)
}

func TestStepIndex_Record_Rejected(t *testing.T) {
	fc, idx := newIndex(t)
	fc.handle("PUT /steps/_doc/run-1-1", status(http.StatusConflict))

	err := idx.Record(context.Background(), training.StepMetrics{RunID: "run-1", Step: 1})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExternalService, errors.GetCode(err))
}

func TestStepIndex_History(t *testing.T) {
	fc, idx := newIndex(t)
	fc.handle("POST /steps/_search", func(w http.ResponseWriter, _ string) {
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"run_id":"run-1","step":1,"total":4.0}},
			{"_source":{"run_id":"run-1","step":2,"total":3.0}}]}}`))
	})

	got, err := idx.History(context.Background(), "run-1", 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1].Step)
	assert.InDelta(t, 3.0, got[1].Total, 1e-9)

	req, ok := fc.find(http.MethodPost, "/steps/_search")
	require.True(t, ok)
	q := decode(t, req.body)["query"].(map[string]any)["term"].(map[string]any)
	assert.Equal(t, "run-1", q["run_id"])
}

func TestStepIndex_History_Validation(t *testing.T) {
	_, idx := newIndex(t)
	_, err := idx.History(context.Background(), "", 10)
	assert.Error(t, err)
	_, err = idx.History(context.Background(), "run-1", 0)
	assert.Error(t, err)
}

//Personal.AI order the ending
