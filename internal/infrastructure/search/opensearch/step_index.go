package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// stepMapping keeps run ids as keywords so history queries are exact.
var stepMapping = map[string]any{
	"settings": map[string]any{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"run_id":        map[string]any{"type": "keyword"},
			"step":          map[string]any{"type": "integer"},
			"epoch":         map[string]any{"type": "integer"},
			"summary":       map[string]any{"type": "boolean"},
			"word":          map[string]any{"type": "double"},
			"topo":          map[string]any{"type": "double"},
			"assm":          map[string]any{"type": "double"},
			"stereo":        map[string]any{"type": "double"},
			"kl":            map[string]any{"type": "double"},
			"total":         map[string]any{"type": "double"},
			"word_acc":      map[string]any{"type": "double"},
			"topo_acc":      map[string]any{"type": "double"},
			"assm_acc":      map[string]any{"type": "double"},
			"beta":          map[string]any{"type": "double"},
			"learning_rate": map[string]any{"type": "double"},
			"grad_norm":     map[string]any{"type": "double"},
			"examples":      map[string]any{"type": "integer"},
			"mismatches":    map[string]any{"type": "integer"},
			"skipped":       map[string]any{"type": "integer"},
			"elapsed":       map[string]any{"type": "long"},
			"time":          map[string]any{"type": "date"},
		},
	},
}

// StepIndex stores StepMetrics documents, one per run and step.
type StepIndex struct {
	client *Client
	index  string
	logger logging.Logger
}

// NewStepIndex binds a StepIndex to index.
func NewStepIndex(c *Client, index string) (*StepIndex, error) {
	if c == nil {
		return nil, errors.InvalidParam("opensearch client is required")
	}
	if index == "" {
		return nil, errors.InvalidParam("index name is required")
	}
	return &StepIndex{client: c, index: index, logger: c.logger}, nil
}

// EnsureIndex creates the index with its mapping unless it exists.
func (s *StepIndex) EnsureIndex(ctx context.Context) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{s.index}}.Do(ctx, s.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to check index")
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}
	if exists.StatusCode != http.StatusNotFound {
		return responseError(exists, "failed to check index")
	}

	body, err := json.Marshal(stepMapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}
	resp, err := opensearchapi.IndicesCreateRequest{Index: s.index, Body: bytes.NewReader(body)}.Do(ctx, s.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create index")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return responseError(resp, "failed to create index")
	}
	s.logger.Info("Index created", logging.String("index", s.index))
	return nil
}

// Record implements training.MetricsSink.  Re-recording a step overwrites
// the previous document.
func (s *StepIndex) Record(ctx context.Context, m training.StepMetrics) error {
	body, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal step metrics")
	}
	resp, err := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: docID(m),
		Body:       bytes.NewReader(body),
	}.Do(ctx, s.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to index step metrics")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return responseError(resp, "failed to index step metrics")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source training.StepMetrics `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// History returns up to size reports of runID in step order.
func (s *StepIndex) History(ctx context.Context, runID string, size int) ([]training.StepMetrics, error) {
	if runID == "" {
		return nil, errors.InvalidParam("run id is required")
	}
	if size <= 0 {
		return nil, errors.InvalidParam("size must be positive")
	}
	query, err := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"run_id": runID}},
		"sort":  []any{map[string]any{"step": "asc"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal query")
	}
	resp, err := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(query),
		Size:  &size,
	}.Do(ctx, s.client.client)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to search step metrics")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, responseError(resp, "failed to search step metrics")
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}
	out := make([]training.StepMetrics, len(sr.Hits.Hits))
	for i, h := range sr.Hits.Hits {
		out[i] = h.Source
	}
	return out, nil
}

func docID(m training.StepMetrics) string {
	id := m.RunID + "-" + strconv.Itoa(m.Step)
	if m.Summary {
		id += "-epoch"
	}
	return id
}

func responseError(resp *opensearchapi.Response, msg string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return errors.New(errors.ErrCodeExternalService, msg).
		WithDetail(fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
}

var _ training.MetricsSink = (*StepIndex)(nil)

//Personal.AI order the ending
