package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Event types.
const (
	EventTrainingStep  = "training.step"
	EventTrainingEpoch = "training.epoch"
)

// SchemaVersion is written into every envelope.
const SchemaVersion = "1"

// EventEnvelope wraps every published payload.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope.
func NewEnvelope(eventType, source string, payload any) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       raw,
	}, nil
}

// MetricsPublisher streams training reports as events keyed by run id.
type MetricsPublisher struct {
	producer *Producer
	source   string
}

// NewMetricsPublisher creates a training.MetricsSink backed by p.
func NewMetricsPublisher(p *Producer, source string) *MetricsPublisher {
	return &MetricsPublisher{producer: p, source: source}
}

// Record publishes m.
func (m *MetricsPublisher) Record(ctx context.Context, s training.StepMetrics) error {
	eventType := EventTrainingStep
	if s.Summary {
		eventType = EventTrainingEpoch
	}
	env, err := NewEnvelope(eventType, m.source, s)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode event")
	}
	return m.producer.Publish(ctx, []byte(s.RunID), data, map[string]string{
		"event_type":     eventType,
		"schema_version": SchemaVersion,
	})
}

//Personal.AI order the ending
