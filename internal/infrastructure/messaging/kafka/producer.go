package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// ErrProducerClosed is returned by Publish after Close.
var ErrProducerClosed = errors.New(errors.ErrCodeServiceUnavailable, "producer closed")

// MaxMessageBytes bounds a single event.
const MaxMessageBytes = 1 << 20

// Writer abstracts kafka.Writer for testing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerStats are running counters.
type ProducerStats struct {
	Sent   int64
	Failed int64
	Bytes  int64
}

// Producer writes keyed messages to one topic.
type Producer struct {
	writer Writer
	topic  string
	logger logging.Logger
	closed atomic.Bool
	sent   atomic.Int64
	failed atomic.Int64
	bytes  atomic.Int64
}

// NewProducer creates a producer for cfg.Topic on cfg.Brokers.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.InvalidParam("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.InvalidParam("kafka topic is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            4,
		BatchSize:              100,
		BatchTimeout:           time.Second,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		Compression:            compression(cfg.Compression),
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{DialTimeout: 10 * time.Second},
	}
	return NewProducerWithWriter(w, cfg.Topic, log), nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w Writer, topic string, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Producer{writer: w, topic: topic, logger: log.Named("kafka")}
}

func compression(codec string) kafka.Compression {
	switch codec {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}

// Topic returns the destination topic.
func (p *Producer) Topic() string { return p.topic }

// Publish writes one message.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers map[string]string) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(value) == 0 {
		return errors.InvalidParam("message value is required")
	}
	if len(value) > MaxMessageBytes {
		return errors.InvalidParam("message too large")
	}
	msg := kafka.Message{Key: key, Value: value, Time: time.Now()}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "publish failed")
	}
	p.sent.Add(1)
	p.bytes.Add(int64(len(value)))
	p.logger.Debug("Message published",
		logging.String("topic", p.topic),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// Stats returns a snapshot of the counters.
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{Sent: p.sent.Load(), Failed: p.failed.Load(), Bytes: p.bytes.Load()}
}

// Close flushes and closes the writer.  Further calls are no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.sent.Load()), logging.Int64("failed", p.failed.Load()))
	return err
}

//Personal.AI order the ending
