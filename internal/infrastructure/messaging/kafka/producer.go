package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

var (
	ErrProducerClosed = errors.New(errors.ErrCodePublishFailed, "producer closed")
)

// maxMessageBytes matches the broker default message.max.bytes.
const maxMessageBytes = 1024 * 1024

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes event envelopes to a single topic.
type Producer struct {
	writer WriterInterface
	topic  string
	logger logging.Logger
	closed atomic.Bool
	sent   atomic.Int64
	failed atomic.Int64
}

// NewProducer builds a hash-balanced writer for cfg.Topic.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.Topic == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka topic required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            cfg.MaxAttempts,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           requiredAcks(cfg.RequiredAcks),
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(writer, cfg.Topic, logger), nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w WriterInterface, topic string, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, topic: topic, logger: logger.Named("kafka")}
}

func requiredAcks(n int) kafka.RequiredAcks {
	switch n {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

// PublishEvent writes env keyed by key. The envelope type and id travel as
// headers so consumers can filter without decoding the value.
func (p *Producer) PublishEvent(ctx context.Context, key string, env *EventEnvelope) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event")
	}
	if len(value) > maxMessageBytes {
		return errors.Newf(errors.ErrCodePublishFailed, "event %s exceeds %d bytes", env.EventID, maxMessageBytes)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodePublishFailed, "kafka publish failed").WithDetail(p.topic)
	}
	p.sent.Add(1)
	p.logger.Debug("event published",
		logging.String("topic", p.topic),
		logging.String("event_type", env.EventType),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// Sent returns the number of events written.
func (p *Producer) Sent() int64 { return p.sent.Load() }

// Failed returns the number of failed writes.
func (p *Producer) Failed() int64 { return p.failed.Load() }

// Close flushes and closes the writer once.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.sent.Load()))
	return err
}
