package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/RiskOverlay/pkg/errors"
)

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one decoded envelope.
type Handler func(ctx context.Context, env *EventEnvelope) error

// Consumer reads snapshot events from the configured topic.
type Consumer struct {
	reader ReaderInterface
	logger logging.Logger
}

// NewConsumer joins cfg.GroupID on cfg.Topic starting at the latest offset.
func NewConsumer(cfg config.KafkaConfig, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "kafka brokers required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	})
	return NewConsumerWithReader(reader, logger), nil
}

// NewConsumerWithReader wraps an existing reader.
func NewConsumerWithReader(r ReaderInterface, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{reader: r, logger: logger.Named("kafka")}
}

// Run fetches messages until ctx is done, calling h for every well-formed
// envelope. Malformed messages are logged and committed so they are not
// redelivered; a handler error stops Run without committing.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "kafka fetch failed")
		}

		env, perr := ParseEnvelope(msg.Value)
		if perr != nil {
			c.logger.Warn("skipping malformed event",
				logging.Int64("offset", msg.Offset), logging.Err(perr))
		} else if err := h(ctx, env); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("commit failed", logging.Int64("offset", msg.Offset), logging.Err(err))
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
