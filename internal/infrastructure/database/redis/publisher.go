package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Publisher broadcasts payloads on a channel and keeps the most recent one
// under "<channel>:latest" for late subscribers.
type Publisher struct {
	client    *Client
	channel   string
	latestTTL time.Duration
}

// NewPublisher builds a Publisher. A zero latestTTL keeps the latest payload
// without expiry.
func NewPublisher(client *Client, channel string, latestTTL time.Duration) *Publisher {
	return &Publisher{client: client, channel: channel, latestTTL: latestTTL}
}

// Channel returns the pub/sub channel name.
func (p *Publisher) Channel() string { return p.channel }

// LatestKey returns the key holding the last published payload.
func (p *Publisher) LatestKey() string { return p.channel + ":latest" }

// Publish sends payload and returns the number of subscribers that
// received it.
func (p *Publisher) Publish(ctx context.Context, payload []byte) (int64, error) {
	if p.client.isClosed() {
		return 0, ErrClientClosed
	}
	rdb := p.client.GetUnderlyingClient()

	var receivers *redis.IntCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.LatestKey(), payload, p.latestTTL)
		receivers = pipe.Publish(ctx, p.channel, payload)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodePublishFailed, "redis publish failed").WithDetail(p.channel)
	}
	p.client.logger.Debug("payload published",
		logging.String("channel", p.channel), logging.Int64("receivers", receivers.Val()))
	return receivers.Val(), nil
}

// Latest returns the last published payload, or a NotFound error.
func (p *Publisher) Latest(ctx context.Context) ([]byte, error) {
	b, err := p.client.GetUnderlyingClient().Get(ctx, p.LatestKey()).Bytes()
	if err == redis.Nil {
		return nil, errors.NotFound("no snapshot published yet")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read latest snapshot")
	}
	return b, nil
}
