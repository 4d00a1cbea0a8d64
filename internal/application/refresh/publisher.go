package refresh

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/storage/minio"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Publisher hands a finished snapshot to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, snap *Snapshot) error
}

// Sink names used in logs and metrics.
const (
	SinkKafka   = "kafka"
	SinkRedis   = "redis"
	SinkArchive = "archive"
)

// EventSource is stamped on published envelopes.
const EventSource = "riskoverlay"

// ---------------------------------------------------------------------------
// Kafka
// ---------------------------------------------------------------------------

// EventProducer is satisfied by *kafka.Producer.
type EventProducer interface {
	PublishEvent(ctx context.Context, key string, env *kafka.EventEnvelope) error
}

// KafkaPublisher sends the snapshot Event keyed by snapshot id.
type KafkaPublisher struct {
	producer EventProducer
}

// NewKafkaPublisher wraps p.
func NewKafkaPublisher(p EventProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

// Publish implements Publisher.
func (k *KafkaPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	env, err := kafka.NewEventEnvelope(kafka.EventSnapshotCompleted, EventSource, snap.Event())
	if err != nil {
		return err
	}
	env.Metadata = map[string]string{"feed": string(snap.Feed.State)}
	return k.producer.PublishEvent(ctx, snap.ID, env)
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

// ChannelPublisher is satisfied by *redis.Publisher.
type ChannelPublisher interface {
	Publish(ctx context.Context, payload []byte) (int64, error)
}

// RedisPublisher broadcasts the snapshot Event as JSON.
type RedisPublisher struct {
	channel ChannelPublisher
}

// NewRedisPublisher wraps c.
func NewRedisPublisher(c ChannelPublisher) *RedisPublisher {
	return &RedisPublisher{channel: c}
}

// Publish implements Publisher.
func (r *RedisPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(snap.Event())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal snapshot event")
	}
	_, err = r.channel.Publish(ctx, payload)
	return err
}

// ---------------------------------------------------------------------------
// Object archive
// ---------------------------------------------------------------------------

// ObjectPutter is satisfied by *minio.Client.
type ObjectPutter interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) error
}

// ArchivePublisher uploads the full snapshot Document under prefix.
type ArchivePublisher struct {
	store  ObjectPutter
	prefix string
}

// NewArchivePublisher wraps store.
func NewArchivePublisher(store ObjectPutter, prefix string) *ArchivePublisher {
	return &ArchivePublisher{store: store, prefix: prefix}
}

// Publish implements Publisher.
func (a *ArchivePublisher) Publish(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap.Document())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal snapshot")
	}
	return a.store.Put(ctx, minio.SnapshotKey(a.prefix, snap.ID), data, "application/json")
}

// ---------------------------------------------------------------------------
// Fan-out
// ---------------------------------------------------------------------------

type namedPublisher struct {
	name string
	pub  Publisher
}

// Fanout publishes to every registered sink in order. A failing sink does
// not stop the others.
type Fanout struct {
	sinks   []namedPublisher
	metrics *prometheus.Metrics
	logger  logging.Logger
}

// NewFanout returns an empty Fanout. m may be nil.
func NewFanout(m *prometheus.Metrics, log logging.Logger) *Fanout {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Fanout{metrics: m, logger: log.Named("publish")}
}

// Add registers pub under name.
func (f *Fanout) Add(name string, pub Publisher) *Fanout {
	f.sinks = append(f.sinks, namedPublisher{name: name, pub: pub})
	return f
}

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Publish implements Publisher. Failures are logged and counted per sink,
// and returned joined.
func (f *Fanout) Publish(ctx context.Context, snap *Snapshot) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.pub.Publish(ctx, snap)
		if f.metrics != nil {
			f.metrics.ObservePublish(s.name, err)
		}
		if err != nil {
			f.logger.Warn("snapshot publish failed",
				logging.String("sink", s.name), logging.SnapshotID(snap.ID), logging.Err(err))
			errs = append(errs, err)
			continue
		}
		f.logger.Debug("snapshot published", logging.String("sink", s.name), logging.SnapshotID(snap.ID))
	}
	return stderrors.Join(errs...)
}
