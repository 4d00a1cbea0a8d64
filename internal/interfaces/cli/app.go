package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/turtacn/RiskOverlay/internal/application/refresh"
	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/database/postgres"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/database/redis"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/feed"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/storage/minio"
	"github.com/turtacn/RiskOverlay/internal/interfaces/http/handlers"
)

// App holds the components built from a Config. Backends are opened only
// when some dataset or sink needs them.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.Metrics
	Refresher *refresh.Refresher

	objects  *minio.Client
	db       *postgres.Connection
	cache    *redis.Client
	producer *kafka.Producer
	checks   []handlers.HealthChecker
	closers  []func() error
}

// NewApp opens the backends the datasets refer to and builds the refresher.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (app *App, err error) {
	a := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		a.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		a.Metrics = prometheus.NewMetrics(a.Collector)
	}

	var backends refresh.Backends
	if len(cfg.DatasetsBySource(config.SourceMinIO)) > 0 || cfg.MinIO.Archive {
		a.objects, err = minio.NewClient(ctx, cfg.MinIO, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.objects.Close)
		a.checks = append(a.checks, handlers.NewCheck("minio", func(ctx context.Context) error {
			if st := a.objects.HealthCheck(ctx); !st.Healthy {
				return stderrors.New(st.Error)
			}
			return nil
		}))
		backends.Objects = a.objects
	}
	if len(cfg.DatasetsBySource(config.SourcePostgres)) > 0 {
		a.db, err = postgres.NewConnection(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { a.db.Close(); return nil })
		a.checks = append(a.checks, handlers.NewCheck("postgres", a.db.HealthCheck))
		backends.DB = a.db.Pool()
	}

	datasets, err := refresh.DatasetsFromConfig(cfg.Datasets, backends)
	if err != nil {
		return nil, err
	}

	opts := []refresh.Option{refresh.WithLogger(log), refresh.WithMetrics(a.Metrics)}
	if cfg.Feed.URL != "" {
		fc, ferr := feed.NewClient(cfg.Feed.URL,
			feed.WithTimeout(cfg.Feed.Timeout),
			feed.WithRetryMax(cfg.Feed.Retries),
			feed.WithRetryWait(cfg.Feed.RetryBackoff, 8*cfg.Feed.RetryBackoff),
			feed.WithUserAgent(cfg.Feed.UserAgent),
			feed.WithLogger(log),
		)
		if ferr != nil {
			return nil, ferr
		}
		opts = append(opts, refresh.WithFeed(fc, cfg.Feed.URL))
	} else {
		log.Warn("no alert feed configured, refreshes use the empty region")
	}

	a.Refresher = refresh.NewRefresher(datasets, refresh.Config{ActiveOnly: cfg.Feed.ActiveOnly}, opts...)
	return a, nil
}

// Publisher builds the fan-out over every enabled sink.
func (a *App) Publisher(ctx context.Context) (*refresh.Fanout, error) {
	cfg := a.Config
	out := refresh.NewFanout(a.Metrics, a.Logger)

	if cfg.Kafka.Enabled {
		p, err := kafka.NewProducer(cfg.Kafka, a.Logger)
		if err != nil {
			return nil, err
		}
		a.producer = p
		a.closers = append(a.closers, p.Close)
		out.Add(refresh.SinkKafka, refresh.NewKafkaPublisher(p))
	}
	if cfg.Redis.Enabled {
		c, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		out.Add(refresh.SinkRedis, refresh.NewRedisPublisher(redis.NewPublisher(c, cfg.Redis.Channel, cfg.Redis.LatestTTL)))
	}
	if cfg.MinIO.Archive && a.objects != nil {
		out.Add(refresh.SinkArchive, refresh.NewArchivePublisher(a.objects, cfg.MinIO.ArchivePrefix))
	}
	return out, nil
}

// Locker returns the Redis lock shared by replicas, or nil when Redis is
// disabled.
func (a *App) Locker(ctx context.Context) (refresh.Locker, error) {
	if !a.Config.Redis.Enabled {
		return nil, nil
	}
	c, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return redis.NewMutex(c, a.Config.Redis.Channel+":refresh", a.Config.Redis.LockTTL), nil
}

func (a *App) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	c, err := redis.NewClient(ctx, a.Config.Redis, a.Logger)
	if err != nil {
		return nil, err
	}
	a.cache = c
	a.closers = append(a.closers, c.Close)
	a.checks = append(a.checks, handlers.NewCheck("redis", c.Ping))
	return c, nil
}

// HealthCheckers returns a readiness check per opened backend.
func (a *App) HealthCheckers() []handlers.HealthChecker {
	return a.checks
}

// Close releases every opened backend in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}
