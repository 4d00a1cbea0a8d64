package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second
	DefaultServerRequestTimeout  = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultFeedTimeout      = 10 * time.Second
	DefaultFeedRetries      = 1
	DefaultFeedRetryBackoff = 500 * time.Millisecond
	DefaultFeedUserAgent    = "riskoverlay/1.0"

	DefaultDatasetSource    = SourceFile
	DefaultDatasetDelimiter = ";"
	DefaultDatasetEncoding  = "utf-8"

	DefaultMinIOArchivePrefix = "snapshots"

	DefaultPostgresPort           = 5432
	DefaultPostgresSSLMode        = "disable"
	DefaultPostgresMaxConns       = 4
	DefaultPostgresConnectTimeout = 5 * time.Second

	DefaultKafkaTopic        = "riskoverlay.snapshots"
	DefaultKafkaGroupID      = "riskoverlay-events"
	DefaultKafkaBatchTimeout = 100 * time.Millisecond
	DefaultKafkaWriteTimeout = 10 * time.Second
	DefaultKafkaMaxAttempts  = 3
	DefaultKafkaRequiredAcks = -1

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisChannel     = "riskoverlay:snapshots"
	DefaultRedisDialTimeout = 5 * time.Second
	DefaultRedisLatestTTL   = 24 * time.Hour
	DefaultRedisLockTTL     = 5 * time.Minute

	DefaultScheduleCron  = "*/10 * * * *"
	DefaultWatchDebounce = 2 * time.Second

	DefaultMetricsNamespace = "riskoverlay"
	DefaultMetricsPath      = "/metrics"
)

// registerDefaults seeds v with every scalar default so that environment
// variables can override keys absent from the config file.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.request_timeout", DefaultServerRequestTimeout)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 0)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("feed.url", "")
	v.SetDefault("feed.timeout", DefaultFeedTimeout)
	v.SetDefault("feed.retries", DefaultFeedRetries)
	v.SetDefault("feed.retry_backoff", DefaultFeedRetryBackoff)
	v.SetDefault("feed.user_agent", DefaultFeedUserAgent)
	v.SetDefault("feed.active_only", false)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.archive", false)
	v.SetDefault("minio.archive_prefix", DefaultMinIOArchivePrefix)

	v.SetDefault("postgres.host", "")
	v.SetDefault("postgres.port", DefaultPostgresPort)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "")
	v.SetDefault("postgres.ssl_mode", DefaultPostgresSSLMode)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", DefaultKafkaTopic)
	v.SetDefault("kafka.group_id", DefaultKafkaGroupID)
	// 0 is a valid setting, so this default lives here rather than in
	// ApplyDefaults.
	v.SetDefault("kafka.required_acks", DefaultKafkaRequiredAcks)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", DefaultRedisChannel)

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.cron", DefaultScheduleCron)
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce", DefaultWatchDebounce)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.path", DefaultMetricsPath)
}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg. Explicit values win. It
// runs after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultServerRequestTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Feed ──────────────────────────────────────────────────────────────────
	if cfg.Feed.Timeout == 0 {
		cfg.Feed.Timeout = DefaultFeedTimeout
	}
	if cfg.Feed.RetryBackoff == 0 {
		cfg.Feed.RetryBackoff = DefaultFeedRetryBackoff
	}
	if cfg.Feed.UserAgent == "" {
		cfg.Feed.UserAgent = DefaultFeedUserAgent
	}

	// ── Datasets ──────────────────────────────────────────────────────────────
	for i := range cfg.Datasets {
		d := &cfg.Datasets[i]
		if d.Source == "" {
			d.Source = DefaultDatasetSource
		}
		if d.Delimiter == "" {
			d.Delimiter = DefaultDatasetDelimiter
		}
		if d.Encoding == "" {
			d.Encoding = DefaultDatasetEncoding
		}
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.ArchivePrefix == "" {
		cfg.MinIO.ArchivePrefix = DefaultMinIOArchivePrefix
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if cfg.Postgres.ConnectTimeout == 0 {
		cfg.Postgres.ConnectTimeout = DefaultPostgresConnectTimeout
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}
	if cfg.Kafka.MaxAttempts == 0 {
		cfg.Kafka.MaxAttempts = DefaultKafkaMaxAttempts
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = DefaultRedisChannel
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.LatestTTL == 0 {
		cfg.Redis.LatestTTL = DefaultRedisLatestTTL
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = DefaultRedisLockTTL
	}

	// ── Schedule / watch / metrics ────────────────────────────────────────────
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}
