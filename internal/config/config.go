// Package config defines the RiskOverlay configuration structures. Loading
// lives in loader.go and defaults in defaults.go; this file holds only data
// types and validation.
package config

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"

	"github.com/turtacn/RiskOverlay/internal/domain/facility"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout bounds the refresh behind each API request.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins"`
	// RateLimit is the sustained per-client request rate on /api; zero
	// disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// LogConfig mirrors logging.LogConfig.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// FeedConfig describes the remote alert feed. An empty URL means no feed is
// configured and every refresh runs against the empty region.
type FeedConfig struct {
	URL          string        `mapstructure:"url"` // http(s):// or file://
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	UserAgent    string        `mapstructure:"user_agent"`
	// ActiveOnly drops alerts whose issued/expires window excludes the refresh
	// time.
	ActiveOnly bool `mapstructure:"active_only"`
}

// Dataset source kinds.
const (
	SourceFile     = "file"
	SourceMinIO    = "minio"
	SourcePostgres = "postgres"
)

// FilterConfig keeps only rows whose Column matches one of Values.
type FilterConfig struct {
	Column string   `mapstructure:"column"`
	Values []string `mapstructure:"values"`
}

// DatasetConfig describes one point dataset.
type DatasetConfig struct {
	Name     string `mapstructure:"name"`
	Category string `mapstructure:"category"`
	Source   string `mapstructure:"source"`
	// Path is a local file path for file sources and an object key for MinIO.
	Path  string `mapstructure:"path"`
	Query string `mapstructure:"query"`

	Delimiter string `mapstructure:"delimiter"`
	Encoding  string `mapstructure:"encoding"` // "utf-8" | "latin1" | "windows-1252"

	LabelColumn        string       `mapstructure:"label_column"`
	MunicipalityColumn string       `mapstructure:"municipality_column"`
	Filter             FilterConfig `mapstructure:"filter"`
}

// MinIOConfig holds object storage parameters for MinIO dataset sources.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	// Archive uploads every snapshot as JSON under ArchivePrefix.
	Archive       bool   `mapstructure:"archive"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
}

// PostgresConfig holds connection parameters for PostgreSQL dataset sources.
type PostgresConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"db_name"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	MaxConns       int32         `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// KafkaConfig configures the snapshot event producer.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	GroupID      string        `mapstructure:"group_id"` // consumer group for "riskoverlay events"
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RequiredAcks int           `mapstructure:"required_acks"` // -1 all, 0 none, 1 leader
}

// RedisConfig configures the snapshot notification publisher.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	Channel     string        `mapstructure:"channel"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// LatestTTL bounds how long the last snapshot stays readable.
	LatestTTL time.Duration `mapstructure:"latest_ttl"`
	// LockTTL bounds the scheduled-refresh lock shared by replicas.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// ScheduleConfig configures periodic refreshes in serve mode.
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// WatchConfig configures refreshes triggered by dataset file changes.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
	Feed     FeedConfig      `mapstructure:"feed"`
	Datasets []DatasetConfig `mapstructure:"datasets"`
	MinIO    MinIOConfig     `mapstructure:"minio"`
	Postgres PostgresConfig  `mapstructure:"postgres"`
	Kafka    KafkaConfig     `mapstructure:"kafka"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Schedule ScheduleConfig  `mapstructure:"schedule"`
	Watch    WatchConfig     `mapstructure:"watch"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a defaulted Config and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("config: server.rate_limit and server.rate_burst must not be negative")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("config: feed.timeout must be positive, got %s", c.Feed.Timeout)
	}
	if c.Feed.Retries < 0 {
		return fmt.Errorf("config: feed.retries must be ≥ 0, got %d", c.Feed.Retries)
	}

	seen := make(map[string]struct{}, len(c.Datasets))
	for i := range c.Datasets {
		if err := c.validateDataset(i); err != nil {
			return err
		}
		if _, dup := seen[c.Datasets[i].Name]; dup {
			return fmt.Errorf("config: datasets[%d].name %q is duplicated", i, c.Datasets[i].Name)
		}
		seen[c.Datasets[i].Name] = struct{}{}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
		if c.Kafka.RequiredAcks < -1 || c.Kafka.RequiredAcks > 1 {
			return fmt.Errorf("config: kafka.required_acks must be -1, 0 or 1, got %d", c.Kafka.RequiredAcks)
		}
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.Channel == "" {
			return fmt.Errorf("config: redis.channel is required")
		}
	}
	if c.MinIO.Archive && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		return fmt.Errorf("config: minio.endpoint and minio.bucket are required when minio.archive is set")
	}
	if c.Schedule.Enabled {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("config: schedule.cron %q is invalid: %w", c.Schedule.Cron, err)
		}
	}
	return nil
}

func (c *Config) validateDataset(i int) error {
	d := c.Datasets[i]
	if d.Name == "" {
		return fmt.Errorf("config: datasets[%d].name is required", i)
	}
	if _, err := facility.ParseCategory(d.Category); err != nil {
		return fmt.Errorf("config: datasets[%d].category %q is invalid", i, d.Category)
	}
	if utf8.RuneCountInString(d.Delimiter) != 1 {
		return fmt.Errorf("config: datasets[%d].delimiter must be a single character, got %q", i, d.Delimiter)
	}
	switch d.Encoding {
	case "utf-8", "latin1", "windows-1252":
	default:
		return fmt.Errorf("config: datasets[%d].encoding %q is invalid; expected utf-8|latin1|windows-1252", i, d.Encoding)
	}

	switch d.Source {
	case SourceFile:
		if d.Path == "" {
			return fmt.Errorf("config: datasets[%d].path is required for file sources", i)
		}
	case SourceMinIO:
		if d.Path == "" {
			return fmt.Errorf("config: datasets[%d].path (object key) is required for minio sources", i)
		}
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required by dataset %q", d.Name)
		}
	case SourcePostgres:
		if d.Query == "" {
			return fmt.Errorf("config: datasets[%d].query is required for postgres sources", i)
		}
		if c.Postgres.Host == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("config: postgres.host and postgres.db_name are required by dataset %q", d.Name)
		}
	default:
		return fmt.Errorf("config: datasets[%d].source %q is invalid; expected file|minio|postgres", i, d.Source)
	}
	return nil
}

// DatasetsBySource returns the datasets using the given source kind.
func (c *Config) DatasetsBySource(source string) []DatasetConfig {
	var out []DatasetConfig
	for _, d := range c.Datasets {
		if d.Source == source {
			out = append(out, d)
		}
	}
	return out
}
