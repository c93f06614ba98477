// Package config loads service configuration from defaults, an optional YAML
// file, an optional .env file and REVIEW_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
	Auth         AuthConfig         `yaml:"auth"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Stats        StatsConfig        `yaml:"stats"`
	VideoMetrics VideoMetricsConfig `yaml:"video_metrics"`
	Events       EventsConfig       `yaml:"events"`
	Tracing      TracingConfig      `yaml:"tracing"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"REVIEW_SERVER_HOST"`
	Port            int           `yaml:"port" env:"REVIEW_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"REVIEW_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"REVIEW_SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"REVIEW_SERVER_SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"REVIEW_SERVER_ALLOWED_ORIGINS"`
	// AuditLogPath appends audit entries as JSON lines when set.
	AuditLogPath    string        `yaml:"audit_log_path" env:"REVIEW_SERVER_AUDIT_LOG_PATH"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"REVIEW_DATABASE_DRIVER"`
	DSN             string        `yaml:"dsn" env:"REVIEW_DATABASE_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"REVIEW_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"REVIEW_DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"REVIEW_DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"REVIEW_DATABASE_AUTO_MIGRATE"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"REVIEW_LOG_LEVEL"`
	Format string `yaml:"format" env:"REVIEW_LOG_FORMAT"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"REVIEW_AUTH_JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"REVIEW_AUTH_ISSUER"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"REVIEW_AUTH_TOKEN_TTL"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"REVIEW_RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REVIEW_RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" env:"REVIEW_RATE_LIMIT_BURST"`
}

// StatsConfig controls dashboard aggregation. Timezone defines the day
// boundary for "submitted today".
type StatsConfig struct {
	Timezone string `yaml:"timezone" env:"REVIEW_STATS_TIMEZONE"`
}

// Location resolves Timezone.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

type VideoMetricsConfig struct {
	Enabled     bool          `yaml:"enabled" env:"REVIEW_VIDEO_METRICS_ENABLED"`
	BaseURL     string        `yaml:"base_url" env:"REVIEW_VIDEO_METRICS_BASE_URL"`
	AccessToken string        `yaml:"access_token" env:"REVIEW_VIDEO_METRICS_ACCESS_TOKEN"`
	Schedule    string        `yaml:"schedule" env:"REVIEW_VIDEO_METRICS_SCHEDULE"`
	PageSize    int           `yaml:"page_size" env:"REVIEW_VIDEO_METRICS_PAGE_SIZE"`
	Timeout     time.Duration `yaml:"timeout" env:"REVIEW_VIDEO_METRICS_TIMEOUT"`
	MaxRetries  int           `yaml:"max_retries" env:"REVIEW_VIDEO_METRICS_MAX_RETRIES"`
	RedisAddr   string        `yaml:"redis_addr" env:"REVIEW_VIDEO_METRICS_REDIS_ADDR"`
	RedisDB     int           `yaml:"redis_db" env:"REVIEW_VIDEO_METRICS_REDIS_DB"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"REVIEW_VIDEO_METRICS_CACHE_TTL"`
}

type EventsConfig struct {
	KafkaBrokers      []string `yaml:"kafka_brokers" env:"REVIEW_EVENTS_KAFKA_BROKERS"`
	KafkaTopic        string   `yaml:"kafka_topic" env:"REVIEW_EVENTS_KAFKA_TOPIC"`
	KafkaAsync        bool     `yaml:"kafka_async" env:"REVIEW_EVENTS_KAFKA_ASYNC"`
	KafkaRequiredAcks string   `yaml:"kafka_required_acks" env:"REVIEW_EVENTS_KAFKA_REQUIRED_ACKS"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"REVIEW_TRACING_ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"REVIEW_TRACING_ENDPOINT"`
	Insecure    bool    `yaml:"insecure" env:"REVIEW_TRACING_INSECURE"`
	SampleRatio float64 `yaml:"sample_ratio" env:"REVIEW_TRACING_SAMPLE_RATIO"`
	ServiceName string  `yaml:"service_name" env:"REVIEW_TRACING_SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Auth:    AuthConfig{Issuer: "submission-review", TokenTTL: 24 * time.Hour},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Stats: StatsConfig{Timezone: "UTC"},
		VideoMetrics: VideoMetricsConfig{
			BaseURL:    "https://open.tiktokapis.com",
			Schedule:   "@every 30m",
			PageSize:   100,
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			CacheTTL:   10 * time.Minute,
		},
		Events:  EventsConfig{KafkaTopic: "submission-events", KafkaRequiredAcks: "one"},
		Tracing: TracingConfig{SampleRatio: 1, ServiceName: "submission-review"},
	}
}

// Load builds the configuration. An empty path skips the YAML layer; a
// missing .env file is ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Database.Driver) {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 bytes"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit requires positive requests_per_second and burst"))
	}
	if _, err := c.Stats.Location(); err != nil {
		errs = append(errs, fmt.Errorf("stats.timezone: %w", err))
	}
	if c.VideoMetrics.Enabled {
		if c.VideoMetrics.BaseURL == "" || c.VideoMetrics.AccessToken == "" {
			errs = append(errs, errors.New("video_metrics requires base_url and access_token when enabled"))
		}
	}
	if len(c.Events.KafkaBrokers) > 0 && c.Events.KafkaTopic == "" {
		errs = append(errs, errors.New("events.kafka_topic is required when brokers are set"))
	}
	switch c.Events.KafkaRequiredAcks {
	case "", "none", "one", "all":
	default:
		errs = append(errs, fmt.Errorf("events.kafka_required_acks must be none, one or all, got %q", c.Events.KafkaRequiredAcks))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be within [0,1]"))
	}

	return errors.Join(errs...)
}
