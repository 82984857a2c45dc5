// Package config defines all configuration structures for the catalysis
// ingestion pipeline.  No I/O or parsing logic lives here, only plain data
// types and validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig holds logger construction parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // debug | info | warn | error
	Format      string   `mapstructure:"format"` // json | console
	OutputPaths []string `mapstructure:"output_paths"`
}

// IngestConfig tunes the normalization pipeline itself.
type IngestConfig struct {
	// ResolveNames enables the external substance lookup for reagents and products.
	ResolveNames bool `mapstructure:"resolve_names"`
	// ReferencePageSize caps how many referencing entries are inspected when
	// inferring characterization methods for a sample.
	ReferencePageSize int `mapstructure:"reference_page_size"`
	// DownsampleThreshold, DownsampleOffset and DownsampleStride control how
	// long HDF5 series are thinned before projection into the results tree.
	DownsampleThreshold int `mapstructure:"downsample_threshold"`
	DownsampleOffset    int `mapstructure:"downsample_offset"`
	DownsampleStride    int `mapstructure:"downsample_stride"`
	// MaxFileBytes bounds the size of a raw file that will be materialized.
	MaxFileBytes int64 `mapstructure:"max_file_bytes"`
	// Workers bounds concurrent ingestions in batch mode.
	Workers int `mapstructure:"workers"`
}

// ResolverConfig holds PubChem lookup parameters.
type ResolverConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	CacheEnabled      bool          `mapstructure:"cache_enabled"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig holds Redis connection parameters for the shared resolver cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds object-storage parameters for raw files addressed as
// s3://bucket/key.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
}

// OpenSearchConfig holds search cluster parameters.
type OpenSearchConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Addresses          []string      `mapstructure:"addresses"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	EntriesIndex       string        `mapstructure:"entries_index"`
	ResultsIndex       string        `mapstructure:"results_index"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// KafkaConfig holds producer parameters for ingestion events.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	Acks         string        `mapstructure:"acks"` // none | one | all
	Compression  string        `mapstructure:"compression"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// DatabaseConfig holds PostgreSQL parameters for the record archive.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ServerConfig holds HTTP ingestion-API tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Redis      RedisConfig      `mapstructure:"redis"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Server     ServerConfig     `mapstructure:"server"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first error encountered.  Optional integrations are only
// checked when enabled.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Ingest.ReferencePageSize < 1 {
		return fmt.Errorf("config: ingest.reference_page_size must be ≥ 1, got %d", c.Ingest.ReferencePageSize)
	}
	if c.Ingest.DownsampleStride < 1 {
		return fmt.Errorf("config: ingest.downsample_stride must be ≥ 1, got %d", c.Ingest.DownsampleStride)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("config: ingest.workers must be ≥ 1, got %d", c.Ingest.Workers)
	}

	if c.Ingest.ResolveNames && c.Resolver.BaseURL == "" {
		return fmt.Errorf("config: resolver.base_url is required when ingest.resolve_names is set")
	}
	if c.Resolver.RequestsPerSecond < 1 {
		return fmt.Errorf("config: resolver.requests_per_second must be ≥ 1, got %d", c.Resolver.RequestsPerSecond)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required")
		}
	}

	if c.OpenSearch.Enabled && len(c.OpenSearch.Addresses) == 0 {
		return fmt.Errorf("config: opensearch.addresses must contain at least one address")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	return nil
}

// DSN renders the PostgreSQL connection URL used by both the pgx driver and
// the migrator.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// Addr returns host:port for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
