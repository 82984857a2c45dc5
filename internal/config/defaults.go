package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultReferencePageSize   = 10
	DefaultDownsampleThreshold = 50
	DefaultDownsampleOffset    = 50
	DefaultDownsampleStride    = 100
	DefaultMaxFileBytes        = 256 << 20
	DefaultWorkers             = 4

	DefaultResolverBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	DefaultResolverTimeout = 10 * time.Second
	DefaultResolverRPS     = 5
	DefaultResolverTTL     = 30 * 24 * time.Hour

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "catalysis:"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "raw-files"

	DefaultOpenSearchAddress = "http://localhost:9200"
	DefaultEntriesIndex      = "entries"
	DefaultResultsIndex      = "catalysis-results"
	DefaultOpenSearchTimeout = 10 * time.Second

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "catalysis.ingestion.completed"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "catalysis"
	DefaultDBSSLMode  = "disable"
	DefaultDBMaxConns = 10

	DefaultMetricsNamespace = "catalysis"
	DefaultMetricsPath      = "/metrics"

	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly configured values are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Ingest ────────────────────────────────────────────────────────────────
	if cfg.Ingest.ReferencePageSize == 0 {
		cfg.Ingest.ReferencePageSize = DefaultReferencePageSize
	}
	if cfg.Ingest.DownsampleThreshold == 0 {
		cfg.Ingest.DownsampleThreshold = DefaultDownsampleThreshold
	}
	if cfg.Ingest.DownsampleOffset == 0 {
		cfg.Ingest.DownsampleOffset = DefaultDownsampleOffset
	}
	if cfg.Ingest.DownsampleStride == 0 {
		cfg.Ingest.DownsampleStride = DefaultDownsampleStride
	}
	if cfg.Ingest.MaxFileBytes == 0 {
		cfg.Ingest.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = DefaultWorkers
	}

	// ── Resolver ──────────────────────────────────────────────────────────────
	if cfg.Resolver.BaseURL == "" {
		cfg.Resolver.BaseURL = DefaultResolverBaseURL
	}
	if cfg.Resolver.Timeout == 0 {
		cfg.Resolver.Timeout = DefaultResolverTimeout
	}
	if cfg.Resolver.RequestsPerSecond == 0 {
		cfg.Resolver.RequestsPerSecond = DefaultResolverRPS
	}
	if cfg.Resolver.CacheTTL == 0 {
		cfg.Resolver.CacheTTL = DefaultResolverTTL
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddress}
	}
	if cfg.OpenSearch.EntriesIndex == "" {
		cfg.OpenSearch.EntriesIndex = DefaultEntriesIndex
	}
	if cfg.OpenSearch.ResultsIndex == "" {
		cfg.OpenSearch.ResultsIndex = DefaultResultsIndex
	}
	if cfg.OpenSearch.Timeout == 0 {
		cfg.OpenSearch.Timeout = DefaultOpenSearchTimeout
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
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
}

// NewDefaultConfig returns a Config with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Ingest.ResolveNames = true
	cfg.Resolver.CacheEnabled = true
	ApplyDefaults(cfg)
	return cfg
}

// registerKeys seeds viper with every known key so that AutomaticEnv can
// resolve CATALYSIS_* variables for keys absent from the config file.
func registerKeys(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_paths", d.Log.OutputPaths)

	v.SetDefault("ingest.resolve_names", d.Ingest.ResolveNames)
	v.SetDefault("ingest.reference_page_size", d.Ingest.ReferencePageSize)
	v.SetDefault("ingest.downsample_threshold", d.Ingest.DownsampleThreshold)
	v.SetDefault("ingest.downsample_offset", d.Ingest.DownsampleOffset)
	v.SetDefault("ingest.downsample_stride", d.Ingest.DownsampleStride)
	v.SetDefault("ingest.max_file_bytes", d.Ingest.MaxFileBytes)
	v.SetDefault("ingest.workers", d.Ingest.Workers)

	v.SetDefault("resolver.base_url", d.Resolver.BaseURL)
	v.SetDefault("resolver.timeout", d.Resolver.Timeout)
	v.SetDefault("resolver.requests_per_second", d.Resolver.RequestsPerSecond)
	v.SetDefault("resolver.cache_enabled", d.Resolver.CacheEnabled)
	v.SetDefault("resolver.cache_ttl", d.Resolver.CacheTTL)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", d.MinIO.Endpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", d.MinIO.Bucket)

	v.SetDefault("opensearch.enabled", false)
	v.SetDefault("opensearch.addresses", d.OpenSearch.Addresses)
	v.SetDefault("opensearch.username", "")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.entries_index", d.OpenSearch.EntriesIndex)
	v.SetDefault("opensearch.results_index", d.OpenSearch.ResultsIndex)
	v.SetDefault("opensearch.timeout", d.OpenSearch.Timeout)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic", d.Kafka.Topic)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", d.Database.DBName)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
}
