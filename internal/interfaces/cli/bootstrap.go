package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/turtacn/Catalysis-Ingest/internal/application/ingest"
	"github.com/turtacn/Catalysis-Ingest/internal/config"
	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/postgres"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/database/redis"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/search/opensearch"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/storage/minio"
	"github.com/turtacn/Catalysis-Ingest/internal/intelligence/chem_resolver"
	"github.com/turtacn/Catalysis-Ingest/internal/interfaces/http/handlers"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// Runtime is the wired ingestion service with its backing clients.  Only the
// integrations enabled in the configuration are connected.
type Runtime struct {
	Config  *config.Config
	Logger  logging.Logger
	Service ingest.Service

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.IngestMetrics
	Checkers  []handlers.HealthChecker

	Database *postgres.Connection
	Indexer  *opensearch.Indexer
	Storage  *minio.MinIOClient

	closers []func() error
}

// Bootstrap connects every enabled integration and builds the service.  On
// failure the clients opened so far are closed.
func Bootstrap(cfg *config.Config, logger logging.Logger) (_ *Runtime, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rt := &Runtime{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	deps := ingest.Dependencies{OpenH5: openH5}

	// --- Metrics ---
	if cfg.Metrics.Enabled {
		collector, cerr := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics), logger.Named("metrics"))
		if cerr != nil {
			return nil, cerr
		}
		rt.Collector = collector
		rt.Metrics = prometheus.NewIngestMetrics(collector)
		deps.Metrics = rt.Metrics
	}

	// --- Substance resolver ---
	if cfg.Ingest.ResolveNames {
		resolver, rerr := rt.buildResolver(cfg, logger)
		if rerr != nil {
			return nil, rerr
		}
		deps.Resolver = resolver
	}

	// --- Object storage ---
	if cfg.MinIO.Enabled {
		client, merr := minio.NewMinIOClient(cfg.MinIO, logger.Named("minio"))
		if merr != nil {
			return nil, merr
		}
		rt.Storage = client
		deps.Files = minio.NewRawFileStore(client, logger.Named("minio"), cfg.Ingest.MaxFileBytes)
		rt.Checkers = append(rt.Checkers, handlers.HealthCheckFunc{
			ComponentName: "minio",
			Fn: func(ctx context.Context) error {
				status, herr := client.HealthCheck(ctx)
				if herr != nil {
					return herr
				}
				if !status.Healthy {
					return errors.New(errors.ErrCodeStorageError, status.Error)
				}
				return nil
			},
		})
	}

	// --- Search ---
	if cfg.OpenSearch.Enabled {
		client, oerr := opensearch.NewClient(opensearch.ClientConfigFrom(cfg.OpenSearch), logger.Named("opensearch"))
		if oerr != nil {
			return nil, oerr
		}
		rt.closers = append(rt.closers, client.Close)
		rt.Indexer = opensearch.NewIndexer(client, opensearch.IndexerConfig{}, logger.Named("opensearch"))
		deps.Index = rt.Indexer
		deps.Samples = opensearch.NewSearcher(client, opensearch.SearcherConfig{
			EntriesIndex:  cfg.OpenSearch.EntriesIndex,
			SearchTimeout: cfg.OpenSearch.Timeout,
		}, logger.Named("opensearch"))
		rt.Checkers = append(rt.Checkers, handlers.HealthCheckFunc{ComponentName: "opensearch", Fn: client.Ping})
	}

	// --- Events ---
	if cfg.Kafka.Enabled {
		producer, kerr := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger.Named("kafka"))
		if kerr != nil {
			return nil, kerr
		}
		rt.closers = append(rt.closers, producer.Close)
		deps.Events = producer
	}

	// --- Archive ---
	if cfg.Database.Enabled {
		conn, derr := postgres.NewConnection(cfg.Database, logger.Named("postgres"))
		if derr != nil {
			return nil, derr
		}
		rt.Database = conn
		rt.closers = append(rt.closers, conn.Close)
		deps.Store = repositories.NewIngestionRepository(conn, logger.Named("postgres"))
		rt.Checkers = append(rt.Checkers, handlers.HealthCheckFunc{ComponentName: "postgres", Fn: conn.HealthCheck})
	}

	rt.Service = ingest.NewService(deps, ingest.OptionsFrom(cfg), logger.Named("ingest"))
	logger.Info("ingestion service ready",
		logging.Bool("resolve_names", cfg.Ingest.ResolveNames),
		logging.Bool("minio", cfg.MinIO.Enabled),
		logging.Bool("opensearch", cfg.OpenSearch.Enabled),
		logging.Bool("kafka", cfg.Kafka.Enabled),
		logging.Bool("database", cfg.Database.Enabled),
	)
	return rt, nil
}

func (rt *Runtime) buildResolver(cfg *config.Config, logger logging.Logger) (reaction.SubstanceResolver, error) {
	client := chem_resolver.NewPubChemHTTPClient(cfg.Resolver.BaseURL, cfg.Resolver.Timeout, &http.Client{Timeout: cfg.Resolver.Timeout})
	opts := []chem_resolver.Option{
		chem_resolver.WithTimeout(cfg.Resolver.Timeout),
		chem_resolver.WithRateLimit(cfg.Resolver.RequestsPerSecond),
	}
	if rt.Metrics != nil {
		opts = append(opts, chem_resolver.WithObserver(rt.Metrics))
	}

	if cfg.Resolver.CacheEnabled && cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis, logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, rc.Close)
		rt.Checkers = append(rt.Checkers, handlers.HealthCheckFunc{ComponentName: "redis", Fn: rc.Ping})
		cache := redis.NewRedisCache(rc, logger.Named("redis"), redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithDefaultTTL(cfg.Resolver.CacheTTL))
		opts = append(opts, chem_resolver.WithCache(cache, cfg.Resolver.CacheTTL))
	}

	resolver := chem_resolver.NewResolver(client, logger.Named("resolver"), opts...)
	rt.closers = append(rt.closers, func() error {
		resolver.Close()
		return nil
	})
	return resolver, nil
}

// MetricsHandler serves the collector registry, or nil when metrics are off.
func (rt *Runtime) MetricsHandler() http.Handler {
	if rt.Collector == nil {
		return nil
	}
	return rt.Collector.Handler()
}

// Close releases every client in reverse order of creation.
func (rt *Runtime) Close() error {
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.Logger.Warn("failed to close client", logging.Err(err))
			if first == nil {
				first = err
			}
		}
	}
	rt.closers = nil
	return first
}

// shutdownContext bounds cleanup after the command context is cancelled.
func shutdownContext(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

//Personal.AI order the ending
