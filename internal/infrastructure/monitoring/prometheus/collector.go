package prometheus

import (
	stderrors "errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/Catalysis-Ingest/internal/config"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// MetricsCollector owns a private registry.  Metric names are built from the
// configured namespace and subsystem; registering a name twice returns the
// first vector.
type MetricsCollector interface {
	Counter(name, help string, labels ...string) *prometheus.CounterVec
	Gauge(name, help string, labels ...string) *prometheus.GaugeVec
	Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec
	Handler() http.Handler
	Registry() *prometheus.Registry
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Namespace            string
	Subsystem            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
	ConstLabels          map[string]string
}

// CollectorConfigFrom maps the metrics section of the service configuration.
func CollectorConfigFrom(cfg config.MetricsConfig) CollectorConfig {
	return CollectorConfig{
		Namespace:            cfg.Namespace,
		Subsystem:            "ingest",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}
}

type registryCollector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	logger   logging.Logger

	mu     sync.Mutex
	byName map[string]prometheus.Collector
}

// NewMetricsCollector creates a collector with its own registry.
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, errors.New(errors.ErrCodeValidation, "metrics namespace is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	registry := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
	}

	return &registryCollector{
		registry: registry,
		config:   cfg,
		logger:   logger,
		byName:   make(map[string]prometheus.Collector),
	}, nil
}

func (c *registryCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *registryCollector) Registry() *prometheus.Registry {
	return c.registry
}

// register returns the collector already known under name, or registers
// fresh.  A fresh collector that cannot be registered is returned detached:
// it still accepts observations but is never exported.
func (c *registryCollector) register(name, kind string, fresh prometheus.Collector) prometheus.Collector {
	fq := prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byName[fq]; ok {
		return existing
	}
	if err := c.registry.Register(fresh); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			c.byName[fq] = are.ExistingCollector
			return are.ExistingCollector
		}
		c.logger.Error("metric not exported",
			logging.String("name", fq), logging.String("type", kind), logging.Err(err))
		return fresh
	}
	c.byName[fq] = fresh
	return fresh
}

func (c *registryCollector) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	fresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
	}, labels)
	if vec, ok := c.register(name, "counter", fresh).(*prometheus.CounterVec); ok {
		return vec
	}
	c.logger.Warn("metric type mismatch", logging.String("name", name), logging.String("type", "counter"))
	return fresh
}

func (c *registryCollector) Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	fresh := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
	}, labels)
	if vec, ok := c.register(name, "gauge", fresh).(*prometheus.GaugeVec); ok {
		return vec
	}
	c.logger.Warn("metric type mismatch", logging.String("name", name), logging.String("type", "gauge"))
	return fresh
}

// Histogram registers a histogram vector; nil buckets use prometheus.DefBuckets.
func (c *registryCollector) Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	fresh := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.config.ConstLabels,
		Buckets:     buckets,
	}, labels)
	if vec, ok := c.register(name, "histogram", fresh).(*prometheus.HistogramVec); ok {
		return vec
	}
	c.logger.Warn("metric type mismatch", logging.String("name", name), logging.String("type", "histogram"))
	return fresh
}

//Personal.AI order the ending
