// Package http serves the ingestion API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Catalysis-Ingest/internal/interfaces/http/handlers"
	"github.com/turtacn/Catalysis-Ingest/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies of the
// route tree.  Nil handlers leave their routes unmounted.
type RouterConfig struct {
	// Handlers
	IngestHandler *handlers.IngestHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	Logging *middleware.LoggingConfig

	// Infrastructure
	Logger         logging.Logger
	Metrics        *prometheus.IngestMetrics
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter builds the gin engine: global middleware, public health checks, the
// metrics endpoint and the /api/v1 resource group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := gin.New()

	// --- Global middleware ---
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.Logging != nil {
		logCfg = *cfg.Logging
	}
	r.Use(middleware.RequestLogging(cfg.Logger.Named("http"), logCfg))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// --- Public health endpoints ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	registerIngestRoutes(api, cfg.IngestHandler)

	return r
}

// registerIngestRoutes mounts the ingestion endpoints.
func registerIngestRoutes(r *gin.RouterGroup, h *handlers.IngestHandler) {
	if h == nil {
		return
	}
	r.POST("/ingest", h.Ingest)
	r.POST("/ingest/batch", h.IngestBatch)

	r.GET("/ingestions", h.List)
	r.GET("/ingestions/:id", h.Get)
}

//Personal.AI order the ending
