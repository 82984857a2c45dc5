package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/Catalysis-Ingest/internal/config"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/Catalysis-Ingest/internal/interfaces/http"
	"github.com/turtacn/Catalysis-Ingest/internal/interfaces/http/handlers"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, port int) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cliCtx.Config
	if port > 0 {
		cfg.Server.Port = port
	}
	logger := cliCtx.Logger

	rt, err := Bootstrap(&cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cliCtx.ConfigPath != "" {
		watchLogLevel(cliCtx.ConfigPath, logger)
	}

	gin.SetMode(cfg.Server.Mode)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		IngestHandler:  handlers.NewIngestHandler(rt.Service, logger.Named("api"), cfg.Ingest.MaxFileBytes),
		HealthHandler:  handlers.NewHealthHandler(Version, rt.Checkers...),
		Logger:         logger,
		Metrics:        rt.Metrics,
		MetricsHandler: rt.MetricsHandler(),
		MetricsPath:    cfg.Metrics.Path,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger.Named("http"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received", logging.String("version", Version))
	shutdownCtx, cancel := shutdownContext(cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// watchLogLevel re-applies log.level when the config file changes.  Other
// settings need a restart.
func watchLogLevel(path string, logger logging.Logger) {
	err := config.Watch(path, func(cfg *config.Config) {
		if logging.SetLevel(logger, cfg.Log.Level) {
			logger.Info("log level reloaded", logging.String("level", cfg.Log.Level))
		}
	}, func(err error) {
		logger.Warn("config reload rejected", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.String("path", path), logging.Err(err))
	}
}

//Personal.AI order the ending
