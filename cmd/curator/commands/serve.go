package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/streakhq/curator/internal/api"
	"github.com/streakhq/curator/internal/api/handlers"
	"github.com/streakhq/curator/pkg/logger"
	"github.com/streakhq/curator/pkg/metrics"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the curator engine and admin API",
	Long: `Starts the curator engine, its periodic jobs and the admin API.

This command:
- polls Binance every 15m and the social feed every 5m
- drafts markets on the configured interval
- opens scheduled instances at every 15/30 minute boundary
- settles due instances every minute

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/curator/status
  GET  /api/curator/drafts
  POST /api/curator/drafts/{id}/approve
  GET  /api/curator/markets
  GET  /api/curator/ws

Example:
  go run ./cmd/curator serve
  go run ./cmd/curator serve --port 8081 --config curator.toml`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "admin API port (default PORT or 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
		"mode": cfg.Curator.Mode,
	}).Info("Initializing curator")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire components
	a, err := newApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.Close()

	// 4. Event hub
	go a.hub.Run(ctx)

	// 5. Admin API
	curatorHandler := handlers.NewCuratorHandler(a.engine, log)
	router := api.NewRouter(curatorHandler, a.hub, a.healthChecks(), log)
	server := api.New(cfg, log, router)

	errCh := make(chan error, 2)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	// 6. Standalone metrics port
	var metricsServer *metrics.Server
	if cfg.MetricsEnabled && cfg.MetricsPort != cfg.Port {
		metricsServer = metrics.NewServer(":" + cfg.MetricsPort)
		go func() {
			if err := metricsServer.Start(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// 7. Engine and periodic jobs
	a.engine.Start()

	log.Info("Curator started successfully")
	fmt.Printf("\n✅ Curator running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		log.WithError(runErr).Error("Server failed")
	}

	log.Info("Shutting down curator...")
	a.engine.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Metrics server shutdown failed")
		}
	}

	log.Info("Curator stopped")
	return runErr
}
