package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/tournament-auth/app/db"
	"github.com/FACorreiaa/tournament-auth/app/observability/metrics"
	"github.com/FACorreiaa/tournament-auth/app/tracer"
	_ "github.com/FACorreiaa/tournament-auth/docs"
	"github.com/FACorreiaa/tournament-auth/internal/container"
	"github.com/FACorreiaa/tournament-auth/internal/router"
)

const defaultShutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply database migrations on start (postgres only)")
	return cmd
}

func serve(ctx context.Context, skipMigrations bool) error {
	providers, err := tracer.InitTracingAndMetrics("tournament-auth", Version)
	if err != nil {
		return err
	}
	metrics.InitAppMetrics()

	if cfg.Storage.Driver == "postgres" && !skipMigrations {
		dbCfg, err := database.NewDatabaseConfig(cfg, logger)
		if err != nil {
			return err
		}
		if err := database.RunMigrations(dbCfg.ConnectionURL, logger); err != nil {
			return err
		}
	}

	c, err := container.NewContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer c.Close()

	apiServer := &http.Server{
		Addr: ":" + cfg.Server.HTTPPort,
		Handler: router.SetupRouter(&router.Config{
			AuthHandler:     c.AuthHandler,
			SecurityHandler: c.SecurityHandler,
			Gatekeeper:      c.AuthService,
			Logger:          logger,
			AllowedOrigins:  cfg.CORS.AllowedOrigins,
			Timeout:         cfg.Server.Timeout,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", providers.Handler)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.Metrics.Port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	listen := func(name string, srv *http.Server) func() error {
		return func() error {
			logger.Info("Starting server", slog.String("server", name), slog.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", name, err)
			}
			return nil
		}
	}
	g.Go(listen("api", apiServer))
	g.Go(listen("metrics", metricsServer))
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")

		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		return errors.Join(
			apiServer.Shutdown(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
			providers.Shutdown(shutdownCtx),
		)
	})

	err = g.Wait()
	logger.Info("Application shut down complete")
	return err
}
