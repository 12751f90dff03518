package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/adsync/internal/bootstrap"
	"github.com/fr0stylo/adsync/internal/config"
	"github.com/fr0stylo/adsync/internal/db"
	"github.com/fr0stylo/adsync/internal/observability"
	"github.com/fr0stylo/adsync/internal/server"
	"github.com/fr0stylo/adsync/internal/server/routes"
)

const shutdownTimeout = 20 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.SetupOpenTelemetry(ctx, log, observability.OpenTelemetryConfig{
		Enabled:           cfg.Observability.Enabled,
		OTLPEndpoint:      cfg.Observability.OTLPEndpoint,
		OTLPTraceHeaders:  cfg.Observability.OTLPTraceHeaders,
		OTLPMetricHeaders: cfg.Observability.OTLPMetricHeaders,
		ServiceName:       cfg.Observability.ServiceName,
		ServiceVer:        cfg.Observability.ServiceVer,
		SamplingRatio:     cfg.Observability.SamplingRatio,
		MetricsConsole:    cfg.Observability.MetricsConsole,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("Failed to flush telemetry", "error", err)
		}
	}()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()

	syncer, closeQueue, err := bootstrap.NewSyncer(ctx, cfg, database, log)
	if err != nil {
		return fmt.Errorf("wire syncer: %w", err)
	}
	defer func() {
		if err := closeQueue(); err != nil {
			log.Warn("Failed to close queue", "error", err)
		}
	}()

	gate, err := bootstrap.NewGate(cfg)
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}
	if cfg.AuthBypass() {
		log.Warn("Bearer verification disabled for local development")
	}
	if len(cfg.Auth.Audiences) == 0 && !cfg.AuthBypass() {
		log.Warn("No audiences configured, every trigger request will be rejected")
	}

	srv := server.New(log, cfg.Observability.ServiceName)
	srv.RegisterRouter(routes.HealthRoutes{})
	srv.RegisterRouter(routes.NewSyncRoutes(syncer, gate, log))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("Starting server", "port", cfg.Server.Port, "queue", cfg.Queue.Backend)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	if err := srv.Shutdown(context.Background(), shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
