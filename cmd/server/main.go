// Package main runs the signal HTTP API and, when a schedule is configured,
// periodic ingestion passes.
//
// Configuration comes from the environment (DATABASE_URL, TELEGRAM_SOURCE,
// TELEGRAM_API_ID, INGEST_SCHEDULE, ...), an optional .env file and an
// optional YAML file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"telegram-signal-lab/internal/api"
	"telegram-signal-lab/internal/app"
	"telegram-signal-lab/internal/config"
	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/ingestion"
	"telegram-signal-lab/internal/logging"
	"telegram-signal-lab/internal/schedule"
	"telegram-signal-lab/internal/storage"
)

func main() {
	app.LoadEnvFile(".env")

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory store instead of PostgreSQL")
	addr := flag.String("addr", "", "HTTP listen address (overrides http.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *useMemory {
		cfg.UseMemory = true
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(ctx, cfg, logger, sigCh); err != nil {
		logger.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, sigCh <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The API still serves without a database; signal routes report it per request.
	var store storage.Store
	s, cleanup, err := app.OpenStore(ctx, cfg, logger)
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		logger.Warn("DATABASE_URL not configured; signal routes are disabled")
	case err != nil:
		return err
	default:
		store = s
		defer cleanup()
	}

	var runner api.PassRunner
	var agent *ingestion.Agent
	if store != nil {
		agent, err = app.NewAgent(cfg, store, logger)
		if err != nil {
			logger.Warn("ingestion disabled", zap.Error(err))
		} else {
			runner = agent
		}
	}

	router := api.NewRouter(api.RouterOptions{
		Store:  store,
		Runner: runner,
		Logger: logger.Named("api"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var cron *schedule.Runner
	if agent != nil && cfg.Ingest.Schedule != "" {
		cron = schedule.New(ctx, logger.Named("schedule"))
		if _, err := cron.AddPass(cfg.Ingest.Schedule, agent); err != nil {
			return fmt.Errorf("schedule %q: %w", cfg.Ingest.Schedule, err)
		}
		cron.Start()
		logger.Info("ingestion scheduled", zap.String("schedule", cfg.Ingest.Schedule))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// Force exit on a second signal or when shutdown hangs.
	go func() {
		select {
		case <-sigCh:
			logger.Warn("forced shutdown")
		case <-time.After(30 * time.Second):
			logger.Warn("shutdown timeout, forcing exit")
		}
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	if cron != nil {
		cron.Stop()
	}

	logger.Info("server stopped")
	return nil
}
