// Package main runs a single ingestion pass over all active channels and exits.
//
// Usage:
//
//	ingest [-config file.yaml] [-channel name,name]
//
// The exit status is non-zero when the pass fails as a whole.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"telegram-signal-lab/internal/app"
	"telegram-signal-lab/internal/config"
	"telegram-signal-lab/internal/logging"
)

func main() {
	app.LoadEnvFile(".env")

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	channels := flag.String("channel", "", "Comma-separated channel usernames to register before the pass")
	useMemory := flag.Bool("use-memory", false, "Use in-memory store instead of PostgreSQL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *useMemory {
		cfg.UseMemory = true
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
	go func() {
		<-sigCh
		logger.Info("received signal, cancelling pass")
		cancel()
	}()

	if err := run(ctx, cfg, splitChannels(*channels), logger); err != nil {
		logger.Error("ingestion failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, channels []string, logger *zap.Logger) error {
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	store, cleanup, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, username := range channels {
		if _, err := store.Channels().Upsert(ctx, username, username); err != nil {
			return fmt.Errorf("register channel %s: %w", username, err)
		}
	}

	agent, err := app.NewAgent(cfg, store, logger)
	if err != nil {
		return err
	}

	result, err := agent.RunPass(ctx)
	if err != nil {
		return err
	}

	logger.Info("ingestion complete",
		zap.String("run_id", result.RunID),
		zap.Int("channels", result.Channels),
		zap.Int("failed", result.Failed),
		zap.Int("messages", result.Messages),
		zap.Int("stored", result.Stored),
	)
	return nil
}

func splitChannels(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "@")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
