// Package app wires configuration into stores, sources and the ingestion agent
// for the command binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"telegram-signal-lab/internal/config"
	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/extract"
	"telegram-signal-lab/internal/ingestion"
	"telegram-signal-lab/internal/mtproto"
	"telegram-signal-lab/internal/storage"
	"telegram-signal-lab/internal/storage/memory"
	"telegram-signal-lab/internal/storage/migrations"
	pgstore "telegram-signal-lab/internal/storage/postgres"
	"telegram-signal-lab/internal/telegram"
)

// OpenStore returns the configured store and a cleanup function.
// PostgreSQL migrations are applied on open.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	if cfg.UseMemory {
		logger.Info("using in-memory store")
		return memory.NewStore(), func() {}, nil
	}
	if err := cfg.ValidateStore(); err != nil {
		return nil, nil, err
	}

	pool, err := pgstore.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	logger.Info("connected to postgres")
	return pgstore.NewStore(pool), pool.Close, nil
}

// NewAgent builds an ingestion agent over the configured message source.
func NewAgent(cfg config.Config, store storage.Store, logger *zap.Logger) (*ingestion.Agent, error) {
	if err := cfg.ValidateIngest(); err != nil {
		return nil, err
	}

	source, err := NewSource(cfg.Telegram, logger)
	if err != nil {
		return nil, err
	}

	return ingestion.NewAgent(ingestion.AgentOptions{
		Store:     store,
		Source:    source,
		Extractor: extract.New(),
		PageSize:  cfg.Telegram.PageSize,
		Logger:    logger.Named("ingestion"),
	})
}

// NewSource returns the message source selected by cfg.Source.
func NewSource(cfg config.TelegramConfig, logger *zap.Logger) (ingestion.Source, error) {
	switch cfg.Source {
	case config.SourceBot:
		return telegram.NewSource(telegram.Options{
			Token:       cfg.BotToken,
			APIEndpoint: cfg.APIEndpoint,
			Logger:      logger.Named("telegram"),
		})
	case config.SourceMTProto:
		return mtproto.NewSource(mtproto.Options{
			APIID:    cfg.APIID,
			APIHash:  cfg.APIHash,
			Phone:    cfg.Phone,
			Code:     cfg.Code,
			Password: cfg.Password,
			Logger:   logger.Named("mtproto"),
		})
	default:
		return nil, fmt.Errorf("telegram source %q: %w", cfg.Source, domain.ErrValidation)
	}
}

// LoadEnvFile sets variables from a KEY=VALUE file without overriding the
// existing environment. A missing file is ignored.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
