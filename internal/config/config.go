// Package config loads runtime settings from an optional YAML file and the
// environment. Nested keys map to env vars by replacing "." with "_", so
// database.url is read from DATABASE_URL.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"telegram-signal-lab/internal/domain"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Log      LogConfig      `mapstructure:"log"`

	// UseMemory swaps PostgreSQL for the in-memory store.
	UseMemory bool `mapstructure:"use_memory"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Message sources selectable with telegram.source.
const (
	SourceMTProto = "mtproto"
	SourceBot     = "bot"
)

type TelegramConfig struct {
	// Source is SourceMTProto (user account, any public channel) or
	// SourceBot (channels where the bot is an administrator).
	Source   string `mapstructure:"source"`
	PageSize int    `mapstructure:"page_size"`

	// MTProto login. Code and Password are only needed for a first login.
	APIID    int    `mapstructure:"api_id"`
	APIHash  string `mapstructure:"api_hash"`
	Phone    string `mapstructure:"phone"`
	Code     string `mapstructure:"code"`
	Password string `mapstructure:"2fa_password"`

	// Bot API.
	BotToken    string `mapstructure:"bot_token"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

type IngestConfig struct {
	// Schedule is a cron spec with a seconds field; empty disables scheduling.
	Schedule string `mapstructure:"schedule"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// Load reads settings. An empty path reads the environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.url", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("telegram.source", SourceMTProto)
	v.SetDefault("telegram.api_id", 0)
	v.SetDefault("telegram.api_hash", "")
	v.SetDefault("telegram.phone", "")
	v.SetDefault("telegram.code", "")
	v.SetDefault("telegram.2fa_password", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.api_endpoint", "")
	v.SetDefault("telegram.page_size", 100)
	v.SetDefault("ingest.schedule", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("use_memory", false)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// ValidateStore reports whether a store can be opened.
func (c Config) ValidateStore() error {
	if c.UseMemory || c.Database.URL != "" {
		return nil
	}
	return fmt.Errorf("DATABASE_URL: %w", domain.ErrNotConfigured)
}

// ValidateIngest reports whether an ingestion pass can run.
func (c Config) ValidateIngest() error {
	var errs []error
	if err := c.ValidateStore(); err != nil {
		errs = append(errs, err)
	}
	switch c.Telegram.Source {
	case SourceMTProto:
		if c.Telegram.APIID <= 0 {
			errs = append(errs, fmt.Errorf("TELEGRAM_API_ID: %w", domain.ErrNotConfigured))
		}
		if c.Telegram.APIHash == "" {
			errs = append(errs, fmt.Errorf("TELEGRAM_API_HASH: %w", domain.ErrNotConfigured))
		}
	case SourceBot:
		if c.Telegram.BotToken == "" {
			errs = append(errs, fmt.Errorf("TELEGRAM_BOT_TOKEN: %w", domain.ErrNotConfigured))
		}
	default:
		errs = append(errs, fmt.Errorf("TELEGRAM_SOURCE %q is not %s or %s: %w",
			c.Telegram.Source, SourceMTProto, SourceBot, domain.ErrValidation))
	}
	if c.Telegram.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("TELEGRAM_PAGE_SIZE must be positive: %w", domain.ErrValidation))
	}
	return errors.Join(errs...)
}
