package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the Asbolsyn marketplace bot.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Bot         BotConfig         `mapstructure:"bot" validate:"required"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
}

// PaymentConfig configures the hosted payment page gateway and its webhook.
// When disabled, payment links are still generated but webhook signatures are
// not enforced.
type PaymentConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BaseURL       string `mapstructure:"base_url"`
	SuccessURL    string `mapstructure:"success_url"`
	FailureURL    string `mapstructure:"failure_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token       string        `mapstructure:"token" validate:"required"`
	Mode        string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout     time.Duration `mapstructure:"timeout"`
	AdminChatID int64         `mapstructure:"admin_chat_id"`
	// ProviderToken is the Telegram Payments provider token. When set,
	// checkout happens through native Telegram invoices instead of hosted
	// payment links.
	ProviderToken string `mapstructure:"provider_token"`
}

// ServerConfig configures the HTTP server hosting /metrics, /healthz and the
// payment webhook endpoint.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

type LoggerConfig struct {
	Level  string        `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string        `mapstructure:"format" validate:"omitempty,oneof=text json"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables rotated file output in addition to stdout.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// MarketplaceConfig carries the business policy knobs. These are threaded
// into service constructors, never read as ambient globals.
type MarketplaceConfig struct {
	// Timezone is the single fixed zone all pickup windows and payout
	// periods are evaluated in.
	Timezone string `mapstructure:"timezone" validate:"required"`
	// DefaultRadiusKm bounds nearby searches when the consumer does not
	// choose a radius.
	DefaultRadiusKm float64 `mapstructure:"default_radius_km" validate:"gt=0"`
	// RestockOnCancel controls whether cancelling a paid order returns its
	// portions to the listing.
	RestockOnCancel bool `mapstructure:"restock_on_cancel"`
	// DefaultCommissionRate seeds the commission table when it is empty,
	// expressed as a decimal fraction string, e.g. "0.15".
	DefaultCommissionRate string `mapstructure:"default_commission_rate" validate:"required"`
	Currency              string `mapstructure:"currency"`
}

// RateLimitRule pairs a request budget with its sliding window.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

type CommandRateLimits struct {
	Order   RateLimitRule `mapstructure:"order"`
	Browse  RateLimitRule `mapstructure:"browse"`
	AddMeal RateLimitRule `mapstructure:"addmeal"`
}

type RateLimitConfig struct {
	Global    RateLimitRule     `mapstructure:"global"`
	PerUser   RateLimitRule     `mapstructure:"per_user"`
	Commands  CommandRateLimits `mapstructure:"commands"`
	Whitelist []int64           `mapstructure:"whitelist"`
}

// JobsConfig configures the asynq worker and scheduler.
type JobsConfig struct {
	// SweepCron schedules the listing expiration sweep.
	SweepCron   string         `mapstructure:"sweep_cron"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}
