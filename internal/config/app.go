// Package config assembles the application configuration from an optional
// YAML file and environment variables. Environment variables override file
// values; secrets (the GigaChat authorization seed and the Telegram bot
// token) are accepted from the environment only.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pkgconfig "promopost/internal/pkg/config"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultMaxPostChars   = 1000
	DefaultTokenTTL       = 30 * time.Minute
	DefaultTokenCacheSize = 10
	DefaultRequestTimeout = 60 * time.Second
	DefaultMetricsAddr    = ":9091"
	DefaultBaseContext    = "Ты опытный маркетолог. Напиши рекламный пост на заданную тему."
)

// GigaChatConfig holds the credentials and endpoints for the generation API.
type GigaChatConfig struct {
	// Seed is the base64 authorization seed exchanged for access tokens.
	// Environment only (GIGACHAT_SEED), never read from the file.
	Seed string `yaml:"-"`

	TokenURL string        `yaml:"token_url"`
	APIBase  string        `yaml:"api_base"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`

	// InsecureSkipVerify disables TLS verification for deployments without
	// the provider's CA certificate installed.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	TokenTTL       time.Duration `yaml:"token_ttl"`
	TokenCacheSize int           `yaml:"token_cache_size"`
}

// TelegramConfig holds the delivery settings.
type TelegramConfig struct {
	// BotToken is environment only (TELEGRAM_BOT_TOKEN).
	BotToken string `yaml:"-"`

	// Channels is the ordered delivery list: @usernames or chat IDs.
	Channels []string `yaml:"channels"`
}

// PipelineConfig holds the content-assembly settings.
type PipelineConfig struct {
	// BaseContext is the role-instruction template prepended to every
	// generation request.
	BaseContext string `yaml:"base_context"`

	// MaxPostChars is the delivery length budget in characters.
	MaxPostChars int `yaml:"max_post_chars"`

	// MinPostChars, when positive, makes the generator regenerate posts
	// shorter than this instead of delivering them.
	MinPostChars int `yaml:"min_post_chars"`

	// ImageMaxAttempts bounds image-acquisition retries. Zero keeps the
	// default unbounded policy; a positive bound substitutes the bundled
	// fallback image once exhausted.
	ImageMaxAttempts int `yaml:"image_max_attempts"`
}

// ScheduleConfig holds the optional periodic-posting settings.
type ScheduleConfig struct {
	// Cron is a five-field schedule ("30 5 * * *"). Empty disables
	// scheduled runs; the binary then posts once and exits.
	Cron string `yaml:"cron"`

	// Topics is the static topic pool for scheduled runs.
	Topics []string `yaml:"topics"`

	// FeedURL, when set, sources topics from an RSS/Atom feed instead of
	// the static pool.
	FeedURL string `yaml:"feed_url"`
}

// AppConfig is the full poster configuration.
type AppConfig struct {
	GigaChat    GigaChatConfig `yaml:"gigachat"`
	Telegram    TelegramConfig `yaml:"telegram"`
	Pipeline    PipelineConfig `yaml:"pipeline"`
	Schedule    ScheduleConfig `yaml:"schedule"`
	MetricsAddr string         `yaml:"metrics_addr"`
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides. Warnings for invalid
// environment values are logged and counted on metrics; metrics may be nil.
func Load(path string, metrics *pkgconfig.Metrics) (*AppConfig, error) {
	cfg := &AppConfig{
		GigaChat: GigaChatConfig{
			Model:          "GigaChat",
			Timeout:        DefaultRequestTimeout,
			TokenTTL:       DefaultTokenTTL,
			TokenCacheSize: DefaultTokenCacheSize,
		},
		Pipeline: PipelineConfig{
			BaseContext:  DefaultBaseContext,
			MaxPostChars: DefaultMaxPostChars,
		},
		MetricsAddr: DefaultMetricsAddr,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv(metrics)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if metrics != nil {
		metrics.RecordLoad()
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv(metrics *pkgconfig.Metrics) {
	c.GigaChat.Seed = os.Getenv("GIGACHAT_SEED")
	c.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	c.GigaChat.TokenURL = pkgconfig.LoadEnvString("GIGACHAT_TOKEN_URL", c.GigaChat.TokenURL)
	c.GigaChat.APIBase = pkgconfig.LoadEnvString("GIGACHAT_API_BASE", c.GigaChat.APIBase)
	c.GigaChat.Model = pkgconfig.LoadEnvString("GIGACHAT_MODEL", c.GigaChat.Model)

	apply(metrics, "gigachat_timeout",
		pkgconfig.LoadEnvDuration("GIGACHAT_TIMEOUT", c.GigaChat.Timeout, pkgconfig.ValidatePositiveDuration),
		&c.GigaChat.Timeout)
	apply(metrics, "gigachat_token_ttl",
		pkgconfig.LoadEnvDuration("GIGACHAT_TOKEN_TTL", c.GigaChat.TokenTTL, pkgconfig.ValidatePositiveDuration),
		&c.GigaChat.TokenTTL)
	apply(metrics, "gigachat_insecure_skip_verify",
		pkgconfig.LoadEnvBool("GIGACHAT_INSECURE_SKIP_VERIFY", c.GigaChat.InsecureSkipVerify),
		&c.GigaChat.InsecureSkipVerify)

	c.Telegram.Channels = pkgconfig.LoadEnvStringSlice("TELEGRAM_CHANNELS", c.Telegram.Channels)

	c.Pipeline.BaseContext = pkgconfig.LoadEnvString("POST_BASE_CONTEXT", c.Pipeline.BaseContext)
	apply(metrics, "max_post_chars",
		pkgconfig.LoadEnvInt("MAX_POST_CHARS", c.Pipeline.MaxPostChars, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 1, 100000)
		}),
		&c.Pipeline.MaxPostChars)
	apply(metrics, "min_post_chars",
		pkgconfig.LoadEnvInt("MIN_POST_CHARS", c.Pipeline.MinPostChars, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 0, 100000)
		}),
		&c.Pipeline.MinPostChars)
	apply(metrics, "image_max_attempts",
		pkgconfig.LoadEnvInt("IMAGE_MAX_ATTEMPTS", c.Pipeline.ImageMaxAttempts, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 0, 1000)
		}),
		&c.Pipeline.ImageMaxAttempts)

	apply(metrics, "cron_schedule",
		pkgconfig.LoadEnvStringWithFallback("CRON_SCHEDULE", c.Schedule.Cron, pkgconfig.ValidateCronSchedule),
		&c.Schedule.Cron)
	c.Schedule.Topics = pkgconfig.LoadEnvStringSlice("POST_TOPICS", c.Schedule.Topics)
	c.Schedule.FeedURL = pkgconfig.LoadEnvString("TOPIC_FEED_URL", c.Schedule.FeedURL)

	c.MetricsAddr = pkgconfig.LoadEnvString("METRICS_ADDR", c.MetricsAddr)
}

// apply stores a load result, logging and counting the fallback if one was
// taken.
func apply[T any](metrics *pkgconfig.Metrics, field string, res pkgconfig.Result[T], dst *T) {
	*dst = res.Value
	if res.FallbackApplied {
		slog.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("detail", res.Warning))
		if metrics != nil {
			metrics.RecordFallback(field)
		}
	}
}

// Validate checks the settings the pipeline cannot run without.
func (c *AppConfig) Validate() error {
	if c.GigaChat.Seed == "" {
		return fmt.Errorf("GIGACHAT_SEED is required")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if len(c.Telegram.Channels) == 0 {
		return fmt.Errorf("at least one delivery channel is required (telegram.channels or TELEGRAM_CHANNELS)")
	}
	for _, ch := range c.Telegram.Channels {
		if err := pkgconfig.ValidateChannel(ch); err != nil {
			return fmt.Errorf("telegram channel: %w", err)
		}
	}
	if c.Pipeline.MaxPostChars <= 0 {
		return fmt.Errorf("max_post_chars must be positive, got %d", c.Pipeline.MaxPostChars)
	}
	if c.Pipeline.MinPostChars < 0 || c.Pipeline.MinPostChars > c.Pipeline.MaxPostChars {
		return fmt.Errorf("min_post_chars must be between 0 and max_post_chars, got %d", c.Pipeline.MinPostChars)
	}
	if c.Schedule.Cron != "" {
		if err := pkgconfig.ValidateCronSchedule(c.Schedule.Cron); err != nil {
			return err
		}
		if len(c.Schedule.Topics) == 0 && c.Schedule.FeedURL == "" {
			return fmt.Errorf("scheduled mode needs a topic source (schedule.topics or schedule.feed_url)")
		}
	}
	return nil
}
