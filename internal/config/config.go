// Package config provides application configuration management.
// It loads configuration from environment variables with support for .env files.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Screenshot sinks.
const (
	SinkLocal = "local"
	SinkS3    = "s3"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Portal      PortalConfig
	Timeouts    TimeoutConfig
	Screenshots ScreenshotConfig
	Lock        LockConfig
	Kafka       KafkaConfig
	Logging     LoggingConfig
	App         AppConfig
}

// ServerConfig holds HTTP server settings.
// The write timeout has to outlive a full rebooking run.
type ServerConfig struct {
	Port         int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10m"`
}

// PortalConfig holds the consolidator portal location, credentials and browser settings.
type PortalConfig struct {
	URL            string `env:"PORTAL_URL"`
	Email          string `env:"PORTAL_EMAIL"`
	Password       string `env:"PORTAL_PASSWORD"`
	Headless       bool   `env:"PORTAL_HEADLESS" envDefault:"true"`
	ViewportWidth  int    `env:"PORTAL_VIEWPORT_WIDTH" envDefault:"1920"`
	ViewportHeight int    `env:"PORTAL_VIEWPORT_HEIGHT" envDefault:"1080"`
	UserAgent      string `env:"PORTAL_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	LocatorsFile   string `env:"PORTAL_LOCATORS_FILE"`
}

// TimeoutConfig holds the bounds of the portal waits.
type TimeoutConfig struct {
	Action      time.Duration `env:"TIMEOUT_ACTION" envDefault:"10s"`
	Login       time.Duration `env:"TIMEOUT_LOGIN" envDefault:"30s"`
	Results     time.Duration `env:"TIMEOUT_RESULTS" envDefault:"60s"`
	NetworkIdle time.Duration `env:"TIMEOUT_NETWORK_IDLE" envDefault:"30s"`
	Debounce    time.Duration `env:"TIMEOUT_DEBOUNCE" envDefault:"500ms"`
	Navigation  time.Duration `env:"TIMEOUT_NAVIGATION" envDefault:"30s"`
	Run         time.Duration `env:"TIMEOUT_RUN" envDefault:"8m"`
}

// ScreenshotConfig selects and configures the audit screenshot sink.
type ScreenshotConfig struct {
	Sink        string `env:"SCREENSHOT_SINK" envDefault:"local"`
	Dir         string `env:"SCREENSHOT_DIR" envDefault:"./screenshots"`
	S3Bucket    string `env:"SCREENSHOT_S3_BUCKET"`
	S3Region    string `env:"SCREENSHOT_S3_REGION" envDefault:"auto"`
	S3Endpoint  string `env:"SCREENSHOT_S3_ENDPOINT"`
	S3AccessKey string `env:"SCREENSHOT_S3_ACCESS_KEY"`
	S3SecretKey string `env:"SCREENSHOT_S3_SECRET_KEY"`
	S3Prefix    string `env:"SCREENSHOT_S3_PREFIX" envDefault:"rebooking"`
}

// LockConfig selects the portal-account lock backend.
type LockConfig struct {
	Backend       string        `env:"LOCK_BACKEND" envDefault:"local"`
	RedisAddr     string        `env:"LOCK_REDIS_ADDR"`
	RedisPassword string        `env:"LOCK_REDIS_PASSWORD"`
	RedisDB       int           `env:"LOCK_REDIS_DB" envDefault:"0"`
	TTL           time.Duration `env:"LOCK_TTL" envDefault:"10m"`
	Wait          time.Duration `env:"LOCK_WAIT" envDefault:"0s"`
}

// KafkaConfig holds the result topic. Publishing is disabled without brokers.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_RESULT_TOPIC" envDefault:"rebooking.results"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first (optional - won't fail if missing).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics on error.
// Use this in main() where configuration is required to start.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// validate checks configuration values for correctness.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		return fmt.Errorf("SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("SERVER_WRITE_TIMEOUT must be positive")
	}

	if cfg.Portal.URL == "" {
		return fmt.Errorf("PORTAL_URL is required")
	}
	if cfg.Portal.Email == "" || cfg.Portal.Password == "" {
		return fmt.Errorf("PORTAL_EMAIL and PORTAL_PASSWORD are required")
	}
	if cfg.Portal.ViewportWidth <= 0 || cfg.Portal.ViewportHeight <= 0 {
		return fmt.Errorf("PORTAL_VIEWPORT_WIDTH and PORTAL_VIEWPORT_HEIGHT must be positive")
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"TIMEOUT_ACTION", cfg.Timeouts.Action},
		{"TIMEOUT_LOGIN", cfg.Timeouts.Login},
		{"TIMEOUT_RESULTS", cfg.Timeouts.Results},
		{"TIMEOUT_NETWORK_IDLE", cfg.Timeouts.NetworkIdle},
		{"TIMEOUT_DEBOUNCE", cfg.Timeouts.Debounce},
		{"TIMEOUT_NAVIGATION", cfg.Timeouts.Navigation},
		{"TIMEOUT_RUN", cfg.Timeouts.Run},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fmt.Errorf("%s must be positive", t.name)
		}
	}
	if cfg.Timeouts.Results >= cfg.Timeouts.Run {
		return fmt.Errorf("TIMEOUT_RESULTS (%s) should be less than TIMEOUT_RUN (%s)",
			cfg.Timeouts.Results, cfg.Timeouts.Run)
	}

	switch cfg.Screenshots.Sink {
	case SinkLocal:
		if cfg.Screenshots.Dir == "" {
			return fmt.Errorf("SCREENSHOT_DIR is required for the local sink")
		}
	case SinkS3:
		if cfg.Screenshots.S3Bucket == "" {
			return fmt.Errorf("SCREENSHOT_S3_BUCKET is required for the s3 sink")
		}
	default:
		return fmt.Errorf("SCREENSHOT_SINK must be one of: local, s3; got %q", cfg.Screenshots.Sink)
	}

	switch cfg.Lock.Backend {
	case LockLocal:
	case LockRedis:
		if cfg.Lock.RedisAddr == "" {
			return fmt.Errorf("LOCK_REDIS_ADDR is required for the redis lock")
		}
	default:
		return fmt.Errorf("LOCK_BACKEND must be one of: local, redis; got %q", cfg.Lock.Backend)
	}
	if cfg.Lock.TTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	if cfg.Lock.Wait < 0 {
		return fmt.Errorf("LOCK_WAIT must not be negative")
	}
	// The lock is never renewed, so it has to outlive the whole run.
	if cfg.Timeouts.Run >= cfg.Lock.TTL {
		return fmt.Errorf("TIMEOUT_RUN (%s) should be less than LOCK_TTL (%s)",
			cfg.Timeouts.Run, cfg.Lock.TTL)
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_RESULT_TOPIC is required when KAFKA_BROKERS is set")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console; got %q", cfg.Logging.Format)
	}

	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[cfg.App.Env] {
		return fmt.Errorf("APP_ENV must be one of: development, staging, production; got %q", cfg.App.Env)
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// PublishEnabled reports whether results are handed to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
