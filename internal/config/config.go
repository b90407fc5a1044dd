package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server Configuration
	Environment string `env:"ENV" envDefault:"development"`
	Port        string `env:"API_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFile     string `env:"LOG_FILE"`

	// Database Configuration
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache Configuration
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	// Resolver Configuration
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"5s"`

	// Storage Configuration (signed download URLs)
	S3Region     string        `env:"S3_REGION" envDefault:"auto"`
	S3Endpoint   string        `env:"S3_ENDPOINT"`
	S3AccessKey  string        `env:"S3_ACCESS_KEY"`
	S3SecretKey  string        `env:"S3_SECRET_KEY"`
	S3Bucket     string        `env:"S3_BUCKET"`
	SignedURLTTL time.Duration `env:"SIGNED_URL_TTL" envDefault:"2m"`

	// Trigger Configuration
	TriggerAPISecret string `env:"TRIGGER_API_SECRET"`

	// Notification Configuration
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`

	// Telemetry Configuration
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load loads the configuration from environment variables and .env files
func Load() (*Config, error) {
	// Try multiple locations for .env file
	envLocations := []string{
		".env",
	}

	// If ENV is set, try to load that specific file first
	envName := os.Getenv("ENV")
	if envName != "" {
		envLocations = append([]string{fmt.Sprintf(".env.%s", envName)}, envLocations...)
	}

	for _, loc := range envLocations {
		if err := godotenv.Load(loc); err == nil {
			// godotenv.Load doesn't overwrite existing env vars, the first
			// file found wins
			break
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Set default log file if not set
	if cfg.LogFile == "" {
		if cfg.Environment == "production" {
			cfg.LogFile = "/app/logs/api.log"
		} else {
			cfg.LogFile = "./logs/api.log"
		}
	}

	// Ensure log directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return cfg, nil
}
