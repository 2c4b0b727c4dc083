// Package config loads service configuration from environment variables and
// an optional .env file via Viper.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/sevigo/review-relay/internal/logger"
)

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// GitHubAppConfig enables GitHub App installation auth as an alternative to
// per-repository access tokens.
type GitHubAppConfig struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// Config holds the application's configuration values.
type Config struct {
	ServerPort string
	Logging    logger.Config
	Database   DBConfig
	GitHubApp  GitHubAppConfig

	// Review pipeline tuning.
	MaxWorkers        int
	QueueSize         int
	ReviewTimeout     time.Duration
	AICallTimeout     time.Duration
	CostPer1000Tokens decimal.Decimal
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_OUTPUT", "stdout")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "review_relay")
	viper.SetDefault("DB_NAME", "review_relay")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	viper.SetDefault("MAX_WORKERS", 4)
	viper.SetDefault("QUEUE_SIZE", 64)
	viper.SetDefault("REVIEW_TIMEOUT", "10m")
	viper.SetDefault("AI_CALL_TIMEOUT", "30s")
	viper.SetDefault("COST_PER_1000_TOKENS", "0.002")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}
	viper.AutomaticEnv()

	if viper.GetString("DB_PASSWORD") == "" {
		return nil, fmt.Errorf("DB_PASSWORD must be set")
	}

	cost, err := decimal.NewFromString(viper.GetString("COST_PER_1000_TOKENS"))
	if err != nil {
		return nil, fmt.Errorf("invalid COST_PER_1000_TOKENS: %w", err)
	}

	cfg := &Config{
		ServerPort: viper.GetString("SERVER_PORT"),
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		Database: DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		GitHubApp: GitHubAppConfig{
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			InstallationID: viper.GetInt64("GITHUB_APP_INSTALLATION_ID"),
			PrivateKeyPath: viper.GetString("GITHUB_APP_PRIVATE_KEY_PATH"),
		},
		MaxWorkers:        viper.GetInt("MAX_WORKERS"),
		QueueSize:         viper.GetInt("QUEUE_SIZE"),
		ReviewTimeout:     viper.GetDuration("REVIEW_TIMEOUT"),
		AICallTimeout:     viper.GetDuration("AI_CALL_TIMEOUT"),
		CostPer1000Tokens: cost,
	}

	if cfg.MaxWorkers < 1 {
		return nil, fmt.Errorf("MAX_WORKERS must be at least 1")
	}
	if cfg.QueueSize < 1 {
		return nil, fmt.Errorf("QUEUE_SIZE must be at least 1")
	}
	return cfg, nil
}
