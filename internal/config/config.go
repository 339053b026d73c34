package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	// PostgreSQL connection
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:""`
	DBName     string `env:"DB_NAME" envDefault:"tipster"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Results provider
	ResultsAPIKey  string `env:"RESULTS_API_KEY" envDefault:"-"`
	ResultsBaseURL string `env:"RESULTS_BASE_URL" envDefault:"https://api.scorefeed.io/v1"`
	LookbackHours  int    `env:"LOOKBACK_HOURS" envDefault:"48"`

	// Settlement economics
	FlatStake    float64 `env:"FLAT_STAKE" envDefault:"100"`
	FallbackOdds float64 `env:"FALLBACK_ODDS" envDefault:"1.90"`

	// Weight calibration
	WeightsTTLMinutes   int     `env:"WEIGHTS_TTL_MINUTES" envDefault:"60"`
	WeightsMinSample    int     `env:"WEIGHTS_MIN_SAMPLE" envDefault:"30"`
	StatsTimeoutSeconds int     `env:"STATS_TIMEOUT_SECONDS" envDefault:"3"`
	WinRateHigh         float64 `env:"WIN_RATE_HIGH" envDefault:"58"`
	WinRateLow          float64 `env:"WIN_RATE_LOW" envDefault:"45"`

	// Service
	HTTPPort                 int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel                 string `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout           int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	ReconcileIntervalMinutes int    `env:"RECONCILE_INTERVAL_MINUTES" envDefault:"30"`

	// Telegram digest
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN" envDefault:"-"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.DBHost = getEnvWithDefault("DB_HOST", "localhost")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = getEnvWithDefault("DB_USER", "postgres")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "tipster")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.ResultsAPIKey = os.Getenv("RESULTS_API_KEY")
	cfg.ResultsBaseURL = getEnvWithDefault("RESULTS_BASE_URL", "https://api.scorefeed.io/v1")
	cfg.LookbackHours = getEnvIntWithDefault("LOOKBACK_HOURS", 48)

	cfg.FlatStake = getEnvFloatWithDefault("FLAT_STAKE", 100)
	cfg.FallbackOdds = getEnvFloatWithDefault("FALLBACK_ODDS", 1.90)

	cfg.WeightsTTLMinutes = getEnvIntWithDefault("WEIGHTS_TTL_MINUTES", 60)
	cfg.WeightsMinSample = getEnvIntWithDefault("WEIGHTS_MIN_SAMPLE", 30)
	cfg.StatsTimeoutSeconds = getEnvIntWithDefault("STATS_TIMEOUT_SECONDS", 3)
	cfg.WinRateHigh = getEnvFloatWithDefault("WIN_RATE_HIGH", 58)
	cfg.WinRateLow = getEnvFloatWithDefault("WIN_RATE_LOW", 45)

	cfg.HTTPPort = getEnvIntWithDefault("HTTP_PORT", 8080)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.ReconcileIntervalMinutes = getEnvIntWithDefault("RECONCILE_INTERVAL_MINUTES", 30)

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
