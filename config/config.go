package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"cryptoInsight/internal/adapters/logger" // Import the logger package for LogLevel
)

// Market data providers.
const (
	ProviderKraken  = "kraken"
	ProviderBinance = "binance"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all application configuration.
type Config struct {
	// Market data
	Provider      string        // kraken or binance
	KrakenBaseURL string        // Empty uses the public API
	APIKey        string        // Binance, optional for public klines
	SecretKey     string        // Binance, optional for public klines
	IsTestnet     bool          // Binance testnet
	HTTPTimeout   time.Duration // Per-request upstream timeout

	// Bar cache
	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheDBPath   string

	// Prediction services
	PredictionConfig string // Optional YAML registry path

	// HTTP API
	ListenAddr string

	// Scheduling
	PrewarmCron    string // Six-field cron spec (with seconds)
	PrewarmOnStart bool

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // text or json
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Market data
	cfg.Provider = strings.ToLower(getEnv("MARKET_PROVIDER", ProviderKraken))
	if cfg.Provider != ProviderKraken && cfg.Provider != ProviderBinance {
		errs = append(errs, fmt.Sprintf("MARKET_PROVIDER must be %q or %q", ProviderKraken, ProviderBinance))
	}
	cfg.KrakenBaseURL = getEnv("KRAKEN_BASE_URL", "")
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	timeoutSeconds, err := getEnvAsIntRequired("HTTP_TIMEOUT_SECONDS", 20)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HTTP_TIMEOUT_SECONDS: %v", err))
	} else if timeoutSeconds <= 0 {
		errs = append(errs, "HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second

	// Bar cache
	cfg.CacheBackend = strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory))
	switch cfg.CacheBackend {
	case CacheMemory, CacheRedis, CacheSQLite:
	default:
		errs = append(errs, "CACHE_BACKEND must be one of memory, redis, sqlite")
	}

	ttlSeconds, err := getEnvAsIntRequired("CACHE_TTL_SECONDS", 600)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CACHE_TTL_SECONDS: %v", err))
	} else if ttlSeconds <= 0 {
		errs = append(errs, "CACHE_TTL_SECONDS must be positive")
	}
	cfg.CacheTTL = time.Duration(ttlSeconds) * time.Second

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	if cfg.CacheBackend == CacheRedis && cfg.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR must be set for the redis cache backend")
	}

	cfg.CacheDBPath = getEnv("CACHE_DB_PATH", "./data/bar_cache.db")

	// Prediction services
	cfg.PredictionConfig = getEnv("PREDICTION_CONFIG", "")

	// HTTP API
	cfg.ListenAddr = getEnv("LISTEN_ADDR", ":8080")

	// Scheduling
	cfg.PrewarmCron = getEnv("PREWARM_CRON", "0 */10 * * * *")
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(cfg.PrewarmCron); err != nil {
		errs = append(errs, fmt.Sprintf("invalid PREWARM_CRON: %v", err))
	}
	cfg.PrewarmOnStart = getEnvAsBool("PREWARM_ON_START", true)

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", LogFormatText))
	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		errs = append(errs, "LOG_FORMAT must be text or json")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
