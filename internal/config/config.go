package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the shelf-life service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabasePath string

	// Shopify
	ShopifyAccessToken string
	ShopifyAPIVersion  string

	// Sync Settings
	SyncPageSize   int
	SyncMaxRetries int
	SyncRetryDelay time.Duration
	SyncTimeout    time.Duration

	// Rate Limiting
	ShopifyRateLimit int // requests per second against the Admin API

	// Daily Discounts
	DailyDiscountCount     int
	DailyDiscountMinMargin float64
	DailyDiscountMaxMargin float64

	// Optional infrastructure
	RedisURL string
	NATSURL  string

	// CORS
	AllowedOrigins string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		Port:        getEnv("PORT", "8099"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabasePath: getEnv("DATABASE_PATH", "shelflife.db"),

		// Shopify
		ShopifyAccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		ShopifyAPIVersion:  getEnv("SHOPIFY_API_VERSION", "2024-10"),

		// Sync Settings
		SyncPageSize:   getEnvAsInt("SYNC_PAGE_SIZE", 100),
		SyncMaxRetries: getEnvAsInt("SYNC_MAX_RETRIES", 3),
		SyncRetryDelay: getEnvAsDuration("SYNC_RETRY_DELAY", 5*time.Second),
		SyncTimeout:    getEnvAsDuration("SYNC_TIMEOUT", 30*time.Minute),

		// Rate Limiting
		ShopifyRateLimit: getEnvAsInt("SHOPIFY_RATE_LIMIT", 2),

		// Daily Discounts
		DailyDiscountCount:     getEnvAsInt("DAILY_DISCOUNT_COUNT", 5),
		DailyDiscountMinMargin: getEnvAsFloat("DAILY_DISCOUNT_MIN_MARGIN", 0.10),
		DailyDiscountMaxMargin: getEnvAsFloat("DAILY_DISCOUNT_MAX_MARGIN", 0.25),

		// Optional infrastructure
		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),

		// CORS
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
	}

	if config.ShopifyAccessToken == "" {
		log.Println("Warning: SHOPIFY_ACCESS_TOKEN not set, catalog sync and price updates will fail")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
