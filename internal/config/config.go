package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the seller analytics service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// GCP Secret Manager (optional; inline credentials are used when unset)
	GCPProjectID string

	// Passphrase for encrypting inline credentials when the secret manager
	// is not configured. Empty stores them unencrypted.
	CredentialsKey string

	// Redis (optional; analytics responses are computed uncached when unset)
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	// Telegram
	TelegramBotToken string

	// Sync Settings
	SyncWindowDays int
	SyncTimeout    time.Duration

	// Analytics Settings
	DeadStockThresholdDays int

	// Alert Settings
	AlertDedup bool

	// Scheduler
	SyncInterval      time.Duration
	AlertInterval     time.Duration
	NotifyInterval    time.Duration
	RetentionInterval time.Duration
	RetentionAge      time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "postgres")
		dbName := getEnv("DB_NAME", "seller_analytics")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		GCPProjectID:   getEnv("GCP_PROJECT_ID", ""),
		CredentialsKey: getEnv("CREDENTIALS_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      getEnvAsDuration("CACHE_TTL", 5*time.Minute),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		SyncWindowDays: getEnvAsInt("SYNC_WINDOW_DAYS", 30),
		SyncTimeout:    getEnvAsDuration("SYNC_TIMEOUT", 10*time.Minute),

		DeadStockThresholdDays: getEnvAsInt("DEAD_STOCK_THRESHOLD_DAYS", 30),

		AlertDedup: getEnvAsBool("ALERT_DEDUP", true),

		SyncInterval:      getEnvAsDuration("SYNC_INTERVAL", time.Hour),
		AlertInterval:     getEnvAsDuration("ALERT_INTERVAL", 6*time.Hour),
		NotifyInterval:    getEnvAsDuration("NOTIFY_INTERVAL", 5*time.Minute),
		RetentionInterval: getEnvAsDuration("RETENTION_INTERVAL", 24*time.Hour),
		RetentionAge:      getEnvAsDuration("RETENTION_AGE", 30*24*time.Hour),
	}

	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	if config.GCPProjectID == "" {
		log.Println("Warning: GCP_PROJECT_ID not set, credentials are stored inline")
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

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
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
