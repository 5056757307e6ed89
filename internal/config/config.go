package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// JWT
	JWTSecret          string
	JWTExpirationHours int

	// Background Workers
	WorkerCount int

	// Overdue sweep schedule, hour of day in UTC
	OverdueSweepHourUTC int

	// Late fee, percent of the installment amount per started 30-day block
	LateFeeMonthlyPercent int

	// CORS
	AllowedOrigins []string

	// Sentry
	SentryDSN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		JWTExpirationHours:    getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		WorkerCount:           getEnvAsInt("WORKER_COUNT", 5),
		OverdueSweepHourUTC:   getEnvAsInt("OVERDUE_SWEEP_HOUR_UTC", 2),
		LateFeeMonthlyPercent: getEnvAsInt("LATE_FEE_MONTHLY_PERCENT", 1),
		AllowedOrigins:        getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:             getEnv("SENTRY_DSN", ""),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	if cfg.OverdueSweepHourUTC < 0 || cfg.OverdueSweepHourUTC > 23 {
		return nil, fmt.Errorf("OVERDUE_SWEEP_HOUR_UTC must be between 0 and 23")
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
