package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. Credentials are injected into
// the clients at construction; nothing reads the environment after Load.
type Config struct {
	Port    int
	DevMode bool

	LogLevel string

	SupabaseURL     string
	SupabaseAPIKey  string
	SupabaseTimeout time.Duration

	QuotesBaseURL string
	QuotesTimeout time.Duration
	QuotesRetries int

	RevaluationSchedule string
	RevaluationWorkers  int

	InitialCashBalance float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseAPIKey:  getEnv("SUPABASE_API_KEY", ""),
		SupabaseTimeout: getEnvAsDuration("SUPABASE_TIMEOUT", 10*time.Second),

		QuotesBaseURL: getEnv("QUOTES_BASE_URL", "https://query1.finance.yahoo.com"),
		QuotesTimeout: getEnvAsDuration("QUOTES_TIMEOUT", 10*time.Second),
		QuotesRetries: getEnvAsInt("QUOTES_RETRIES", 3),

		RevaluationSchedule: getEnv("REVALUATION_SCHEDULE", "@every 15m"),
		RevaluationWorkers:  getEnvAsInt("REVALUATION_WORKERS", 4),

		InitialCashBalance: getEnvAsFloat("INITIAL_CASH_BALANCE", 10000.00),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}

	if c.SupabaseAPIKey == "" {
		return fmt.Errorf("SUPABASE_API_KEY is required")
	}

	if c.RevaluationWorkers < 1 {
		return fmt.Errorf("REVALUATION_WORKERS must be at least 1")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
