package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"statlab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
	Limits   LimitsConfig
	Plan     PlanConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig selects the run-history store
type DatabaseConfig struct {
	Driver string // postgres or sqlite3
	URL    string
}

// AIConfig holds narrative generation settings. An empty APIKey selects the
// offline narrator.
type AIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	PromptsDir  string
}

// Enabled reports whether a remote model is configured
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// LimitsConfig bounds the work a single deployment accepts
type LimitsConfig struct {
	MaxRows               int
	MaxConcurrentAnalyses int
	MaxUploadMB           int
}

// MaxUploadBytes converts MaxUploadMB to bytes
func (l LimitsConfig) MaxUploadBytes() int64 {
	return int64(l.MaxUploadMB) << 20
}

// PlanConfig carries the deployment tier into the engine capabilities
type PlanConfig struct {
	Advanced bool
}

const (
	DefaultMaxRows               = 50000
	DefaultMaxConcurrentAnalyses = 4
	DefaultMaxUploadMB           = 20
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: loadServerConfig(),
		AI:     loadAIConfig(),
		Limits: loadLimitsConfig(),
		Plan:   PlanConfig{Advanced: getEnvBoolOrDefault("PLAN_ADVANCED", false)},
	}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = dbConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	driver := getEnvOrDefault("DATABASE_DRIVER", "sqlite3")
	url := os.Getenv("DATABASE_URL")
	switch driver {
	case "sqlite3":
		if url == "" {
			url = "file:statlab.db?_foreign_keys=on"
		}
	case "postgres":
		if url == "" {
			return DatabaseConfig{}, errors.ConfigInvalid("DATABASE_URL is required for postgres")
		}
	default:
		return DatabaseConfig{}, errors.ConfigInvalid(fmt.Sprintf("unsupported DATABASE_DRIVER %q", driver))
	}
	return DatabaseConfig{Driver: driver, URL: url}, nil
}

func loadAIConfig() AIConfig {
	return AIConfig{
		APIKey:      os.Getenv("LLM_API_KEY"),
		Model:       getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		BaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Temperature: getEnvFloatOrDefault("LLM_TEMPERATURE", 0.2),
		MaxTokens:   getEnvIntOrDefault("LLM_MAX_TOKENS", 600),
		Timeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 30*time.Second),
		PromptsDir:  os.Getenv("LLM_PROMPTS_DIR"),
	}
}

func loadLimitsConfig() LimitsConfig {
	return LimitsConfig{
		MaxRows:               getEnvIntOrDefault("MAX_ROWS", DefaultMaxRows),
		MaxConcurrentAnalyses: getEnvIntOrDefault("MAX_CONCURRENT_ANALYSES", DefaultMaxConcurrentAnalyses),
		MaxUploadMB:           getEnvIntOrDefault("MAX_UPLOAD_MB", DefaultMaxUploadMB),
	}
}

func validateConfig(config *Config) error {
	if config.Limits.MaxRows <= 0 {
		return errors.ConfigInvalid("MAX_ROWS must be positive")
	}
	if config.Limits.MaxConcurrentAnalyses <= 0 {
		return errors.ConfigInvalid("MAX_CONCURRENT_ANALYSES must be positive")
	}
	if config.Limits.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.AI.Temperature < 0 || config.AI.Temperature > 2 {
		return errors.ConfigInvalid("LLM_TEMPERATURE must be within [0, 2]")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
