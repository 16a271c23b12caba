package config

import (
	"os"
	"strconv"

	"datacheck/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Checks   ChecksConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	Enabled bool // result persistence is optional
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// ChecksConfig holds default check parameters
type ChecksConfig struct {
	NShowTop                 int
	IQRScale                 float64
	IQRPercentileLow         float64
	IQRPercentileHigh        float64
	FeatureImportanceTimeout int // seconds
	ValidateDataOnPredict    bool
	WithDisplay              bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Checks:   loadChecksConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	url := os.Getenv("DATABASE_URL")
	return DatabaseConfig{
		URL:     url,
		Enabled: url != "",
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadChecksConfig() ChecksConfig {
	return ChecksConfig{
		NShowTop:                 getEnvIntOrDefault("CHECKS_N_SHOW_TOP", 5),
		IQRScale:                 getEnvFloatOrDefault("CHECKS_IQR_SCALE", 1.5),
		IQRPercentileLow:         getEnvFloatOrDefault("CHECKS_IQR_PERCENTILE_LOW", 25),
		IQRPercentileHigh:        getEnvFloatOrDefault("CHECKS_IQR_PERCENTILE_HIGH", 75),
		FeatureImportanceTimeout: getEnvIntOrDefault("CHECKS_FI_TIMEOUT_SECONDS", 120),
		ValidateDataOnPredict:    getEnvBoolOrDefault("CHECKS_VALIDATE_ON_PREDICT", true),
		WithDisplay:              getEnvBoolOrDefault("CHECKS_WITH_DISPLAY", true),
	}
}

func validateConfig(config *Config) error {
	if config.Checks.NShowTop < 0 {
		return errors.ConfigInvalid("CHECKS_N_SHOW_TOP must be non-negative")
	}
	if config.Checks.IQRScale <= 0 {
		return errors.ConfigInvalid("CHECKS_IQR_SCALE must be positive")
	}
	low, high := config.Checks.IQRPercentileLow, config.Checks.IQRPercentileHigh
	if low < 0 || high > 100 || low >= high {
		return errors.ConfigInvalid("IQR percentiles must satisfy 0 <= low < high <= 100")
	}
	if config.Checks.FeatureImportanceTimeout <= 0 {
		return errors.ConfigInvalid("CHECKS_FI_TIMEOUT_SECONDS must be positive")
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
