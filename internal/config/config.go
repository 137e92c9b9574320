package config

import (
	"os"
	"strconv"
	"time"

	"trialgate/domain/core"
	"trialgate/internal/errors"
	"trialgate/internal/logging"
)

// Config represents the complete application configuration
type Config struct {
	Log        LogConfig
	Server     ServerConfig
	Evaluation EvaluationConfig
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// EvaluationConfig holds predicate evaluation settings
type EvaluationConfig struct {
	// Parallelism bounds concurrent hypothesis evaluations per combinator call.
	Parallelism int
	// ReferenceDate anchors date-windowed predicates; unknown means "now".
	ReferenceDate core.PartialDate
	CriteriaFile  string
}

// ReferenceDateAt returns the configured reference date, or the month of now
// when none is configured.
func (c EvaluationConfig) ReferenceDateAt(now time.Time) core.PartialDate {
	if c.ReferenceDate.HasYear() {
		return c.ReferenceDate
	}
	return core.YearMonth(now.Year(), int(now.Month()))
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Log:    loadLogConfig(),
		Server: loadServerConfig(),
	}

	evaluationConfig, err := loadEvaluationConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load evaluation configuration")
	}
	config.Evaluation = *evaluationConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadLogConfig() LogConfig {
	return LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnvOrDefault("TRIALGATE_PORT", "8080"),
		ShutdownTimeout: getEnvDurationOrDefault("TRIALGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadEvaluationConfig() (*EvaluationConfig, error) {
	reference := core.UnknownDate()
	if raw := os.Getenv("TRIALGATE_REFERENCE_DATE"); raw != "" {
		parsed, err := core.ParsePartialDate(raw)
		if err != nil {
			return nil, errors.ConfigInvalid("TRIALGATE_REFERENCE_DATE must be YYYY-MM or YYYY")
		}
		reference = parsed
	}

	return &EvaluationConfig{
		Parallelism:   getEnvIntOrDefault("TRIALGATE_PARALLELISM", 4),
		ReferenceDate: reference,
		CriteriaFile:  getEnvOrDefault("TRIALGATE_CRITERIA_FILE", ""),
	}, nil
}

func validateConfig(config *Config) error {
	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return errors.ConfigInvalid("LOG_LEVEL must be one of ERROR, WARN, INFO, DEBUG, TRACE")
	}
	if config.Evaluation.Parallelism < 1 {
		return errors.ConfigInvalid("TRIALGATE_PARALLELISM must be positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("TRIALGATE_PORT is required")
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
