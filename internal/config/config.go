package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"onthesis/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Storage  StorageConfig  `validate:"required"`
	Session  SessionConfig  `validate:"required"`
	Analysis AnalysisConfig `validate:"required"`
	Metrics  MetricsConfig
	LogLevel string `validate:"oneof=ERROR WARN INFO DEBUG TRACE"`
}

// StorageConfig selects the durable tier and the local fallback
type StorageConfig struct {
	Durable            string        `validate:"oneof=postgres gcs none"`
	DatabaseURL        string        `validate:"required_if=Durable postgres"`
	GCSBucket          string        `validate:"required_if=Durable gcs"`
	GCSCredentialsFile string
	LocalPath          string        `validate:"required"`
	Timeout            time.Duration `validate:"gt=0"`
}

// SessionConfig holds the identity used when none is given
type SessionConfig struct {
	DefaultUserID    string `validate:"required"`
	DefaultProjectID string `validate:"required"`
}

// AnalysisConfig holds analysis history settings
type AnalysisConfig struct {
	HistoryLimit int `validate:"min=1,max=1000"`
}

// MetricsConfig toggles prometheus collectors. File, when set, receives
// the registry in text exposition format when the process finishes.
type MetricsConfig struct {
	Enabled bool
	File    string
}

var validate = validator.New()

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Storage:  loadStorageConfig(),
		Session:  loadSessionConfig(),
		Analysis: AnalysisConfig{HistoryLimit: getEnvIntOrDefault("HISTORY_LIMIT", 20)},
		Metrics:  loadMetricsConfig(),
		LogLevel: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate checks the struct tags and reports failures by env variable name.
func Validate(config *Config) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.ConfigInvalid(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.ConfigInvalid(strings.Join(msgs, "; "))
}

var envNames = map[string]string{
	"Durable":          "DURABLE_STORE",
	"DatabaseURL":      "DATABASE_URL",
	"GCSBucket":        "GCS_BUCKET",
	"LocalPath":        "LOCAL_STORAGE_PATH",
	"Timeout":          "STORAGE_TIMEOUT",
	"DefaultUserID":    "DEFAULT_USER_ID",
	"DefaultProjectID": "DEFAULT_PROJECT_ID",
	"HistoryLimit":     "HISTORY_LIMIT",
	"LogLevel":         "LOG_LEVEL",
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	if env, ok := envNames[name]; ok {
		name = env
	}
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s=%s)", name, fe.Tag(), fe.Param())
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Durable:            strings.ToLower(getEnvOrDefault("DURABLE_STORE", "none")),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		LocalPath:          getEnvOrDefault("LOCAL_STORAGE_PATH", "instance/user_data"),
		Timeout:            getEnvDurationOrDefault("STORAGE_TIMEOUT", 15*time.Second),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		DefaultUserID:    getEnvOrDefault("DEFAULT_USER_ID", "guest"),
		DefaultProjectID: getEnvOrDefault("DEFAULT_PROJECT_ID", "default"),
	}
}

func loadMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
		File:    os.Getenv("METRICS_FILE"),
	}
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
