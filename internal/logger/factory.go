package logger

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// NewFromEnv creates a logger configured by TALON_* environment variables.
func NewFromEnv() (*zap.Logger, error) {
	return New(configFromEnv())
}

// configFromEnv builds Config from environment variables.
func configFromEnv() Config {
	cfg := DefaultConfig()

	// Anything but an explicit production environment runs in development.
	isDev := strings.ToLower(os.Getenv("TALON_ENV")) != "production"
	if isDev {
		cfg = DevelopmentConfig()
	}

	if level := os.Getenv("TALON_LOG_LEVEL"); level != "" {
		cfg.Level = level
	}

	if format := os.Getenv("TALON_LOG_FORMAT"); format != "" {
		cfg.Format = format
	}

	if sampling := os.Getenv("TALON_LOG_SAMPLING"); sampling != "" {
		cfg.EnableSampling = strings.ToLower(sampling) == "true"
	}

	if initial := os.Getenv("TALON_LOG_SAMPLE_INITIAL"); initial != "" {
		if val, err := strconv.Atoi(initial); err == nil {
			cfg.SampleInitial = val
		}
	}

	if thereafter := os.Getenv("TALON_LOG_SAMPLE_THEREAFTER"); thereafter != "" {
		if val, err := strconv.Atoi(thereafter); err == nil {
			cfg.SampleThereafter = val
		}
	}

	if dev := os.Getenv("TALON_LOG_DEVELOPMENT"); dev != "" {
		cfg.Development = strings.ToLower(dev) == "true"
	}

	return cfg
}
