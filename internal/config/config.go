// Package config holds the processor's runtime configuration, populated
// from the environment with file-path overrides from the command line.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config is the processor configuration. Every field can be set through the
// environment with the DECADES_ prefix.
type Config struct {
	Paths      PathsConfig      `envconfig:"PATHS"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
	Processing ProcessingConfig `envconfig:"PROCESSING"`
}

// PathsConfig locates the flight inputs and outputs.
type PathsConfig struct {
	Constants string `envconfig:"CONSTANTS" validate:"required"`
	DataDir   string `envconfig:"DATA_DIR" validate:"required"`
	OutputDir string `envconfig:"OUTPUT_DIR" default:"."`
}

// LoggingConfig controls the structured log output.
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
}

// ProcessingConfig controls how the module runner behaves.
type ProcessingConfig struct {
	Parallel bool `envconfig:"PARALLEL" default:"false"`
	QAReport bool `envconfig:"QA_REPORT" default:"true"`
}

var validate = validator.New()

// Load reads configuration from the environment. Validation is separate so
// the caller can layer command-line overrides on top first.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("DECADES", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog level.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger described by the configuration.
func (c LoggingConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var handler slog.Handler
	if strings.EqualFold(c.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
