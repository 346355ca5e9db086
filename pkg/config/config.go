// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/swatch-db/csv-validate/pkg/converter"
	"github.com/swatch-db/csv-validate/pkg/model"
)

// Config represents the application configuration
type Config struct {
	// Inputs
	SchemaPath string
	CSVPath    string

	// Run settings
	MaxFails      int
	StartRow      int // 1-indexed data row, header excluded
	Processes     int
	ChunkSize     int // 0 selects fixed chunk count mode
	PollInterval  time.Duration
	FailureBuffer int

	// Cell conversion
	NullTokens      []string // read as missing in addition to the default NA tokens
	TrimNumbers     bool
	InferUndeclared bool

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads defaults from the environment, reading a .env file in the
// working directory first when one exists
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &model.ConfigError{Field: ".env", Err: err}
	}

	cfg := &Config{
		MaxFails:      getEnvAsInt("CSVALIDATE_MAX_FAILS", 1),
		StartRow:      getEnvAsInt("CSVALIDATE_START_ROW", 1),
		Processes:     getEnvAsInt("CSVALIDATE_PROCESSES", 1),
		ChunkSize:     getEnvAsInt("CSVALIDATE_CHUNK_SIZE", 0),
		PollInterval:  time.Duration(getEnvAsInt("CSVALIDATE_POLL_INTERVAL_MS", 200)) * time.Millisecond,
		FailureBuffer: getEnvAsInt("CSVALIDATE_FAILURE_BUFFER", 1024),

		NullTokens:      getEnvAsStringSlice("CSVALIDATE_NULL_TOKENS", nil),
		TrimNumbers:     getEnvAsBool("CSVALIDATE_TRIM_NUMBERS", true),
		InferUndeclared: getEnvAsBool("CSVALIDATE_INFER_UNDECLARED", true),

		LogLevel:  getEnv("LOG_LEVEL", "warn"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid. Every
// problem found is reported, not just the first.
func (c *Config) Validate() error {
	var errs error

	errs = multierr.Append(errs, checkFile("schema-path", c.SchemaPath))
	errs = multierr.Append(errs, checkFile("csv-path", c.CSVPath))

	if c.MaxFails < 0 {
		errs = multierr.Append(errs, &model.ConfigError{Field: "max-fails", Err: errors.New("cannot be negative")})
	}
	if c.StartRow < 1 {
		errs = multierr.Append(errs, &model.ConfigError{Field: "start-row", Err: errors.New("must be at least 1")})
	}
	if c.Processes < 1 {
		errs = multierr.Append(errs, &model.ConfigError{Field: "processes", Err: errors.New("must be at least 1")})
	}
	if c.ChunkSize < 0 {
		errs = multierr.Append(errs, &model.ConfigError{Field: "chunk-size", Err: errors.New("cannot be negative")})
	}
	if c.PollInterval <= 0 {
		errs = multierr.Append(errs, &model.ConfigError{Field: "poll-interval", Err: errors.New("must be positive")})
	}
	if c.FailureBuffer < 1 {
		errs = multierr.Append(errs, &model.ConfigError{Field: "failure-buffer", Err: errors.New("must be at least 1")})
	}

	return errs
}

// Streaming reports whether records are read lazily in fixed-size chunks
func (c *Config) Streaming() bool {
	return c.ChunkSize > 0
}

// ConverterConfig returns the cell conversion rules for the run
func (c *Config) ConverterConfig() converter.TypeConverterConfig {
	return converter.TypeConverterConfig{
		NullTokens:      append(slices.Clone(converter.DefaultNullTokens), c.NullTokens...),
		TrimNumbers:     c.TrimNumbers,
		InferUndeclared: c.InferUndeclared,
	}
}

func checkFile(field, path string) error {
	if path == "" {
		return &model.ConfigError{Field: field, Err: errors.New("is required")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &model.ConfigError{Field: field, Err: err}
	}
	if info.IsDir() {
		return &model.ConfigError{Field: field, Err: fmt.Errorf("%s is a directory", path)}
	}
	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsStringSlice reads a comma-separated list, dropping empty entries
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return lo.Compact(lo.Map(strings.Split(value, ","), func(v string, _ int) string {
		return strings.TrimSpace(v)
	}))
}
